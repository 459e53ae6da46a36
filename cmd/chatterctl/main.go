package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/matheus3301/chatter/internal/api"
	"github.com/matheus3301/chatter/internal/client"
	"github.com/matheus3301/chatter/internal/lock"
	"github.com/matheus3301/chatter/internal/profile"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// profileName is the resolved profile, set once at startup.
var profileName string

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	if err := godotenv.Load(profile.EnvPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatalf("load %s: %v", profile.EnvPath(), err)
	}

	profileName = profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fatalf("%v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := client.New(profile.SocketPath(profileName))
	if err != nil {
		fatalf("cannot connect to daemon for profile %q: %v", profileName, err)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		cmdWatch(c, args[1:], *jsonFlag)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := output{json: *jsonFlag, w: os.Stdout}
	switch args[0] {
	case "status":
		cmdStatus(ctx, c, out)
	case "chats":
		cmdChats(ctx, c, out)
	case "chat":
		need(args, 2, "chat <id>")
		cmdChat(ctx, c, args[1], out)
	case "new":
		need(args, 2, "new <name> [avatar]")
		req := api.CreateChatRequest{Name: args[1]}
		if len(args) > 2 {
			req.Avatar = args[2]
		}
		ch, err := c.CreateChat(ctx, req)
		check(err)
		out.print(ch, func() { fmt.Println(ch.ID) })
	case "new-ai":
		need(args, 2, "new-ai <persona>")
		ch, err := c.CreateAIChat(ctx, args[1])
		check(err)
		out.print(ch, func() { fmt.Println(ch.ID) })
	case "personas":
		cmdPersonas(ctx, c, out)
	case "contacts":
		cmdContacts(ctx, c, strings.Join(args[1:], " "), out)
	case "open":
		need(args, 2, "open <contact>")
		cmdOpen(ctx, c, args[1], out)
	case "send":
		need(args, 3, "send <chat> <text>")
		msg, err := c.SendMessage(ctx, args[1], strings.Join(args[2:], " "))
		check(err)
		out.print(msg, func() { fmt.Printf("Sent %s at %s\n", msg.ID, msg.Timestamp) })
	case "read":
		need(args, 2, "read <chat> [message]")
		cmdRead(ctx, c, args[1:], out)
	case "suggest":
		need(args, 2, "suggest <chat> [name]")
		name := ""
		if len(args) > 2 {
			name = strings.Join(args[2:], " ")
		}
		list, err := c.Suggestions(ctx, args[1], name)
		check(err)
		out.print(list, func() {
			for _, s := range list {
				fmt.Println(s)
			}
		})
	case "context":
		need(args, 2, "context <chat>")
		sc, err := c.Context(ctx, args[1])
		check(err)
		out.print(sc, func() {
			fmt.Printf("Tone:   %s\n", sc.ConversationTone)
			fmt.Printf("Topics: %s\n", strings.Join(sc.CommonTopics, ", "))
			fmt.Printf("Last:   %s\n", sc.LastMessage)
		})
	case "calls":
		contactID := ""
		if len(args) > 1 {
			contactID = args[1]
		}
		cmdCalls(ctx, c, contactID, out)
	case "call":
		need(args, 2, "call <start|receive|answer|decline|end|mute|speaker|video|current|stats>")
		cmdCall(ctx, c, args[1], args[2:], out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatterctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                       Show daemon status")
	fmt.Fprintln(os.Stderr, "  chats                        List chats, most recent first")
	fmt.Fprintln(os.Stderr, "  chat <id>                    Show a chat's messages")
	fmt.Fprintln(os.Stderr, "  new <name> [avatar]          Create a chat")
	fmt.Fprintln(os.Stderr, "  new-ai <persona>             Create an AI chat")
	fmt.Fprintln(os.Stderr, "  personas                     List AI personas")
	fmt.Fprintln(os.Stderr, "  contacts [query]             Search contacts by name or phone")
	fmt.Fprintln(os.Stderr, "  open <contact>               Open or start the chat with a contact")
	fmt.Fprintln(os.Stderr, "  send <chat> <text>           Send a message")
	fmt.Fprintln(os.Stderr, "  read <chat> [message]        Mark a message or the whole chat read")
	fmt.Fprintln(os.Stderr, "  suggest <chat> [name]        Show reply suggestions")
	fmt.Fprintln(os.Stderr, "  context <chat>               Show the conversation context")
	fmt.Fprintln(os.Stderr, "  calls [contact]              List call history")
	fmt.Fprintln(os.Stderr, "  call start|receive <contact> <name> [voice|video] [avatar]")
	fmt.Fprintln(os.Stderr, "  call answer|decline|end|mute|speaker|video|current|stats")
	fmt.Fprintln(os.Stderr, "  watch [namespace]            Stream events (chat., call.)")
}

type output struct {
	json bool
	w    io.Writer
}

// print writes v as JSON in --json mode and calls text otherwise.
func (o output) print(v any, text func()) {
	if o.json {
		outputJSON(o.w, v)
		return
	}
	text()
}

func cmdStatus(ctx context.Context, c *client.Client, out output) {
	st, err := c.Status(ctx)
	check(err)
	out.print(st, func() {
		fmt.Printf("Profile: %s\n", st.Profile)
		fmt.Printf("Uptime:  %dms\n", st.UptimeMs)
		fmt.Printf("Chats:   %d\n", st.ChatCount)
		fmt.Printf("Calls:   %d\n", st.CallCount)
		fmt.Printf("Call:    %s\n", st.CallState)
		fmt.Printf("Watch:   %d streams (%d bus subscribers, %d dropped)\n", st.Watchers, st.Subscribers, st.Dropped)
	})
}

func cmdChats(ctx context.Context, c *client.Client, out output) {
	list, err := c.ListChats(ctx)
	check(err)
	out.print(list, func() {
		if len(list) == 0 {
			fmt.Println("No chats found.")
			return
		}
		for _, s := range list {
			preview := ""
			if s.LastMessage != nil {
				preview = s.LastMessage.Text
			}
			fmt.Printf("%-38s %-20s %3d  %s\n", s.ID, s.Name, s.UnreadCount, preview)
		}
	})
}

func cmdChat(ctx context.Context, c *client.Client, id string, out output) {
	ch, err := c.GetChat(ctx, id)
	check(err)
	out.print(ch, func() {
		fmt.Printf("%s (%s)\n", ch.Name, ch.ID)
		for _, m := range ch.Messages {
			who := "<"
			if m.Sent {
				who = ">"
			}
			fmt.Printf("%s %s %s\n", m.Timestamp, who, m.Text)
		}
	})
}

func cmdPersonas(ctx context.Context, c *client.Client, out output) {
	list, err := c.ListPersonas(ctx)
	check(err)
	out.print(list, func() {
		for _, p := range list {
			fmt.Printf("%-10s %s %-16s %s\n", p.ID, p.Avatar, p.Name, p.Description)
		}
	})
}

// readResult reports what a read command marked.
type readResult struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId,omitempty"`
	Marked    int    `json:"marked"`
}

func cmdContacts(ctx context.Context, c *client.Client, query string, out output) {
	list, err := c.ListContacts(ctx, query)
	check(err)
	out.print(list, func() {
		if len(list) == 0 {
			fmt.Println("No contacts found.")
			return
		}
		for _, ct := range list {
			fmt.Printf("%-4s %-20s %s\n", ct.ID, ct.Name, ct.Phone)
		}
	})
}

func cmdOpen(ctx context.Context, c *client.Client, contactID string, out output) {
	ch, created, err := c.OpenChat(ctx, contactID)
	check(err)
	out.print(api.OpenChatResponse{Chat: ch, Created: created}, func() {
		if created {
			fmt.Printf("Started %s with %s\n", ch.ID, ch.Name)
			return
		}
		fmt.Printf("Opened %s with %s\n", ch.ID, ch.Name)
	})
}

func cmdRead(ctx context.Context, c *client.Client, args []string, out output) {
	res := readResult{ChatID: args[0]}
	if len(args) > 1 {
		res.MessageID = args[1]
		check(c.MarkMessageRead(ctx, res.ChatID, res.MessageID))
	} else {
		n, err := c.MarkChatRead(ctx, res.ChatID)
		check(err)
		res.Marked = n
	}
	out.print(res, func() { printRead(res) })
}

func printRead(res readResult) {
	if res.MessageID != "" {
		fmt.Printf("Marked %s read\n", res.MessageID)
		return
	}
	fmt.Printf("Marked %d message(s) read\n", res.Marked)
}

func cmdCalls(ctx context.Context, c *client.Client, contactID string, out output) {
	list, err := c.ListCalls(ctx, contactID)
	check(err)
	out.print(list, func() {
		if len(list) == 0 {
			fmt.Println("No calls found.")
			return
		}
		for _, r := range list {
			duration := "-"
			if r.Duration != nil {
				duration = (time.Duration(*r.Duration) * time.Second).String()
			}
			fmt.Printf("%s %-20s %-8s %-5s %-9s %s\n", r.Timestamp, r.ContactName, r.Type, r.Mode, r.Status, duration)
		}
	})
}

var callMethods = map[string]string{
	"start":   "StartCall",
	"receive": "ReceiveCall",
	"answer":  "AnswerCall",
	"decline": "DeclineCall",
	"end":     "EndCall",
	"mute":    "ToggleMute",
	"speaker": "ToggleSpeaker",
	"video":   "ToggleVideo",
	"current": "CurrentCall",
}

func cmdCall(ctx context.Context, c *client.Client, subcmd string, args []string, out output) {
	if subcmd == "stats" {
		st, err := c.CallStats(ctx)
		check(err)
		out.print(st, func() {
			fmt.Printf("Total:    %d (%ds)\n", st.TotalCalls, st.TotalDuration)
			fmt.Printf("Missed:   %d\n", st.MissedCalls)
			fmt.Printf("Voice:    %d\n", st.VoiceCalls)
			fmt.Printf("Video:    %d\n", st.VideoCalls)
		})
		return
	}

	method, ok := callMethods[subcmd]
	if !ok {
		fatalf("unknown call subcommand: %s", subcmd)
	}
	var req *api.CallRequest
	if subcmd == "start" || subcmd == "receive" {
		if len(args) < 2 {
			fatalf("usage: chatterctl call %s <contact> <name> [voice|video] [avatar]", subcmd)
		}
		req = &api.CallRequest{ContactID: args[0], ContactName: args[1]}
		if len(args) > 2 {
			req.Mode = args[2]
		}
		if len(args) > 3 {
			req.ContactAvatar = args[3]
		}
	}

	resp, err := c.CallAction(ctx, method, req)
	check(err)
	out.print(resp, func() {
		if resp.Session == nil {
			fmt.Printf("No call (%s)\n", resp.State)
			return
		}
		s := resp.Session
		fmt.Printf("%s with %s (%s) since %s\n", resp.State, s.ContactName, s.Mode, s.StartTime)
		fmt.Printf("muted=%v speaker=%v video=%v\n", s.Muted, s.SpeakerOn, s.VideoEnabled)
	})
}

func cmdWatch(c *client.Client, args []string, jsonOut bool) {
	namespace := ""
	if len(args) > 0 {
		namespace = args[0]
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := c.Watch(ctx, namespace, func(evt api.Event) error {
		if jsonOut {
			outputJSON(os.Stdout, evt)
			return nil
		}
		payload, _ := json.Marshal(evt.Payload)
		fmt.Printf("%s %s %s\n", time.UnixMilli(evt.OccurredAtUnixMs).Format(time.RFC3339), evt.Kind, payload)
		return nil
	})
	check(err)
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fatalf("usage: chatterctl %s", usage)
	}
}

func check(err error) {
	if err == nil {
		return
	}
	if grpcstatus.Code(err) == codes.Unavailable {
		if _, ownerErr := lock.ReadOwner(profile.LockPath(profileName)); errors.Is(ownerErr, fs.ErrNotExist) {
			fatalf("daemon for profile %q is not running; start it with: chatterd --profile %s", profileName, profileName)
		}
	}
	fatalf("%v", err)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func outputJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
