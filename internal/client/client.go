// Package client talks to a running chatterd over its Unix socket.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/chatter/internal/api"
	"github.com/matheus3301/chatter/internal/calls"
	"github.com/matheus3301/chatter/internal/chat"
	"github.com/matheus3301/chatter/internal/contacts"
	"github.com/matheus3301/chatter/internal/personas"
	"github.com/matheus3301/chatter/internal/suggest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Invoke calls a unary method, encoding req and decoding the reply into
// resp. A nil req sends an empty request.
func (c *Client) Invoke(ctx context.Context, method string, req, resp any) error {
	if req == nil {
		req = api.Empty{}
	}
	in, err := api.Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+api.ServiceName+"/"+method, in, out); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return api.Decode(out, resp)
}

func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var resp api.StatusResponse
	err := c.Invoke(ctx, "GetStatus", nil, &resp)
	return resp, err
}

func (c *Client) ListChats(ctx context.Context) ([]api.ChatSummary, error) {
	var resp api.ListChatsResponse
	err := c.Invoke(ctx, "ListChats", nil, &resp)
	return resp.Chats, err
}

func (c *Client) GetChat(ctx context.Context, chatID string) (chat.Chat, error) {
	var resp api.ChatResponse
	err := c.Invoke(ctx, "GetChat", api.ChatRequest{ChatID: chatID}, &resp)
	return resp.Chat, err
}

func (c *Client) CreateChat(ctx context.Context, req api.CreateChatRequest) (chat.Chat, error) {
	var resp api.ChatResponse
	err := c.Invoke(ctx, "CreateChat", req, &resp)
	return resp.Chat, err
}

func (c *Client) CreateAIChat(ctx context.Context, persona string) (chat.Chat, error) {
	var resp api.ChatResponse
	err := c.Invoke(ctx, "CreateAIChat", api.CreateAIChatRequest{Persona: persona}, &resp)
	return resp.Chat, err
}

func (c *Client) ListPersonas(ctx context.Context) ([]personas.Persona, error) {
	var resp api.ListPersonasResponse
	err := c.Invoke(ctx, "ListPersonas", nil, &resp)
	return resp.Personas, err
}

func (c *Client) ListContacts(ctx context.Context, query string) ([]contacts.Contact, error) {
	var resp api.ListContactsResponse
	err := c.Invoke(ctx, "ListContacts", api.ListContactsRequest{Query: query}, &resp)
	return resp.Contacts, err
}

// OpenChat returns the contact's chat, created reports whether it is new.
func (c *Client) OpenChat(ctx context.Context, contactID string) (chat.Chat, bool, error) {
	var resp api.OpenChatResponse
	err := c.Invoke(ctx, "OpenChat", api.OpenChatRequest{ContactID: contactID}, &resp)
	return resp.Chat, resp.Created, err
}

func (c *Client) SendMessage(ctx context.Context, chatID, text string) (chat.Message, error) {
	var resp api.MessageResponse
	err := c.Invoke(ctx, "SendMessage", api.SendMessageRequest{ChatID: chatID, Text: text}, &resp)
	return resp.Message, err
}

func (c *Client) MarkMessageRead(ctx context.Context, chatID, messageID string) error {
	return c.Invoke(ctx, "MarkMessageRead", api.MarkMessageReadRequest{ChatID: chatID, MessageID: messageID}, nil)
}

func (c *Client) MarkChatRead(ctx context.Context, chatID string) (int, error) {
	var resp api.MarkChatReadResponse
	err := c.Invoke(ctx, "MarkChatRead", api.ChatRequest{ChatID: chatID}, &resp)
	return resp.Marked, err
}

func (c *Client) Context(ctx context.Context, chatID string) (suggest.Context, error) {
	var resp api.ContextResponse
	err := c.Invoke(ctx, "GetContext", api.ChatRequest{ChatID: chatID}, &resp)
	return resp.Context, err
}

func (c *Client) Suggestions(ctx context.Context, chatID, displayName string) ([]string, error) {
	var resp api.SuggestionsResponse
	err := c.Invoke(ctx, "GetSuggestions", api.SuggestionsRequest{ChatID: chatID, DisplayName: displayName}, &resp)
	return resp.Suggestions, err
}

func (c *Client) ListCalls(ctx context.Context, contactID string) ([]calls.Record, error) {
	var resp api.ListCallsResponse
	err := c.Invoke(ctx, "ListCalls", api.ListCallsRequest{ContactID: contactID}, &resp)
	return resp.Calls, err
}

// CallAction runs a call method such as StartCall, AnswerCall or
// ToggleMute and returns the session afterwards. req is only used by
// StartCall and ReceiveCall.
func (c *Client) CallAction(ctx context.Context, method string, req *api.CallRequest) (api.SessionResponse, error) {
	var resp api.SessionResponse
	var in any
	if req != nil {
		in = *req
	}
	err := c.Invoke(ctx, method, in, &resp)
	return resp, err
}

func (c *Client) CallStats(ctx context.Context) (calls.Stats, error) {
	var resp api.CallStatsResponse
	err := c.Invoke(ctx, "CallStats", nil, &resp)
	return resp.Stats, err
}

// Watch streams daemon events with the given kind prefix to fn until ctx
// is done or fn returns an error.
func (c *Client) Watch(ctx context.Context, namespace string, fn func(api.Event) error) error {
	desc := &api.ServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, "/"+api.ServiceName+"/"+api.WatchStream)
	if err != nil {
		return err
	}
	in, err := api.Encode(api.WatchRequest{Namespace: namespace})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(in); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		var evt api.Event
		if err := api.Decode(out, &evt); err != nil {
			return err
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}
