// Package suggest derives a conversation context and canned reply
// suggestions from the recent history of a chat.
package suggest

import (
	"strings"

	"github.com/matheus3301/chatter/internal/chat"
)

// Tone is the coarse register of a conversation.
type Tone string

const (
	Formal       Tone = "formal"
	Casual       Tone = "casual"
	Professional Tone = "professional"
	Friendly     Tone = "friendly"
)

// recentWindow is how many trailing messages feed the context.
const recentWindow = 5

// Context summarizes the tail of a chat.
type Context struct {
	LastMessage      string   `json:"lastMessage"`
	RecentMessages   []string `json:"recentMessages"`
	ConversationTone Tone     `json:"conversationTone"`
	CommonTopics     []string `json:"commonTopics"`
}

// ChatSource is the read side of the chat store.
type ChatSource interface {
	Chat(id string) (*chat.Chat, error)
}

// Engine computes contexts and suggestions. It keeps no state between
// calls, so equal chat state always yields equal output.
type Engine struct {
	chats ChatSource
}

// NewEngine creates an engine reading from chats.
func NewEngine(chats ChatSource) *Engine {
	return &Engine{chats: chats}
}

func emptyContext() Context {
	return Context{
		RecentMessages:   []string{},
		ConversationTone: Casual,
		CommonTopics:     []string{},
	}
}

// Context returns the conversation context of the chat. An unknown or
// empty chat yields an empty casual context. Only storage failures are
// returned as errors.
func (e *Engine) Context(chatID string) (Context, error) {
	c, err := e.chats.Chat(chatID)
	if err != nil {
		return Context{}, err
	}
	if c == nil || len(c.Messages) == 0 {
		return emptyContext(), nil
	}
	return contextOf(c.Messages), nil
}

func contextOf(msgs []chat.Message) Context {
	tail := msgs[max(len(msgs)-recentWindow, 0):]
	recent := make([]string, 0, len(tail))
	for _, m := range tail {
		recent = append(recent, m.Text)
	}
	all := strings.ToLower(strings.Join(recent, " "))

	ctx := Context{
		LastMessage:      recent[len(recent)-1],
		RecentMessages:   recent,
		ConversationTone: Casual,
		CommonTopics:     []string{},
	}
	for _, r := range toneRules {
		if containsAny(all, r.keywords...) {
			ctx.ConversationTone = r.tone
			break
		}
	}
	for _, r := range topicRules {
		if containsAny(all, r.keywords...) {
			ctx.CommonTopics = append(ctx.CommonTopics, r.topic)
		}
	}
	return ctx
}

// Suggestions returns the reply candidates for the chat. displayName is
// substituted into greeting replies.
func (e *Engine) Suggestions(chatID, displayName string) ([]string, error) {
	ctx, err := e.Context(chatID)
	if err != nil {
		return nil, err
	}
	return Suggest(ctx, displayName), nil
}

// Suggest applies the suggestion rules to ctx. The first matching rule
// wins.
func Suggest(ctx Context, displayName string) []string {
	last := strings.ToLower(ctx.LastMessage)
	for _, r := range suggestionRules {
		if r.tone != "" && r.tone != ctx.ConversationTone {
			continue
		}
		if len(r.keywords) > 0 && !containsAny(last, r.keywords...) {
			continue
		}
		out := make([]string, len(r.replies))
		for i, s := range r.replies {
			out[i] = strings.ReplaceAll(s, "{name}", displayName)
		}
		return out
	}
	return nil
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
