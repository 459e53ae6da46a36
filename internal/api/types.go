package api

import (
	"github.com/matheus3301/chatter/internal/calls"
	"github.com/matheus3301/chatter/internal/chat"
	"github.com/matheus3301/chatter/internal/contacts"
	"github.com/matheus3301/chatter/internal/personas"
	"github.com/matheus3301/chatter/internal/suggest"
)

// Empty is the request of methods without parameters.
type Empty struct{}

type StatusResponse struct {
	Profile   string      `json:"profile"`
	UptimeMs  int64       `json:"uptimeMs"`
	ChatCount int         `json:"chatCount"`
	CallCount int         `json:"callCount"`
	CallState calls.State `json:"callState"`
	// Watchers counts open Watch streams; Subscribers counts every bus
	// subscription, including the daemon's own.
	Watchers    int64  `json:"watchers"`
	Subscribers int    `json:"subscribers"`
	Dropped     uint64 `json:"droppedEvents"`
}

// ChatSummary is one row of the chat list.
type ChatSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Avatar      string        `json:"avatar"`
	Online      bool          `json:"online"`
	AI          bool          `json:"isAIChat,omitempty"`
	LastMessage *chat.Message `json:"lastMessage,omitempty"`
	UnreadCount int           `json:"unreadCount"`
}

type ListChatsResponse struct {
	Chats []ChatSummary `json:"chats"`
}

type ChatRequest struct {
	ChatID string `json:"chatId"`
}

type ChatResponse struct {
	Chat chat.Chat `json:"chat"`
}

type CreateChatRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Online bool   `json:"online"`
}

type CreateAIChatRequest struct {
	Persona string `json:"persona"`
}

type ListPersonasResponse struct {
	Personas []personas.Persona `json:"personas"`
}

type ListContactsRequest struct {
	Query string `json:"query"`
}

type ListContactsResponse struct {
	Contacts []contacts.Contact `json:"contacts"`
}

type OpenChatRequest struct {
	ContactID string `json:"contactId"`
}

// OpenChatResponse carries the contact's chat and whether it was just
// created.
type OpenChatResponse struct {
	Chat    chat.Chat `json:"chat"`
	Created bool      `json:"created"`
}

type SendMessageRequest struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

type MessageResponse struct {
	Message chat.Message `json:"message"`
}

type MarkMessageReadRequest struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

type MarkChatReadResponse struct {
	Marked int `json:"marked"`
}

type ContextResponse struct {
	Context suggest.Context `json:"context"`
}

type SuggestionsRequest struct {
	ChatID      string `json:"chatId"`
	DisplayName string `json:"displayName"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type ListCallsRequest struct {
	ContactID string `json:"contactId"`
}

type ListCallsResponse struct {
	Calls []calls.Record `json:"calls"`
}

type CallRequest struct {
	ContactID     string `json:"contactId"`
	ContactName   string `json:"contactName"`
	ContactAvatar string `json:"contactAvatar"`
	Mode          string `json:"callMode"`
}

// SessionResponse carries the live session, which is nil when idle.
type SessionResponse struct {
	Session *calls.Session `json:"session"`
	State   calls.State    `json:"state"`
}

type CallStatsResponse struct {
	Stats calls.Stats `json:"stats"`
}

// WatchRequest selects events by kind prefix; empty means all.
type WatchRequest struct {
	Namespace string `json:"namespace"`
}

// Event is one streamed bus event.
type Event struct {
	Kind             string `json:"kind"`
	OccurredAtUnixMs int64  `json:"occurredAtUnixMs"`
	Payload          any    `json:"payload"`
}
