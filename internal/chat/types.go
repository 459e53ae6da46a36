package chat

import "errors"

// DocumentName is the storage key of the chat document.
const DocumentName = "chats.json"

// TimestampLayout is the ISO-8601 form used for message timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Bus event kinds published by the store.
const (
	EventMessageAdded = "chat.message_added"
	EventMessageRead  = "chat.message_read"
	EventChatCreated  = "chat.created"
)

// ErrNotFound is returned when an operation addresses an unknown chat.
var ErrNotFound = errors.New("chat not found")

// Message is one entry of a chat thread. Sent is true for messages
// authored locally.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Sent      bool   `json:"sent"`
	Read      bool   `json:"read"`
}

// Chat is a named conversation with its ordered message history.
type Chat struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	Online   bool      `json:"online"`
	Messages []Message `json:"messages"`
	AI       bool      `json:"isAIChat,omitempty"`
}

// Chats maps chat ID to chat. It is the serialized form of the document.
type Chats map[string]Chat

// ChatInfo holds the caller-supplied fields of a new chat.
type ChatInfo struct {
	Name   string
	Avatar string
	Online bool
	AI     bool
}

// MessageAdded is the payload of EventMessageAdded.
type MessageAdded struct {
	ChatID  string  `json:"chatId"`
	AI      bool    `json:"isAIChat,omitempty"`
	Message Message `json:"message"`
}

// MessageRead is the payload of EventMessageRead.
type MessageRead struct {
	ChatID     string   `json:"chatId"`
	MessageIDs []string `json:"messageIds"`
}

func (c Chat) clone() Chat {
	c.Messages = append(make([]Message, 0, len(c.Messages)), c.Messages...)
	return c
}

func (cs Chats) clone() Chats {
	out := make(Chats, len(cs))
	for id, c := range cs {
		out[id] = c.clone()
	}
	return out
}
