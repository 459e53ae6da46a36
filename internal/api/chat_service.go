package api

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/matheus3301/chatter/internal/chat"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *Service) ListChats(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	chats, err := s.chats.AllChats()
	if err != nil {
		return nil, err
	}

	resp := ListChatsResponse{Chats: make([]ChatSummary, 0, len(chats))}
	for _, c := range chats {
		resp.Chats = append(resp.Chats, summarize(c))
	}
	sort.Slice(resp.Chats, func(i, j int) bool {
		a, b := lastTimestamp(resp.Chats[i]), lastTimestamp(resp.Chats[j])
		if a != b {
			return a > b
		}
		return resp.Chats[i].ID < resp.Chats[j].ID
	})
	return Encode(resp)
}

func summarize(c chat.Chat) ChatSummary {
	sum := ChatSummary{
		ID:     c.ID,
		Name:   c.Name,
		Avatar: c.Avatar,
		Online: c.Online,
		AI:     c.AI,
	}
	if n := len(c.Messages); n > 0 {
		last := c.Messages[n-1]
		sum.LastMessage = &last
	}
	for _, m := range c.Messages {
		if !m.Sent && !m.Read {
			sum.UnreadCount++
		}
	}
	return sum
}

func lastTimestamp(c ChatSummary) string {
	if c.LastMessage == nil {
		return ""
	}
	return c.LastMessage.Timestamp
}

func (s *Service) GetChat(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ChatRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	c, err := s.chats.Chat(req.ChatID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("chat %q: %w", req.ChatID, chat.ErrNotFound)
	}
	return Encode(ChatResponse{Chat: *c})
}

func (s *Service) CreateChat(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CreateChatRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, badRequest("name is required")
	}
	c, err := s.chats.CreateChat(chat.ChatInfo{Name: req.Name, Avatar: req.Avatar, Online: req.Online})
	if err != nil {
		return nil, err
	}
	return Encode(ChatResponse{Chat: c})
}

func (s *Service) CreateAIChat(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CreateAIChatRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	c, err := s.personas.CreateChat(s.chats, req.Persona)
	if err != nil {
		return nil, err
	}
	return Encode(ChatResponse{Chat: c})
}

func (s *Service) ListPersonas(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return Encode(ListPersonasResponse{Personas: s.personas.List()})
}

func (s *Service) ListContacts(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListContactsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	return Encode(ListContactsResponse{Contacts: s.contacts.Search(req.Query)})
}

// OpenChat goes to the contact's chat, starting one if they have none.
func (s *Service) OpenChat(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req OpenChatRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if req.ContactID == "" {
		return nil, badRequest("contactId is required")
	}
	c, created, err := s.contacts.OpenChat(s.chats, req.ContactID)
	if err != nil {
		return nil, err
	}
	return Encode(OpenChatResponse{Chat: c, Created: created})
}
