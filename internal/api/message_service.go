package api

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

func (s *Service) SendMessage(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SendMessageRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, badRequest("text is required")
	}
	msg, err := s.chats.SendMessage(req.ChatID, req.Text)
	if err != nil {
		return nil, err
	}
	return Encode(MessageResponse{Message: msg})
}

func (s *Service) MarkMessageRead(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req MarkMessageReadRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if err := s.chats.MarkMessageAsRead(req.ChatID, req.MessageID); err != nil {
		return nil, err
	}
	return Encode(Empty{})
}

func (s *Service) MarkChatRead(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ChatRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	n, err := s.chats.MarkChatAsRead(req.ChatID)
	if err != nil {
		return nil, err
	}
	return Encode(MarkChatReadResponse{Marked: n})
}

func (s *Service) GetContext(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ChatRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	ctx, err := s.suggest.Context(req.ChatID)
	if err != nil {
		return nil, err
	}
	return Encode(ContextResponse{Context: ctx})
}

// GetSuggestions defaults the display name to the chat's own name.
func (s *Service) GetSuggestions(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SuggestionsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	name := req.DisplayName
	if name == "" {
		c, err := s.chats.Chat(req.ChatID)
		if err != nil {
			return nil, err
		}
		if c != nil {
			name = c.Name
		}
	}
	out, err := s.suggest.Suggestions(req.ChatID, name)
	if err != nil {
		return nil, err
	}
	return Encode(SuggestionsResponse{Suggestions: out})
}
