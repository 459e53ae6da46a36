package api

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// GetStatus reports the profile the daemon serves and what it holds.
func (s *Service) GetStatus(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp := StatusResponse{
		Profile:     s.profile,
		UptimeMs:    time.Since(s.startedAt).Milliseconds(),
		CallState:   s.calls.State(),
		Watchers:    s.watchers.Load(),
		Subscribers: s.bus.Subscribers(),
		Dropped:     s.bus.Dropped(),
	}

	chats, err := s.chats.AllChats()
	if err != nil {
		return nil, err
	}
	resp.ChatCount = len(chats)

	history, err := s.calls.AllCalls()
	if err != nil {
		return nil, err
	}
	resp.CallCount = len(history)

	return Encode(resp)
}
