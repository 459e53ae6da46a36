package api

import (
	"context"
	"sort"

	"github.com/matheus3301/chatter/internal/calls"
	"google.golang.org/protobuf/types/known/structpb"
)

// ListCalls returns the history newest first, optionally for one contact.
func (s *Service) ListCalls(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListCallsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}

	var records []calls.Record
	if req.ContactID != "" {
		rs, err := s.calls.CallsForContact(req.ContactID)
		if err != nil {
			return nil, err
		}
		records = rs
	} else {
		all, err := s.calls.AllCalls()
		if err != nil {
			return nil, err
		}
		for _, r := range all {
			records = append(records, r)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp > records[j].Timestamp
		}
		return records[i].ID > records[j].ID
	})
	if records == nil {
		records = []calls.Record{}
	}
	return Encode(ListCallsResponse{Calls: records})
}

func callArgs(in *structpb.Struct) (calls.Contact, calls.Mode, error) {
	var req CallRequest
	if err := decodeRequest(in, &req); err != nil {
		return calls.Contact{}, "", err
	}
	if req.ContactID == "" {
		return calls.Contact{}, "", badRequest("contactId is required")
	}
	mode, err := calls.ParseMode(req.Mode)
	if err != nil {
		return calls.Contact{}, "", badRequest("%v", err)
	}
	return calls.Contact{ID: req.ContactID, Name: req.ContactName, Avatar: req.ContactAvatar}, mode, nil
}

func (s *Service) sessionResponse() (*structpb.Struct, error) {
	return Encode(SessionResponse{Session: s.calls.CurrentCall(), State: s.calls.State()})
}

func (s *Service) StartCall(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	contact, mode, err := callArgs(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.calls.StartCall(contact, mode); err != nil {
		return nil, err
	}
	return s.sessionResponse()
}

func (s *Service) ReceiveCall(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	contact, mode, err := callArgs(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.calls.SimulateIncomingCall(contact, mode); err != nil {
		return nil, err
	}
	return s.sessionResponse()
}

func (s *Service) AnswerCall(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.calls.AnswerCall(); err != nil {
		return nil, err
	}
	return s.sessionResponse()
}

func (s *Service) DeclineCall(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.calls.DeclineCall(); err != nil {
		return nil, err
	}
	return s.sessionResponse()
}

func (s *Service) EndCall(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.calls.EndCall(); err != nil {
		return nil, err
	}
	return s.sessionResponse()
}

func (s *Service) ToggleMute(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.calls.ToggleMute()
	return s.sessionResponse()
}

func (s *Service) ToggleSpeaker(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.calls.ToggleSpeaker()
	return s.sessionResponse()
}

func (s *Service) ToggleVideo(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.calls.ToggleVideo()
	return s.sessionResponse()
}

func (s *Service) CurrentCall(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.sessionResponse()
}

func (s *Service) CallStats(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st, err := s.calls.Stats()
	if err != nil {
		return nil, err
	}
	return Encode(CallStatsResponse{Stats: st})
}
