package api

import (
	"errors"
	"fmt"

	"github.com/matheus3301/chatter/internal/calls"
	"github.com/matheus3301/chatter/internal/chat"
	"github.com/matheus3301/chatter/internal/contacts"
	"github.com/matheus3301/chatter/internal/docstore"
	"github.com/matheus3301/chatter/internal/personas"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}

	var reqErr *requestError
	var ioErr *docstore.IOError
	switch {
	case errors.As(err, &reqErr):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, personas.ErrUnknownPersona),
		errors.Is(err, contacts.ErrUnknownContact):
		return grpcstatus.Error(codes.NotFound, err.Error())
	case errors.Is(err, calls.ErrCallInProgress):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &ioErr):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}
