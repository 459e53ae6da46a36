// Package api exposes the chat, call and suggestion components as the
// chatter.v1.Chatter gRPC service. Requests and responses travel as
// google.protobuf.Struct values carrying the JSON form of the types in
// this package.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/matheus3301/chatter/internal/bus"
	"github.com/matheus3301/chatter/internal/calls"
	"github.com/matheus3301/chatter/internal/chat"
	"github.com/matheus3301/chatter/internal/contacts"
	"github.com/matheus3301/chatter/internal/personas"
	"github.com/matheus3301/chatter/internal/suggest"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chatter.v1.Chatter"

// WatchStream is the name of the server-streaming event method.
const WatchStream = "Watch"

// Service implements chatter.v1.Chatter.
type Service struct {
	profile   string
	startedAt time.Time
	chats     *chat.Store
	calls     *calls.Log
	suggest   *suggest.Engine
	personas  *personas.Catalog
	contacts  *contacts.Directory
	bus       *bus.Bus
	logger    *zap.Logger
	watchers  atomic.Int64
}

// NewService creates the service over the daemon's components.
func NewService(
	profile string,
	chats *chat.Store,
	callLog *calls.Log,
	engine *suggest.Engine,
	catalog *personas.Catalog,
	directory *contacts.Directory,
	b *bus.Bus,
	logger *zap.Logger,
) *Service {
	return &Service{
		profile:   profile,
		startedAt: time.Now(),
		chats:     chats,
		calls:     callLog,
		suggest:   engine,
		personas:  catalog,
		contacts:  directory,
		bus:       b,
		logger:    logger,
	}
}

type unaryMethod func(*Service, context.Context, *structpb.Struct) (*structpb.Struct, error)

var unaryMethods = []struct {
	name string
	call unaryMethod
}{
	{"GetStatus", (*Service).GetStatus},
	{"ListChats", (*Service).ListChats},
	{"GetChat", (*Service).GetChat},
	{"CreateChat", (*Service).CreateChat},
	{"CreateAIChat", (*Service).CreateAIChat},
	{"ListPersonas", (*Service).ListPersonas},
	{"ListContacts", (*Service).ListContacts},
	{"OpenChat", (*Service).OpenChat},
	{"SendMessage", (*Service).SendMessage},
	{"MarkMessageRead", (*Service).MarkMessageRead},
	{"MarkChatRead", (*Service).MarkChatRead},
	{"GetContext", (*Service).GetContext},
	{"GetSuggestions", (*Service).GetSuggestions},
	{"ListCalls", (*Service).ListCalls},
	{"StartCall", (*Service).StartCall},
	{"ReceiveCall", (*Service).ReceiveCall},
	{"AnswerCall", (*Service).AnswerCall},
	{"DeclineCall", (*Service).DeclineCall},
	{"EndCall", (*Service).EndCall},
	{"ToggleMute", (*Service).ToggleMute},
	{"ToggleSpeaker", (*Service).ToggleSpeaker},
	{"ToggleVideo", (*Service).ToggleVideo},
	{"CurrentCall", (*Service).CurrentCall},
	{"CallStats", (*Service).CallStats},
}

// ServiceDesc describes chatter.v1.Chatter for grpc.Server.RegisterService.
var ServiceDesc = newServiceDesc()

func newServiceDesc() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    WatchStream,
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(*Service).Watch(in, stream)
			},
		}},
	}
	for _, m := range unaryMethods {
		desc.Methods = append(desc.Methods, unaryDesc(m.name, m.call))
	}
	return desc
}

func unaryDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Service)
			handle := func(ctx context.Context, req any) (any, error) {
				out, err := call(s, ctx, req.(*structpb.Struct))
				if err != nil {
					s.logger.Warn("rpc failed", zap.String("method", name), zap.Error(err))
					return nil, toStatus(err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handle(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handle)
		},
	}
}

// Register installs svc on srv.
func Register(srv *grpc.Server, svc *Service) {
	srv.RegisterService(&ServiceDesc, svc)
}

// Decode converts a Struct payload into v through its JSON form.
func Decode(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Encode converts v into a Struct payload through its JSON form. v must
// encode as a JSON object.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

// decodeRequest is Decode with failures reported as bad requests.
func decodeRequest(in *structpb.Struct, v any) error {
	if err := Decode(in, v); err != nil {
		return badRequest("malformed request: %v", err)
	}
	return nil
}

// Watch streams bus events whose kind starts with the requested namespace
// until the client goes away.
func (s *Service) Watch(in *structpb.Struct, stream grpc.ServerStream) error {
	var req WatchRequest
	if err := decodeRequest(in, &req); err != nil {
		return toStatus(err)
	}
	ch, unsub := s.bus.Subscribe(req.Namespace, 256)
	defer unsub()
	s.watchers.Add(1)
	defer s.watchers.Add(-1)

	for {
		select {
		case evt := <-ch:
			out, err := Encode(Event{
				Kind:             evt.Kind,
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
				Payload:          evt.Payload,
			})
			if err != nil {
				s.logger.Error("failed to encode event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.SendMsg(out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
