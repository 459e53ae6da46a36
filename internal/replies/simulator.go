// Package replies simulates the other side of a conversation: AI chats
// always answer, person chats sometimes do, after a short delay.
package replies

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/matheus3301/chatter/internal/bus"
	"github.com/matheus3301/chatter/internal/chat"
	"github.com/matheus3301/chatter/internal/config"
	"go.uber.org/zap"
)

// Receiver appends a message from the other party.
type Receiver interface {
	ReceiveMessage(chatID, text string) (chat.Message, error)
}

// Simulator answers sent messages published on the bus.
type Simulator struct {
	receiver Receiver
	bus      *bus.Bus
	logger   *zap.Logger
	cfg      config.Replies
	after    func(time.Duration) <-chan time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source used for reply choice and delay.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rand = r }
}

// WithAfter replaces time.After for waiting out the reply delay.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(s *Simulator) { s.after = after }
}

// NewSimulator creates a simulator. It does nothing until Start.
func NewSimulator(receiver Receiver, b *bus.Bus, logger *zap.Logger, cfg config.Replies, opts ...Option) *Simulator {
	s := &Simulator{
		receiver: receiver,
		bus:      b,
		logger:   logger,
		cfg:      cfg,
		rand:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		after:    time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to added messages on the bus.
func (s *Simulator) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("reply simulator disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	ch, unsub := s.bus.Subscribe(chat.EventMessageAdded, 256)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsub()
		for {
			select {
			case evt := <-ch:
				s.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels pending replies and waits for them to finish.
func (s *Simulator) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Simulator) handleEvent(ctx context.Context, evt bus.Event) {
	added, ok := evt.Payload.(chat.MessageAdded)
	if !ok || !added.Message.Sent {
		return
	}
	text, ok := s.reply(added)
	if !ok {
		return
	}
	delay := s.delay()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.after(delay):
		case <-ctx.Done():
			return
		}
		if _, err := s.receiver.ReceiveMessage(added.ChatID, text); err != nil {
			s.logger.Error("failed to deliver simulated reply", zap.Error(err), zap.String("chat_id", added.ChatID))
		}
	}()
}

// reply decides whether and how the other party answers a sent message.
func (s *Simulator) reply(added chat.MessageAdded) (string, bool) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	if added.AI {
		return AIResponse(added.Message.Text, s.rand), true
	}
	if s.rand.Float64() >= s.cfg.Probability {
		return "", false
	}
	return cannedReplies[s.rand.IntN(len(cannedReplies))], true
}

func (s *Simulator) delay() time.Duration {
	lo, hi := s.cfg.MinDelay, s.cfg.MaxDelay
	if hi <= lo {
		return max(lo, 0)
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return lo + time.Duration(s.rand.Int64N(int64(hi-lo)+1))
}
