package calls

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatter/internal/bus"
	"github.com/matheus3301/chatter/internal/docstore"
	"go.uber.org/zap"
)

// Log owns the persisted call history and the single live Session.
// History mutations rewrite the whole document and are serialized.
type Log struct {
	storage docstore.Storage
	bus     *bus.Bus
	logger  *zap.Logger
	machine *Machine
	now     func() time.Time
	newID   func() string

	mu          sync.Mutex
	calls       map[string]Record
	current     *Session
	started     time.Time
	initialized bool
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source for session start and duration.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithIDGenerator overrides record and session identifier generation.
func WithIDGenerator(newID func() string) Option {
	return func(l *Log) { l.newID = newID }
}

// NewLog creates a call log. Nothing is read until first use.
func NewLog(storage docstore.Storage, b *bus.Bus, logger *zap.Logger, opts ...Option) *Log {
	l := &Log{
		storage: storage,
		bus:     b,
		logger:  logger,
		machine: NewMachine(b),
		now:     time.Now,
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize loads the history, creating an empty document if none
// exists. It is a no-op once it has succeeded.
func (l *Log) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initLocked()
}

func (l *Log) initLocked() error {
	if l.initialized {
		return nil
	}

	exists, err := l.storage.Exists(DocumentName)
	if err != nil {
		return err
	}
	calls := map[string]Record{}
	if exists {
		data, err := l.storage.Read(DocumentName)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &calls); err != nil {
			return fmt.Errorf("decode %s: %w", DocumentName, err)
		}
		if calls == nil {
			calls = map[string]Record{}
		}
	} else if err := l.persist(calls); err != nil {
		return err
	}

	l.calls = calls
	l.initialized = true
	l.logger.Info("call log initialized", zap.Int("calls", len(calls)))
	return nil
}

func (l *Log) persist(calls map[string]Record) error {
	data, err := json.MarshalIndent(calls, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", DocumentName, err)
	}
	if err := l.storage.Write(DocumentName, data); err != nil {
		l.logger.Error("failed to save calls", zap.Error(err))
		return err
	}
	l.calls = calls
	return nil
}

func (l *Log) timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// AllCalls returns a snapshot of the history keyed by record ID.
func (l *Log) AllCalls() (map[string]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initLocked(); err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(l.calls))
	for id, r := range l.calls {
		out[id] = r.clone()
	}
	return out, nil
}

// CallsForContact returns the contact's records, oldest first.
func (l *Log) CallsForContact(contactID string) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initLocked(); err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range l.calls {
		if r.ContactID == contactID {
			out = append(out, r.clone())
		}
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Timestamp != rs[j].Timestamp {
			return rs[i].Timestamp < rs[j].Timestamp
		}
		return rs[i].ID < rs[j].ID
	})
}

// AddCall stores rec under a freshly generated ID and returns it.
func (l *Log) AddCall(rec Record) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initLocked(); err != nil {
		return Record{}, err
	}
	return l.addLocked(rec)
}

func (l *Log) addLocked(rec Record) (Record, error) {
	rec.ID = l.newID()
	updated := maps.Clone(l.calls)
	updated[rec.ID] = rec.clone()
	if err := l.persist(updated); err != nil {
		return Record{}, err
	}
	l.bus.Emit(EventRecorded, rec.clone())
	return rec, nil
}

func (l *Log) newSession(c Contact, mode Mode) *Session {
	l.started = l.now()
	return &Session{
		ID:            l.newID(),
		ContactID:     c.ID,
		ContactName:   c.Name,
		ContactAvatar: c.Avatar,
		Mode:          mode,
		StartTime:     l.timestamp(l.started),
		Active:        true,
		VideoEnabled:  mode == Video,
	}
}

func (l *Log) recordFor(s *Session, dir Direction, status Status) Record {
	return Record{
		ContactID:     s.ContactID,
		ContactName:   s.ContactName,
		ContactAvatar: s.ContactAvatar,
		Type:          dir,
		Mode:          s.Mode,
		Timestamp:     s.StartTime,
		Status:        status,
	}
}

// StartCall places an outgoing call and records it right away.
func (l *Log) StartCall(c Contact, mode Mode) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initLocked(); err != nil {
		return Session{}, err
	}
	if l.current != nil {
		return Session{}, ErrCallInProgress
	}

	s := l.newSession(c, mode)
	if _, err := l.addLocked(l.recordFor(s, Outgoing, StatusCompleted)); err != nil {
		return Session{}, err
	}
	l.current = s
	if err := l.machine.Transition(Active, s.ID); err != nil {
		return Session{}, err
	}
	l.logger.Info("call started", zap.String("session_id", s.ID), zap.String("contact_id", c.ID), zap.String("mode", string(mode)))
	return *s, nil
}

// ReceiveCall rings an incoming call. Nothing is recorded until it is
// answered or declined.
func (l *Log) ReceiveCall(c Contact, mode Mode) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		return Session{}, ErrCallInProgress
	}

	s := l.newSession(c, mode)
	l.current = s
	if err := l.machine.Transition(Ringing, s.ID); err != nil {
		return Session{}, err
	}
	l.logger.Info("incoming call", zap.String("session_id", s.ID), zap.String("contact_id", c.ID), zap.String("mode", string(mode)))
	return *s, nil
}

// SimulateIncomingCall rings a demo incoming call; mode defaults to voice.
func (l *Log) SimulateIncomingCall(c Contact, mode Mode) (Session, error) {
	if mode == "" {
		mode = Voice
	}
	return l.ReceiveCall(c, mode)
}

// AnswerCall accepts a ringing call and records it as a completed
// incoming call. It does nothing unless a call is ringing.
func (l *Log) AnswerCall() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil || l.machine.Current() != Ringing {
		return nil
	}
	if err := l.initLocked(); err != nil {
		return err
	}

	if _, err := l.addLocked(l.recordFor(l.current, Incoming, StatusCompleted)); err != nil {
		return err
	}
	return l.machine.Transition(Active, l.current.ID)
}

// DeclineCall rejects a ringing call, records it as missed and clears the
// session. It does nothing unless a call is ringing.
func (l *Log) DeclineCall() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil || l.machine.Current() != Ringing {
		return nil
	}
	return l.declineLocked()
}

func (l *Log) declineLocked() error {
	if err := l.initLocked(); err != nil {
		return err
	}
	if _, err := l.addLocked(l.recordFor(l.current, Incoming, StatusMissed)); err != nil {
		return err
	}
	id := l.current.ID
	l.current = nil
	l.logger.Info("call declined", zap.String("session_id", id))
	return l.machine.Transition(Idle, id)
}

// EndCall hangs up. The whole seconds since the session started are
// stored as the duration of the matching completed record. Ending a call
// that is still ringing declines it. Without a session it does nothing.
func (l *Log) EndCall() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	if l.machine.Current() == Ringing {
		return l.declineLocked()
	}
	if err := l.initLocked(); err != nil {
		return err
	}

	s := l.current
	duration := max(int(l.now().Sub(l.started)/time.Second), 0)

	var match *Record
	for _, r := range l.calls {
		if r.ContactID != s.ContactID || r.Timestamp != s.StartTime || r.Status != StatusCompleted {
			continue
		}
		if match == nil || r.ID > match.ID {
			match = &r
		}
	}
	if match != nil {
		rec := match.clone()
		rec.Duration = &duration
		updated := maps.Clone(l.calls)
		updated[rec.ID] = rec
		if err := l.persist(updated); err != nil {
			return err
		}
	}

	l.current = nil
	l.logger.Info("call ended", zap.String("session_id", s.ID), zap.Int("duration_s", duration))
	return l.machine.Transition(Idle, s.ID)
}

// CurrentCall returns a snapshot of the live session, or nil.
func (l *Log) CurrentCall() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// State returns the session lifecycle state.
func (l *Log) State() State {
	return l.machine.Current()
}

func (l *Log) snapshot() *Session {
	if l.current == nil {
		return nil
	}
	s := *l.current
	return &s
}

// ToggleMute flips the muted flag of the live session.
func (l *Log) ToggleMute() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		l.current.Muted = !l.current.Muted
	}
	return l.snapshot()
}

// ToggleSpeaker flips the speaker flag of the live session.
func (l *Log) ToggleSpeaker() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		l.current.SpeakerOn = !l.current.SpeakerOn
	}
	return l.snapshot()
}

// ToggleVideo flips the video flag of a live video session. Voice calls
// are left alone.
func (l *Log) ToggleVideo() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil && l.current.Mode == Video {
		l.current.VideoEnabled = !l.current.VideoEnabled
	}
	return l.snapshot()
}

// Stats aggregates the history in one pass.
func (l *Log) Stats() (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initLocked(); err != nil {
		return Stats{}, err
	}

	var st Stats
	for _, r := range l.calls {
		st.TotalCalls++
		if r.Duration != nil {
			st.TotalDuration += *r.Duration
		}
		if r.Status == StatusMissed {
			st.MissedCalls++
		}
		switch r.Mode {
		case Voice:
			st.VoiceCalls++
		case Video:
			st.VideoCalls++
		}
	}
	return st, nil
}
