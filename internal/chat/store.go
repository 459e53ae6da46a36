package chat

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatter/internal/bus"
	"github.com/matheus3301/chatter/internal/docstore"
	"go.uber.org/zap"
)

//go:embed seed.json
var defaultSeed []byte

// Store is the in-process cache of all chats, backed by one document.
// Every mutation rewrites the whole document before returning. Mutations
// are serialized, so overlapping callers cannot lose each other's updates.
type Store struct {
	storage docstore.Storage
	bus     *bus.Bus
	logger  *zap.Logger
	seed    []byte
	now     func() time.Time
	newID   func() string

	mu          sync.Mutex
	chats       Chats
	initialized bool
}

// Option configures a Store.
type Option func(*Store)

// WithSeed replaces the bundled dataset written on first initialization.
func WithSeed(seed []byte) Option {
	return func(s *Store) { s.seed = seed }
}

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides chat and message identifier generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a chat store. Nothing is read until first use.
func NewStore(storage docstore.Storage, b *bus.Bus, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		bus:     b,
		logger:  logger,
		seed:    defaultSeed,
		now:     time.Now,
		newID:   newID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newID returns a time-ordered UUIDv7. Unlike millisecond timestamps it
// cannot collide for two creations in the same millisecond.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Initialize loads the document, seeding it from the bundled dataset if
// it does not exist yet. It is a no-op once it has succeeded.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked()
}

func (s *Store) initLocked() error {
	if s.initialized {
		return nil
	}

	exists, err := s.storage.Exists(DocumentName)
	if err != nil {
		return err
	}
	if !exists {
		var seed Chats
		if err := json.Unmarshal(s.seed, &seed); err != nil {
			return fmt.Errorf("decode seed chats: %w", err)
		}
		if err := s.persist(seed); err != nil {
			return err
		}
		s.logger.Info("chat document seeded", zap.Int("chats", len(seed)))
	}

	data, err := s.storage.Read(DocumentName)
	if err != nil {
		return err
	}
	chats, err := decode(data)
	if err != nil {
		return err
	}
	s.chats = chats
	s.initialized = true
	s.logger.Info("chat store initialized", zap.Int("chats", len(chats)))
	return nil
}

func decode(data []byte) (Chats, error) {
	var chats Chats
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, fmt.Errorf("decode %s: %w", DocumentName, err)
	}
	if chats == nil {
		chats = Chats{}
	}
	for id, c := range chats {
		if c.Messages == nil {
			c.Messages = []Message{}
			chats[id] = c
		}
	}
	return chats, nil
}

// persist writes chats as the new document and adopts it as the cached
// state. On failure the cache is left untouched.
func (s *Store) persist(chats Chats) error {
	data, err := json.MarshalIndent(chats, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", DocumentName, err)
	}
	if err := s.storage.Write(DocumentName, data); err != nil {
		s.logger.Error("failed to save chats", zap.Error(err))
		return err
	}
	s.chats = chats
	return nil
}

// withChat swaps one chat into a shallow copy of the collection.
func (s *Store) withChat(c Chat) Chats {
	updated := maps.Clone(s.chats)
	updated[c.ID] = c
	return updated
}

// AllChats returns a snapshot of every chat.
func (s *Store) AllChats() (Chats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return nil, err
	}
	return s.chats.clone(), nil
}

// Chat returns a snapshot of the chat, or nil if there is none.
func (s *Store) Chat(id string) (*Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return nil, err
	}
	c, ok := s.chats[id]
	if !ok {
		return nil, nil
	}
	c = c.clone()
	return &c, nil
}

// AddMessage appends msg to the chat under a freshly generated ID and
// returns the stored message. Any ID on msg is ignored.
func (s *Store) AddMessage(chatID string, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return Message{}, err
	}

	c, ok := s.chats[chatID]
	if !ok {
		return Message{}, fmt.Errorf("add message to %q: %w", chatID, ErrNotFound)
	}

	msg.ID = s.newID()
	c = c.clone()
	c.Messages = append(c.Messages, msg)
	if err := s.persist(s.withChat(c)); err != nil {
		return Message{}, err
	}

	s.bus.Emit(EventMessageAdded, MessageAdded{ChatID: chatID, AI: c.AI, Message: msg})
	return msg, nil
}

// SendMessage records text typed by the local user.
func (s *Store) SendMessage(chatID, text string) (Message, error) {
	return s.AddMessage(chatID, Message{
		Text:      text,
		Timestamp: s.timestamp(),
		Sent:      true,
		Read:      true,
	})
}

// ReceiveMessage records an unread message from the other party.
func (s *Store) ReceiveMessage(chatID, text string) (Message, error) {
	return s.AddMessage(chatID, Message{
		Text:      text,
		Timestamp: s.timestamp(),
	})
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(TimestampLayout)
}

// MarkMessageAsRead sets read on the given message. An unknown message ID
// changes nothing, but the document is still rewritten.
func (s *Store) MarkMessageAsRead(chatID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return err
	}

	c, ok := s.chats[chatID]
	if !ok {
		return fmt.Errorf("mark %q read: %w", chatID, ErrNotFound)
	}

	c = c.clone()
	var marked []string
	for i := range c.Messages {
		if c.Messages[i].ID == messageID && !c.Messages[i].Read {
			c.Messages[i].Read = true
			marked = append(marked, messageID)
		}
	}
	if err := s.persist(s.withChat(c)); err != nil {
		return err
	}

	if len(marked) > 0 {
		s.bus.Emit(EventMessageRead, MessageRead{ChatID: chatID, MessageIDs: marked})
	}
	return nil
}

// MarkChatAsRead marks every received message in the chat as read and
// returns how many changed.
func (s *Store) MarkChatAsRead(chatID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return 0, err
	}

	c, ok := s.chats[chatID]
	if !ok {
		return 0, fmt.Errorf("mark %q read: %w", chatID, ErrNotFound)
	}

	c = c.clone()
	var marked []string
	for i, m := range c.Messages {
		if !m.Sent && !m.Read {
			c.Messages[i].Read = true
			marked = append(marked, m.ID)
		}
	}
	if len(marked) == 0 {
		return 0, nil
	}
	if err := s.persist(s.withChat(c)); err != nil {
		return 0, err
	}

	s.bus.Emit(EventMessageRead, MessageRead{ChatID: chatID, MessageIDs: marked})
	return len(marked), nil
}

// CreateChat adds an empty chat and returns it.
func (s *Store) CreateChat(info ChatInfo) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return Chat{}, err
	}
	return s.createLocked(info)
}

// OpenChat returns the chat named info.Name, creating it from info when
// there is none. created reports which happened. When several chats share
// the name the one with the smallest ID wins, which for generated IDs is
// the oldest.
func (s *Store) OpenChat(info ChatInfo) (c Chat, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(); err != nil {
		return Chat{}, false, err
	}

	var found *Chat
	for id, existing := range s.chats {
		if existing.Name != info.Name {
			continue
		}
		if found == nil || id < found.ID {
			found = &existing
		}
	}
	if found != nil {
		return found.clone(), false, nil
	}

	c, err = s.createLocked(info)
	if err != nil {
		return Chat{}, false, err
	}
	return c, true, nil
}

func (s *Store) createLocked(info ChatInfo) (Chat, error) {
	c := Chat{
		ID:       s.newID(),
		Name:     info.Name,
		Avatar:   info.Avatar,
		Online:   info.Online,
		Messages: []Message{},
		AI:       info.AI,
	}
	if err := s.persist(s.withChat(c)); err != nil {
		return Chat{}, err
	}

	s.logger.Info("chat created", zap.String("chat_id", c.ID), zap.Bool("ai", c.AI))
	s.bus.Emit(EventChatCreated, c.clone())
	return c.clone(), nil
}
