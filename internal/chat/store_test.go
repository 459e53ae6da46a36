package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatter/internal/bus"
	"github.com/matheus3301/chatter/internal/docstore"
	"go.uber.org/zap"
)

// memStorage is an in-memory docstore.Storage that counts calls and can
// be told to fail.
type memStorage struct {
	mu       sync.Mutex
	docs     map[string][]byte
	exists   int
	reads    int
	writes   int
	statErr  error
	readErr  error
	writeErr error
}

func newMemStorage() *memStorage {
	return &memStorage{docs: make(map[string][]byte)}
}

func (m *memStorage) Exists(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists++
	if m.statErr != nil {
		return false, &docstore.IOError{Op: "stat", Name: name, Err: m.statErr}
	}
	_, ok := m.docs[name]
	return ok, nil
}

func (m *memStorage) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return nil, &docstore.IOError{Op: "read", Name: name, Err: m.readErr}
	}
	data, ok := m.docs[name]
	if !ok {
		return nil, &docstore.IOError{Op: "read", Name: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *memStorage) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return &docstore.IOError{Op: "write", Name: name, Err: m.writeErr}
	}
	m.docs[name] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) Close() error { return nil }

func (m *memStorage) doc() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.docs[DocumentName]...)
}

func (m *memStorage) put(t *testing.T, chats Chats) {
	t.Helper()
	data, err := json.Marshal(chats)
	if err != nil {
		t.Fatal(err)
	}
	m.docs[DocumentName] = data
}

func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testStore(t *testing.T, m *memStorage, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithIDGenerator(seqIDs())}, opts...)
	return NewStore(m, nil, zap.NewNop(), opts...)
}

func johnChats() Chats {
	return Chats{
		"1": {
			ID: "1", Name: "John", Online: true,
			Messages: []Message{
				{ID: "msg1", Text: "Hello", Timestamp: "2024-03-20T10:00:00Z"},
				{ID: "msg2", Text: "Hi John", Timestamp: "2024-03-20T10:01:00Z", Sent: true, Read: true},
			},
		},
	}
}

func TestInitializeSeedsOnce(t *testing.T) {
	m := newMemStorage()
	s := testStore(t, m)

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	if m.exists != 1 || m.writes != 1 || m.reads != 1 {
		t.Errorf("exists/writes/reads = %d/%d/%d, want 1/1/1", m.exists, m.writes, m.reads)
	}

	chats, err := s.AllChats()
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 5 {
		t.Errorf("seeded %d chats, want 5", len(chats))
	}
	if chats["1"].Name != "John Doe" {
		t.Errorf("chat 1 name = %q, want John Doe", chats["1"].Name)
	}
}

func TestInitializeLoadsExistingDocument(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := testStore(t, m)

	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	if m.writes != 0 {
		t.Errorf("writes = %d, want 0 for an existing document", m.writes)
	}
	chats, err := s.AllChats()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(chats, johnChats()) {
		t.Errorf("AllChats() = %+v, want %+v", chats, johnChats())
	}
}

func TestInitializeErrorIsRetried(t *testing.T) {
	m := newMemStorage()
	m.statErr = errors.New("file system error")
	s := testStore(t, m)

	err := s.Initialize()
	var ioErr *docstore.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Initialize() error = %v, want *docstore.IOError", err)
	}

	m.statErr = nil
	if _, err := s.AllChats(); err != nil {
		t.Fatalf("AllChats() after recovery error = %v", err)
	}
	if m.exists != 2 {
		t.Errorf("exists = %d, want 2 (failed init must not count)", m.exists)
	}
}

func TestReadErrorSurfaces(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	m.readErr = errors.New("read error")
	s := testStore(t, m)

	if _, err := s.AllChats(); err == nil || !errors.Is(err, m.readErr) {
		t.Errorf("AllChats() error = %v, want read error", err)
	}
}

func TestCorruptDocument(t *testing.T) {
	m := newMemStorage()
	m.docs[DocumentName] = []byte("{not json")
	s := testStore(t, m)

	if err := s.Initialize(); err == nil {
		t.Error("Initialize() should fail on a corrupt document")
	}
}

func TestGetChat(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := testStore(t, m)

	c, err := s.Chat("1")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Name != "John" {
		t.Fatalf("Chat(1) = %+v, want John", c)
	}

	c, err = s.Chat("999")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("Chat(999) = %+v, want nil", c)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := testStore(t, m)

	c, err := s.Chat("1")
	if err != nil {
		t.Fatal(err)
	}
	c.Messages[0].Text = "mutated"
	c.Messages = append(c.Messages, Message{ID: "x"})

	again, err := s.Chat("1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Messages[0].Text != "Hello" || len(again.Messages) != 2 {
		t.Errorf("store state changed through a snapshot: %+v", again.Messages)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	storage := docstore.NewFileStorage(t.TempDir())

	want := johnChats()
	want["2"] = Chat{ID: "2", Name: "Bot 🤖", Avatar: "🤖", Messages: []Message{}, AI: true}
	writer := NewStore(storage, nil, zap.NewNop())
	if err := writer.persist(want); err != nil {
		t.Fatal(err)
	}

	reader := NewStore(storage, nil, zap.NewNop())
	got, err := reader.AllChats()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestAddMessageAppends(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	now := time.Date(2024, 3, 20, 10, 5, 0, 0, time.UTC)
	s := testStore(t, m, WithClock(func() time.Time { return now }))

	before, _ := s.Chat("1")

	msg, err := s.AddMessage("1", Message{ID: "ignored", Text: "Hello!", Timestamp: "2024-03-20T10:00:00Z", Sent: true})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if msg.ID == "" || msg.ID == "ignored" {
		t.Errorf("message ID = %q, want a generated ID", msg.ID)
	}
	for _, old := range before.Messages {
		if old.ID == msg.ID {
			t.Errorf("new ID %q collides with an existing message", msg.ID)
		}
	}

	after, _ := s.Chat("1")
	if len(after.Messages) != len(before.Messages)+1 {
		t.Fatalf("len = %d, want %d", len(after.Messages), len(before.Messages)+1)
	}
	if !reflect.DeepEqual(after.Messages[:len(before.Messages)], before.Messages) {
		t.Error("prior messages changed")
	}
	if after.Messages[len(after.Messages)-1] != msg {
		t.Errorf("last message = %+v, want %+v", after.Messages[len(after.Messages)-1], msg)
	}

	// The write must contain the new message.
	var onDisk Chats
	if err := json.Unmarshal(m.doc(), &onDisk); err != nil {
		t.Fatal(err)
	}
	if len(onDisk["1"].Messages) != 3 {
		t.Errorf("persisted %d messages, want 3", len(onDisk["1"].Messages))
	}
}

func TestSendAndReceiveMessage(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	now := time.Date(2024, 3, 20, 10, 5, 0, 0, time.FixedZone("X", 3600))
	s := testStore(t, m, WithClock(func() time.Time { return now }))

	sent, err := s.SendMessage("1", "on my way")
	if err != nil {
		t.Fatal(err)
	}
	if !sent.Sent || !sent.Read {
		t.Errorf("sent message = %+v, want sent and read", sent)
	}
	if sent.Timestamp != "2024-03-20T09:05:00.000Z" {
		t.Errorf("timestamp = %q, want UTC ISO-8601", sent.Timestamp)
	}

	got, err := s.ReceiveMessage("1", "ok")
	if err != nil {
		t.Fatal(err)
	}
	if got.Sent || got.Read {
		t.Errorf("received message = %+v, want unsent and unread", got)
	}
}

func TestAddMessagePublishesEvent(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	b := bus.New()
	ch, unsub := b.Subscribe("chat.", 10)
	defer unsub()
	s := NewStore(m, b, zap.NewNop())

	msg, err := s.SendMessage("1", "hi")
	if err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != EventMessageAdded {
		t.Fatalf("kind = %q, want %q", evt.Kind, EventMessageAdded)
	}
	added, ok := evt.Payload.(MessageAdded)
	if !ok {
		t.Fatalf("payload type = %T", evt.Payload)
	}
	if added.ChatID != "1" || added.Message != msg {
		t.Errorf("payload = %+v", added)
	}
}

func TestNotFoundLeavesDocumentUnchanged(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := testStore(t, m)
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	before := m.doc()
	writes := m.writes

	if _, err := s.AddMessage("999", Message{Text: "Hello!"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddMessage(999) error = %v, want ErrNotFound", err)
	}
	if err := s.MarkMessageAsRead("999", "msg1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkMessageAsRead(999) error = %v, want ErrNotFound", err)
	}
	if _, err := s.MarkChatAsRead("999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkChatAsRead(999) error = %v, want ErrNotFound", err)
	}

	if m.writes != writes {
		t.Errorf("writes = %d, want %d", m.writes, writes)
	}
	if string(m.doc()) != string(before) {
		t.Error("document changed after not-found errors")
	}
}

func TestWriteErrorKeepsCache(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := testStore(t, m)
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	m.writeErr = errors.New("write error")

	_, err := s.AddMessage("1", Message{Text: "Hello!"})
	if !errors.Is(err, m.writeErr) {
		t.Fatalf("AddMessage() error = %v, want write error", err)
	}

	c, _ := s.Chat("1")
	if len(c.Messages) != 2 {
		t.Errorf("cached messages = %d, want 2 after failed write", len(c.Messages))
	}
}

func TestMarkMessageAsRead(t *testing.T) {
	m := newMemStorage()
	chats := johnChats()
	chats["1"].Messages[1].Read = false
	m.put(t, chats)
	s := testStore(t, m)

	if err := s.MarkMessageAsRead("1", "msg1"); err != nil {
		t.Fatal(err)
	}
	c, _ := s.Chat("1")
	if !c.Messages[0].Read {
		t.Error("msg1 not marked read")
	}
	if c.Messages[1].Read {
		t.Error("msg2 should be untouched")
	}

	writes := m.writes
	if err := s.MarkMessageAsRead("1", "msg1"); err != nil {
		t.Fatalf("second MarkMessageAsRead() error = %v", err)
	}
	again, _ := s.Chat("1")
	if !reflect.DeepEqual(again, c) {
		t.Error("second MarkMessageAsRead changed state")
	}
	if m.writes != writes+1 {
		t.Errorf("writes = %d, want %d (persists regardless)", m.writes, writes+1)
	}
}

func TestMarkMessageAsReadUnknownMessage(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := testStore(t, m)

	if err := s.MarkMessageAsRead("1", "nope"); err != nil {
		t.Fatalf("MarkMessageAsRead(unknown) error = %v, want nil", err)
	}
	c, _ := s.Chat("1")
	if !reflect.DeepEqual(c.Messages, johnChats()["1"].Messages) {
		t.Error("messages changed for an unknown message ID")
	}
}

func TestMarkChatAsRead(t *testing.T) {
	m := newMemStorage()
	chats := johnChats()
	c := chats["1"]
	c.Messages = append(c.Messages, Message{ID: "msg3", Text: "?"})
	chats["1"] = c
	m.put(t, chats)
	s := testStore(t, m)

	n, err := s.MarkChatAsRead("1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("marked %d, want 2", n)
	}
	got, _ := s.Chat("1")
	for _, msg := range got.Messages {
		if !msg.Read {
			t.Errorf("message %s still unread", msg.ID)
		}
	}

	n, err = s.MarkChatAsRead("1")
	if err != nil || n != 0 {
		t.Errorf("second MarkChatAsRead() = %d, %v, want 0, nil", n, err)
	}
}

func TestCreateChat(t *testing.T) {
	m := newMemStorage()
	m.put(t, Chats{})
	s := testStore(t, m)

	c, err := s.CreateChat(ChatInfo{Name: "New Chat", Avatar: "https://example.com/avatar.jpg", Online: true})
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == "" || c.Name != "New Chat" || !c.Online {
		t.Errorf("CreateChat() = %+v", c)
	}
	if c.Messages == nil || len(c.Messages) != 0 {
		t.Errorf("messages = %#v, want empty slice", c.Messages)
	}
	if m.writes != 1 {
		t.Errorf("writes = %d, want 1", m.writes)
	}

	var onDisk map[string]map[string]any
	if err := json.Unmarshal(m.doc(), &onDisk); err != nil {
		t.Fatal(err)
	}
	msgs, ok := onDisk[c.ID]["messages"].([]any)
	if !ok || len(msgs) != 0 {
		t.Errorf("persisted messages = %#v, want []", onDisk[c.ID]["messages"])
	}
	if _, ok := onDisk[c.ID]["isAIChat"]; ok {
		t.Error("isAIChat should be omitted for person chats")
	}
}

func TestOpenChatReusesChatByName(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := testStore(t, m)

	c, created, err := s.OpenChat(ChatInfo{Name: "John", Avatar: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if created || c.ID != "1" || len(c.Messages) != 2 {
		t.Errorf("OpenChat(John) = %+v, created=%v, want existing chat 1", c, created)
	}
	if m.writes != 0 {
		t.Errorf("writes = %d, want 0 when the chat exists", m.writes)
	}

	first, created, err := s.OpenChat(ChatInfo{Name: "Alice Johnson", Avatar: "a.png"})
	if err != nil {
		t.Fatal(err)
	}
	if !created || first.ID != "id-1" || first.Avatar != "a.png" {
		t.Errorf("OpenChat(Alice) = %+v, created=%v, want a new chat", first, created)
	}

	again, created, err := s.OpenChat(ChatInfo{Name: "Alice Johnson"})
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != first.ID {
		t.Errorf("second OpenChat = %q, created=%v, want %q reused", again.ID, created, first.ID)
	}

	all, err := s.AllChats()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d chats, want 2", len(all))
	}
}

func TestOpenChatPicksSmallestIDAmongDuplicates(t *testing.T) {
	m := newMemStorage()
	m.put(t, Chats{
		"b": {ID: "b", Name: "Team", Messages: []Message{}},
		"a": {ID: "a", Name: "Team", Messages: []Message{}},
		"c": {ID: "c", Name: "Other", Messages: []Message{}},
	})
	s := testStore(t, m)

	for range 5 {
		c, created, err := s.OpenChat(ChatInfo{Name: "Team"})
		if err != nil {
			t.Fatal(err)
		}
		if created || c.ID != "a" {
			t.Fatalf("OpenChat(Team) = %q, created=%v, want a", c.ID, created)
		}
	}
}

func TestConcurrentOpenChatCreatesOnce(t *testing.T) {
	m := newMemStorage()
	m.put(t, Chats{})
	s := testStore(t, m)

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, _, err := s.OpenChat(ChatInfo{Name: "Bob Smith"})
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = c.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("ids = %v, want one shared chat", ids)
		}
	}
	if m.writes != 1 {
		t.Errorf("writes = %d, want 1", m.writes)
	}
}

func TestDefaultIDsAreUnique(t *testing.T) {
	m := newMemStorage()
	m.put(t, johnChats())
	s := NewStore(m, nil, zap.NewNop())

	seen := make(map[string]bool)
	for range 100 {
		msg, err := s.AddMessage("1", Message{Text: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[msg.ID] {
			t.Fatalf("duplicate ID %s", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestConcurrentAddMessageLosesNothing(t *testing.T) {
	storage := docstore.NewFileStorage(filepath.Join(t.TempDir(), "profile"))
	s := NewStore(storage, nil, zap.NewNop(), WithSeed([]byte(`{"1":{"id":"1","name":"John","messages":[]}}`)))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddMessage("1", Message{Text: fmt.Sprintf("m%d", i)}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	reloaded := NewStore(storage, nil, zap.NewNop())
	c, err := reloaded.Chat("1")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Messages) != 20 {
		t.Errorf("persisted %d messages, want 20", len(c.Messages))
	}
}
