// Package contacts is the address book new chats are started from.
package contacts

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/chatter/internal/chat"
	"gopkg.in/yaml.v3"
)

//go:embed contacts.yaml
var defaultDirectory []byte

// ErrUnknownContact is returned for an ID missing from the directory.
var ErrUnknownContact = errors.New("unknown contact")

// Contact is one address book entry.
type Contact struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Phone  string `yaml:"phone" json:"phone"`
	Avatar string `yaml:"avatar" json:"avatar"`
}

// ChatOpener returns the chat with a given name, creating it if needed.
type ChatOpener interface {
	OpenChat(info chat.ChatInfo) (chat.Chat, bool, error)
}

// Directory is an ordered, read-only address book.
type Directory struct {
	list []Contact
	byID map[string]Contact
}

// Default returns the bundled directory.
func Default() (*Directory, error) {
	return Parse(defaultDirectory)
}

// Parse decodes a YAML list of contacts. IDs and names are required and
// IDs must be unique.
func Parse(data []byte) (*Directory, error) {
	var list []Contact
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	d := &Directory{list: list, byID: make(map[string]Contact, len(list))}
	for _, c := range list {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("contact %q/%q: id and name are required", c.ID, c.Name)
		}
		if _, dup := d.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate contact %q", c.ID)
		}
		d.byID[c.ID] = c
	}
	return d, nil
}

// Search returns the contacts whose name contains query, ignoring case, or
// whose phone number contains it verbatim. A blank query matches everyone.
func (d *Directory) Search(query string) []Contact {
	out := []Contact{}
	if strings.TrimSpace(query) == "" {
		return append(out, d.list...)
	}
	lower := strings.ToLower(query)
	for _, c := range d.list {
		if strings.Contains(strings.ToLower(c.Name), lower) || strings.Contains(c.Phone, query) {
			out = append(out, c)
		}
	}
	return out
}

// Get looks up a contact by ID.
func (d *Directory) Get(id string) (Contact, error) {
	c, ok := d.byID[id]
	if !ok {
		return Contact{}, fmt.Errorf("%q: %w", id, ErrUnknownContact)
	}
	return c, nil
}

// OpenChat returns the contact's existing chat, matched by name, or starts
// a new one. created reports whether a chat was added.
func (d *Directory) OpenChat(chats ChatOpener, id string) (chat.Chat, bool, error) {
	c, err := d.Get(id)
	if err != nil {
		return chat.Chat{}, false, err
	}
	return chats.OpenChat(chat.ChatInfo{Name: c.Name, Avatar: c.Avatar})
}
