// Package personas holds the catalog of AI personalities a chat can be
// started with.
package personas

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/matheus3301/chatter/internal/chat"
	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultCatalog []byte

// ErrUnknownPersona is returned for an ID missing from the catalog.
var ErrUnknownPersona = errors.New("unknown persona")

// Persona describes one AI personality.
type Persona struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Avatar      string `yaml:"avatar" json:"avatar"`
	Color       string `yaml:"color" json:"color"`
}

// ChatCreator creates chats.
type ChatCreator interface {
	CreateChat(info chat.ChatInfo) (chat.Chat, error)
}

// Catalog is an ordered, read-only set of personas.
type Catalog struct {
	list []Persona
	byID map[string]Persona
}

// Default returns the bundled catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML list of personas. IDs must be unique and non-empty.
func Parse(data []byte) (*Catalog, error) {
	var list []Persona
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}
	c := &Catalog{list: list, byID: make(map[string]Persona, len(list))}
	for _, p := range list {
		if p.ID == "" {
			return nil, fmt.Errorf("persona %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona %q", p.ID)
		}
		c.byID[p.ID] = p
	}
	return c, nil
}

// List returns the personas in catalog order.
func (c *Catalog) List() []Persona {
	return append([]Persona(nil), c.list...)
}

// Get looks up a persona by ID.
func (c *Catalog) Get(id string) (Persona, error) {
	p, ok := c.byID[id]
	if !ok {
		return Persona{}, fmt.Errorf("%q: %w", id, ErrUnknownPersona)
	}
	return p, nil
}

// CreateChat starts an AI chat with the given persona.
func (c *Catalog) CreateChat(chats ChatCreator, id string) (chat.Chat, error) {
	p, err := c.Get(id)
	if err != nil {
		return chat.Chat{}, err
	}
	return chats.CreateChat(chat.ChatInfo{
		Name:   p.Name,
		Avatar: p.Avatar,
		Online: true,
		AI:     true,
	})
}
