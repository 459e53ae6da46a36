package calls

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatter/internal/bus"
)

// State is the lifecycle state of the single call session.
type State string

const (
	Idle    State = "IDLE"
	Ringing State = "RINGING"
	Active  State = "ACTIVE"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Idle:    {Ringing, Active},
	Ringing: {Active, Idle},
	Active:  {Idle},
}

// Machine tracks and enforces call session state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Idle state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid call transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(EventStateChanged, StateChange{
		SessionID: sessionID,
		From:      from,
		To:        to,
	})
	return nil
}

// StateChange is the payload for call state events.
type StateChange struct {
	SessionID string `json:"sessionId"`
	From      State  `json:"from"`
	To        State  `json:"to"`
}
