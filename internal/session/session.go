// Package session models the audio session lifecycle as an explicit state
// machine with a typed, synchronously dispatched event bus.
package session

import (
	"log/slog"
	"sync"

	"github.com/ldayton/waveview/internal/wave"
)

// State is the audio session lifecycle state.
type State int

const (
	NoAudio State = iota
	Loading
	Ready
	Playing
	Paused
	Errored
)

func (s State) String() string {
	switch s {
	case NoAudio:
		return "no-audio"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// Transition carries the previous and new state to subscribers.
type Transition struct {
	From State
	To   State
}

// allowed lists the legal transitions. Errored is reachable from anywhere.
var allowed = map[State][]State{
	NoAudio: {Loading},
	Loading: {Ready, NoAudio},
	Ready:   {Playing, Loading, NoAudio},
	Playing: {Paused, Ready, NoAudio},
	Paused:  {Playing, Ready, NoAudio},
	Errored: {NoAudio, Loading},
}

// Machine is the session state machine. Handlers are registered explicitly
// and dispatched synchronously in registration order, outside the state lock.
type Machine struct {
	mu       sync.Mutex
	state    State
	handlers []func(Transition)
	log      *slog.Logger
}

// NewMachine creates a machine in the NoAudio state.
func NewMachine(log *slog.Logger) *Machine {
	if log == nil {
		log = wave.NopLogger()
	}
	return &Machine{log: log}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a handler for state transitions.
func (m *Machine) Subscribe(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Set transitions to the given state and notifies subscribers. An illegal
// transition is logged and ignored; setting the current state is a no-op.
// Returns whether the transition happened.
func (m *Machine) Set(to State) bool {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return false
	}
	if to != Errored && !legal(from, to) {
		m.mu.Unlock()
		m.log.Warn("illegal session transition ignored", "from", from, "to", to)
		return false
	}
	m.state = to
	handlers := make([]func(Transition), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	t := Transition{From: from, To: to}
	for _, fn := range handlers {
		fn(t)
	}
	return true
}

func legal(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
