package negotiation

import (
	"fmt"
	"sync"
)

// State is the client-side negotiation state.
type State int

const (
	StateIdle State = iota
	StateJoining
	StateJoined
	StateNegotiating
	StateConnected
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Role of the local peer in the stream.
type Role string

const (
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
)

// ErrInvalidTransition is returned when an event is not legal in the current
// state. The machine does not change state on an invalid event.
type ErrInvalidTransition struct {
	Event string
	From  State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("event %s not valid in state %s", e.Event, e.From)
}

// Machine tracks one peer's negotiation with its counterpart. It is a pure
// state machine: callers feed it protocol events and transport callbacks, and
// it enforces legal ordering. It never retries on its own; after Errored the
// caller starts over with a fresh Machine and a fresh join.
type Machine struct {
	mu    sync.Mutex
	state State
	role  Role

	descriptionSeen bool

	onTransition func(from, to State)
}

func NewMachine(role Role) *Machine {
	return &Machine{state: StateIdle, role: role}
}

// OnTransition registers a callback invoked after every state change, outside
// the machine's lock.
func (m *Machine) OnTransition(fn func(from, to State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = fn
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Role() Role {
	return m.role
}

// Join records local intent to join a stream. The caller emits the join frame.
func (m *Machine) Join() error {
	return m.transition("join", []State{StateIdle}, StateJoining)
}

// HandleJoined processes the relay's join acknowledgement.
func (m *Machine) HandleJoined() error {
	return m.transition("joined", []State{StateJoining}, StateJoined)
}

// StartNegotiation moves a broadcaster from Joined to Negotiating when it
// decides to initiate with a known viewer.
func (m *Machine) StartNegotiation() error {
	if m.role != RoleBroadcaster {
		return &ErrInvalidTransition{Event: "start_negotiation", From: m.State()}
	}
	return m.transition("start_negotiation", []State{StateJoined}, StateNegotiating)
}

// HandleOffer processes a remote offer. Only a viewer receives offers, and
// only one per negotiation: the first moves Joined to Negotiating, a second
// is an error.
func (m *Machine) HandleOffer() error {
	m.mu.Lock()

	if m.state == StateClosed {
		m.mu.Unlock()
		return nil // ignored once closed
	}
	if m.role != RoleViewer || m.state != StateJoined || m.descriptionSeen {
		from := m.state
		m.mu.Unlock()
		return &ErrInvalidTransition{Event: "offer", From: from}
	}

	m.descriptionSeen = true
	m.setStateLocked(StateNegotiating)
	return nil
}

// HandleAnswer processes the remote answer to a broadcaster's offer. Exactly
// one is legal, and only while Negotiating.
func (m *Machine) HandleAnswer() error {
	m.mu.Lock()

	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	if m.role != RoleBroadcaster || m.state != StateNegotiating || m.descriptionSeen {
		from := m.state
		m.mu.Unlock()
		return &ErrInvalidTransition{Event: "answer", From: from}
	}

	m.descriptionSeen = true
	m.mu.Unlock()
	return nil
}

// HandleCandidate processes an inbound ICE candidate. Candidates arrive in
// any order and any number while Negotiating or Connected; they are ignored
// once Closed.
func (m *Machine) HandleCandidate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateNegotiating, StateConnected:
		return nil
	case StateClosed:
		return nil
	default:
		return &ErrInvalidTransition{Event: "ice_candidate", From: m.state}
	}
}

// TransportEstablished is fed from the transport's connectivity callback.
func (m *Machine) TransportEstablished() error {
	return m.transition("transport_established", []State{StateNegotiating}, StateConnected)
}

// Close handles local leave or peer_left for the counterpart. Closing a
// machine that is already terminal is a no-op.
func (m *Machine) Close() {
	m.mu.Lock()

	if m.state == StateClosed || m.state == StateErrored {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateClosed)
}

// Fail moves any non-terminal state to Errored: relay error frames, transport
// failures, negotiation timeouts.
func (m *Machine) Fail() {
	m.mu.Lock()

	if m.state == StateClosed || m.state == StateErrored {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateErrored)
}

func (m *Machine) transition(event string, from []State, to State) error {
	m.mu.Lock()

	ok := false
	for _, s := range from {
		if m.state == s {
			ok = true
			break
		}
	}
	if !ok {
		cur := m.state
		m.mu.Unlock()
		return &ErrInvalidTransition{Event: event, From: cur}
	}

	m.setStateLocked(to)
	return nil
}

// setStateLocked changes state and releases the lock before invoking the
// transition callback.
func (m *Machine) setStateLocked(to State) {
	from := m.state
	m.state = to
	fn := m.onTransition
	m.mu.Unlock()

	if fn != nil && from != to {
		fn(from, to)
	}
}
