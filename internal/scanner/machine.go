package scanner

import (
	"errors"
	"fmt"
	"sync"
)

// State is a Scanner Client state.
type State int

const (
	Idle State = iota
	Acquiring
	Scanning
	Decoded
	Validating
	Result
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Scanning:
		return "scanning"
	case Decoded:
		return "decoded"
	case Validating:
		return "validating"
	case Result:
		return "result"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives a transition.
type Event int

const (
	EvStart      Event = iota // operator selected an event
	EvStreamLive              // camera stream delivering frames
	EvCodeFound               // decoder found a code in a frame
	EvParsed                  // decoded text is a ticket payload
	EvMalformed               // decoded text is not a ticket payload
	EvValidated               // validator answered
	EvFailed                  // camera, stream or validator failure
	EvDismiss                 // display interval elapsed or operator dismissed
	EvAbort                   // operator cancelled
)

func (e Event) String() string {
	switch e {
	case EvStart:
		return "start"
	case EvStreamLive:
		return "stream_live"
	case EvCodeFound:
		return "code_found"
	case EvParsed:
		return "parsed"
	case EvMalformed:
		return "malformed"
	case EvValidated:
		return "validated"
	case EvFailed:
		return "failed"
	case EvDismiss:
		return "dismiss"
	case EvAbort:
		return "abort"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// transitions is the complete table; anything absent is rejected.
var transitions = map[State]map[Event]State{
	Idle: {
		EvStart: Acquiring,
	},
	Acquiring: {
		EvStreamLive: Scanning,
		EvFailed:     Idle,
		EvAbort:      Idle,
	},
	Scanning: {
		EvCodeFound: Decoded,
		EvFailed:    Result,
		EvAbort:     Idle,
	},
	Decoded: {
		EvParsed:    Validating,
		EvMalformed: Result,
		EvAbort:     Idle,
	},
	Validating: {
		EvValidated: Result,
		EvFailed:    Result,
		EvAbort:     Idle,
	},
	Result: {
		EvDismiss: Idle,
	},
}

// ErrInvalidTransition is returned when an event is not accepted in the current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Machine holds the single state variable of a scanner session.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine returns a machine in Idle.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies ev. On an invalid transition the state is unchanged.
func (m *Machine) Fire(ev Event) (from, to State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from = m.state
	next, ok := transitions[from][ev]
	if !ok {
		return from, from, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, from)
	}
	m.state = next
	return from, next, nil
}

// Terminal reports whether abort is no longer accepted in s.
func Terminal(s State) bool {
	_, ok := transitions[s][EvAbort]
	return !ok
}
