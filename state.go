package portal

import "fmt"

// State is the session lifecycle state held by the Manager
type State string

const (
	StateRestoring       State = "restoring"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

func (s State) String() string {
	return string(s)
}

// Snapshot is an immutable view of the session
type Snapshot struct {
	State State `json:"state"`
	User  *User `json:"user,omitempty"`
}

// Authenticated reports whether the snapshot holds a session
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Restoring reports whether the initial restore is still running
func (s Snapshot) Restoring() bool {
	return s.State == StateRestoring
}

var transitions = map[State]map[State]struct{}{
	StateRestoring: {
		StateUnauthenticated: {},
		StateAuthenticated:   {},
	},
	StateUnauthenticated: {
		StateAuthenticated: {},
	},
	StateAuthenticated: {
		StateAuthenticated:   {},
		StateUnauthenticated: {},
	},
}

// CanTransition reports whether moving from one state to another is allowed
func CanTransition(from, to State) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

func validateTransition(from, to State) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
