package interview

import (
	"time"

	"github.com/eleven-am/interview-coach/internal/live"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateError      State = "error"
	StateEnded      State = "ended"
	StateClosed     State = "closed"
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateClosed
}

// Status is an immutable snapshot of a controller, replaced on every
// transition.
type Status struct {
	Epoch     uint64    `json:"epoch"`
	State     State     `json:"state"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Attempt   int       `json:"attempt"`
	Retrying  bool      `json:"retrying"`
	CanRetry  bool      `json:"can_retry"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Request describes the interview a connect should start.
type Request struct {
	Difficulty live.Difficulty
	Resume     string
}
