// Package session is the single source of truth for who is logged in.
package session

import "github.com/naveenspark/folio/pkg/domain"

// Status is the coarse session state.
type Status int

const (
	Unauthenticated Status = iota
	Loading
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// State is the session as seen by the screens. Identity is set only when
// Status is Authenticated.
type State struct {
	Status   Status
	Identity domain.Identity
	Err      string
}

// EventKind names what happened to the session.
type EventKind int

const (
	Booted EventKind = iota
	Verified
	VerifyFailed
	LoginStarted
	LoginSucceeded
	LoginFailed
	LoggedOut
	SessionExpired
)

// Event drives Transition. Identity accompanies Verified and LoginSucceeded;
// Err accompanies LoginFailed.
type Event struct {
	Kind     EventKind
	Identity domain.Identity
	Err      string
}

// ErrSessionExpired is the message shown after a forced logout.
const ErrSessionExpired = "session expired, please log in again"

// Transition is the pure state machine. Events that make no sense in the
// current state leave it unchanged.
func Transition(s State, e Event) State {
	switch e.Kind {
	case Booted:
		if s.Status == Unauthenticated {
			return State{Status: Loading}
		}
	case Verified, LoginSucceeded:
		if s.Status == Loading && e.Identity != nil {
			return State{Status: Authenticated, Identity: e.Identity}
		}
	case VerifyFailed:
		if s.Status == Loading {
			return State{Status: Unauthenticated}
		}
	case LoginStarted:
		if s.Status == Unauthenticated {
			return State{Status: Loading}
		}
	case LoginFailed:
		if s.Status == Loading {
			return State{Status: Unauthenticated, Err: e.Err}
		}
	case LoggedOut:
		return State{Status: Unauthenticated}
	case SessionExpired:
		if s.Status == Authenticated {
			return State{Status: Unauthenticated, Err: ErrSessionExpired}
		}
	}
	return s
}
