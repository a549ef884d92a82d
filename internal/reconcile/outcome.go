package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps any network, timeout or non-2xx failure. Non-fatal.
	ErrTransport = errors.New("transport error")
	// ErrActionRejected is returned when the server refuses a submitted action.
	ErrActionRejected = errors.New("action rejected")
	// ErrActionAlreadyPending is returned when a second action is started
	// before the first one resolved.
	ErrActionAlreadyPending = errors.New("action already pending")
	// ErrStaleSnapshot marks a response whose change marker went backwards.
	ErrStaleSnapshot = errors.New("stale snapshot")
	// ErrNothingPending is returned by Cancel/Commit/Amend with no action staged.
	ErrNothingPending = errors.New("no pending action")
	// ErrActionInFlight is returned when a sent action is cancelled or amended.
	ErrActionInFlight = errors.New("action already submitted")
	// ErrNoSnapshot is returned when an action is staged before the first refresh.
	ErrNoSnapshot = errors.New("no snapshot yet")
	// ErrSessionInvalid means the server no longer recognises the session.
	// It is the only transport error that ends a room session.
	ErrSessionInvalid = errors.New("session invalidated by server")
)

// Result classifies an Outcome.
type Result uint8

const (
	ResultUnchanged Result = iota
	ResultRefreshed
	ResultSubmitted
	ResultRejected
	ResultStale
	ResultTransportError
	ResultRefused // local precondition failed; nothing was sent
)

func (r Result) String() string {
	switch r {
	case ResultUnchanged:
		return "unchanged"
	case ResultRefreshed:
		return "refreshed"
	case ResultSubmitted:
		return "submitted"
	case ResultRejected:
		return "rejected"
	case ResultStale:
		return "stale"
	case ResultTransportError:
		return "transport error"
	case ResultRefused:
		return "refused"
	}
	return fmt.Sprintf("result(%d)", uint8(r))
}

// Outcome is what Poll, SubmitAction and Commit report back to the loop.
type Outcome struct {
	Result Result
	Err    error
	// Resolved is StatusConfirmed or StatusRejected when this call settled
	// the pending action, StatusNone otherwise.
	Resolved Status
	Reason   string
}

// Fatal reports whether the session should end.
func (o Outcome) Fatal() bool {
	return errors.Is(o.Err, ErrSessionInvalid)
}

// asTransportError tags err with ErrTransport unless it already carries it.
func asTransportError(op string, err error) error {
	if errors.Is(err, ErrTransport) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
