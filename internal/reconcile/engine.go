package reconcile

import (
	"context"
	"fmt"
	"log/slog"
)

// Change is the answer to the lightweight "has anything changed" query.
type Change[B any] struct {
	Changed bool
	// Version is the server's change marker; 0 when it only sends a flag.
	Version uint64
	// Sideband carries frequent updates (roster, clocks) that are applied
	// without fetching the full snapshot.
	Sideband *B
}

// Verdict is the server's answer to a submitted action.
type Verdict struct {
	Accepted bool
	Reason   string
}

// Transport is the remote side of a room session.
type Transport[S, A, B any] interface {
	CheckChanged(ctx context.Context) (Change[B], error)
	FetchSnapshot(ctx context.Context) (S, uint64, error)
	Submit(ctx context.Context, action A) (Verdict, error)
}

// Applier applies actions to snapshots for a given game.
type Applier[S, A any] interface {
	// Apply returns snap with action applied. It must not modify snap.
	Apply(snap S, action A) (S, error)
	// Confirms reports whether a fresh server snapshot reflects action.
	Confirms(snap S, action A) bool
}

// Engine drives a State against a Transport. It is not safe for concurrent
// use: the session loop is its only caller, so Poll and Commit never overlap.
type Engine[S, A, B any] struct {
	state     State[S, A, B]
	transport Transport[S, A, B]
	applier   Applier[S, A]
	logger    *slog.Logger
}

// NewEngine creates an Engine with an empty State.
func NewEngine[S, A, B any](t Transport[S, A, B], ap Applier[S, A], logger *slog.Logger) *Engine[S, A, B] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine[S, A, B]{transport: t, applier: ap, logger: logger}
}

// State exposes the mirror for read access.
func (e *Engine[S, A, B]) State() *State[S, A, B] { return &e.state }

// View is shorthand for State().View().
func (e *Engine[S, A, B]) View() (S, bool) { return e.state.View() }

// Pending is shorthand for State().Pending().
func (e *Engine[S, A, B]) Pending() (Pending[S, A], bool) { return e.state.Pending() }

// Poll asks the server whether the room changed and refreshes the snapshot
// when it did, when force is set, or when a sent action is waiting to be
// resolved. A failed call leaves the previous snapshot in place.
func (e *Engine[S, A, B]) Poll(ctx context.Context, force bool) Outcome {
	change, err := e.transport.CheckChanged(ctx)
	if err != nil {
		e.logger.Debug("poll failed", "error", err)
		return Outcome{Result: ResultTransportError, Err: asTransportError("check changed", err)}
	}
	if e.state.regresses(change.Version) {
		e.logger.Warn("ignoring stale change marker", "version", change.Version, "last", e.state.version)
		return Outcome{Result: ResultStale, Err: ErrStaleSnapshot}
	}
	if change.Sideband != nil {
		e.state.setSideband(*change.Sideband)
	}
	// A sent action is resolved by the next poll even when the change flag
	// lags, so awaiting skips the unchanged short-circuit.
	if !change.Changed && !force && !e.awaiting() {
		return Outcome{Result: ResultUnchanged}
	}

	snap, version, err := e.transport.FetchSnapshot(ctx)
	if err != nil {
		e.logger.Debug("snapshot fetch failed", "error", err)
		return Outcome{Result: ResultTransportError, Err: asTransportError("fetch snapshot", err)}
	}
	if version == 0 {
		version = change.Version
	}
	if e.state.regresses(version) {
		e.logger.Warn("ignoring stale snapshot", "version", version, "last", e.state.version)
		return Outcome{Result: ResultStale, Err: ErrStaleSnapshot}
	}
	e.state.replace(snap, version)

	out := Outcome{Result: ResultRefreshed}
	out.Resolved, out.Reason = e.resolve()
	return out
}

// resolve settles the pending action against a freshly replaced snapshot.
func (e *Engine[S, A, B]) resolve() (Status, string) {
	p := e.state.pending
	if p == nil {
		return StatusNone, ""
	}
	switch p.Status {
	case StatusStaged:
		// Not sent yet: keep it on top of the new state if it still applies.
		spec, err := e.applier.Apply(e.state.snapshot, p.Action)
		if err != nil {
			e.state.clearPending()
			return StatusRejected, "no longer possible: " + err.Error()
		}
		p.Speculative = spec
		return StatusNone, ""
	case StatusAwaiting:
		e.state.clearPending()
		if e.applier.Confirms(e.state.snapshot, p.Action) {
			return StatusConfirmed, ""
		}
		e.logger.Info("pending action superseded by server state")
		return StatusRejected, "superseded by server state"
	}
	e.state.clearPending()
	return StatusNone, ""
}

func (e *Engine[S, A, B]) awaiting() bool {
	return e.state.pending != nil && e.state.pending.Status == StatusAwaiting
}

// Stage applies action locally without sending it.
func (e *Engine[S, A, B]) Stage(action A) error {
	if e.state.pending != nil {
		return ErrActionAlreadyPending
	}
	spec, err := e.speculate(action)
	if err != nil {
		return err
	}
	e.state.pending = &Pending[S, A]{Action: action, Speculative: spec, Status: StatusStaged}
	return nil
}

// Amend replaces a staged action, e.g. after the user repositions a piece.
func (e *Engine[S, A, B]) Amend(action A) error {
	p := e.state.pending
	if p == nil {
		return ErrNothingPending
	}
	if p.Status != StatusStaged {
		return ErrActionInFlight
	}
	spec, err := e.speculate(action)
	if err != nil {
		return err
	}
	p.Action = action
	p.Speculative = spec
	return nil
}

func (e *Engine[S, A, B]) speculate(action A) (S, error) {
	var zero S
	if !e.state.hasSnapshot {
		return zero, ErrNoSnapshot
	}
	spec, err := e.applier.Apply(e.state.snapshot, action)
	if err != nil {
		return zero, fmt.Errorf("apply action: %w", err)
	}
	return spec, nil
}

// Cancel drops a staged action without contacting the server.
func (e *Engine[S, A, B]) Cancel() error {
	p := e.state.pending
	if p == nil {
		return ErrNothingPending
	}
	if p.Status != StatusStaged {
		return ErrActionInFlight
	}
	e.state.clearPending()
	return nil
}

// Commit sends the staged action. On any failure the speculation is rolled
// back to the confirmed snapshot at once and not retried.
func (e *Engine[S, A, B]) Commit(ctx context.Context) Outcome {
	p := e.state.pending
	if p == nil {
		return Outcome{Result: ResultRefused, Err: ErrNothingPending}
	}
	if p.Status != StatusStaged {
		return Outcome{Result: ResultRefused, Err: ErrActionInFlight}
	}
	p.Status = StatusAwaiting

	verdict, err := e.transport.Submit(ctx, p.Action)
	if err != nil {
		e.state.clearPending()
		e.logger.Warn("submit failed, rolled back", "error", err)
		return Outcome{
			Result:   ResultTransportError,
			Err:      asTransportError("submit", err),
			Resolved: StatusRejected,
			Reason:   "could not reach server",
		}
	}
	if !verdict.Accepted {
		e.state.clearPending()
		reason := verdict.Reason
		if reason == "" {
			reason = "refused by server"
		}
		e.logger.Info("action rejected, rolled back", "reason", reason)
		return Outcome{
			Result:   ResultRejected,
			Err:      fmt.Errorf("%w: %s", ErrActionRejected, reason),
			Resolved: StatusRejected,
			Reason:   reason,
		}
	}
	return Outcome{Result: ResultSubmitted}
}

// SubmitAction stages action and sends it in one step.
func (e *Engine[S, A, B]) SubmitAction(ctx context.Context, action A) Outcome {
	if err := e.Stage(action); err != nil {
		return Outcome{Result: ResultRefused, Err: err}
	}
	return e.Commit(ctx)
}
