package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"roomviewer/internal/grid"
	"roomviewer/internal/input"
	"roomviewer/internal/reconcile"
)

// ErrTooManyFailures ends a session whose server stopped answering.
var ErrTooManyFailures = errors.New("server unreachable")

// Config controls loop pacing.
type Config struct {
	TickRate             int // ticks per second
	PollEvery            int // ticks between change checks
	MessageTicks         int // how long a status message stays up
	MaxTransportFailures int // consecutive failed calls before giving up; 0 never gives up
	CallTimeout          time.Duration
}

// DefaultConfig is the pacing used by the room viewers: 14 frames a second
// and one change check per second.
func DefaultConfig() Config {
	return Config{
		TickRate:             14,
		PollEvery:            14,
		MessageTicks:         42,
		MaxTransportFailures: 30,
		CallTimeout:          5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.PollEvery <= 0 {
		c.PollEvery = d.PollEvery
	}
	if c.MessageTicks <= 0 {
		c.MessageTicks = d.MessageTicks
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	return c
}

// Loop is one room viewer session.
type Loop[S, A, B any] struct {
	cfg      Config
	engine   *reconcile.Engine[S, A, B]
	rules    Rules[S, A]
	source   input.Source
	renderer Renderer[S, A, B]
	saver    Saver
	logger   *slog.Logger

	phase     Phase
	cursor    grid.Coord
	origin    grid.Coord
	tick      uint64
	failures  int
	refreshed bool
	err       error

	message      string
	messageLevel slog.Level
	messageUntil uint64
}

// New creates a Loop in PhaseDisconnected. The first Step connects.
func New[S, A, B any](cfg Config, engine *reconcile.Engine[S, A, B], rules Rules[S, A], source input.Source, renderer Renderer[S, A, B], logger *slog.Logger) *Loop[S, A, B] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop[S, A, B]{
		cfg:      cfg.withDefaults(),
		engine:   engine,
		rules:    rules,
		source:   source,
		renderer: renderer,
		logger:   logger,
	}
}

// SetSaver enables the save key.
func (l *Loop[S, A, B]) SetSaver(s Saver) { l.saver = s }

// Phase returns the current phase.
func (l *Loop[S, A, B]) Phase() Phase { return l.phase }

// Cursor returns the cursor position.
func (l *Loop[S, A, B]) Cursor() grid.Coord { return l.cursor }

// Err returns why the loop terminated; nil after a normal quit.
func (l *Loop[S, A, B]) Err() error { return l.err }

// Run steps the loop at the configured rate until the user quits, the
// session dies or ctx is cancelled. A network call in progress when ctx is
// cancelled still runs to completion (bounded by CallTimeout).
func (l *Loop[S, A, B]) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.cfg.TickRate))
	defer ticker.Stop()
	for l.Step(ctx) {
		select {
		case <-ctx.Done():
			l.terminate(ctx.Err())
			return l.err
		case <-ticker.C:
		}
	}
	return l.err
}

// Step runs exactly one tick: input, periodic poll, render. It reports
// whether the loop is still running.
func (l *Loop[S, A, B]) Step(ctx context.Context) bool {
	if l.phase == PhaseTerminated {
		return false
	}
	if err := ctx.Err(); err != nil {
		l.terminate(err)
		return false
	}
	l.tick++
	l.refreshed = false

	if l.phase == PhaseDisconnected {
		l.phase = PhaseAwaitingFirstSnapshot
		l.poll(ctx, true)
	}

	if ev, ok := l.source.Poll(); ok && l.phase != PhaseTerminated {
		l.handle(ctx, ev)
	}

	if l.phase != PhaseTerminated && l.tick%uint64(l.cfg.PollEvery) == 0 {
		l.poll(ctx, !l.engine.State().HasSnapshot())
	}

	if l.message != "" && l.tick >= l.messageUntil {
		l.message = ""
	}
	l.renderer.Render(l.view())
	return l.phase != PhaseTerminated
}

func (l *Loop[S, A, B]) handle(ctx context.Context, ev input.Event) {
	switch ev {
	case input.EventQuit:
		l.terminate(nil)
		return
	case input.EventRefresh:
		l.poll(ctx, true)
		return
	case input.EventSave:
		l.save(ctx)
		return
	}
	if l.phase == PhaseAwaitingFirstSnapshot {
		return
	}

	if ev.Directional() {
		l.moveCursor(ev)
		if l.phase == PhasePendingConfirmation {
			l.adjust(ev)
		}
		return
	}

	switch l.phase {
	case PhaseIdle:
		l.handleIdle(ev)
	case PhaseSelecting:
		l.handleSelecting(ev)
	case PhasePendingConfirmation:
		l.handlePending(ctx, ev)
	}
}

func (l *Loop[S, A, B]) handleIdle(ev input.Event) {
	snap, ok := l.engine.View()
	if !ok {
		return
	}
	switch ev {
	case input.EventSelect:
		if a, ok := l.rules.Immediate(snap, l.cursor); ok {
			l.stage(snap, a)
			return
		}
		if l.rules.CanSelect(snap, l.cursor) {
			l.origin = l.cursor
			l.phase = PhaseSelecting
			return
		}
		l.notify(slog.LevelWarn, "nothing to select here")
	case input.EventSubmit:
		l.notify(slog.LevelInfo, "nothing queued")
	}
}

func (l *Loop[S, A, B]) handleSelecting(ev input.Event) {
	snap, ok := l.engine.View()
	if !ok {
		return
	}
	switch ev {
	case input.EventCancel:
		l.phase = PhaseIdle
	case input.EventSelect:
		if l.cursor == l.origin {
			l.phase = PhaseIdle
			return
		}
		a, ok := l.rules.Propose(snap, l.origin, l.cursor)
		if !ok || !l.rules.IsLegal(snap, a) {
			l.phase = PhaseIdle
			l.notify(slog.LevelWarn, fmt.Sprintf("invalid move %s -> %s", l.origin, l.cursor))
			return
		}
		l.stage(snap, a)
	}
}

func (l *Loop[S, A, B]) handlePending(ctx context.Context, ev input.Event) {
	p, ok := l.engine.Pending()
	if !ok {
		l.phase = PhaseIdle
		return
	}
	switch ev {
	case input.EventRotate:
		l.adjust(ev)
	case input.EventSubmit:
		if p.Status != reconcile.StatusStaged {
			l.notify(slog.LevelInfo, "waiting for the server")
			return
		}
		cctx, cancel := l.callContext(ctx)
		out := l.engine.Commit(cctx)
		cancel()
		l.apply(out)
		if out.Result == reconcile.ResultSubmitted {
			l.notify(slog.LevelInfo, "sent, waiting for the server")
		}
	case input.EventCancel, input.EventSelect:
		if err := l.engine.Cancel(); err != nil {
			if errors.Is(err, reconcile.ErrActionInFlight) {
				l.notify(slog.LevelInfo, "already sent, waiting for the server")
			}
			return
		}
		l.phase = PhaseIdle
	}
}

func (l *Loop[S, A, B]) stage(snap S, a A) {
	if !l.rules.IsLegal(snap, a) {
		l.notify(slog.LevelWarn, "not allowed")
		l.phase = PhaseIdle
		return
	}
	if err := l.engine.Stage(a); err != nil {
		l.logger.Debug("stage refused", "error", err)
		l.notify(slog.LevelWarn, err.Error())
		l.phase = PhaseIdle
		return
	}
	l.phase = PhasePendingConfirmation
	l.notify(slog.LevelInfo, "queued: enter to send, space or esc to cancel")
}

func (l *Loop[S, A, B]) adjust(ev input.Event) {
	p, ok := l.engine.Pending()
	if !ok || p.Status != reconcile.StatusStaged {
		return
	}
	snap, ok := l.engine.State().Confirmed()
	if !ok {
		return
	}
	a, ok := l.rules.Adjust(snap, p.Action, ev, l.cursor)
	if !ok || !l.rules.IsLegal(snap, a) {
		return
	}
	if err := l.engine.Amend(a); err != nil {
		l.logger.Debug("amend refused", "error", err)
	}
}

func (l *Loop[S, A, B]) moveCursor(ev input.Event) {
	snap, ok := l.engine.State().Confirmed()
	if !ok {
		return
	}
	nav := grid.NewNavigator(l.rules.Cells(snap))
	l.cursor = nav.Move(l.cursor, direction(ev))
}

func direction(ev input.Event) grid.Direction {
	switch ev {
	case input.EventUp:
		return grid.Up
	case input.EventDown:
		return grid.Down
	case input.EventLeft:
		return grid.Left
	}
	return grid.Right
}

func (l *Loop[S, A, B]) poll(ctx context.Context, force bool) {
	cctx, cancel := l.callContext(ctx)
	out := l.engine.Poll(cctx, force)
	cancel()
	l.apply(out)
}

// apply folds an engine outcome into the loop state.
func (l *Loop[S, A, B]) apply(out reconcile.Outcome) {
	if out.Fatal() {
		l.logger.Error("session invalidated", "error", out.Err)
		l.terminate(out.Err)
		return
	}
	switch out.Result {
	case reconcile.ResultTransportError:
		l.failures++
		l.logger.Warn("server call failed", "error", out.Err, "consecutive", l.failures)
		if l.cfg.MaxTransportFailures > 0 && l.failures >= l.cfg.MaxTransportFailures {
			l.terminate(fmt.Errorf("%w: %d failed calls: %w", ErrTooManyFailures, l.failures, out.Err))
			return
		}
		l.notify(slog.LevelError, "connection problem, retrying")
	case reconcile.ResultRefreshed:
		l.failures = 0
		l.refreshed = true
		if l.phase == PhaseAwaitingFirstSnapshot {
			l.phase = PhaseIdle
		}
	case reconcile.ResultRefused:
		if out.Err != nil {
			l.notify(slog.LevelWarn, out.Err.Error())
		}
	default:
		l.failures = 0
	}

	switch out.Resolved {
	case reconcile.StatusConfirmed:
		l.notify(slog.LevelInfo, "move confirmed")
	case reconcile.StatusRejected:
		l.notify(slog.LevelWarn, "move rejected: "+out.Reason)
	}
	l.settlePhase()
}

// settlePhase keeps the phase consistent with the engine after a refresh or
// a resolution.
func (l *Loop[S, A, B]) settlePhase() {
	_, pending := l.engine.Pending()
	switch l.phase {
	case PhasePendingConfirmation:
		if !pending {
			l.phase = PhaseIdle
		}
	case PhaseSelecting:
		if snap, ok := l.engine.View(); ok && !l.rules.CanSelect(snap, l.origin) {
			l.phase = PhaseIdle
		}
	}
}

func (l *Loop[S, A, B]) save(ctx context.Context) {
	if l.saver == nil {
		l.notify(slog.LevelInfo, "this room cannot be saved")
		return
	}
	cctx, cancel := l.callContext(ctx)
	defer cancel()
	where, err := l.saver.Save(cctx)
	if err != nil {
		l.logger.Warn("save failed", "error", err)
		l.notify(slog.LevelError, "failed to save game")
		return
	}
	l.notify(slog.LevelInfo, "game saved to "+where)
}

func (l *Loop[S, A, B]) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.cfg.CallTimeout)
}

func (l *Loop[S, A, B]) notify(level slog.Level, msg string) {
	l.message = msg
	l.messageLevel = level
	l.messageUntil = l.tick + uint64(l.cfg.MessageTicks)
}

func (l *Loop[S, A, B]) terminate(err error) {
	if l.phase == PhaseTerminated {
		return
	}
	l.phase = PhaseTerminated
	l.err = err
	if err != nil {
		l.notify(slog.LevelError, err.Error())
	}
}

func (l *Loop[S, A, B]) view() View[S, A, B] {
	v := View[S, A, B]{
		Phase:        l.phase,
		Cursor:       l.cursor,
		Origin:       l.origin,
		HasOrigin:    l.phase == PhaseSelecting,
		Refreshed:    l.refreshed,
		Message:      l.message,
		MessageLevel: l.messageLevel,
		Tick:         l.tick,
	}
	v.Snapshot, v.HasSnapshot = l.engine.View()
	v.Pending, v.HasPending = l.engine.Pending()
	v.Speculative = v.HasPending
	v.Sideband, v.HasSideband = l.engine.State().Sideband()
	if !v.HasSnapshot {
		return v
	}
	v.Terminal = l.rules.IsTerminal(v.Snapshot)
	switch l.phase {
	case PhaseIdle:
		_, immediate := l.rules.Immediate(v.Snapshot, l.cursor)
		v.CursorValid = immediate || l.rules.CanSelect(v.Snapshot, l.cursor)
	case PhaseSelecting:
		if a, ok := l.rules.Propose(v.Snapshot, l.origin, l.cursor); ok {
			v.CursorValid = l.rules.IsLegal(v.Snapshot, a)
		}
	case PhasePendingConfirmation:
		v.CursorValid = true
	}
	return v
}
