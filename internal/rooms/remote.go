// Package rooms holds what every room viewer shares: the adapter from the
// wire room channel to the reconcile engine, and the options a viewer is
// started with. The viewers themselves live in the subpackages.
package rooms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/input"
	"roomviewer/internal/reconcile"
	"roomviewer/internal/session"
	"roomviewer/internal/transport"
)

// Codec turns one room type's wire state and moves into Go values.
type Codec[S, A any] interface {
	// DecodeState parses get_state. The version is 0 when the server does
	// not stamp its states.
	DecodeState(raw json.RawMessage) (S, uint64, error)
	// EncodeMove returns the value sent as make_move's "move".
	EncodeMove(a A) any
}

// Remote adapts a transport.RoomChannel to reconcile.Transport.
type Remote[S, A any] struct {
	ch    transport.RoomChannel
	codec Codec[S, A]
}

// NewRemote wraps ch.
func NewRemote[S, A any](ch transport.RoomChannel, codec Codec[S, A]) *Remote[S, A] {
	return &Remote[S, A]{ch: ch, codec: codec}
}

// CheckChanged implements reconcile.Transport.
func (r *Remote[S, A]) CheckChanged(ctx context.Context) (reconcile.Change[transport.FrequentUpdate], error) {
	rep, err := r.ch.HasChanged(ctx)
	if err != nil {
		return reconcile.Change[transport.FrequentUpdate]{}, err
	}
	return reconcile.Change[transport.FrequentUpdate]{
		Changed:  rep.Changed,
		Version:  rep.Version,
		Sideband: rep.Frequent,
	}, nil
}

// FetchSnapshot implements reconcile.Transport.
func (r *Remote[S, A]) FetchSnapshot(ctx context.Context) (S, uint64, error) {
	var zero S
	raw, err := r.ch.GetState(ctx)
	if err != nil {
		return zero, 0, err
	}
	snap, version, err := r.codec.DecodeState(raw)
	if err != nil {
		return zero, 0, fmt.Errorf("decode state: %w", err)
	}
	return snap, version, nil
}

// Submit implements reconcile.Transport.
func (r *Remote[S, A]) Submit(ctx context.Context, a A) (reconcile.Verdict, error) {
	res, err := r.ch.MakeMove(ctx, r.codec.EncodeMove(a))
	if err != nil {
		return reconcile.Verdict{}, err
	}
	return reconcile.Verdict{Accepted: res.Success, Reason: res.Error}, nil
}

// Options starts a room viewer.
type Options struct {
	Screen   tcell.Screen
	Source   input.Source
	Channel  transport.RoomChannel
	RoomName string
	// Username identifies "you" in the roster and the turn line.
	Username string
	Saver    session.Saver
	Config   session.Config
	Logger   *slog.Logger
}

// Log returns o.Logger or the default logger.
func (o Options) Log() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Run wires a viewer for one room type and runs it until the user leaves.
func Run[S, A any](ctx context.Context, o Options, codec Codec[S, A], ap reconcile.Applier[S, A], rules session.Rules[S, A], r session.Renderer[S, A, transport.FrequentUpdate]) error {
	logger := o.Log().With("room", o.RoomName)
	engine := reconcile.NewEngine[S, A, transport.FrequentUpdate](NewRemote(o.Channel, codec), ap, logger)
	loop := session.New(o.Config, engine, rules, o.Source, r, logger)
	if o.Saver != nil {
		loop.SetSaver(o.Saver)
	}
	logger.Info("entering room")
	err := loop.Run(ctx)
	if err != nil {
		logger.Warn("left room", "error", err)
	} else {
		logger.Info("left room")
	}
	return err
}
