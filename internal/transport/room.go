package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Member is one entry of a room roster.
type Member struct {
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// FrequentUpdate is the sideband carried by every change check: the roster
// and the clocks, which change too often to justify a full snapshot.
type FrequentUpdate struct {
	Players    []Member `json:"players"`
	Spectators []Member `json:"spectators"`
	MoveTimers []int    `json:"move_timers,omitempty"`
}

// ChangeReport is the reply of /room/has_changed.
type ChangeReport struct {
	Changed  bool            `json:"changed"`
	Version  uint64          `json:"version,omitempty"`
	Frequent *FrequentUpdate `json:"frequent_update,omitempty"`
}

// MoveResult is the server's verdict on a move.
type MoveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RoomChannel is the per-room half of the protocol. The state is returned
// raw; each room type decodes its own snapshot.
type RoomChannel interface {
	HasChanged(ctx context.Context) (ChangeReport, error)
	GetState(ctx context.Context) (json.RawMessage, error)
	MakeMove(ctx context.Context, move any) (MoveResult, error)
}

// HTTPRoom is a RoomChannel over plain requests.
type HTTPRoom struct {
	c *Client
}

// Room returns the HTTP room channel for the client's current room.
func (c *Client) Room() *HTTPRoom { return &HTTPRoom{c: c} }

// HasChanged implements RoomChannel.
func (r *HTTPRoom) HasChanged(ctx context.Context) (ChangeReport, error) {
	var rep ChangeReport
	if err := r.c.do(ctx, http.MethodGet, "/room/has_changed", nil, &rep); err != nil {
		return ChangeReport{}, err
	}
	return rep, nil
}

// GetState implements RoomChannel.
func (r *HTTPRoom) GetState(ctx context.Context) (json.RawMessage, error) {
	data, err := r.c.raw(ctx, http.MethodGet, "/room/get_state", nil)
	if err != nil {
		return nil, err
	}
	if isNull(data) {
		return nil, fmt.Errorf("get state: %w", ErrNullResponse)
	}
	return json.RawMessage(data), nil
}

// MakeMove implements RoomChannel. A 4xx refusal that is not a session
// problem comes back as an unsuccessful MoveResult, not an error.
func (r *HTTPRoom) MakeMove(ctx context.Context, move any) (MoveResult, error) {
	body := struct {
		Move any `json:"move"`
	}{move}
	var res MoveResult
	err := r.c.do(ctx, http.MethodPost, "/room/make_move", body, &res)
	return moveOutcome(res, err)
}

func moveOutcome(res MoveResult, err error) (MoveResult, error) {
	if err == nil {
		return res, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return MoveResult{Success: false, Error: apiErr.Message()}, nil
		}
	}
	return MoveResult{}, err
}
