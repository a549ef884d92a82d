package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by calls on a closed websocket room.
var ErrClosed = errors.New("room channel closed")

// Websocket operations. The room websocket mirrors the three room endpoints
// so the same RoomChannel contract holds over either carrier.
const (
	OpHasChanged = "has_changed"
	OpGetState   = "get_state"
	OpMakeMove   = "make_move"
)

// WSRequest is a client frame on the room websocket.
type WSRequest struct {
	Op   string          `json:"op"`
	Move json.RawMessage `json:"move,omitempty"`
}

// WSResponse is the server's answer to exactly one WSRequest.
type WSResponse struct {
	Op     string          `json:"op"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// WSRoom is a RoomChannel over one persistent websocket. Every call is a
// synchronous request/response pair; there is no background reader, so a
// reply can never arrive out of turn. A broken connection is redialled on
// the next call.
type WSRoom struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// DialRoom opens the room websocket for the client's user.
func (c *Client) DialRoom(ctx context.Context) (*WSRoom, error) {
	hash := c.UserHash()
	if hash == "" {
		return nil, ErrNotLoggedIn
	}
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: "user_hash", Value: hash}).String())
	r := &WSRoom{
		url:    wsURL(c.baseURL) + "/room/ws",
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.dial(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func (r *WSRoom) dial(ctx context.Context) error {
	conn, resp, err := r.dialer.DialContext(ctx, r.url, r.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return newAPIError(resp.StatusCode, []byte(err.Error()))
		}
		return fmt.Errorf("dial room websocket: %w", err)
	}
	r.conn = conn
	return nil
}

// Close sends a close frame and drops the connection.
func (r *WSRoom) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = r.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := r.conn.Close()
	r.conn = nil
	return err
}

func (r *WSRoom) call(ctx context.Context, req WSRequest) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.conn == nil {
		if err := r.dial(ctx); err != nil {
			return nil, err
		}
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	_ = r.conn.SetWriteDeadline(deadline)
	_ = r.conn.SetReadDeadline(deadline)

	if err := r.conn.WriteJSON(req); err != nil {
		r.drop()
		return nil, fmt.Errorf("ws %s: %w", req.Op, err)
	}
	var resp WSResponse
	if err := r.conn.ReadJSON(&resp); err != nil {
		r.drop()
		return nil, fmt.Errorf("ws %s: %w", req.Op, err)
	}
	if resp.Op != req.Op {
		r.drop()
		return nil, fmt.Errorf("ws %s: reply for %q", req.Op, resp.Op)
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, newAPIError(resp.Status, resp.Body)
	}
	if isNull(resp.Body) {
		return nil, fmt.Errorf("ws %s: %w", req.Op, ErrNullResponse)
	}
	return resp.Body, nil
}

func (r *WSRoom) drop() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// HasChanged implements RoomChannel.
func (r *WSRoom) HasChanged(ctx context.Context) (ChangeReport, error) {
	body, err := r.call(ctx, WSRequest{Op: OpHasChanged})
	if err != nil {
		return ChangeReport{}, err
	}
	var rep ChangeReport
	if err := json.Unmarshal(body, &rep); err != nil {
		return ChangeReport{}, fmt.Errorf("decode change report: %w", err)
	}
	return rep, nil
}

// GetState implements RoomChannel.
func (r *WSRoom) GetState(ctx context.Context) (json.RawMessage, error) {
	return r.call(ctx, WSRequest{Op: OpGetState})
}

// MakeMove implements RoomChannel.
func (r *WSRoom) MakeMove(ctx context.Context, move any) (MoveResult, error) {
	raw, err := json.Marshal(move)
	if err != nil {
		return MoveResult{}, fmt.Errorf("encode move: %w", err)
	}
	body, err := r.call(ctx, WSRequest{Op: OpMakeMove, Move: raw})
	var res MoveResult
	if err == nil {
		if err = json.Unmarshal(body, &res); err != nil {
			return MoveResult{}, fmt.Errorf("decode move result: %w", err)
		}
	}
	return moveOutcome(res, err)
}

var (
	_ RoomChannel = (*WSRoom)(nil)
	_ RoomChannel = (*HTTPRoom)(nil)
)
