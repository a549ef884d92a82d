// Package transport is the wire client of the game server: plain HTTP/JSON
// for the lobby and either HTTP or a websocket for the room channel.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"roomviewer/internal/reconcile"
)

const maxBody = 1 << 20

var (
	ErrNotFound = errors.New("not found")
	// ErrNullResponse is returned when the server answers 200 with "null".
	ErrNullResponse = errors.New("server returned null")
	// ErrNotLoggedIn is returned by calls that need a user before Login.
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError surfaces non-2xx responses from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Message is the server's error text, unwrapped from {"error": "..."} when
// the body has that shape.
func (e *APIError) Message() string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(e.Body)
}

//nolint:errorlint
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case reconcile.ErrSessionInvalid:
		return e.StatusCode == http.StatusUnauthorized ||
			e.StatusCode == http.StatusForbidden ||
			e.StatusCode == http.StatusGone
	case reconcile.ErrTransport:
		return true
	}
	return false
}

func newAPIError(status int, body []byte) error {
	return &APIError{StatusCode: status, Body: string(body)}
}

// BaseURL builds the server root for host and port.
func BaseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Client talks to one game server on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu       sync.RWMutex
	userHash string
	username string
}

// NewClient creates a client for baseURL. A nil httpClient gets a default
// with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// BaseURL returns the server root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// UserHash returns the logged-in user's hash, or "".
func (c *Client) UserHash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userHash
}

// Username returns the logged-in user's name, or "".
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Client) setUser(hash, name string) {
	c.mu.Lock()
	c.userHash, c.username = hash, name
	c.mu.Unlock()
}

// cookies attaches the user hash. The server reads it under two names
// depending on the endpoint, so both are always sent.
func (c *Client) cookies(req *http.Request) {
	hash := c.UserHash()
	if hash == "" {
		return
	}
	req.AddCookie(&http.Cookie{Name: "user_hash", Value: hash})
	req.AddCookie(&http.Cookie{Name: "hash_id", Value: hash})
}

// do sends a request with an optional JSON body and decodes a JSON reply
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	data, err := c.raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if isNull(data) {
		return fmt.Errorf("%s %s: %w", method, path, ErrNullResponse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// raw is do without decoding.
func (c *Client) raw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.cookies(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("server error", "method", method, "path", path, "status", resp.StatusCode)
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func isNull(data []byte) bool {
	t := bytes.TrimSpace(data)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
