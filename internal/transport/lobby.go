package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ServerInfo identifies a game server.
type ServerInfo struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name,omitempty"`
}

// RoomInfo is one entry of the room list.
type RoomInfo struct {
	RoomID            string   `json:"room_id"`
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	Users             []string `json:"users"`
	MaxUsers          int      `json:"max_users"`
	PasswordProtected bool     `json:"password_protected"`
	Joinable          bool     `json:"joinable"`
}

// CreateRoomRequest is the body of /create_room.
type CreateRoomRequest struct {
	Name     string         `json:"room_name"`
	Type     string         `json:"room_type"`
	Password *string        `json:"password"`
	Settings map[string]any `json:"room_settings"`
}

// LoadedRoom is the reply of /room/load_game.
type LoadedRoom struct {
	RoomID   string `json:"room_id"`
	RoomType string `json:"room_type"`
}

// ServerID asks the server for its identity.
func (c *Client) ServerID(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	if err := c.do(ctx, http.MethodGet, "/get_server_id", nil, &info); err != nil {
		return ServerInfo{}, err
	}
	return info, nil
}

// Ping is ServerID with its round-trip time.
func (c *Client) Ping(ctx context.Context) (ServerInfo, time.Duration, error) {
	start := time.Now()
	info, err := c.ServerID(ctx)
	return info, time.Since(start), err
}

// CreateUser registers name and logs in as the new user.
func (c *Client) CreateUser(ctx context.Context, name string) (string, error) {
	var reply struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/create_user/"+url.PathEscape(name), nil, &reply); err != nil {
		return "", err
	}
	if reply.UserID == "" {
		return "", fmt.Errorf("create user: empty user id")
	}
	c.setUser(reply.UserID, name)
	return reply.UserID, nil
}

// Login resumes the user identified by hash. An unknown hash yields an
// error matching ErrNotFound.
func (c *Client) Login(ctx context.Context, hash string) (string, error) {
	var reply struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodGet, "/login/"+url.PathEscape(hash), nil, &reply); err != nil {
		return "", err
	}
	c.setUser(hash, reply.Username)
	return reply.Username, nil
}

// Logout ends the session on the server and forgets the user locally.
func (c *Client) Logout(ctx context.Context) error {
	if c.UserHash() == "" {
		return ErrNotLoggedIn
	}
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	c.setUser("", "")
	return err
}

// Rooms lists the server's rooms.
func (c *Client) Rooms(ctx context.Context) ([]RoomInfo, error) {
	var rooms []RoomInfo
	if err := c.do(ctx, http.MethodGet, "/get_rooms", nil, &rooms); err != nil {
		if errors.Is(err, ErrNullResponse) {
			return nil, nil
		}
		return nil, err
	}
	return rooms, nil
}

// Games lists the room types the server can host.
func (c *Client) Games(ctx context.Context) ([]string, error) {
	var games []string
	if err := c.do(ctx, http.MethodGet, "/get_games", nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// JoinRoom enters roomID; password may be empty.
func (c *Client) JoinRoom(ctx context.Context, roomID, password string) error {
	body := struct {
		RoomID   string  `json:"room_id"`
		Password *string `json:"password"`
	}{RoomID: roomID}
	if password != "" {
		body.Password = &password
	}
	return c.do(ctx, http.MethodPost, "/join_room", body, nil)
}

// CreateRoom creates a room and enters it.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (RoomInfo, error) {
	if req.Settings == nil {
		req.Settings = map[string]any{}
	}
	var room RoomInfo
	if err := c.do(ctx, http.MethodPost, "/create_room", req, &room); err != nil {
		return RoomInfo{}, err
	}
	return room, nil
}

// SavedInfo describes a saved room.
func (c *Client) SavedInfo(ctx context.Context, roomID string) (RoomInfo, error) {
	var room RoomInfo
	if err := c.do(ctx, http.MethodGet, "/room/get_saved_info/"+url.PathEscape(roomID), nil, &room); err != nil {
		return RoomInfo{}, err
	}
	return room, nil
}

// LoadGame restores a saved room and enters it.
func (c *Client) LoadGame(ctx context.Context, roomID string) (LoadedRoom, error) {
	var loaded LoadedRoom
	body := struct {
		RoomID string `json:"room_id"`
	}{roomID}
	if err := c.do(ctx, http.MethodPost, "/room/load_game", body, &loaded); err != nil {
		return LoadedRoom{}, err
	}
	return loaded, nil
}

// SaveGame asks the server to save the current room and returns its id.
func (c *Client) SaveGame(ctx context.Context) (string, error) {
	var reply struct {
		RoomID string `json:"room_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/room/save_game", nil, &reply); err != nil {
		return "", err
	}
	if reply.RoomID == "" {
		return "", fmt.Errorf("save game: server did not return a room id")
	}
	return reply.RoomID, nil
}
