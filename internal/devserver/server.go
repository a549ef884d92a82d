// Package devserver is an in-process game server speaking the same protocol
// as the real one. It backs the transport and app tests and the devserver
// binary; state lives in memory only.
package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roomviewer/internal/discovery"
	"roomviewer/internal/transport"
)

const maxNameLen = 32

type user struct {
	hash   string
	name   string
	online bool
	room   string
	// seen is the room version the user last fetched, per room.
	seen map[string]uint64
}

type room struct {
	id       string
	name     string
	typ      string
	password string
	game     game
	members  []string
	version  uint64
}

type savedRoom struct {
	name     string
	typ      string
	password string
	game     game
	members  []string
}

// Server is the in-memory game server.
type Server struct {
	id     string
	name   string
	logger *slog.Logger
	now    func() time.Time

	upgrader websocket.Upgrader

	mu    sync.Mutex
	users map[string]*user
	rooms map[string]*room
	saved map[string]*savedRoom
}

// New creates a server announcing itself as name.
func New(name string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		id:     uuid.NewString(),
		name:   name,
		logger: logger,
		now:    time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		users: map[string]*user{},
		rooms: map[string]*room{},
		saved: map[string]*savedRoom{},
	}
}

// ID returns the server id.
func (s *Server) ID() string { return s.id }

// Name returns the server's display name.
func (s *Server) Name() string { return s.name }

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/get_server_id", s.handleServerID)
	r.Get("/create_user/{name}", s.handleCreateUser)
	r.Get("/login/{hash}", s.handleLogin)
	r.Post("/logout", s.withUser(s.handleLogout))
	r.Get("/get_rooms", s.withUser(s.handleRooms))
	r.Get("/get_games", s.handleGames)
	r.Post("/join_room", s.withUser(s.handleJoin))
	r.Post("/create_room", s.withUser(s.handleCreate))
	r.Route("/room", func(r chi.Router) {
		r.Get("/get_saved_info/{id}", s.withUser(s.handleSavedInfo))
		r.Post("/load_game", s.withUser(s.handleLoad))
		r.Post("/save_game", s.withUser(s.handleSave))
		r.Get("/has_changed", s.withUser(s.roomCall(s.hasChanged)))
		r.Get("/get_state", s.withUser(s.roomCall(s.getState)))
		r.Post("/make_move", s.withUser(s.handleMove))
		r.Get("/ws", s.withUser(s.handleWS))
	})
	return r
}

// ─── plumbing ───────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// userHash reads the user cookie. Clients send it as user_hash or hash_id.
func userHash(r *http.Request) string {
	for _, name := range []string{"user_hash", "hash_id"} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

type userHandler func(w http.ResponseWriter, r *http.Request, u *user)

// withUser resolves the caller; unknown or missing users get 401.
func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := userHash(r)
		s.mu.Lock()
		u, ok := s.users[hash]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		h(w, r, u)
	}
}

// roomOp is a room endpoint shared by HTTP and the websocket. It runs with
// s.mu held.
type roomOp func(u *user, rm *room, body json.RawMessage) (int, any)

func (s *Server) call(u *user, op roomOp, body json.RawMessage) (int, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !u.online {
		return http.StatusUnauthorized, map[string]string{"error": "logged out"}
	}
	rm, ok := s.rooms[u.room]
	if !ok {
		return http.StatusNotFound, map[string]string{"error": "not in a room"}
	}
	return op(u, rm, body)
}

func (s *Server) roomCall(op roomOp) userHandler {
	return func(w http.ResponseWriter, _ *http.Request, u *user) {
		status, body := s.call(u, op, nil)
		writeJSON(w, status, body)
	}
}

func (s *Server) info(rm *room) transport.RoomInfo {
	return transport.RoomInfo{
		RoomID:            rm.id,
		Name:              rm.name,
		Type:              rm.typ,
		Users:             append([]string{}, rm.members...),
		MaxUsers:          rm.game.MaxUsers(),
		PasswordProtected: rm.password != "",
		Joinable:          len(rm.members) < rm.game.MaxUsers(),
	}
}

// enter puts u into rm, seating them if the game allows.
func (s *Server) enter(u *user, rm *room) error {
	if err := rm.game.Join(u.name); err != nil {
		return err
	}
	if !contains(rm.members, u.name) {
		rm.members = append(rm.members, u.name)
	}
	u.room = rm.id
	rm.version++
	return nil
}

// ─── lobby ──────────────────────────────────────────────────────────────────

func (s *Server) handleServerID(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, transport.ServerInfo{ServerID: s.id, Name: s.name})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" || len(name) > maxNameLen {
		writeError(w, http.StatusBadRequest, "bad username")
		return
	}
	u := &user{hash: uuid.NewString(), name: name, online: true, seen: map[string]uint64{}}
	s.mu.Lock()
	s.users[u.hash] = u
	s.mu.Unlock()
	s.logger.Info("user created", "name", name)
	writeJSON(w, http.StatusOK, map[string]string{"user_id": u.hash})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.users[chi.URLParam(r, "hash")]
	if ok {
		u.online = true
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "unknown user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": u.name})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	u.online = false
	if rm, ok := s.rooms[u.room]; ok {
		rm.version++
	}
	u.room = ""
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request, _ *user) {
	s.mu.Lock()
	out := make([]transport.RoomInfo, 0, len(s.rooms))
	for _, rm := range s.rooms {
		out = append(out, s.info(rm))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, GameTypes())
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, u *user) {
	var body struct {
		RoomID   string  `json:"room_id"`
		Password *string `json:"password"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[body.RoomID]
	if !ok {
		writeError(w, http.StatusNotFound, "no such room")
		return
	}
	if rm.password != "" && (body.Password == nil || *body.Password != rm.password) {
		writeError(w, http.StatusForbidden, "wrong password")
		return
	}
	if !contains(rm.members, u.name) && len(rm.members) >= rm.game.MaxUsers() {
		writeError(w, http.StatusConflict, "room is full")
		return
	}
	if err := s.enter(u, rm); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.logger.Info("joined room", "user", u.name, "room", rm.name)
	writeJSON(w, http.StatusOK, s.info(rm))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, u *user) {
	var req transport.CreateRoomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	factory, ok := gameTypes[req.Type]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown room type "+req.Type)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}
	g, err := factory(req.Settings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rm := &room{id: uuid.NewString(), name: req.Name, typ: req.Type, game: g}
	if req.Password != nil {
		rm.password = *req.Password
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(u, rm); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.rooms[rm.id] = rm
	s.logger.Info("room created", "user", u.name, "room", rm.name, "type", rm.typ)
	writeJSON(w, http.StatusOK, s.info(rm))
}

func (s *Server) handleSavedInfo(w http.ResponseWriter, r *http.Request, _ *user) {
	s.mu.Lock()
	sv, ok := s.saved[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no such save")
		return
	}
	writeJSON(w, http.StatusOK, transport.RoomInfo{
		RoomID:            chi.URLParam(r, "id"),
		Name:              sv.name,
		Type:              sv.typ,
		Users:             sv.members,
		MaxUsers:          sv.game.MaxUsers(),
		PasswordProtected: sv.password != "",
		Joinable:          true,
	})
}

func (s *Server) handleSave(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[u.room]
	if !ok {
		writeError(w, http.StatusNotFound, "not in a room")
		return
	}
	g, err := rm.game.Clone()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	id := uuid.NewString()
	s.saved[id] = &savedRoom{
		name:     rm.name,
		typ:      rm.typ,
		password: rm.password,
		game:     g,
		members:  append([]string{}, rm.members...),
	}
	s.logger.Info("room saved", "room", rm.name, "save", id)
	writeJSON(w, http.StatusOK, map[string]string{"room_id": id})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request, u *user) {
	var body struct {
		RoomID string `json:"room_id"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sv, ok := s.saved[body.RoomID]
	if !ok {
		writeError(w, http.StatusNotFound, "no such save")
		return
	}
	g, err := sv.game.Clone()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rm := &room{id: uuid.NewString(), name: sv.name, typ: sv.typ, password: sv.password, game: g}
	if err := s.enter(u, rm); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.rooms[rm.id] = rm
	writeJSON(w, http.StatusOK, transport.LoadedRoom{RoomID: rm.id, RoomType: rm.typ})
}

// ─── room channel ───────────────────────────────────────────────────────────

func (s *Server) frequent(rm *room) *transport.FrequentUpdate {
	f := &transport.FrequentUpdate{
		Players:    []transport.Member{},
		Spectators: []transport.Member{},
		MoveTimers: rm.game.Timers(s.now()),
	}
	players := rm.game.Players()
	online := map[string]bool{}
	for _, u := range s.users {
		if u.online && u.room == rm.id {
			online[u.name] = true
		}
	}
	for _, p := range players {
		f.Players = append(f.Players, transport.Member{Username: p, Online: online[p]})
	}
	for _, m := range rm.members {
		if !contains(players, m) {
			f.Spectators = append(f.Spectators, transport.Member{Username: m, Online: online[m]})
		}
	}
	return f
}

func (s *Server) hasChanged(u *user, rm *room, _ json.RawMessage) (int, any) {
	seen, ok := u.seen[rm.id]
	return http.StatusOK, transport.ChangeReport{
		Changed:  !ok || seen != rm.version,
		Version:  rm.version,
		Frequent: s.frequent(rm),
	}
}

func (s *Server) getState(u *user, rm *room, _ json.RawMessage) (int, any) {
	u.seen[rm.id] = rm.version
	return http.StatusOK, rm.game.State(u.name, rm.version, s.now())
}

func (s *Server) makeMove(u *user, rm *room, move json.RawMessage) (int, any) {
	if len(move) == 0 {
		return http.StatusBadRequest, map[string]string{"error": "missing move"}
	}
	err := rm.game.Move(u.name, move, s.now())
	switch {
	case errors.Is(err, errRejected):
		s.logger.Debug("move rejected", "user", u.name, "room", rm.name, "reason", err)
		return http.StatusOK, transport.MoveResult{Success: false, Error: err.Error()}
	case err != nil:
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	}
	rm.version++
	return http.StatusOK, transport.MoveResult{Success: true}
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, u *user) {
	var body struct {
		Move json.RawMessage `json:"move"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, reply := s.call(u, s.makeMove, body.Move)
	writeJSON(w, status, reply)
}

// DiscoveryReply is what the server answers LAN probes with.
func (s *Server) DiscoveryReply(hosts []string, port int) discovery.Reply {
	return discovery.Reply{ServerID: s.id, Name: s.name, Hosts: hosts, Port: port}
}
