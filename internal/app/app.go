// Package app is the client flow: pick a server, log in, pick or create a
// room, then hand the screen to that room type's viewer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/config"
	"roomviewer/internal/discovery"
	"roomviewer/internal/input"
	"roomviewer/internal/menu"
	"roomviewer/internal/options"
	"roomviewer/internal/reconcile"
	"roomviewer/internal/render"
	"roomviewer/internal/rooms"
	"roomviewer/internal/rooms/battleship"
	"roomviewer/internal/rooms/chess"
	"roomviewer/internal/store"
	"roomviewer/internal/transport"
)

// pingTimeout bounds one server status check.
const pingTimeout = 5 * time.Second

// errSessionEnded is returned when the server dropped the user while a room
// was open.
var errSessionEnded = errors.New("session ended")

// Keys is what the client reads input from: raw keys for menus and prompts,
// mapped events for the room viewers.
type Keys interface {
	input.KeySource
	input.Source
}

// Viewer runs one room type until the user leaves it.
type Viewer func(ctx context.Context, o rooms.Options) error

// Viewers are the room types the client can show.
var Viewers = map[string]Viewer{
	chess.TypeName:      chess.Run,
	battleship.TypeName: battleship.Run,
}

var creationArgs = map[string][]options.Spec{
	chess.TypeName:      chess.CreationArgs,
	battleship.TypeName: battleship.CreationArgs,
}

// App is one client session on one screen.
type App struct {
	cfg    config.Config
	scr    tcell.Screen
	keys   Keys
	store  *store.Store
	logger *slog.Logger
	http   *http.Client

	// discover is swapped out in tests.
	discover func(ctx context.Context) (map[string]discovery.Server, error)
}

// New creates the client.
func New(cfg config.Config, scr tcell.Screen, keys Keys, st *store.Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:    cfg,
		scr:    scr,
		keys:   keys,
		store:  st,
		logger: logger,
		http:   &http.Client{Timeout: 2 * cfg.CallTimeout},
	}
	a.discover = func(ctx context.Context) (map[string]discovery.Server, error) {
		return discovery.Discover(ctx, discovery.Probe{
			Port:    cfg.DiscoveryPort,
			Timeout: cfg.DiscoveryTimeout,
			Logger:  logger,
		})
	}
	return a
}

// Run drives the client until the user exits. Backing out of the first
// menu is a normal exit.
func (a *App) Run(ctx context.Context) error {
	client, err := a.chooseServer(ctx)
	if errors.Is(err, menu.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.login(ctx, client); err != nil {
		if errors.Is(err, menu.ErrCancelled) {
			return nil
		}
		return err
	}
	defer func() {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.CallTimeout)
		defer cancel()
		if err := client.Logout(lctx); err != nil {
			a.logger.Warn("logout failed", "error", err)
		}
	}()
	return a.mainMenu(ctx, client)
}

func (a *App) status(text string) {
	a.scr.Clear()
	w, h := a.scr.Size()
	render.PutText(a.scr, render.Centered(w, text), h/2, text, tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true))
	a.scr.Show()
}

// fail shows err to the user and logs it.
func (a *App) fail(ctx context.Context, what string, err error) {
	a.logger.Warn(what, "error", err)
	msg := err.Error()
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		msg = fmt.Sprintf("%s (status %d)", apiErr.Message(), apiErr.StatusCode)
	}
	menu.Notice(ctx, a.scr, a.keys, what, msg)
}

func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.CallTimeout)
}

// ─── server selection ───────────────────────────────────────────────────────

func (a *App) newClient(host string, port int) *transport.Client {
	return transport.NewClient(transport.BaseURL(host, port), a.http, a.logger.With("server", host))
}

func (a *App) ping(ctx context.Context, host string, port int) (time.Duration, error) {
	_, rtt, err := a.newClient(host, port).Ping(ctx)
	return rtt, err
}

func (a *App) chooseServer(ctx context.Context) (*transport.Client, error) {
	if a.cfg.Host != "" {
		return a.newClient(a.cfg.Host, a.cfg.Port), nil
	}
	a.status("Performing LAN discovery...")
	found, err := a.discover(ctx)
	if err != nil {
		a.logger.Warn("discovery failed", "error", err)
	}
	known, err := a.store.Servers()
	if err != nil {
		a.logger.Warn("reading known servers", "error", err)
	}
	servers := discovery.Merge(found, known)
	a.status("Checking server status...")
	discovery.PingAll(ctx, servers, a.ping, pingTimeout)

	width := 0
	for _, s := range servers {
		width = max(width, len(s.Name))
	}
	items := make([]string, 0, len(servers)+2)
	for _, s := range servers {
		items = append(items, s.Label(width))
	}
	items = append(items, "Manually add a server", "Exit")

	for {
		idx, err := menu.Pick(ctx, a.scr, a.keys, "Please choose a server", items)
		if err != nil {
			return nil, err
		}
		switch {
		case idx < len(servers):
			return a.newClient(servers[idx].Host, servers[idx].Port), nil
		case idx == len(servers):
			client, err := a.manualServer(ctx)
			if errors.Is(err, menu.ErrCancelled) {
				continue
			}
			return client, err
		default:
			return nil, menu.ErrCancelled
		}
	}
}

func (a *App) manualServer(ctx context.Context) (*transport.Client, error) {
	host, err := menu.Prompt(ctx, a.scr, a.keys, "Add a server", "Host", false)
	if err != nil {
		return nil, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, menu.ErrCancelled
	}
	for {
		raw, err := menu.Prompt(ctx, a.scr, a.keys, "Add a server", fmt.Sprintf("Port [%d]", config.DefaultServerPort), false)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			return a.newClient(host, config.DefaultServerPort), nil
		}
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && port > 0 && port < 1<<16 {
			return a.newClient(host, port), nil
		}
		menu.Notice(ctx, a.scr, a.keys, "Add a server", fmt.Sprintf("%q is not a port number", raw))
	}
}

// ─── login ──────────────────────────────────────────────────────────────────

// login resumes the cached user for this server or creates a new one. The
// server is remembered once it answers.
func (a *App) login(ctx context.Context, client *transport.Client) error {
	cctx, cancel := a.callCtx(ctx)
	info, err := client.ServerID(cctx)
	cancel()
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	if host, port, ok := hostPort(client.BaseURL()); ok {
		name := info.Name
		if name == "" {
			name = host
		}
		if err := a.store.PutServer(info.ServerID, store.Server{Name: name, Host: host, Port: port}); err != nil {
			a.logger.Warn("saving server", "error", err)
		}
	}

	hash, ok, err := a.store.Login(info.ServerID)
	if err != nil {
		a.logger.Warn("reading logins", "error", err)
	}
	if ok {
		cctx, cancel := a.callCtx(ctx)
		name, err := client.Login(cctx, hash)
		cancel()
		switch {
		case err == nil:
			a.logger.Info("logged in", "user", name, "server", info.ServerID)
			return nil
		case errors.Is(err, transport.ErrNotFound):
			a.logger.Info("cached login rejected", "server", info.ServerID)
			_ = a.store.ForgetLogin(info.ServerID)
		default:
			return fmt.Errorf("login: %w", err)
		}
	}

	for {
		name, err := menu.Prompt(ctx, a.scr, a.keys, "Welcome", "Please enter a username", false)
		if err != nil {
			return err
		}
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		cctx, cancel := a.callCtx(ctx)
		hash, err := client.CreateUser(cctx, name)
		cancel()
		if err != nil {
			a.fail(ctx, "Could not create user", err)
			continue
		}
		if err := a.store.SaveLogin(info.ServerID, hash); err != nil {
			a.logger.Warn("saving login", "error", err)
		}
		a.logger.Info("user created", "user", name, "server", info.ServerID)
		return nil
	}
}

func hostPort(baseURL string) (string, int, bool) {
	rest := strings.TrimPrefix(strings.TrimPrefix(baseURL, "http://"), "https://")
	i := strings.LastIndexByte(rest, ':')
	if i < 0 {
		return "", 0, false
	}
	port, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return strings.Trim(rest[:i], "[]"), port, true
}

// ─── menus ──────────────────────────────────────────────────────────────────

func (a *App) mainMenu(ctx context.Context, client *transport.Client) error {
	items := []string{"Load Existing Rooms", "Load Saved Game", "Exit"}
	for {
		idx, err := menu.Pick(ctx, a.scr, a.keys, fmt.Sprintf("Logged in as %s. Please pick an option", client.Username()), items)
		if errors.Is(err, menu.ErrCancelled) || (err == nil && idx == 2) {
			return nil
		}
		if err != nil {
			return err
		}
		switch idx {
		case 0:
			err = a.roomsMenu(ctx, client)
		case 1:
			err = a.savesMenu(ctx, client)
		}
		switch {
		case errors.Is(err, errSessionEnded), errors.Is(err, reconcile.ErrSessionInvalid):
			a.fail(ctx, "Session ended", err)
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil && !errors.Is(err, menu.ErrCancelled):
			a.fail(ctx, "Something went wrong", err)
		}
	}
}

// RoomLine formats one entry of the room list.
func RoomLine(n int, r transport.RoomInfo, nameWidth int) string {
	return fmt.Sprintf("%d# '%-*s'(%s) - %d/%d users | Password: %s | Joinable: %s",
		n, nameWidth, r.Name, r.Type, len(r.Users), r.MaxUsers, yesNo(r.PasswordProtected), yesNo(r.Joinable))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (a *App) roomsMenu(ctx context.Context, client *transport.Client) error {
	for {
		cctx, cancel := a.callCtx(ctx)
		list, err := client.Rooms(cctx)
		cancel()
		if err != nil {
			return fmt.Errorf("list rooms: %w", err)
		}
		width := 0
		for _, r := range list {
			width = max(width, len(r.Name))
		}
		items := []string{"Create new room"}
		for i, r := range list {
			items = append(items, RoomLine(i+1, r, width))
		}
		items = append(items, "Refresh", "Back")

		idx, err := menu.Pick(ctx, a.scr, a.keys, "Please choose a room", items)
		if err != nil {
			return err
		}
		switch {
		case idx == 0:
			err = a.createRoom(ctx, client)
		case idx <= len(list):
			err = a.joinRoom(ctx, client, list[idx-1])
		case idx == len(list)+1:
			continue
		default:
			return nil
		}
		if err != nil && !errors.Is(err, menu.ErrCancelled) {
			if errors.Is(err, errSessionEnded) {
				return err
			}
			a.fail(ctx, "Room error", err)
		}
	}
}

func (a *App) createRoom(ctx context.Context, client *transport.Client) error {
	cctx, cancel := a.callCtx(ctx)
	games, err := client.Games(cctx)
	cancel()
	if err != nil {
		return fmt.Errorf("list room types: %w", err)
	}
	if len(games) == 0 {
		return errors.New("the server offers no room types")
	}
	name, err := menu.Prompt(ctx, a.scr, a.keys, "Create a room", "Please enter a room name", false)
	if err != nil {
		return err
	}
	req := transport.CreateRoomRequest{Name: strings.TrimSpace(name)}
	if idx, err := menu.Pick(ctx, a.scr, a.keys, "Should the room be password protected?", []string{"No", "Yes"}); err != nil {
		return err
	} else if idx == 1 {
		pw, err := menu.Prompt(ctx, a.scr, a.keys, "Create a room", "Please enter a password", true)
		if err != nil {
			return err
		}
		req.Password = &pw
	}
	idx, err := menu.Pick(ctx, a.scr, a.keys, "Please choose a room type", games)
	if err != nil {
		return err
	}
	req.Type = games[idx]
	if specs, ok := creationArgs[req.Type]; ok {
		values, err := options.Run(ctx, a.scr, a.keys, req.Type+" settings", specs, a.cfg.EditorTickRate)
		if errors.Is(err, options.ErrAborted) {
			return menu.ErrCancelled
		}
		if err != nil {
			return err
		}
		req.Settings = values
	}

	cctx, cancel = a.callCtx(ctx)
	info, err := client.CreateRoom(cctx, req)
	cancel()
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	a.logger.Info("room created", "room", info.Name, "type", req.Type)
	return a.enter(ctx, client, req.Name, req.Type)
}

func (a *App) joinRoom(ctx context.Context, client *transport.Client, r transport.RoomInfo) error {
	var pw string
	if r.PasswordProtected {
		var err error
		if pw, err = menu.Prompt(ctx, a.scr, a.keys, "Join "+r.Name, "Please enter the password", true); err != nil {
			return err
		}
	}
	cctx, cancel := a.callCtx(ctx)
	err := client.JoinRoom(cctx, r.RoomID, pw)
	cancel()
	if err != nil {
		return fmt.Errorf("join %s: %w", r.Name, err)
	}
	return a.enter(ctx, client, r.Name, r.Type)
}

func (a *App) savesMenu(ctx context.Context, client *transport.Client) error {
	saves, err := a.store.Saves()
	if err != nil {
		return fmt.Errorf("list saves: %w", err)
	}
	var (
		infos []transport.RoomInfo
		items []string
	)
	for _, sv := range saves {
		cctx, cancel := a.callCtx(ctx)
		info, err := client.SavedInfo(cctx, sv.RoomID)
		cancel()
		if err != nil {
			// Saves from other servers are expected here.
			a.logger.Debug("skipping save", "file", sv.Path, "error", err)
			continue
		}
		infos = append(infos, info)
		items = append(items, fmt.Sprintf("%s  %s(%s) - %d/%d users | Password: %s | Joinable: %s",
			sv.Time.Format("2006-01-02 15:04"), info.Name, info.Type, len(info.Users), info.MaxUsers,
			yesNo(info.PasswordProtected), yesNo(info.Joinable)))
	}
	items = append(items, "Back")
	idx, err := menu.Pick(ctx, a.scr, a.keys, "Please choose a saved game", items)
	if err != nil || idx == len(infos) {
		return err
	}
	cctx, cancel := a.callCtx(ctx)
	loaded, err := client.LoadGame(cctx, infos[idx].RoomID)
	cancel()
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	return a.enter(ctx, client, infos[idx].Name, loaded.RoomType)
}

// ─── rooms ──────────────────────────────────────────────────────────────────

// saver saves the current room on the server and remembers it locally.
type saver struct {
	client *transport.Client
	store  *store.Store
}

func (s saver) Save(ctx context.Context) (string, error) {
	id, err := s.client.SaveGame(ctx)
	if err != nil {
		return "", err
	}
	return s.store.SaveRoom(id, time.Now())
}

func (a *App) enter(ctx context.Context, client *transport.Client, name, typ string) error {
	view, ok := Viewers[typ]
	if !ok {
		menu.Notice(ctx, a.scr, a.keys, name, fmt.Sprintf("This client cannot show %s rooms.", typ))
		return nil
	}
	var ch transport.RoomChannel = client.Room()
	if a.cfg.Websocket {
		ws, err := client.DialRoom(ctx)
		if err != nil {
			return fmt.Errorf("open room channel: %w", err)
		}
		defer ws.Close()
		ch = ws
	}
	err := view(ctx, rooms.Options{
		Screen:   a.scr,
		Source:   a.keys,
		Channel:  ch,
		RoomName: name,
		Username: client.Username(),
		Saver:    saver{client: client, store: a.store},
		Config:   a.cfg.Session(),
		Logger:   a.logger,
	})
	if errors.Is(err, reconcile.ErrSessionInvalid) {
		return fmt.Errorf("%w: %w", errSessionEnded, err)
	}
	return err
}
