// Package store keeps the client's small amount of local state as JSON files
// in the XDG data directory: cached logins, known servers and references to
// saved games.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	appDir      = "roomviewer"
	loginsFile  = "logins.json"
	serversFile = "servers.json"
	savesDir    = "saves"
	saveExt     = ".room"
	saveLayout  = "2006-01-02_15-04-05"
)

// DataDir returns the directory the client keeps its files in:
// $XDG_DATA_HOME/roomviewer, defaulting to ~/.local/share/roomviewer.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appDir), nil
}

// Server is a known game server.
type Server struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Save is a reference to a game saved on a server.
type Save struct {
	Path   string
	Name   string
	RoomID string
	Time   time.Time
}

// Store reads and writes the client's files. Methods are safe for
// concurrent use within one process.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open uses dir, or DataDir when dir is empty, creating it if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		d, err := DataDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// writeJSON replaces name atomically.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, name), append(data, '\n'))
}

// writeFile writes data to a temp file next to path and renames it into
// place, so readers never see a partial file.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Login returns the user hash cached for serverID.
func (s *Store) Login(serverID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logins := map[string]string{}
	if err := s.readJSON(loginsFile, &logins); err != nil {
		return "", false, err
	}
	hash, ok := logins[serverID]
	return hash, ok && hash != "", nil
}

// SaveLogin caches hash for serverID.
func (s *Store) SaveLogin(serverID, hash string) error {
	return s.updateLogins(func(l map[string]string) { l[serverID] = hash })
}

// ForgetLogin drops the cached login for serverID.
func (s *Store) ForgetLogin(serverID string) error {
	return s.updateLogins(func(l map[string]string) { delete(l, serverID) })
}

func (s *Store) updateLogins(fn func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logins := map[string]string{}
	if err := s.readJSON(loginsFile, &logins); err != nil {
		return err
	}
	fn(logins)
	return s.writeJSON(loginsFile, logins)
}

// Servers returns the known servers by server id.
func (s *Store) Servers() (map[string]Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	servers := map[string]Server{}
	if err := s.readJSON(serversFile, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// PutServer records or replaces a known server.
func (s *Store) PutServer(id string, srv Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	servers := map[string]Server{}
	if err := s.readJSON(serversFile, &servers); err != nil {
		return err
	}
	servers[id] = srv
	return s.writeJSON(serversFile, servers)
}

// SaveRoom writes a save reference named after at and returns its path.
func (s *Store) SaveRoom(roomID string, at time.Time) (string, error) {
	if roomID == "" {
		return "", errors.New("save room: empty room id")
	}
	dir := filepath.Join(s.dir, savesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, at.Format(saveLayout)+saveExt)
	if err := writeFile(path, []byte(roomID)); err != nil {
		return "", err
	}
	return path, nil
}

// Saves lists save references, newest first.
func (s *Store) Saves() ([]Save, error) {
	dir := filepath.Join(s.dir, savesDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var saves []Save
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), saveExt) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(e.Name(), saveExt)
		at, _ := time.ParseInLocation(saveLayout, name, time.Local)
		saves = append(saves, Save{
			Path:   path,
			Name:   name,
			RoomID: strings.TrimSpace(string(data)),
			Time:   at,
		})
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].Name > saves[j].Name })
	return saves, nil
}
