// Package localstore persists the little client-side state the portal keeps:
// the bearer token and the drawer preference.
package localstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the state file inside the config directory.
const FileName = "state.json"

type stateFile struct {
	Token      string `json:"token,omitempty"`
	DrawerOpen bool   `json:"drawerOpen"`
}

// Store is a JSON file backed key store. The zero value is not usable; use New.
type Store struct {
	mu  sync.Mutex
	dir string
}

// DefaultDir returns $XDG_CONFIG_HOME/ycf or ~/.config/ycf.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "ycf")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ycf")
}

// New returns a store rooted at dir (DefaultDir when empty).
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// Path is the full path of the state file.
func (s *Store) Path() string { return filepath.Join(s.dir, FileName) }

func (s *Store) read() (stateFile, error) {
	var st stateFile
	b, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if len(b) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return stateFile{}, err
	}
	return st, nil
}

func (s *Store) write(st stateFile) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path())
}

func (s *Store) update(fn func(*stateFile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.read()
	if err != nil {
		return err
	}
	fn(&st)
	return s.write(st)
}

// LoadToken returns the persisted token or "" when none is stored.
func (s *Store) LoadToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.read()
	return st.Token, err
}

// SaveToken persists token.
func (s *Store) SaveToken(token string) error {
	return s.update(func(st *stateFile) { st.Token = token })
}

// RemoveToken drops the persisted token and keeps other preferences.
func (s *Store) RemoveToken() error {
	return s.update(func(st *stateFile) { st.Token = "" })
}

// DrawerOpen reports the persisted drawer preference (false by default).
func (s *Store) DrawerOpen() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.read()
	return st.DrawerOpen, err
}

// SetDrawerOpen persists the drawer preference.
func (s *Store) SetDrawerOpen(open bool) error {
	return s.update(func(st *stateFile) { st.DrawerOpen = open })
}
