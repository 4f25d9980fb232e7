// Package session holds the client authentication state and its transitions.
package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ycf/billing-portal/internal/crypto"
)

// Phase is the position of the session in its lifecycle.
type Phase int

const (
	Anonymous Phase = iota
	Authenticating
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrInvalidTransition is returned when an action does not apply to the current phase.
var ErrInvalidTransition = errors.New("invalid session transition")

// State is a snapshot of the session.
type State struct {
	Phase         Phase
	Authenticated bool
	Token         string
	Loading       bool
	Error         string
}

// Persister keeps the token across process restarts.
type Persister interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	RemoveToken() error
}

// Authorizer attaches the bearer token to outgoing requests; "" clears it.
type Authorizer interface {
	SetAuthToken(token string)
}

// Store is the session state container. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	st      State
	persist Persister
	auth    Authorizer
	log     *zap.Logger
}

// New returns an anonymous session.
func New(p Persister, a Authorizer, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{persist: p, auth: a, log: log}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Restore adopts a persisted token without asking the server. A stale token
// is caught by ExpiryGuard on the next dispatched action or rejected by the
// API on the first authenticated request.
func (s *Store) Restore() error {
	tok, err := s.persist.LoadToken()
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if tok == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = State{Phase: Authenticated, Authenticated: true, Token: tok}
	s.auth.SetAuthToken(tok)
	s.log.Debug("session restored")
	return nil
}

// LoginStart marks a login attempt in flight.
func (s *Store) LoginStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Phase = Authenticating
	s.st.Loading = true
	s.st.Error = ""
}

// LoginSuccess stores the token, persists it and arms the API client.
func (s *Store) LoginSuccess(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Phase != Authenticating {
		return fmt.Errorf("login success in %s: %w", s.st.Phase, ErrInvalidTransition)
	}
	if token == "" {
		s.fail("empty token")
		return fmt.Errorf("login success: %w", ErrInvalidTransition)
	}
	if err := s.persist.SaveToken(token); err != nil {
		s.fail(err.Error())
		return fmt.Errorf("save token: %w", err)
	}
	s.auth.SetAuthToken(token)
	s.st = State{Phase: Authenticated, Authenticated: true, Token: token}
	s.log.Info("logged in")
	return nil
}

// LoginFailure records msg and returns to Anonymous.
func (s *Store) LoginFailure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail(msg)
}

// fail drops the in-memory session and the bearer header. The persisted
// token is left alone; only Logout removes it.
func (s *Store) fail(msg string) {
	s.st = State{Phase: Anonymous, Error: msg}
	s.auth.SetAuthToken("")
}

// Logout clears the session from any phase, drops the persisted token and
// the bearer header.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = State{Phase: Anonymous}
	s.auth.SetAuthToken("")
	if err := s.persist.RemoveToken(); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	s.log.Info("logged out")
	return nil
}

// CheckExpiry logs out when the persisted token has expired and reports
// whether it did. A token that cannot be decoded is returned as an error and
// leaves the session untouched.
func (s *Store) CheckExpiry() (bool, error) {
	tok, err := s.persist.LoadToken()
	if err != nil {
		return false, fmt.Errorf("load token: %w", err)
	}
	if tok == "" {
		return false, nil
	}
	expired, err := crypto.IsExpired(tok)
	if err != nil {
		return false, err
	}
	if !expired {
		return false, nil
	}
	s.log.Info("token expired, forcing logout")
	if err := s.Logout(); err != nil {
		return true, err
	}
	return true, nil
}
