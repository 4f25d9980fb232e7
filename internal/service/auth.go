// Package service contains the client-side application services: session
// handling, pets and the expense ledger. Every operation is dispatched
// through the shared interceptor chain.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ycf/billing-portal/internal/api"
	"github.com/ycf/billing-portal/internal/dispatch"
	"github.com/ycf/billing-portal/internal/errs"
	"github.com/ycf/billing-portal/internal/limiter"
	"github.com/ycf/billing-portal/internal/session"
)

// Authenticator is the part of the API used for sign-in.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, username, password string) error
}

type AuthService struct {
	api  Authenticator
	sess *session.Store
	disp *dispatch.Dispatcher
	lim  limiter.Limiter
	log  *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(a Authenticator, sess *session.Store, disp *dispatch.Dispatcher, lim limiter.Limiter, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{api: a, sess: sess, disp: disp, lim: lim, log: log}
}

// State returns the current session snapshot.
func (s *AuthService) State() session.State { return s.sess.Snapshot() }

// Restore adopts a persisted token at startup.
func (s *AuthService) Restore(ctx context.Context) error {
	return s.disp.Dispatch(ctx, "session/restore", func(context.Context) error {
		return s.sess.Restore()
	})
}

// Login authenticates against the API. Failures are recorded on the session
// and returned; the caller may simply retry.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	return s.disp.Dispatch(ctx, "session/login", func(ctx context.Context) error {
		if strings.TrimSpace(username) == "" || password == "" {
			return errors.New("empty username/password")
		}

		allowed, retry, err := s.lim.Allow(ctx, username)
		if err != nil {
			return err
		}
		s.sess.LoginStart()
		if !allowed {
			s.sess.LoginFailure(fmt.Sprintf("too many attempts, retry in %s", retry.Round(time.Second)))
			return errs.ErrRateLimited
		}

		tok, err := s.api.Login(ctx, username, password)
		if err != nil {
			s.sess.LoginFailure(failureMessage(err))
			if blocked, _, ferr := s.lim.Failure(ctx, username); ferr == nil && blocked {
				s.log.Warn("login locked", zap.String("username", username))
			}
			return fmt.Errorf("login: %w", err)
		}

		_ = s.lim.Success(ctx, username)
		return s.sess.LoginSuccess(tok)
	})
}

// Signup registers a new user; it does not sign in.
func (s *AuthService) Signup(ctx context.Context, username, password string) error {
	return s.disp.Dispatch(ctx, "session/signup", func(ctx context.Context) error {
		if strings.TrimSpace(username) == "" || password == "" {
			return errors.New("empty username/password")
		}
		if err := s.api.Signup(ctx, username, password); err != nil {
			return fmt.Errorf("signup: %w", err)
		}
		return nil
	})
}

// Logout ends the session. An undecodable persisted token would make the
// expiry guard reject every action, so logout clears it anyway.
func (s *AuthService) Logout(ctx context.Context) error {
	err := s.disp.Dispatch(ctx, "session/logout", func(context.Context) error {
		return s.sess.Logout()
	})
	if errors.Is(err, errs.ErrMalformedToken) {
		s.log.Warn("dropping malformed token", zap.Error(err))
		return s.sess.Logout()
	}
	return err
}

// failureMessage is the user-facing text for a failed request.
func failureMessage(err error) string {
	var he *api.HTTPError
	if errors.As(err, &he) {
		if m := he.Message(); m != "" {
			return m
		}
	}
	return err.Error()
}

// requireSession fails fast when no session is active.
func requireSession(sess *session.Store) error {
	if !sess.Snapshot().Authenticated {
		return errs.ErrNotAuthenticated
	}
	return nil
}
