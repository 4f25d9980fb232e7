package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ycf/billing-portal/internal/dispatch"
	"github.com/ycf/billing-portal/internal/errs"
)

type fakePersister struct {
	token   string
	saveErr error
	loadErr error
	removed int
}

func (f *fakePersister) LoadToken() (string, error) { return f.token, f.loadErr }
func (f *fakePersister) SaveToken(t string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.token = t
	return nil
}
func (f *fakePersister) RemoveToken() error {
	f.removed++
	f.token = ""
	return nil
}

type fakeAuth struct{ bearer string }

func (f *fakeAuth) SetAuthToken(t string) { f.bearer = t }

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(d)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func newStore(t *testing.T, p *fakePersister) (*Store, *fakeAuth) {
	a := &fakeAuth{}
	return New(p, a, zaptest.NewLogger(t)), a
}

func TestStore_InitialAnonymous(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t, &fakePersister{})
	st := s.Snapshot()
	require.Equal(t, Anonymous, st.Phase)
	require.False(t, st.Authenticated)
	require.Empty(t, st.Token)
}

func TestStore_LoginSuccessFlow(t *testing.T) {
	t.Parallel()
	p := &fakePersister{}
	s, a := newStore(t, p)

	s.LoginStart()
	st := s.Snapshot()
	require.Equal(t, Authenticating, st.Phase)
	require.True(t, st.Loading)

	require.NoError(t, s.LoginSuccess("tok"))
	st = s.Snapshot()
	require.Equal(t, State{Phase: Authenticated, Authenticated: true, Token: "tok"}, st)
	require.Equal(t, "tok", p.token, "token persisted")
	require.Equal(t, "tok", a.bearer, "bearer configured")
}

func TestStore_LoginFailureFlow(t *testing.T) {
	t.Parallel()
	p := &fakePersister{}
	s, a := newStore(t, p)

	s.LoginStart()
	s.LoginFailure("bad credentials")
	st := s.Snapshot()
	require.Equal(t, Anonymous, st.Phase)
	require.False(t, st.Loading)
	require.Equal(t, "bad credentials", st.Error)
	require.Empty(t, st.Token)
	require.Empty(t, p.token)
	require.Empty(t, a.bearer)

	// retry clears the error
	s.LoginStart()
	require.Empty(t, s.Snapshot().Error)
}

func TestStore_LoginSuccessRequiresAuthenticating(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t, &fakePersister{})
	require.ErrorIs(t, s.LoginSuccess("tok"), ErrInvalidTransition)
	require.Equal(t, Anonymous, s.Snapshot().Phase)

	s.LoginStart()
	require.ErrorIs(t, s.LoginSuccess(""), ErrInvalidTransition)
	require.Equal(t, Anonymous, s.Snapshot().Phase)
}

func TestStore_LoginSuccessPersistFailure(t *testing.T) {
	t.Parallel()
	s, a := newStore(t, &fakePersister{saveErr: errors.New("disk full")})
	s.LoginStart()
	require.Error(t, s.LoginSuccess("tok"))
	st := s.Snapshot()
	require.Equal(t, Anonymous, st.Phase)
	require.Equal(t, "disk full", st.Error)
	require.Empty(t, a.bearer)
}

func TestStore_Logout(t *testing.T) {
	t.Parallel()
	p := &fakePersister{}
	s, a := newStore(t, p)
	s.LoginStart()
	require.NoError(t, s.LoginSuccess("tok"))

	require.NoError(t, s.Logout())
	require.Equal(t, State{Phase: Anonymous}, s.Snapshot())
	require.Empty(t, p.token)
	require.Empty(t, a.bearer)

	// idempotent from Anonymous
	require.NoError(t, s.Logout())
}

func TestStore_FailedReloginClearsBearer(t *testing.T) {
	t.Parallel()
	tok := tokenExpiringIn(t, time.Hour)
	p := &fakePersister{token: tok}
	s, a := newStore(t, p)
	require.NoError(t, s.Restore())
	require.Equal(t, tok, a.bearer)

	s.LoginStart()
	s.LoginFailure("bad credentials")
	require.Equal(t, Anonymous, s.Snapshot().Phase)
	require.Empty(t, a.bearer, "anonymous session must not keep sending the old bearer")
	require.Equal(t, tok, p.token, "persisted token is untouched")
}

func TestStore_RestoreIsOptimistic(t *testing.T) {
	t.Parallel()
	expired := tokenExpiringIn(t, -time.Hour)
	p := &fakePersister{token: expired}
	s, a := newStore(t, p)

	require.NoError(t, s.Restore())
	st := s.Snapshot()
	require.Equal(t, Authenticated, st.Phase, "no validation at startup")
	require.Equal(t, expired, st.Token)
	require.Equal(t, expired, a.bearer)
}

func TestStore_RestoreWithoutToken(t *testing.T) {
	t.Parallel()
	s, a := newStore(t, &fakePersister{})
	require.NoError(t, s.Restore())
	require.Equal(t, Anonymous, s.Snapshot().Phase)
	require.Empty(t, a.bearer)

	s2, _ := newStore(t, &fakePersister{loadErr: errors.New("io")})
	require.Error(t, s2.Restore())
}

func TestCheckExpiry(t *testing.T) {
	t.Parallel()

	p := &fakePersister{token: tokenExpiringIn(t, time.Hour)}
	s, _ := newStore(t, p)
	require.NoError(t, s.Restore())
	out, err := s.CheckExpiry()
	require.NoError(t, err)
	require.False(t, out)
	require.Equal(t, Authenticated, s.Snapshot().Phase)

	p.token = "garbage"
	out, err = s.CheckExpiry()
	require.ErrorIs(t, err, errs.ErrMalformedToken)
	require.False(t, out)
	require.Equal(t, Authenticated, s.Snapshot().Phase, "decode errors do not log out")
}

func TestExpiryGuard_ForcesLogoutBeforeAction(t *testing.T) {
	t.Parallel()

	p := &fakePersister{token: tokenExpiringIn(t, -10*time.Second)}
	s, a := newStore(t, p)
	require.NoError(t, s.Restore())
	require.Equal(t, Authenticated, s.Snapshot().Phase)

	d := dispatch.New(ExpiryGuard(s))
	var seen State
	var persisted string
	err := d.Dispatch(context.Background(), "pets/fetch", func(context.Context) error {
		seen = s.Snapshot()
		persisted = p.token
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, Anonymous, seen.Phase)
	require.False(t, seen.Authenticated)
	require.Empty(t, persisted)
	require.Equal(t, 1, p.removed)
	require.Empty(t, a.bearer)
}

func TestExpiryGuard_MalformedTokenAbortsAction(t *testing.T) {
	t.Parallel()

	p := &fakePersister{token: "x.y"}
	s, _ := newStore(t, p)
	d := dispatch.New(ExpiryGuard(s))

	ran := false
	err := d.Dispatch(context.Background(), "pets/fetch", func(context.Context) error {
		ran = true
		return nil
	})
	require.ErrorIs(t, err, errs.ErrMalformedToken)
	require.False(t, ran)
}

func TestExpiryGuard_NoTokenPassesThrough(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t, &fakePersister{})
	d := dispatch.New(ExpiryGuard(s))
	ran := false
	require.NoError(t, d.Dispatch(context.Background(), "session/login", func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestPhaseString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "anonymous", Anonymous.String())
	require.Equal(t, "authenticating", Authenticating.String())
	require.Equal(t, "authenticated", Authenticated.String())
	require.Equal(t, "phase(9)", Phase(9).String())
}
