package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ycf/billing-portal/internal/dispatch"
	"github.com/ycf/billing-portal/internal/limiter"
	"github.com/ycf/billing-portal/internal/localstore"
	"github.com/ycf/billing-portal/internal/model"
	"github.com/ycf/billing-portal/internal/session"
)

func jwtExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(d)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

type fakeBearer struct{ token string }

func (f *fakeBearer) SetAuthToken(t string) { f.token = t }

type env struct {
	local  *localstore.Store
	bearer *fakeBearer
	sess   *session.Store
	disp   *dispatch.Dispatcher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := zaptest.NewLogger(t)
	local := localstore.New(t.TempDir())
	b := &fakeBearer{}
	sess := session.New(local, b, log)
	disp := dispatch.New(dispatch.Recover(log), dispatch.Logging(log), session.ExpiryGuard(sess))
	return &env{local: local, bearer: b, sess: sess, disp: disp}
}

// signIn puts a valid persisted token in place and restores it.
func (e *env) signIn(t *testing.T) string {
	t.Helper()
	tok := jwtExpiringIn(t, time.Hour)
	require.NoError(t, e.local.SaveToken(tok))
	require.NoError(t, e.sess.Restore())
	return tok
}

type fakeAuthAPI struct {
	token    string
	loginErr error
	signErr  error
	calls    int
}

func (f *fakeAuthAPI) Login(context.Context, string, string) (string, error) {
	f.calls++
	return f.token, f.loginErr
}
func (f *fakeAuthAPI) Signup(context.Context, string, string) error { return f.signErr }

type fakePetsAPI struct {
	pets      []model.PetRecord
	listErr   error
	listCalls int
	created   []model.PetRecord
	updated   []model.PetRecord
	deleted   []string
	writeErr  error
	invoice   []byte
}

func (f *fakePetsAPI) ListPets(context.Context) ([]model.PetRecord, error) {
	f.listCalls++
	return append([]model.PetRecord(nil), f.pets...), f.listErr
}
func (f *fakePetsAPI) GetPet(_ context.Context, id string) (model.PetRecord, error) {
	for _, p := range f.pets {
		if p.ID == id {
			return p, nil
		}
	}
	return model.PetRecord{}, errors.New("not found")
}
func (f *fakePetsAPI) CreatePet(_ context.Context, p model.PetRecord) (model.PetRecord, error) {
	if f.writeErr != nil {
		return model.PetRecord{}, f.writeErr
	}
	p.ID = "new"
	f.created = append(f.created, p)
	f.pets = append(f.pets, p)
	return p, nil
}
func (f *fakePetsAPI) UpdatePet(_ context.Context, p model.PetRecord) (model.PetRecord, error) {
	if f.writeErr != nil {
		return model.PetRecord{}, f.writeErr
	}
	f.updated = append(f.updated, p)
	return p, nil
}
func (f *fakePetsAPI) DeletePet(_ context.Context, id string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakePetsAPI) DownloadInvoice(context.Context, string) ([]byte, error) {
	return f.invoice, nil
}

type fakeExpensesAPI struct {
	page      model.ExpensePage
	listErr   error
	gotPage   int
	gotLimit  int
	listCalls int
	created   []model.ExpenseRecord
}

func (f *fakeExpensesAPI) ListExpenses(_ context.Context, page, limit int) (model.ExpensePage, error) {
	f.listCalls++
	f.gotPage, f.gotLimit = page, limit
	return f.page, f.listErr
}
func (f *fakeExpensesAPI) CreateExpense(_ context.Context, e model.ExpenseRecord) (model.ExpenseRecord, error) {
	e.ID = "e-new"
	f.created = append(f.created, e)
	f.page.Data = append(f.page.Data, e)
	f.page.Total++
	return e, nil
}

func newAuth(t *testing.T, e *env, a Authenticator, maxFails int) *AuthService {
	return NewAuthService(a, e.sess, e.disp, limiter.NewMemory(time.Hour, maxFails), zaptest.NewLogger(t))
}
