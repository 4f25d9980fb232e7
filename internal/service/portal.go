package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ycf/billing-portal/internal/api"
	"github.com/ycf/billing-portal/internal/config"
	"github.com/ycf/billing-portal/internal/dispatch"
	"github.com/ycf/billing-portal/internal/limiter"
	"github.com/ycf/billing-portal/internal/localstore"
	"github.com/ycf/billing-portal/internal/session"
)

// Portal bundles the services sharing one session and dispatch chain.
type Portal struct {
	API      *api.Client
	Local    *localstore.Store
	Session  *session.Store
	Auth     *AuthService
	Pets     *PetService
	Expenses *ExpenseService
}

// NewPortal wires the client from cfg. The dispatch chain is
// recover → logging → expiry guard → action.
func NewPortal(cfg config.Config, log *zap.Logger, opts ...api.Option) (*Portal, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := api.New(cfg.API.BaseURL, cfg.API.Timeout, append([]api.Option{api.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	local := localstore.New(cfg.State.Dir)
	sess := session.New(local, client, log)

	disp := dispatch.New(
		dispatch.Recover(log),
		dispatch.Logging(log),
		session.ExpiryGuard(sess),
	)
	lim := limiter.NewMemory(cfg.Login.Window, cfg.Login.MaxFailures)

	return &Portal{
		API:      client,
		Local:    local,
		Session:  sess,
		Auth:     NewAuthService(client, sess, disp, lim, log),
		Pets:     NewPetService(client, sess, disp, log),
		Expenses: NewExpenseService(client, sess, disp, cfg.Expenses.PageLimit, log),
	}, nil
}
