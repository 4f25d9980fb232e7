package session

import (
	"context"

	"github.com/ycf/billing-portal/internal/dispatch"
)

// ExpiryGuard returns an interceptor that runs CheckExpiry before every
// action, so an expired token is logged out before the action proceeds.
func ExpiryGuard(s *Store) dispatch.Interceptor {
	return func(ctx context.Context, action string, next dispatch.Handler) error {
		if _, err := s.CheckExpiry(); err != nil {
			return err
		}
		return next(ctx)
	}
}
