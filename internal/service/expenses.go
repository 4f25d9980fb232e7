package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ycf/billing-portal/internal/collection"
	"github.com/ycf/billing-portal/internal/dispatch"
	"github.com/ycf/billing-portal/internal/export"
	"github.com/ycf/billing-portal/internal/metrics"
	"github.com/ycf/billing-portal/internal/model"
	"github.com/ycf/billing-portal/internal/session"
)

// ExpensesAPI is the part of the API serving the ledger.
type ExpensesAPI interface {
	ListExpenses(ctx context.Context, page, limit int) (model.ExpensePage, error)
	CreateExpense(ctx context.Context, e model.ExpenseRecord) (model.ExpenseRecord, error)
}

type ExpenseService struct {
	api   ExpensesAPI
	store *collection.Store[model.ExpenseRecord]
	sess  *session.Store
	disp  *dispatch.Dispatcher
	log   *zap.Logger
	now   func() time.Time

	mu    sync.Mutex
	page  int
	limit int
	total int
}

// NewExpenseService constructs ExpenseService; limit is the default page size.
func NewExpenseService(a ExpensesAPI, sess *session.Store, disp *dispatch.Dispatcher, limit int, log *zap.Logger) *ExpenseService {
	if log == nil {
		log = zap.NewNop()
	}
	if limit <= 0 {
		limit = 50
	}
	return &ExpenseService{
		api:   a,
		store: collection.New[model.ExpenseRecord](),
		sess:  sess,
		disp:  disp,
		log:   log,
		now:   time.Now,
		page:  1,
		limit: limit,
	}
}

// State returns the cached ledger page.
func (s *ExpenseService) State() collection.State[model.ExpenseRecord] { return s.store.Snapshot() }

// Page returns the current page, page size and server-side total.
func (s *ExpenseService) Page() (page, limit, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.limit, s.total
}

// Refresh loads page of size limit; non-positive values keep the current ones.
func (s *ExpenseService) Refresh(ctx context.Context, page, limit int) error {
	s.mu.Lock()
	if page <= 0 {
		page = s.page
	}
	if limit <= 0 {
		limit = s.limit
	}
	s.mu.Unlock()

	return s.disp.Dispatch(ctx, "expenses/fetch", func(ctx context.Context) error {
		if err := requireSession(s.sess); err != nil {
			return err
		}
		var total int
		err := s.store.Fetch(ctx, func(ctx context.Context) ([]model.ExpenseRecord, error) {
			pg, err := s.api.ListExpenses(ctx, page, limit)
			total = pg.Total
			return pg.Data, err
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.page, s.limit, s.total = page, limit, total
		s.mu.Unlock()
		return nil
	})
}

// RefreshAll loads the whole ledger page by page and replaces the cached
// records once. It stops when the server total is reached or a page comes
// back empty.
func (s *ExpenseService) RefreshAll(ctx context.Context) error {
	s.mu.Lock()
	limit := s.limit
	s.mu.Unlock()

	return s.disp.Dispatch(ctx, "expenses/fetch-all", func(ctx context.Context) error {
		if err := requireSession(s.sess); err != nil {
			return err
		}
		var total int
		err := s.store.Fetch(ctx, func(ctx context.Context) ([]model.ExpenseRecord, error) {
			var all []model.ExpenseRecord
			for page := 1; ; page++ {
				pg, err := s.api.ListExpenses(ctx, page, limit)
				if err != nil {
					return nil, fmt.Errorf("page %d: %w", page, err)
				}
				all = append(all, pg.Data...)
				total = pg.Total
				if len(pg.Data) == 0 || len(all) >= pg.Total {
					return all, nil
				}
			}
		})
		if err != nil {
			return err
		}
		s.log.Debug("ledger loaded", zap.Int("records", len(s.store.Items())), zap.Int("total", total))
		s.mu.Lock()
		s.total = total
		s.mu.Unlock()
		return nil
	})
}

// Create records an expense and reloads the current page. A blank date means
// today and a blank payment type means cash.
func (s *ExpenseService) Create(ctx context.Context, e model.ExpenseRecord) (model.ExpenseRecord, error) {
	var out model.ExpenseRecord
	err := s.disp.Dispatch(ctx, "expenses/create", func(ctx context.Context) error {
		if err := requireSession(s.sess); err != nil {
			return err
		}
		if strings.TrimSpace(e.Category) == "" {
			return errors.New("validation: category is required")
		}
		if e.Amount <= 0 {
			return errors.New("validation: amount must be positive")
		}
		if e.Date.IsZero() {
			e.Date = model.Date{Time: s.now()}
		}
		if strings.TrimSpace(e.PaymentType) == "" {
			e.PaymentType = model.PaymentTypeCash
		}
		var err error
		out, err = s.api.CreateExpense(ctx, e)
		return err
	})
	if err != nil {
		return model.ExpenseRecord{}, err
	}
	if rerr := s.Refresh(ctx, 0, 0); rerr != nil {
		s.log.Warn("refresh after write failed", zap.String("action", "expenses/create"), zap.Error(rerr))
	}
	return out, nil
}

// Filtered returns cached records within [from, to].
func (s *ExpenseService) Filtered(from, to model.Date) []model.ExpenseRecord {
	return metrics.FilterByDate(s.store.Items(), from, to)
}

// Summary computes the ledger metrics over cached records within [from, to].
func (s *ExpenseService) Summary(from, to model.Date) metrics.ExpenseSummary {
	return metrics.SummarizeExpenses(s.store.Items(), from, to)
}

// Export writes cached records within [from, to] as an xlsx workbook.
func (s *ExpenseService) Export(w io.Writer, from, to model.Date) error {
	return export.WriteXLSX(w, s.Filtered(from, to))
}
