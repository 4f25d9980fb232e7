package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ycf/billing-portal/internal/collection"
	"github.com/ycf/billing-portal/internal/dispatch"
	"github.com/ycf/billing-portal/internal/metrics"
	"github.com/ycf/billing-portal/internal/model"
	"github.com/ycf/billing-portal/internal/session"
)

// PetsAPI is the part of the API serving pet records.
type PetsAPI interface {
	ListPets(ctx context.Context) ([]model.PetRecord, error)
	GetPet(ctx context.Context, id string) (model.PetRecord, error)
	CreatePet(ctx context.Context, p model.PetRecord) (model.PetRecord, error)
	UpdatePet(ctx context.Context, p model.PetRecord) (model.PetRecord, error)
	DeletePet(ctx context.Context, id string) error
	DownloadInvoice(ctx context.Context, id string) ([]byte, error)
}

type PetService struct {
	api   PetsAPI
	store *collection.Store[model.PetRecord]
	sess  *session.Store
	disp  *dispatch.Dispatcher
	log   *zap.Logger
}

// NewPetService constructs PetService with an empty collection.
func NewPetService(a PetsAPI, sess *session.Store, disp *dispatch.Dispatcher, log *zap.Logger) *PetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PetService{api: a, store: collection.New[model.PetRecord](), sess: sess, disp: disp, log: log}
}

// State returns the cached pet collection.
func (s *PetService) State() collection.State[model.PetRecord] { return s.store.Snapshot() }

// List returns cached pets matching a metrics.Filter* value.
func (s *PetService) List(filter string) []model.PetRecord {
	return metrics.FilterByStatus(s.store.Items(), filter)
}

// Summary computes dashboard cards over the cached pets.
func (s *PetService) Summary() metrics.PetSummary {
	return metrics.SummarizePets(s.store.Items())
}

// Refresh reloads the pet list.
func (s *PetService) Refresh(ctx context.Context) error {
	return s.disp.Dispatch(ctx, "pets/fetch", func(ctx context.Context) error {
		if err := requireSession(s.sess); err != nil {
			return err
		}
		return s.store.Fetch(ctx, s.api.ListPets)
	})
}

// Get fetches one pet.
func (s *PetService) Get(ctx context.Context, id string) (model.PetRecord, error) {
	var out model.PetRecord
	err := s.disp.Dispatch(ctx, "pets/get", func(ctx context.Context) error {
		if err := requireSession(s.sess); err != nil {
			return err
		}
		if strings.TrimSpace(id) == "" {
			return errors.New("validation: empty id")
		}
		p, err := s.api.GetPet(ctx, id)
		out = p
		return err
	})
	return out, err
}

func validatePet(p model.PetRecord) error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Owner) == "" {
		return errors.New("validation: name and owner are required")
	}
	for _, e := range p.Expenses {
		if e.Cost < 0 {
			return fmt.Errorf("validation: negative cost for %q", e.Item)
		}
	}
	return nil
}

// mutate runs a write action and then refreshes the list. A failed refresh
// does not fail the write; it is left on the collection state.
func (s *PetService) mutate(ctx context.Context, action string, fn dispatch.Handler) error {
	err := s.disp.Dispatch(ctx, action, func(ctx context.Context) error {
		if err := requireSession(s.sess); err != nil {
			return err
		}
		return fn(ctx)
	})
	if err != nil {
		return err
	}
	if rerr := s.Refresh(ctx); rerr != nil {
		s.log.Warn("refresh after write failed", zap.String("action", action), zap.Error(rerr))
	}
	return nil
}

// Create stores a new pet.
func (s *PetService) Create(ctx context.Context, p model.PetRecord) (model.PetRecord, error) {
	var out model.PetRecord
	err := s.mutate(ctx, "pets/create", func(ctx context.Context) error {
		if err := validatePet(p); err != nil {
			return err
		}
		var err error
		out, err = s.api.CreatePet(ctx, p)
		return err
	})
	return out, err
}

// Update replaces an existing pet.
func (s *PetService) Update(ctx context.Context, p model.PetRecord) (model.PetRecord, error) {
	var out model.PetRecord
	err := s.mutate(ctx, "pets/update", func(ctx context.Context) error {
		if strings.TrimSpace(p.ID) == "" {
			return errors.New("validation: empty id")
		}
		if err := validatePet(p); err != nil {
			return err
		}
		var err error
		out, err = s.api.UpdatePet(ctx, p)
		return err
	})
	return out, err
}

// Delete removes a pet.
func (s *PetService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "pets/delete", func(ctx context.Context) error {
		if strings.TrimSpace(id) == "" {
			return errors.New("validation: empty id")
		}
		return s.api.DeletePet(ctx, id)
	})
}

// Invoice downloads the PDF invoice of a pet.
func (s *PetService) Invoice(ctx context.Context, id string) ([]byte, error) {
	var out []byte
	err := s.disp.Dispatch(ctx, "pets/invoice", func(ctx context.Context) error {
		if err := requireSession(s.sess); err != nil {
			return err
		}
		if strings.TrimSpace(id) == "" {
			return errors.New("validation: empty id")
		}
		b, err := s.api.DownloadInvoice(ctx, id)
		out = b
		return err
	})
	return out, err
}

// InvoiceFileName is the conventional file name of a pet invoice.
func InvoiceFileName(id string) string { return "pet_" + id + "_invoice.pdf" }
