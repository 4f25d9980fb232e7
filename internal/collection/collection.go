// Package collection caches the last fetched snapshot of a list resource.
package collection

import (
	"context"
	"fmt"
	"sync"

	"github.com/ycf/billing-portal/internal/errs"
)

// Phase is the fetch status of a collection.
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of a collection.
type State[T any] struct {
	Phase   Phase
	Items   []T
	Loading bool
	Err     string
}

// Fetcher loads the whole collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Store holds the latest snapshot. Overlapping fetches are resolved by issue
// order: only the most recently issued fetch may update the snapshot.
type Store[T any] struct {
	mu     sync.Mutex
	st     State[T]
	issued uint64
}

// New returns an idle, empty store.
func New[T any]() *Store[T] {
	return &Store[T]{}
}

// Snapshot returns a copy of the current state.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.st
	out.Items = append([]T(nil), s.st.Items...)
	return out
}

// Items returns a copy of the cached items.
func (s *Store[T]) Items() []T { return s.Snapshot().Items }

// Fetch runs f and replaces the items with its result. On failure the error
// message is recorded and the previous items stay. If another fetch was
// issued meanwhile, the result is dropped and errs.ErrStale is returned.
func (s *Store[T]) Fetch(ctx context.Context, f Fetcher[T]) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.st.Phase = Loading
	s.st.Loading = true
	s.st.Err = ""
	s.mu.Unlock()

	items, err := f(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		return errs.ErrStale
	}
	s.st.Loading = false
	if err != nil {
		s.st.Phase = Failed
		s.st.Err = err.Error()
		return err
	}
	s.st.Phase = Loaded
	s.st.Items = items
	return nil
}
