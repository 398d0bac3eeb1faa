package storage

import (
	"context"
	"time"

	"github.com/warehouse-twin/backend/internal/models"
)

// Observer receives the outcome of every storage call.
type Observer interface {
	ObserveStorage(op string, elapsed time.Duration, err error)
}

// Instrumented wraps a Store and reports each Load and Save to an Observer.
type Instrumented struct {
	Store
	observer Observer
}

// WithObserver wraps store so every call is reported to observer.
func WithObserver(store Store, observer Observer) *Instrumented {
	return &Instrumented{Store: store, observer: observer}
}

// Load implements Store.
func (s *Instrumented) Load(ctx context.Context) ([]models.Layout, error) {
	start := time.Now()
	layouts, err := s.Store.Load(ctx)
	s.observer.ObserveStorage("load", time.Since(start), err)
	return layouts, err
}

// Save implements Store.
func (s *Instrumented) Save(ctx context.Context, layouts []models.Layout) error {
	start := time.Now()
	err := s.Store.Save(ctx, layouts)
	s.observer.ObserveStorage("save", time.Since(start), err)
	return err
}
