// mock_storage.go - Mock storage implementation for testing
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/warehouse-twin/backend/internal/models"
	"github.com/warehouse-twin/backend/internal/storage"
)

var _ storage.Store = (*MockStorage)(nil)

// MockStorage implements storage.Store in memory. The collection is kept in
// its serialized form so each Load returns an independent copy, like a real
// backend would.
type MockStorage struct {
	mu        sync.Mutex
	data      []byte
	LoadErr   error
	SaveErr   error
	LoadCount int
	SaveCount int
	Closed    bool
}

// NewMockStorage creates an empty mock store.
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// NewMockStorageWith creates a mock store pre-populated with layouts.
func NewMockStorageWith(layouts ...models.Layout) *MockStorage {
	m := NewMockStorage()
	data, err := json.Marshal(layouts)
	if err != nil {
		panic(err)
	}
	m.data = data
	return m
}

func (m *MockStorage) Load(ctx context.Context) ([]models.Layout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCount++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layouts := []models.Layout{}
	if len(m.data) == 0 {
		return layouts, nil
	}
	dec := json.NewDecoder(bytes.NewReader(m.data))
	dec.UseNumber()
	if err := dec.Decode(&layouts); err != nil {
		return []models.Layout{}, nil
	}
	for i := range layouts {
		layouts[i].Normalize()
	}
	return layouts, nil
}

func (m *MockStorage) Save(ctx context.Context, layouts []models.Layout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if layouts == nil {
		layouts = []models.Layout{}
	}
	data, err := json.Marshal(layouts)
	if err != nil {
		return err
	}
	m.data = data
	m.SaveCount++
	return nil
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Snapshot returns the last saved collection as raw JSON.
func (m *MockStorage) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Corrupt replaces the stored document with bytes that cannot be decoded.
func (m *MockStorage) Corrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = []byte("{not json")
}

// SaveCalls returns how many saves succeeded.
func (m *MockStorage) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SaveCount
}

// RecordingNotifier collects published change events.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *RecordingNotifier) Publish(event models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the published events.
func (r *RecordingNotifier) Events() []models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChangeEvent(nil), r.events...)
}
