// Package layout implements the layout editing operations. Each operation
// loads the full collection from a storage.Store, applies one change and, for
// mutations, saves the full collection back.
package layout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warehouse-twin/backend/internal/models"
	"github.com/warehouse-twin/backend/internal/storage"
)

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Publish(event models.ChangeEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(models.ChangeEvent) {}

// Service implements layout CRUD and nested object/path mutations.
//
// Mutations are serialized inside one Service. Separate processes sharing a
// backend still race, and the last full snapshot saved wins.
type Service struct {
	store       storage.Store
	mu          sync.Mutex
	now         func() time.Time
	newID       func() string
	defaults    models.LayoutDefaults
	notifier    Notifier
	templateDir string
	log         zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithDefaults sets the values used for fields omitted on creation.
func WithDefaults(d models.LayoutDefaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithNotifier sets the change feed publisher.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithTemplateDir sets the directory holding YAML layout templates.
func WithTemplateDir(dir string) Option {
	return func(s *Service) { s.templateDir = dir }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.log = logger.With().Str("component", "layout").Logger() }
}

// NewService creates a Service backed by store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
		defaults: models.DefaultLayoutDefaults(),
		notifier: nopNotifier{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListLayouts returns the summary of every layout in stored order.
func (s *Service) ListLayouts(ctx context.Context) ([]models.LayoutSummary, error) {
	layouts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.LayoutSummary, 0, len(layouts))
	for i := range layouts {
		out = append(out, layouts[i].Summary())
	}
	return out, nil
}

// GetLayout returns the full layout with id.
func (s *Service) GetLayout(ctx context.Context, id string) (models.Layout, error) {
	layouts, err := s.load(ctx)
	if err != nil {
		return models.Layout{}, err
	}
	i := indexOf(layouts, id)
	if i < 0 {
		return models.Layout{}, ErrLayoutNotFound
	}
	return layouts[i], nil
}

// CreateLayout appends a new empty layout built from draft and the defaults.
func (s *Service) CreateLayout(ctx context.Context, draft models.LayoutDraft) (models.Layout, error) {
	var created models.Layout
	err := s.mutate(ctx, func(layouts []models.Layout) ([]models.Layout, error) {
		created = s.newLayout(layouts, draft)
		return append(layouts, created), nil
	})
	if err != nil {
		return models.Layout{}, err
	}
	s.publish(models.ChangeLayoutCreated, created.ID, "")
	return created, nil
}

// UpdateLayout replaces each field present in patch and advances updatedAt.
// id, createdAt and gridSize never change.
func (s *Service) UpdateLayout(ctx context.Context, id string, patch models.LayoutPatch) (models.Layout, error) {
	var updated models.Layout
	err := s.mutate(ctx, func(layouts []models.Layout) ([]models.Layout, error) {
		i := indexOf(layouts, id)
		if i < 0 {
			return nil, ErrLayoutNotFound
		}
		l := &layouts[i]
		applyPatch(l, patch)
		s.touch(l)
		updated = *l
		return layouts, nil
	})
	if err != nil {
		return models.Layout{}, err
	}
	s.publish(models.ChangeLayoutUpdated, id, "")
	return updated, nil
}

// DeleteLayout removes the layout with id. Deleting an absent layout succeeds.
func (s *Service) DeleteLayout(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(layouts []models.Layout) ([]models.Layout, error) {
		out := layouts[:0]
		for _, l := range layouts {
			if l.ID != id {
				out = append(out, l)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	s.publish(models.ChangeLayoutDeleted, id, "")
	return nil
}

// ListObjects returns the objects of a layout in order.
func (s *Service) ListObjects(ctx context.Context, layoutID string) ([]models.Attributes, error) {
	return s.listEntities(ctx, layoutID, objects)
}

// AddObject appends an object built from fields with a fresh server id.
func (s *Service) AddObject(ctx context.Context, layoutID string, fields models.Attributes) (models.Attributes, error) {
	return s.addEntity(ctx, layoutID, objects, fields)
}

// UpdateObject merges fields into the object with objectID, key by key.
func (s *Service) UpdateObject(ctx context.Context, layoutID, objectID string, fields models.Attributes) (models.Attributes, error) {
	var merged models.Attributes
	err := s.mutate(ctx, func(layouts []models.Layout) ([]models.Layout, error) {
		i := indexOf(layouts, layoutID)
		if i < 0 {
			return nil, ErrLayoutNotFound
		}
		l := &layouts[i]
		j := entityIndex(l.Objects, objectID)
		if j < 0 {
			return nil, ErrObjectNotFound
		}
		obj := l.Objects[j].Clone()
		obj.Merge(fields)
		l.Objects[j] = obj
		s.touch(l)
		merged = obj
		return layouts, nil
	})
	if err != nil {
		return models.Attributes{}, err
	}
	s.publish(models.ChangeObjectUpdated, layoutID, objectID)
	return merged, nil
}

// DeleteObject removes the object with objectID. An absent object is not an
// error, but the layout's updatedAt still advances.
func (s *Service) DeleteObject(ctx context.Context, layoutID, objectID string) error {
	return s.deleteEntity(ctx, layoutID, objects, objectID)
}

// ListPaths returns the AGV paths of a layout in order.
func (s *Service) ListPaths(ctx context.Context, layoutID string) ([]models.Attributes, error) {
	return s.listEntities(ctx, layoutID, paths)
}

// AddPath appends a path built from fields with a fresh server id.
func (s *Service) AddPath(ctx context.Context, layoutID string, fields models.Attributes) (models.Attributes, error) {
	return s.addEntity(ctx, layoutID, paths, fields)
}

// DeletePath removes the path with pathID. An absent path is not an error.
func (s *Service) DeletePath(ctx context.Context, layoutID, pathID string) error {
	return s.deleteEntity(ctx, layoutID, paths, pathID)
}

// collection selects one of the nested entity arrays of a layout.
type collection struct {
	items   func(*models.Layout) *[]models.Attributes
	added   models.ChangeType
	deleted models.ChangeType
}

var (
	objects = collection{
		items:   func(l *models.Layout) *[]models.Attributes { return &l.Objects },
		added:   models.ChangeObjectAdded,
		deleted: models.ChangeObjectDeleted,
	}
	paths = collection{
		items:   func(l *models.Layout) *[]models.Attributes { return &l.Paths },
		added:   models.ChangePathAdded,
		deleted: models.ChangePathDeleted,
	}
)

func (s *Service) listEntities(ctx context.Context, layoutID string, c collection) ([]models.Attributes, error) {
	l, err := s.GetLayout(ctx, layoutID)
	if err != nil {
		return nil, err
	}
	return *c.items(&l), nil
}

func (s *Service) addEntity(ctx context.Context, layoutID string, c collection, fields models.Attributes) (models.Attributes, error) {
	var added models.Attributes
	err := s.mutate(ctx, func(layouts []models.Layout) ([]models.Layout, error) {
		i := indexOf(layouts, layoutID)
		if i < 0 {
			return nil, ErrLayoutNotFound
		}
		l := &layouts[i]
		items := c.items(l)
		added = fields.WithID(s.uniqueEntityID(*items))
		*items = append(*items, added)
		s.touch(l)
		return layouts, nil
	})
	if err != nil {
		return models.Attributes{}, err
	}
	s.publish(c.added, layoutID, added.ID())
	return added, nil
}

func (s *Service) deleteEntity(ctx context.Context, layoutID string, c collection, entityID string) error {
	err := s.mutate(ctx, func(layouts []models.Layout) ([]models.Layout, error) {
		i := indexOf(layouts, layoutID)
		if i < 0 {
			return nil, ErrLayoutNotFound
		}
		l := &layouts[i]
		items := c.items(l)
		kept := make([]models.Attributes, 0, len(*items))
		for _, item := range *items {
			if item.ID() != entityID {
				kept = append(kept, item)
			}
		}
		*items = kept
		s.touch(l)
		return layouts, nil
	})
	if err != nil {
		return err
	}
	s.publish(c.deleted, layoutID, entityID)
	return nil
}

func (s *Service) load(ctx context.Context) ([]models.Layout, error) {
	layouts, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load layouts: %w", err)
	}
	return layouts, nil
}

// mutate runs one load, change, save transaction. fn returning an error
// aborts the transaction without saving.
func (s *Service) mutate(ctx context.Context, fn func([]models.Layout) ([]models.Layout, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layouts, err := s.load(ctx)
	if err != nil {
		return err
	}
	layouts, err = fn(layouts)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, layouts); err != nil {
		s.log.Error().Err(err).Msg("failed to save layouts")
		return fmt.Errorf("save layouts: %w", err)
	}
	return nil
}

func (s *Service) newLayout(existing []models.Layout, draft models.LayoutDraft) models.Layout {
	now := models.NewTimestamp(s.now())
	return models.Layout{
		ID:        s.uniqueLayoutID(existing),
		Name:      draft.Name.OrElse(s.defaults.Name),
		Width:     draft.Width.OrElse(s.defaults.Width),
		Depth:     draft.Depth.OrElse(s.defaults.Depth),
		Height:    draft.Height.OrElse(s.defaults.Height),
		GridSize:  draft.GridSize.OrElse(s.defaults.GridSize),
		Objects:   []models.Attributes{},
		Paths:     []models.Attributes{},
		CreatedAt: now,
		UpdatedAt: now,
		Preview:   nil,
	}
}

// touch moves updatedAt to the current time, or one nanosecond past the
// stored value when the clock has not advanced.
func (s *Service) touch(l *models.Layout) {
	now := s.now().UTC()
	if !now.After(l.UpdatedAt.Time) {
		now = l.UpdatedAt.Add(time.Nanosecond)
	}
	l.UpdatedAt = models.NewTimestamp(now)
}

func (s *Service) uniqueLayoutID(layouts []models.Layout) string {
	for {
		id := s.newID()
		if indexOf(layouts, id) < 0 {
			return id
		}
	}
}

func (s *Service) uniqueEntityID(items []models.Attributes) string {
	for {
		id := s.newID()
		if entityIndex(items, id) < 0 {
			return id
		}
	}
}

func (s *Service) publish(t models.ChangeType, layoutID, entityID string) {
	s.notifier.Publish(models.ChangeEvent{
		Type:      t,
		LayoutID:  layoutID,
		EntityID:  entityID,
		Timestamp: s.now().UnixMilli(),
	})
}

// applyPatch copies every present field of p into l. Null name or dimensions
// are ignored since those fields cannot hold null; null objects or paths
// clear the collection; null preview clears the preview.
func applyPatch(l *models.Layout, p models.LayoutPatch) {
	if p.Name.Set && !p.Name.Null {
		l.Name = p.Name.Value
	}
	if p.Width.Set && !p.Width.Null {
		l.Width = p.Width.Value
	}
	if p.Depth.Set && !p.Depth.Null {
		l.Depth = p.Depth.Value
	}
	if p.Height.Set && !p.Height.Null {
		l.Height = p.Height.Value
	}
	if p.Objects.Set {
		l.Objects = p.Objects.Value
	}
	if p.Paths.Set {
		l.Paths = p.Paths.Value
	}
	if p.Preview.Set {
		l.Preview = p.Preview.Value
	}
	l.Normalize()
}

func indexOf(layouts []models.Layout, id string) int {
	for i := range layouts {
		if layouts[i].ID == id {
			return i
		}
	}
	return -1
}

func entityIndex(items []models.Attributes, id string) int {
	for i := range items {
		if items[i].ID() == id {
			return i
		}
	}
	return -1
}
