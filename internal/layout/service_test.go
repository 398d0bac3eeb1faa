// service_test.go - Tests for layout operations
package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-twin/backend/internal/models"
	"github.com/warehouse-twin/backend/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(t *testing.T) (*Service, *testutil.MockStorage, *fakeClock, *testutil.RecordingNotifier) {
	t.Helper()
	store := testutil.NewMockStorage()
	clock := newFakeClock()
	notifier := &testutil.RecordingNotifier{}
	svc := NewService(store,
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs()),
		WithNotifier(notifier),
	)
	return svc, store, clock, notifier
}

func attrs(t *testing.T, body string) models.Attributes {
	t.Helper()
	var a models.Attributes
	require.NoError(t, json.Unmarshal([]byte(body), &a))
	return a
}

func draft(t *testing.T, body string) models.LayoutDraft {
	t.Helper()
	var d models.LayoutDraft
	require.NoError(t, json.Unmarshal([]byte(body), &d))
	return d
}

func patch(t *testing.T, body string) models.LayoutPatch {
	t.Helper()
	var p models.LayoutPatch
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func TestService_CreateLayoutDefaults(t *testing.T) {
	svc, store, clock, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, draft(t, `{"name":"Zone A","width":40,"depth":30}`))
	require.NoError(t, err)

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "Zone A", l.Name)
	assert.Equal(t, 40.0, l.Width)
	assert.Equal(t, 30.0, l.Depth)
	assert.Equal(t, 5.0, l.Height)
	assert.Equal(t, 0.6, l.GridSize)
	assert.Empty(t, l.Objects)
	assert.NotNil(t, l.Objects)
	assert.Empty(t, l.Paths)
	assert.Nil(t, l.Preview)
	assert.Equal(t, clock.Now(), l.CreatedAt.Time)
	assert.Equal(t, l.CreatedAt, l.UpdatedAt)
	assert.Equal(t, 1, store.SaveCalls())
}

func TestService_CreateLayoutEmptyAndNullFields(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	l, err := svc.CreateLayout(context.Background(), draft(t, `{"name":null,"height":null}`))
	require.NoError(t, err)
	assert.Equal(t, "新布局", l.Name)
	assert.Equal(t, 60.0, l.Width)
	assert.Equal(t, 60.0, l.Depth)
	assert.Equal(t, 5.0, l.Height)
}

func TestService_CreatedIDsAreUnique(t *testing.T) {
	store := testutil.NewMockStorage()
	// Generator repeats itself; the service must skip ids already taken.
	ids := []string{"dup", "dup", "dup", "fresh"}
	i := 0
	svc := NewService(store, WithIDGenerator(func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}))
	ctx := context.Background()

	first, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)
	second, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)
	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestService_ListLayoutsProjection(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateLayout(ctx, draft(t, `{"name":"A"}`))
	require.NoError(t, err)
	b, err := svc.CreateLayout(ctx, draft(t, `{"name":"B"}`))
	require.NoError(t, err)
	_, err = svc.AddObject(ctx, a.ID, attrs(t, `{"type":"rack"}`))
	require.NoError(t, err)

	list, err := svc.ListLayouts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Equal(t, 1, list[0].ObjectCount)
	assert.Equal(t, 0, list[1].ObjectCount)

	raw, err := json.Marshal(list[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"objects"`)
	assert.NotContains(t, string(raw), `"paths"`)
}

func TestService_GetLayoutNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.GetLayout(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestService_UpdateLayoutPresenceMerge(t *testing.T) {
	svc, _, clock, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, draft(t, `{"name":"Zone A","width":40}`))
	require.NoError(t, err)
	_, err = svc.UpdateLayout(ctx, l.ID, patch(t, `{"preview":"data:image/png;base64,AAA"}`))
	require.NoError(t, err)
	_, err = svc.AddObject(ctx, l.ID, attrs(t, `{"type":"rack"}`))
	require.NoError(t, err)
	before, err := svc.GetLayout(ctx, l.ID)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := svc.UpdateLayout(ctx, l.ID, patch(t, `{"name":"X"}`))
	require.NoError(t, err)

	assert.Equal(t, "X", updated.Name)
	assert.Equal(t, before.Width, updated.Width)
	assert.Equal(t, before.Depth, updated.Depth)
	assert.Equal(t, before.Height, updated.Height)
	assert.Equal(t, before.Objects, updated.Objects)
	assert.Equal(t, before.Paths, updated.Paths)
	assert.Equal(t, before.Preview, updated.Preview)
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt.Time))
	assert.Equal(t, clock.Now(), updated.UpdatedAt.Time)
}

func TestService_UpdateLayoutImmutableFields(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)

	updated, err := svc.UpdateLayout(ctx, l.ID, patch(t,
		`{"id":"other","gridSize":2,"createdAt":"2000-01-01T00:00:00Z","objects":[{"id":"o","k":1}],"preview":null}`))
	require.NoError(t, err)

	assert.Equal(t, l.ID, updated.ID)
	assert.Equal(t, 0.6, updated.GridSize)
	assert.Equal(t, l.CreatedAt, updated.CreatedAt)
	require.Len(t, updated.Objects, 1)
	assert.Equal(t, "o", updated.Objects[0].ID(), "replaced objects are stored verbatim")
	assert.Nil(t, updated.Preview)
}

func TestService_UpdateLayoutNotFound(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	_, err := svc.UpdateLayout(context.Background(), "missing", patch(t, `{"name":"x"}`))
	assert.ErrorIs(t, err, ErrLayoutNotFound)
	assert.Equal(t, 0, store.SaveCalls())
}

func TestService_UpdatedAtAdvancesWithStalledClock(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)
	updated, err := svc.UpdateLayout(ctx, l.ID, models.LayoutPatch{})
	require.NoError(t, err)

	assert.True(t, updated.UpdatedAt.After(l.UpdatedAt.Time))
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt.Time))
}

func TestService_DeleteLayout(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLayout(ctx, l.ID))
	_, err = svc.GetLayout(ctx, l.ID)
	assert.ErrorIs(t, err, ErrLayoutNotFound)

	list, err := svc.ListLayouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.NoError(t, svc.DeleteLayout(ctx, l.ID), "deletion is idempotent")
}

func TestService_AddObjectOverridesCallerID(t *testing.T) {
	svc, _, clock, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)

	clock.Advance(time.Second)
	obj, err := svc.AddObject(ctx, l.ID, attrs(t, `{"type":"rack","id":"caller","x":1}`))
	require.NoError(t, err)

	assert.NotEqual(t, "caller", obj.ID())
	assert.NotEmpty(t, obj.ID())
	assert.Equal(t, []string{"id", "type", "x"}, obj.Keys())

	got, err := svc.GetLayout(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), got.UpdatedAt.Time)
}

func TestService_AddObjectNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.AddObject(context.Background(), "missing", attrs(t, `{}`))
	assert.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestService_UpdateObject(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)
	obj, err := svc.AddObject(ctx, l.ID, attrs(t, `{"type":"rack","x":1,"y":2}`))
	require.NoError(t, err)

	merged, err := svc.UpdateObject(ctx, l.ID, obj.ID(), attrs(t, `{"x":5,"label":"A-03","id":"hijack"}`))
	require.NoError(t, err)

	assert.Equal(t, obj.ID(), merged.ID())
	assert.Equal(t, []string{"id", "type", "x", "y", "label"}, merged.Keys())
	x, _ := merged.Get("x")
	assert.Equal(t, json.Number("5"), x)
	typ, _ := merged.Get("type")
	assert.Equal(t, "rack", typ)

	list, err := svc.ListObjects(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, merged.Keys(), list[0].Keys())
}

func TestService_UpdateObjectErrorsAreDistinct(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)

	_, err = svc.UpdateObject(ctx, l.ID, "nope", attrs(t, `{"x":1}`))
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NotErrorIs(t, err, ErrLayoutNotFound)

	_, err = svc.UpdateObject(ctx, "missing", "nope", attrs(t, `{"x":1}`))
	assert.ErrorIs(t, err, ErrLayoutNotFound)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestService_DeleteAbsentNestedEntitiesAdvancesUpdatedAt(t *testing.T) {
	svc, _, clock, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)

	clock.Advance(time.Second)
	require.NoError(t, svc.DeleteObject(ctx, l.ID, "absent"))
	afterObject, err := svc.GetLayout(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, afterObject.UpdatedAt.After(l.UpdatedAt.Time))

	clock.Advance(time.Second)
	require.NoError(t, svc.DeletePath(ctx, l.ID, "absent"))
	afterPath, err := svc.GetLayout(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, afterPath.UpdatedAt.After(afterObject.UpdatedAt.Time))

	assert.ErrorIs(t, svc.DeleteObject(ctx, "missing", "x"), ErrLayoutNotFound)
	assert.ErrorIs(t, svc.DeletePath(ctx, "missing", "x"), ErrLayoutNotFound)
}

func TestService_Paths(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)

	p1, err := svc.AddPath(ctx, l.ID, attrs(t, `{"points":[{"x":0,"z":0},{"x":5,"z":0}]}`))
	require.NoError(t, err)
	p2, err := svc.AddPath(ctx, l.ID, attrs(t, `{"points":[]}`))
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID(), p2.ID())

	list, err := svc.ListPaths(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, p1.ID(), list[0].ID())

	require.NoError(t, svc.DeletePath(ctx, l.ID, p1.ID()))
	list, err = svc.ListPaths(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p2.ID(), list[0].ID())

	_, err = svc.ListPaths(ctx, "missing")
	assert.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestService_Scenario(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, draft(t, `{"name":"Zone A","width":40,"depth":30}`))
	require.NoError(t, err)
	assert.Equal(t, 5.0, l.Height)
	assert.Equal(t, 0.6, l.GridSize)

	obj, err := svc.AddObject(ctx, l.ID, attrs(t, `{"type":"rack","x":1,"y":2}`))
	require.NoError(t, err)
	assert.NotEmpty(t, obj.ID())

	updated, err := svc.UpdateObject(ctx, l.ID, obj.ID(), attrs(t, `{"x":5}`))
	require.NoError(t, err)
	x, _ := updated.Get("x")
	assert.Equal(t, json.Number("5"), x)
	assert.Equal(t, obj.ID(), updated.ID())

	require.NoError(t, svc.DeleteLayout(ctx, l.ID))
	_, err = svc.GetLayout(ctx, l.ID)
	assert.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestService_SaveFailurePropagates(t *testing.T) {
	svc, store, _, notifier := newTestService(t)
	store.SaveErr = errors.New("disk full")

	_, err := svc.CreateLayout(context.Background(), models.LayoutDraft{})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, notifier.Events(), "failed mutations are not published")

	store.SaveErr = nil
	list, err := svc.ListLayouts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_CorruptStoreLoadsEmpty(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	store.Corrupt()

	list, err := svc.ListLayouts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_PublishesChanges(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)
	obj, err := svc.AddObject(ctx, l.ID, attrs(t, `{}`))
	require.NoError(t, err)
	_, err = svc.UpdateObject(ctx, l.ID, obj.ID(), attrs(t, `{"a":1}`))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteObject(ctx, l.ID, obj.ID()))
	p, err := svc.AddPath(ctx, l.ID, attrs(t, `{}`))
	require.NoError(t, err)
	require.NoError(t, svc.DeletePath(ctx, l.ID, p.ID()))
	_, err = svc.UpdateLayout(ctx, l.ID, models.LayoutPatch{})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteLayout(ctx, l.ID))

	var types []models.ChangeType
	for _, e := range notifier.Events() {
		assert.Equal(t, l.ID, e.LayoutID)
		types = append(types, e.Type)
	}
	assert.Equal(t, []models.ChangeType{
		models.ChangeLayoutCreated,
		models.ChangeObjectAdded,
		models.ChangeObjectUpdated,
		models.ChangeObjectDeleted,
		models.ChangePathAdded,
		models.ChangePathDeleted,
		models.ChangeLayoutUpdated,
		models.ChangeLayoutDeleted,
	}, types)
	assert.Equal(t, obj.ID(), notifier.Events()[1].EntityID)
}

func TestService_ConcurrentMutationsAreSerialized(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.CreateLayout(ctx, models.LayoutDraft{})
	require.NoError(t, err)

	rack := attrs(t, `{"type":"rack"}`)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddObject(ctx, l.ID, rack)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := svc.ListObjects(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
