package item

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/itemscope/testkit"
)

type captureHooks struct {
	mu      sync.Mutex
	created int
	read    []int
	got     int
	updated int
	deleted int
}

func (h *captureHooks) ItemCreated(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created++
}

func (h *captureHooks) ItemsRead(_ context.Context, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.read = append(h.read, n)
}

func (h *captureHooks) ItemRead(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got++
}

func (h *captureHooks) ItemUpdated(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updated++
}

func (h *captureHooks) ItemDeleted(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted++
}

func newTestService(t *testing.T) (*Service, *captureHooks) {
	t.Helper()
	hooks := &captureHooks{}
	svc, err := NewService(testkit.NewSQLiteDB(t), WithHooks(hooks), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	require.NoError(t, svc.Migrate(context.Background()))
	return svc, hooks
}

func price(v float64) *float64 { return &v }

func TestServiceCRUD(t *testing.T) {
	svc, hooks := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "Écran", Price: price(299.99)})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, 1, hooks.created)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Écran", got.Name)
	assert.Equal(t, 299.99, got.Price)
	assert.Equal(t, 1, hooks.got)

	// 只更新价格，名称保持不变
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Price: price(249.99)})
	require.NoError(t, err)
	assert.Equal(t, "Écran", updated.Name)
	assert.Equal(t, 249.99, updated.Price)
	assert.Equal(t, 1, hooks.updated)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, 1, hooks.deleted)

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, hooks.got, "missing item does not count as read")
}

func TestServiceNotFoundSkipsHooks(t *testing.T) {
	svc, hooks := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 42, UpdateInput{Name: new(string)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 42), ErrNotFound)

	assert.Zero(t, hooks.updated)
	assert.Zero(t, hooks.deleted)
}

func TestServiceList(t *testing.T) {
	svc, hooks := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := svc.Create(ctx, CreateInput{Name: name, Price: price(1)})
		require.NoError(t, err)
	}

	items, err := svc.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Name)
	assert.Equal(t, "c", items[1].Name)

	items, err = svc.List(ctx, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	assert.Equal(t, []int{2, 0}, hooks.read)
}

func TestServiceUpdateWithoutFields(t *testing.T) {
	svc, hooks := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "keep", Price: price(3)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, "keep", updated.Name)
	assert.Equal(t, 3.0, updated.Price)
	assert.Equal(t, 1, hooks.updated)
}

func TestNewServiceRequiresDB(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
