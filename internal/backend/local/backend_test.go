package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/kvstore"
	"markdown-notes/internal/model"
)

// fakeClock выдает заданное время, которое тесты двигают вручную
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestBackend(t *testing.T, path string, clock *fakeClock) *Backend {
	t.Helper()

	kv, err := kvstore.Open(path)
	require.NoError(t, err)

	return New(kv, WithClock(clock.Now))
}

func TestBackend_CreateReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	b := newTestBackend(t, path, clock)

	var got []model.Note
	_, err := b.Subscribe(ctx, func(notes []model.Note) { got = notes }, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	note := model.Note{ID: "n1", Title: model.DefaultTitle, CreatedAt: clock.t, UpdatedAt: clock.t}
	require.NoError(t, b.Create(ctx, note))

	// Мутация сразу же перезагружает подписчика
	require.Len(t, got, 1)
	assert.True(t, note.Equal(got[0]))

	// "Перезапуск": новый бэкенд поверх того же файла
	reloaded, err := newTestBackend(t, path, clock).List()
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.True(t, note.Equal(reloaded[0]), "expected %+v, got %+v", note, reloaded[0])
}

func TestBackend_UpdateMergesAndStamps(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	b := newTestBackend(t, filepath.Join(t.TempDir(), "storage.json"), clock)

	created := clock.t
	require.NoError(t, b.Create(ctx, model.Note{ID: "n1", Title: "T", Content: "C", CreatedAt: created, UpdatedAt: created}))

	clock.t = clock.t.Add(time.Minute)
	stamped, err := b.Update(ctx, "n1", model.ContentField("# Hi"))
	require.NoError(t, err)
	assert.Equal(t, clock.t, stamped)

	notes, err := b.List()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "T", notes[0].Title)
	assert.Equal(t, "# Hi", notes[0].Content)
	assert.Equal(t, created, notes[0].CreatedAt)
	assert.Equal(t, clock.t, notes[0].UpdatedAt)
}

func TestBackend_UpdateKeepsUpdatedAtMonotonic(t *testing.T) {
	ctx := context.Background()
	later := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: later}
	b := newTestBackend(t, filepath.Join(t.TempDir(), "storage.json"), clock)
	require.NoError(t, b.Create(ctx, model.Note{ID: "n1", CreatedAt: later, UpdatedAt: later}))

	// Часы ушли назад
	clock.t = later.Add(-time.Hour)
	stamped, err := b.Update(ctx, "n1", model.TitleField("x"))
	require.NoError(t, err)
	assert.Equal(t, later, stamped)
}

func TestBackend_UpdateAbsentIsNotFound(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now().UTC()}
	b := newTestBackend(t, filepath.Join(t.TempDir(), "storage.json"), clock)

	calls := 0
	_, err := b.Subscribe(ctx, func([]model.Note) { calls++ }, nil)
	require.NoError(t, err)

	stamped, err := b.Update(ctx, "missing", model.TitleField("x"))
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.True(t, stamped.IsZero())
	assert.Equal(t, 1, calls, "only the initial load")

	notes, err := b.List()
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestBackend_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now().UTC()}
	b := newTestBackend(t, filepath.Join(t.TempDir(), "storage.json"), clock)

	require.NoError(t, b.Create(ctx, model.Note{ID: "a"}))
	require.NoError(t, b.Create(ctx, model.Note{ID: "b"}))

	require.NoError(t, b.Remove(ctx, "a"))
	require.NoError(t, b.Remove(ctx, "a"))
	require.NoError(t, b.Remove(ctx, "does-not-exist"))

	notes, err := b.List()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "b", notes[0].ID)
}

func TestBackend_ResubscribeReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, filepath.Join(t.TempDir(), "storage.json"), &fakeClock{t: time.Now().UTC()})

	first, second := 0, 0
	unsubFirst, err := b.Subscribe(ctx, func([]model.Note) { first++ }, nil)
	require.NoError(t, err)
	_, err = b.Subscribe(ctx, func([]model.Note) { second++ }, nil)
	require.NoError(t, err)

	// Отписка старой подписки не должна снять новую
	unsubFirst()
	require.NoError(t, b.Create(ctx, model.Note{ID: "n1"}))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestBackend_InsertionOrderPreserved(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, filepath.Join(t.TempDir(), "storage.json"), &fakeClock{t: time.Now().UTC()})

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, b.Create(ctx, model.Note{ID: id}))
	}

	notes, err := b.List()
	require.NoError(t, err)
	ids := []string{notes[0].ID, notes[1].ID, notes[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
