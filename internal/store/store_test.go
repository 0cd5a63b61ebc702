package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/config"
	"markdown-notes/internal/model"
)

// mockBackend - мок бэкенда для тестирования хранилища
type mockBackend struct {
	mu       sync.Mutex
	onChange backend.ChangeFunc
	onError  backend.ErrorFunc

	subscribeErr error
	createErr    error
	updateErr    error
	removeErr    error

	stamp   time.Time
	created []model.Note
	updates []model.NoteFields
	removed []string
	closed  bool
}

func (m *mockBackend) Mode() backend.Mode { return backend.ModeRemote }
func (m *mockBackend) UserID() string     { return "mock-user" }

func (m *mockBackend) Create(ctx context.Context, note model.Note) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, note)
	return nil
}

func (m *mockBackend) Update(ctx context.Context, id string, fields model.NoteFields) (time.Time, error) {
	if m.updateErr != nil {
		return time.Time{}, m.updateErr
	}
	m.updates = append(m.updates, fields)
	return m.stamp, nil
}

func (m *mockBackend) Remove(ctx context.Context, id string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockBackend) Subscribe(ctx context.Context, onChange backend.ChangeFunc, onError backend.ErrorFunc) (func(), error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	m.mu.Lock()
	m.onChange, m.onError = onChange, onError
	m.mu.Unlock()
	onChange(nil)
	return func() {
		m.mu.Lock()
		m.onChange, m.onError = nil, nil
		m.mu.Unlock()
	}, nil
}

func (m *mockBackend) Close() error {
	m.closed = true
	return nil
}

// push имитирует снимок от бэкенда
func (m *mockBackend) push(notes ...model.Note) {
	m.mu.Lock()
	onChange := m.onChange
	m.mu.Unlock()
	if onChange != nil {
		onChange(notes)
	}
}

func (m *mockBackend) fail(err error) {
	m.mu.Lock()
	onError := m.onError
	m.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func note(id string, minutes int) model.Note {
	at := base.Add(time.Duration(minutes) * time.Minute)
	return model.Note{ID: id, Title: "title " + id, Content: "content " + id, CreatedAt: at, UpdatedAt: at}
}

func ids(notes []model.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

// sequentialIDs генерирует предсказуемые id
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("note-%d", n)
	}
}

// clock управляемые часы
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newMockStore(t *testing.T, m *mockBackend, opts ...Option) *Store {
	t.Helper()
	s := New(m, opts...)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

// countNotifications считает вызовы слушателя
func countNotifications(s *Store) *int {
	n := new(int)
	s.Subscribe(func() { *n++ })
	return n
}

func TestSnapshotSortedByUpdatedAtDescending(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)

	m.push(note("a", 1), note("b", 3), note("c", 2))

	assert.Equal(t, []string{"b", "c", "a"}, ids(s.Notes()))
}

func TestSnapshotSortIsStableForEqualTimestamps(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)

	m.push(note("x", 1), note("y", 1), note("z", 1), note("w", 5))

	assert.Equal(t, []string{"w", "x", "y", "z"}, ids(s.Notes()))
}

func TestNotifyOnlyOnChange(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	calls := countNotifications(s)

	m.push(note("a", 1))
	m.push(note("a", 1))

	assert.Equal(t, 1, *calls)
}

func TestCreateNote_AppliesConfirmedWriteAndSelects(t *testing.T) {
	m := &mockBackend{}
	c := &clock{t: base}
	s := newMockStore(t, m, WithClock(c.now), WithIDGenerator(sequentialIDs()))
	calls := countNotifications(s)

	id, err := s.CreateNote(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "note-1", id)
	require.Len(t, m.created, 1)
	assert.Equal(t, model.DefaultTitle, m.created[0].Title)
	assert.Empty(t, m.created[0].Content)
	assert.True(t, m.created[0].CreatedAt.Equal(base))
	assert.True(t, m.created[0].UpdatedAt.Equal(base))

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, id, selected.ID)
	assert.Equal(t, 1, *calls)
}

func TestCreateNote_PersistenceFailureLeavesSnapshot(t *testing.T) {
	m := &mockBackend{createErr: errors.New("quota exceeded")}
	s := newMockStore(t, m)
	calls := countNotifications(s)

	_, err := s.CreateNote(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Empty(t, s.Notes())
	assert.Empty(t, s.SelectedID())
	assert.Zero(t, *calls)
}

func TestUpdateNote_PartialUpdateIsolation(t *testing.T) {
	m := &mockBackend{stamp: base.Add(time.Hour)}
	s := newMockStore(t, m)
	m.push(note("a", 1))

	require.NoError(t, s.UpdateNote(context.Background(), "a", model.TitleField("new title")))

	got, ok := s.Note("a")
	require.True(t, ok)
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, "content a", got.Content)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))

	require.Len(t, m.updates, 1)
	assert.Nil(t, m.updates[0].Content, "content must not be sent")
}

func TestUpdateNote_MovesNoteToTop(t *testing.T) {
	m := &mockBackend{stamp: base.Add(time.Hour)}
	s := newMockStore(t, m)
	m.push(note("a", 1), note("b", 2))

	require.NoError(t, s.UpdateNote(context.Background(), "a", model.ContentField("x")))

	assert.Equal(t, []string{"a", "b"}, ids(s.Notes()))
}

func TestUpdateNote_NotFoundChangesNothing(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1), note("b", 2))
	require.NoError(t, s.SelectNote("a"))
	before := s.Notes()
	calls := countNotifications(s)

	err := s.UpdateNote(context.Background(), "missing", model.TitleField("x"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindNotFound, storeErr.Kind)
	assert.False(t, storeErr.DataAtRisk())

	assert.Equal(t, before, s.Notes())
	assert.Equal(t, "a", s.SelectedID())
	assert.Empty(t, m.updates, "backend must not be called")
	assert.Zero(t, *calls)
}

func TestUpdateNote_DeletedInBackendIsNotFound(t *testing.T) {
	m := &mockBackend{updateErr: fmt.Errorf("update document a: %w", backend.ErrNotFound)}
	s := newMockStore(t, m)
	m.push(note("a", 1))
	before := s.Notes()

	err := s.UpdateNote(context.Background(), "a", model.ContentField("late"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, before, s.Notes())
}

func TestUpdateNote_PersistenceFailure(t *testing.T) {
	m := &mockBackend{updateErr: errors.New("permission denied")}
	s := newMockStore(t, m)
	m.push(note("a", 1))
	before := s.Notes()

	err := s.UpdateNote(context.Background(), "a", model.TitleField("x"))

	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindPersistence, storeErr.Kind)
	assert.Equal(t, "a", storeErr.NoteID)
	assert.True(t, storeErr.DataAtRisk())
	assert.Equal(t, before, s.Notes())
}

func TestUpdateNote_EmptyFieldsIsNoop(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1))

	require.NoError(t, s.UpdateNote(context.Background(), "a", model.NoteFields{}))
	assert.Empty(t, m.updates)
}

func TestDeleteNote_ClearsSelection(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1), note("b", 2))
	require.NoError(t, s.SelectNote("a"))
	calls := countNotifications(s)

	require.NoError(t, s.DeleteNote(context.Background(), "a"))

	assert.Empty(t, s.SelectedID())
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, ids(s.Notes()))
	assert.Equal(t, 1, *calls)
}

func TestDeleteNote_OtherNoteKeepsSelection(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1), note("b", 2))
	require.NoError(t, s.SelectNote("a"))

	require.NoError(t, s.DeleteNote(context.Background(), "b"))

	assert.Equal(t, "a", s.SelectedID())
}

func TestDeleteNote_UnknownIDIsNoop(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1))
	calls := countNotifications(s)

	require.NoError(t, s.DeleteNote(context.Background(), "missing"))

	assert.Equal(t, []string{"a"}, ids(s.Notes()))
	assert.Zero(t, *calls)
}

func TestDeleteNote_PersistenceFailureKeepsNote(t *testing.T) {
	m := &mockBackend{removeErr: errors.New("offline")}
	s := newMockStore(t, m)
	m.push(note("a", 1))
	require.NoError(t, s.SelectNote("a"))

	err := s.DeleteNote(context.Background(), "a")

	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, []string{"a"}, ids(s.Notes()))
	assert.Equal(t, "a", s.SelectedID())
}

func TestSelectNote_NotFound(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1))
	require.NoError(t, s.SelectNote("a"))

	err := s.SelectNote("missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "a", s.SelectedID())
}

func TestClearSelection(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1))
	require.NoError(t, s.SelectNote("a"))
	calls := countNotifications(s)

	s.ClearSelection()
	s.ClearSelection()

	assert.Empty(t, s.SelectedID())
	assert.Equal(t, 1, *calls)
}

func TestSelectionSurvivesSnapshotWithoutNote(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	m.push(note("a", 1))
	require.NoError(t, s.SelectNote("a"))

	// Запоздалый снимок без заметки не сбрасывает выбор; следующий ее вернет
	m.push()
	_, ok := s.Selected()
	assert.False(t, ok)

	m.push(note("a", 1))
	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", selected.ID)
}

func TestStreamErrorReported(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)

	var got []error
	s.OnError(func(err error) { got = append(got, err) })

	m.fail(errors.New("stream reset"))

	require.Len(t, got, 1)
	assert.Equal(t, KindStream, KindOf(got[0]))
	assert.ErrorContains(t, got[0], "stream reset")
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })
	m.push(note("a", 1))
	unsubscribe()
	m.push(note("b", 1))

	assert.Equal(t, 1, calls)
}

func TestInitializeFailureIsConfigurationError(t *testing.T) {
	m := &mockBackend{subscribeErr: errors.New("sign in failed")}

	err := New(m).Initialize(context.Background())

	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindConfiguration, storeErr.Kind)
	assert.True(t, storeErr.DataAtRisk())
}

func TestClose(t *testing.T) {
	m := &mockBackend{}
	s := newMockStore(t, m)
	calls := countNotifications(s)

	require.NoError(t, s.Close())

	assert.True(t, m.closed)
	m.push(note("a", 1))
	assert.Zero(t, *calls)
}

func localConfig(t *testing.T) *config.ClientConfig {
	cfg := &config.ClientConfig{
		Backend: &config.ConfigBackend{Prefer: config.BackendLocal},
		Local:   &config.ConfigLocal{Path: filepath.Join(t.TempDir(), "notes-storage.json")},
	}
	cfg.SetDefaults()
	return cfg
}

func TestCreateEditReload_Local(t *testing.T) {
	cfg := localConfig(t)
	ctx := context.Background()

	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, backend.ModeLocal, s.Mode())
	assert.Empty(t, s.Notes())

	id, err := s.CreateNote(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateNote(ctx, id, model.ContentField("# Hi")))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	notes := reopened.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, id, notes[0].ID)
	assert.Equal(t, "新筆記", notes[0].Title)
	assert.Equal(t, "# Hi", notes[0].Content)
	assert.False(t, notes[0].UpdatedAt.Before(notes[0].CreatedAt))
}

func TestDeleteUnknown_Local(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, localConfig(t))
	require.NoError(t, err)
	defer s.Close()

	id, err := s.CreateNote(ctx)
	require.NoError(t, err)

	require.NoError(t, s.DeleteNote(ctx, "does-not-exist"))
	assert.Equal(t, []string{id}, ids(s.Notes()))
}

func TestUpdatedAtMonotonic_Local(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: base}
	s, err := Open(ctx, localConfig(t), WithClock(c.now))
	require.NoError(t, err)
	defer s.Close()

	id, err := s.CreateNote(ctx)
	require.NoError(t, err)

	// Часы ушли назад: updatedAt не должен уменьшиться
	c.advance(-time.Hour)
	require.NoError(t, s.UpdateNote(ctx, id, model.TitleField("x")))

	got, ok := s.Note(id)
	require.True(t, ok)
	assert.True(t, got.UpdatedAt.Equal(base))
}

func TestOpen_RemoteRequiredButInvalid(t *testing.T) {
	cfg := localConfig(t)
	cfg.Backend.Prefer = config.BackendRemote
	cfg.Remote.APIKey = config.PlaceholderAPIKey

	_, err := Open(context.Background(), cfg)

	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestOpen_AutoWithoutRemoteConfigIsLocal(t *testing.T) {
	cfg := localConfig(t)
	cfg.Backend.Prefer = config.BackendAuto

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, backend.ModeLocal, s.Mode())
}

func TestOpen_FallbackToLocalOnlyWhenConfigured(t *testing.T) {
	cfg := localConfig(t)
	cfg.Backend.Prefer = config.BackendAuto
	cfg.Remote.Addr = "127.0.0.1:1"
	cfg.Remote.APIKey = "key"
	cfg.Remote.DialTimeout = 2

	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))

	cfg.Backend.FallbackToLocal = true
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, backend.ModeLocal, s.Mode())
}
