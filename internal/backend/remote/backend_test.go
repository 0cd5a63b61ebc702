package remote

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpcapi "markdown-notes/internal/api/grpc"
	"markdown-notes/internal/api/grpc/interceptors"
	"markdown-notes/internal/auth"
	"markdown-notes/internal/backend"
	"markdown-notes/internal/config"
	"markdown-notes/internal/model"
	"markdown-notes/internal/repository/memory"
	"markdown-notes/internal/service/documents"
)

const (
	bufSize    = 1024 * 1024
	testAPIKey = "test-key"
)

type testServer struct {
	listener  *bufconn.Listener
	issuer    *auth.Issuer
	cancelCtx context.CancelFunc
}

func startServer(t *testing.T) *testServer {
	t.Helper()

	issuer, err := auth.NewIssuer("secret", "test", time.Hour)
	require.NoError(t, err)

	serverCtx, cancel := context.WithCancel(context.Background())
	service := documents.NewDocumentService(memory.NewRepository(), documents.NewEventService())
	handler := grpcapi.NewHandler(service, issuer, serverCtx)
	srv := grpcapi.NewServer(handler, interceptors.NewAuth(issuer, []string{testAPIKey}), false)

	lis := bufconn.Listen(bufSize)
	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})

	return &testServer{listener: lis, issuer: issuer, cancelCtx: cancel}
}

func (s *testServer) dial(t *testing.T, cfg *config.ConfigRemote, opts ...Option) (*Backend, error) {
	t.Helper()
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return s.listener.DialContext(ctx)
	}
	opts = append(opts, WithDialOptions(grpc.WithContextDialer(dialer)))
	return Dial(context.Background(), cfg, opts...)
}

func remoteConfig() *config.ConfigRemote {
	return &config.ConfigRemote{
		Addr:        "passthrough:///bufnet",
		APIKey:      testAPIKey,
		AppID:       "test-app",
		DialTimeout: 5,
	}
}

// recorder собирает снимки, приходящие из подписки
type recorder struct {
	mu        sync.Mutex
	snapshots [][]model.Note
	errs      []error
	changed   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{changed: make(chan struct{}, 64)}
}

func (r *recorder) onChange(notes []model.Note) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, notes)
	r.mu.Unlock()
	r.changed <- struct{}{}
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.changed <- struct{}{}
}

func (r *recorder) last() []model.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

// waitFor ждет, пока последний снимок не удовлетворит условию
func (r *recorder) waitFor(t *testing.T, cond func([]model.Note) bool) []model.Note {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		r.mu.Lock()
		if n := len(r.snapshots); n > 0 && cond(r.snapshots[n-1]) {
			notes := r.snapshots[n-1]
			r.mu.Unlock()
			return notes
		}
		r.mu.Unlock()

		select {
		case <-r.changed:
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func newNote(id, title string, at time.Time) model.Note {
	return model.Note{ID: id, Title: title, CreatedAt: at, UpdatedAt: at}
}

func TestDial_SignsInAnonymously(t *testing.T) {
	srv := startServer(t)

	b, err := srv.dial(t, remoteConfig())
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, backend.ModeRemote, b.Mode())
	assert.NotEmpty(t, b.UserID())
	assert.Equal(t, "artifacts/test-app/users/"+b.UserID()+"/notes", b.Path())
}

func TestDial_WithCustomToken(t *testing.T) {
	srv := startServer(t)
	token, err := srv.issuer.MintCustomToken("fixed-user", time.Hour)
	require.NoError(t, err)

	cfg := remoteConfig()
	cfg.CustomToken = token
	b, err := srv.dial(t, cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "fixed-user", b.UserID())
}

func TestDial_Failures(t *testing.T) {
	srv := startServer(t)

	t.Run("placeholder config", func(t *testing.T) {
		cfg := remoteConfig()
		cfg.APIKey = config.PlaceholderAPIKey
		_, err := srv.dial(t, cfg)
		assert.Error(t, err)
	})

	t.Run("wrong api key", func(t *testing.T) {
		cfg := remoteConfig()
		cfg.APIKey = "nope"
		_, err := srv.dial(t, cfg)
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("bad custom token", func(t *testing.T) {
		cfg := remoteConfig()
		cfg.CustomToken = "garbage"
		_, err := srv.dial(t, cfg)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func TestSubscribe_DeliversSnapshots(t *testing.T) {
	srv := startServer(t)
	b, err := srv.dial(t, remoteConfig())
	require.NoError(t, err)
	defer b.Close()

	rec := newRecorder()
	unsubscribe, err := b.Subscribe(context.Background(), rec.onChange, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	// Начальный снимок доставлен синхронно
	assert.Empty(t, rec.last())

	ctx := context.Background()
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, b.Create(ctx, newNote("n1", "新筆記", at)))

	notes := rec.waitFor(t, func(n []model.Note) bool { return len(n) == 1 })
	assert.Equal(t, "新筆記", notes[0].Title)
	assert.True(t, notes[0].CreatedAt.Equal(at))

	require.NoError(t, b.Remove(ctx, "n1"))
	rec.waitFor(t, func(n []model.Note) bool { return len(n) == 0 })
}

func TestUpdate_MergesOnlySuppliedFields(t *testing.T) {
	srv := startServer(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b, err := srv.dial(t, remoteConfig(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	created := now.Add(-time.Hour)
	note := newNote("n1", "Title", created)
	note.Content = "body"
	require.NoError(t, b.Create(ctx, note))

	content := "# Hi"
	stamped, err := b.Update(ctx, "n1", model.NoteFields{Content: &content})
	require.NoError(t, err)
	assert.True(t, stamped.Equal(now))

	notes, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Title", notes[0].Title)
	assert.Equal(t, "# Hi", notes[0].Content)
	assert.True(t, notes[0].CreatedAt.Equal(created))
	assert.True(t, notes[0].UpdatedAt.Equal(now))
}

func TestUpdate_StampIsMonotonic(t *testing.T) {
	srv := startServer(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b, err := srv.dial(t, remoteConfig(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	future := now.Add(time.Hour)
	require.NoError(t, b.Create(ctx, newNote("n1", "T", future)))

	title := "T2"
	stamped, err := b.Update(ctx, "n1", model.NoteFields{Title: &title})
	require.NoError(t, err)
	assert.True(t, stamped.Equal(future), "updatedAt must not go backwards")
}

func TestUpdate_ServerTimestamps(t *testing.T) {
	srv := startServer(t)
	cfg := remoteConfig()
	cfg.ServerTimestamps = true
	b, err := srv.dial(t, cfg)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	at := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.Create(ctx, newNote("n1", "T", at)))

	title := "T2"
	_, err = b.Update(ctx, "n1", model.NoteFields{Title: &title})
	require.NoError(t, err)

	notes, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].UpdatedAt.After(at), "notedb resolves the sentinel to its own clock")
}

func TestUpdate_AfterRemoveDoesNotRecreate(t *testing.T) {
	srv := startServer(t)
	b, err := srv.dial(t, remoteConfig())
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Create(ctx, newNote("n1", "T", time.Now().UTC())))
	require.NoError(t, b.Remove(ctx, "n1"))

	content := "typed before delete"
	stamped, err := b.Update(ctx, "n1", model.NoteFields{Content: &content})

	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.True(t, stamped.IsZero())

	notes, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestRemove_UnknownIsNoop(t *testing.T) {
	srv := startServer(t)
	b, err := srv.dial(t, remoteConfig())
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, b.Remove(context.Background(), "missing"))
}

func TestSubscribe_ReplacesPreviousSubscription(t *testing.T) {
	srv := startServer(t)
	b, err := srv.dial(t, remoteConfig())
	require.NoError(t, err)
	defer b.Close()

	first := newRecorder()
	_, err = b.Subscribe(context.Background(), first.onChange, first.onError)
	require.NoError(t, err)

	second := newRecorder()
	unsubscribe, err := b.Subscribe(context.Background(), second.onChange, second.onError)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, b.Create(context.Background(), newNote("n1", "T", time.Now().UTC())))
	second.waitFor(t, func(n []model.Note) bool { return len(n) == 1 })

	first.mu.Lock()
	defer first.mu.Unlock()
	assert.Len(t, first.snapshots, 1, "replaced subscription receives nothing after the initial snapshot")
	assert.Empty(t, first.errs, "own cancellation is not reported as an error")
}

func TestSubscribe_StreamFailureReportedOnce(t *testing.T) {
	srv := startServer(t)
	b, err := srv.dial(t, remoteConfig())
	require.NoError(t, err)
	defer b.Close()

	rec := newRecorder()
	_, err = b.Subscribe(context.Background(), rec.onChange, rec.onError)
	require.NoError(t, err)

	// Отмена контекста сервера завершает стримы с Unavailable
	srv.cancelCtx()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.errs) == 1
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.errs, 1)
}
