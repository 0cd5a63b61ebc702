package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/config"
	"markdown-notes/internal/converter"
	"markdown-notes/internal/logger"
	"markdown-notes/internal/model"
	notedbv1 "markdown-notes/pkg/notedbv1"
)

var _ backend.Backend = (*Backend)(nil)

// Backend хранит заметки в коллекции notedb artifacts/{app}/users/{uid}/notes
// и получает полные снимки коллекции через WatchCollection.
type Backend struct {
	conn *grpc.ClientConn
	docs notedbv1.DocumentServiceClient

	apiKey           string
	uid              string
	idToken          string
	path             string
	serverTimestamps bool
	now              func() time.Time

	// seenMu защищает последние известные updatedAt заметок
	seenMu sync.Mutex
	seen   map[string]time.Time

	subMu       sync.Mutex
	subID       uint64
	cancelWatch context.CancelFunc
}

// Option настраивает удаленный бэкенд
type Option func(*options)

type options struct {
	dialOpts []grpc.DialOption
	now      func() time.Time
}

// WithDialOptions добавляет опции соединения (например, bufconn в тестах)
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) {
		o.dialOpts = append(o.dialOpts, opts...)
	}
}

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Dial устанавливает соединение с notedb и выполняет вход.
// Ошибка входа фатальна: повторных попыток нет.
func Dial(ctx context.Context, cfg *config.ConfigRemote, opts ...Option) (*Backend, error) {
	if !cfg.Valid() {
		return nil, errors.New("remote config is missing or incomplete")
	}

	o := options{now: converter.Now}
	for _, opt := range opts {
		opt(&o)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, o.dialOpts...)

	conn, err := grpc.NewClient(cfg.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	b := &Backend{
		conn:             conn,
		docs:             notedbv1.NewDocumentServiceClient(conn),
		apiKey:           cfg.APIKey,
		serverTimestamps: cfg.ServerTimestamps,
		now:              o.now,
		seen:             make(map[string]time.Time),
	}

	if err := b.signIn(ctx, notedbv1.NewAuthServiceClient(conn), cfg.CustomToken); err != nil {
		conn.Close()
		return nil, err
	}
	b.path = notedbv1.NotesPath(cfg.AppID, b.uid)

	logger.Debugf("remote backend signed in uid=%s path=%s", b.uid, b.path)
	return b, nil
}

func (b *Backend) signIn(ctx context.Context, client notedbv1.AuthServiceClient, customToken string) error {
	ctx = metadata.AppendToOutgoingContext(ctx, notedbv1.APIKeyHeader, b.apiKey)

	if customToken != "" {
		msg, err := client.SignInWithCustomToken(ctx, notedbv1.CustomTokenRequest(customToken))
		if err != nil {
			return fmt.Errorf("sign in with custom token: %w", err)
		}
		b.uid, b.idToken = notedbv1.ParseIdentity(msg)
	} else {
		msg, err := client.SignInAnonymously(ctx, &emptypb.Empty{})
		if err != nil {
			return fmt.Errorf("sign in anonymously: %w", err)
		}
		b.uid, b.idToken = notedbv1.ParseIdentity(msg)
	}

	if b.uid == "" || b.idToken == "" {
		return errors.New("sign in returned no identity")
	}
	return nil
}

// Mode возвращает ModeRemote
func (b *Backend) Mode() backend.Mode {
	return backend.ModeRemote
}

// UserID возвращает uid, выданный при входе
func (b *Backend) UserID() string {
	return b.uid
}

// Path возвращает путь коллекции заметок пользователя
func (b *Backend) Path() string {
	return b.path
}

// Create записывает документ заметки целиком
func (b *Backend) Create(ctx context.Context, note model.Note) error {
	req, err := notedbv1.SetRequest(b.path, note.ID, converter.ModelToFields(note), false)
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}
	if _, err := b.docs.SetDocument(b.outgoing(ctx), req); err != nil {
		return fmt.Errorf("set document: %w", err)
	}

	b.remember(note.ID, note.UpdatedAt)
	return nil
}

// Update сливает переданные поля в существующий документ и проставляет updatedAt.
// Документ, удаленный до записи, не воскрешается: notedb отвечает NotFound.
// При server_timestamps время проставляет notedb, а возвращается локальная
// оценка; точное значение придет со следующим снимком.
func (b *Backend) Update(ctx context.Context, id string, fields model.NoteFields) (time.Time, error) {
	stamped := backend.Stamp(b.now(), b.lastSeen(id))

	var updatedAt any = converter.FormatTime(stamped)
	if b.serverTimestamps {
		updatedAt = converter.ServerTimestamp()
	}

	req, err := notedbv1.UpdateRequest(b.path, id, converter.PatchToFields(fields, updatedAt))
	if err != nil {
		return time.Time{}, fmt.Errorf("encode fields: %w", err)
	}
	if _, err := b.docs.SetDocument(b.outgoing(ctx), req); err != nil {
		if status.Code(err) == codes.NotFound {
			return time.Time{}, fmt.Errorf("update document %s: %w", id, backend.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("update document: %w", err)
	}

	b.remember(id, stamped)
	return stamped, nil
}

// Remove удаляет документ; отсутствующий документ не ошибка
func (b *Backend) Remove(ctx context.Context, id string) error {
	if _, err := b.docs.DeleteDocument(b.outgoing(ctx), notedbv1.DeleteRequest(b.path, id)); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// List читает текущий снимок коллекции без подписки
func (b *Backend) List(ctx context.Context) ([]model.Note, error) {
	msg, err := b.docs.ListDocuments(b.outgoing(ctx), notedbv1.CollectionRequest(b.path))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	notes := converter.DocumentsToModels(converter.ProtoToDocuments(msg))
	b.rememberAll(notes)
	return notes, nil
}

// Subscribe открывает WatchCollection. Первый снимок доставляется синхронно,
// дальнейшие - из отдельной горутины. Предыдущая подписка снимается.
// Обрыв потока сообщается через onError один раз; повторной подписки нет.
func (b *Backend) Subscribe(ctx context.Context, onChange backend.ChangeFunc, onError backend.ErrorFunc) (func(), error) {
	watchCtx, cancel := context.WithCancel(context.Background())

	b.subMu.Lock()
	if b.cancelWatch != nil {
		b.cancelWatch()
	}
	b.subID++
	id := b.subID
	b.cancelWatch = cancel
	b.subMu.Unlock()

	unsubscribe := func() { b.unsubscribe(id) }

	// До первого снимка подписка отменяется вместе с ctx вызывающего
	stop := context.AfterFunc(ctx, cancel)
	stream, err := b.docs.WatchCollection(b.outgoing(watchCtx), notedbv1.CollectionRequest(b.path))
	if err != nil {
		stop()
		unsubscribe()
		return nil, fmt.Errorf("watch collection: %w", err)
	}
	first, err := stream.Recv()
	stop()
	if err != nil {
		unsubscribe()
		return nil, fmt.Errorf("watch collection: %w", err)
	}

	b.deliver(id, first, onChange)

	go func() {
		for {
			msg, err := stream.Recv()
			if err != nil {
				if watchCtx.Err() != nil {
					// Собственная отмена - не ошибка
					return
				}
				logger.Debugf("remote watch failed: %v", err)
				if onError != nil && b.active(id) {
					onError(fmt.Errorf("watch collection: %w", err))
				}
				return
			}
			b.deliver(id, msg, onChange)
		}
	}()

	return unsubscribe, nil
}

// Close снимает подписку и закрывает соединение
func (b *Backend) Close() error {
	b.subMu.Lock()
	if b.cancelWatch != nil {
		b.cancelWatch()
		b.cancelWatch = nil
	}
	b.subMu.Unlock()

	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// deliver отдает снимок получателю, если подписка еще актуальна
func (b *Backend) deliver(id uint64, msg *structpb.Struct, onChange backend.ChangeFunc) {
	notes := converter.DocumentsToModels(converter.ProtoToDocuments(msg))
	b.rememberAll(notes)

	if onChange != nil && b.active(id) {
		onChange(notes)
	}
}

func (b *Backend) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		notedbv1.AuthorizationHeader, "Bearer "+b.idToken,
		notedbv1.APIKeyHeader, b.apiKey,
	)
}

func (b *Backend) active(id uint64) bool {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return b.subID == id && b.cancelWatch != nil
}

func (b *Backend) unsubscribe(id uint64) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if b.subID == id && b.cancelWatch != nil {
		b.cancelWatch()
		b.cancelWatch = nil
	}
}

func (b *Backend) lastSeen(id string) time.Time {
	b.seenMu.Lock()
	defer b.seenMu.Unlock()
	return b.seen[id]
}

func (b *Backend) remember(id string, t time.Time) {
	b.seenMu.Lock()
	defer b.seenMu.Unlock()
	if t.After(b.seen[id]) {
		b.seen[id] = t
	}
}

func (b *Backend) rememberAll(notes []model.Note) {
	for _, n := range notes {
		b.remember(n.ID, n.UpdatedAt)
	}
}
