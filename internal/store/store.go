// Package store держит авторитетный снимок заметок и выбранную заметку
// поверх единственного активного бэкенда.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/backend/remote"
	"markdown-notes/internal/converter"
	"markdown-notes/internal/kvstore"
	"markdown-notes/internal/logger"
	"markdown-notes/internal/model"
)

// Listener вызывается после каждого изменения снимка или выбора
type Listener func()

// ErrorHandler получает асинхронные ошибки (KindStream)
type ErrorHandler func(err error)

// Store сессия работы с заметками: снимок, выбор, бэкенд и подписчики.
// Безопасен для конкурентного использования. Вызовы бэкенда и подписчиков
// выполняются без удержания блокировки.
type Store struct {
	backend backend.Backend
	now     func() time.Time
	newID   func() string

	mu       sync.Mutex
	notes    []model.Note
	selected string

	listenersMu   sync.Mutex
	nextListener  uint64
	listeners     map[uint64]Listener
	errorHandlers map[uint64]ErrorHandler

	unsubscribe func()
}

// New создает хранилище поверх готового бэкенда. До Initialize снимок пуст.
func New(b backend.Backend, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		backend:       b,
		now:           o.now,
		newID:         o.newID,
		notes:         []model.Note{},
		listeners:     make(map[uint64]Listener),
		errorHandlers: make(map[uint64]ErrorHandler),
	}
}

// Initialize подписывается на бэкенд. Локальный бэкенд загружает заметки
// синхронно, удаленный доставляет первый снимок до возврата.
func (s *Store) Initialize(ctx context.Context) error {
	unsubscribe, err := s.backend.Subscribe(ctx, s.replace, s.streamFailed)
	if err != nil {
		return &Error{Kind: KindConfiguration, Op: "initialize", Err: err}
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	logger.Debugf("store initialized mode=%s user=%s", s.backend.Mode(), s.backend.UserID())
	return nil
}

// CreateNote создает заметку "新筆記" с пустым содержимым и выбирает ее
func (s *Store) CreateNote(ctx context.Context) (string, error) {
	now := s.now()
	note := model.Note{
		ID:        s.newID(),
		Title:     model.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.backend.Create(ctx, note); err != nil {
		return "", &Error{Kind: KindPersistence, Op: "create", NoteID: note.ID, Err: err}
	}

	s.mu.Lock()
	changed := s.upsertLocked(note)
	if s.selected != note.ID {
		s.selected = note.ID
		changed = true
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return note.ID, nil
}

// UpdateNote записывает только переданные поля. Заметка должна быть в снимке
// и в бэкенде: запись, опоздавшая к удалению, ничего не меняет.
func (s *Store) UpdateNote(ctx context.Context, id string, fields model.NoteFields) error {
	if _, ok := s.find(id); !ok {
		return notFound("update", id)
	}
	if fields.IsEmpty() {
		return nil
	}

	stamped, err := s.backend.Update(ctx, id, fields)
	if errors.Is(err, backend.ErrNotFound) {
		return notFound("update", id)
	}
	if err != nil {
		return &Error{Kind: KindPersistence, Op: "update", NoteID: id, Err: err}
	}

	s.mu.Lock()
	changed := false
	if i := s.indexLocked(id); i >= 0 {
		next := fields.Apply(s.notes[i])
		if !stamped.IsZero() {
			next.UpdatedAt = backend.Stamp(stamped, s.notes[i].UpdatedAt)
		}
		changed = s.upsertLocked(next)
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// DeleteNote удаляет заметку; неизвестный id - успешный no-op.
// Если удалена выбранная заметка, выбор сбрасывается.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if err := s.backend.Remove(ctx, id); err != nil {
		return &Error{Kind: KindPersistence, Op: "delete", NoteID: id, Err: err}
	}

	s.mu.Lock()
	changed := false
	if i := s.indexLocked(id); i >= 0 {
		s.notes = slices.Delete(s.notes, i, i+1)
		changed = true
	}
	if s.selected == id {
		s.selected = ""
		changed = true
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// SelectNote делает заметку текущей
func (s *Store) SelectNote(id string) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return notFound("select", id)
	}
	changed := s.selected != id
	s.selected = id
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// ClearSelection сбрасывает выбор (возврат к списку)
func (s *Store) ClearSelection() {
	s.mu.Lock()
	changed := s.selected != ""
	s.selected = ""
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Subscribe регистрирует слушателя изменений
func (s *Store) Subscribe(listener Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.nextListener++
	id := s.nextListener
	s.listeners[id] = listener

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// OnError регистрирует обработчик асинхронных ошибок
func (s *Store) OnError(handler ErrorHandler) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.nextListener++
	id := s.nextListener
	s.errorHandlers[id] = handler

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.errorHandlers, id)
	}
}

// Notes возвращает копию снимка, отсортированную по updatedAt по убыванию
func (s *Store) Notes() []model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

// Note возвращает заметку из снимка
func (s *Store) Note(id string) (model.Note, bool) {
	return s.find(id)
}

// Selected возвращает выбранную заметку, если она есть в снимке
func (s *Store) Selected() (model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return model.Note{}, false
	}
	if i := s.indexLocked(s.selected); i >= 0 {
		return s.notes[i], true
	}
	return model.Note{}, false
}

// SelectedID возвращает id выбранной заметки или ""
func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Mode возвращает вид активного бэкенда
func (s *Store) Mode() backend.Mode {
	return s.backend.Mode()
}

// UserID возвращает пользователя активного бэкенда
func (s *Store) UserID() string {
	return s.backend.UserID()
}

// Close снимает подписку, удаляет слушателей и закрывает бэкенд
func (s *Store) Close() error {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	s.listenersMu.Lock()
	clear(s.listeners)
	clear(s.errorHandlers)
	s.listenersMu.Unlock()

	return s.backend.Close()
}

// replace заменяет снимок полным набором заметок от бэкенда
func (s *Store) replace(notes []model.Note) {
	next := slices.Clone(notes)
	sortNotes(next)

	s.mu.Lock()
	changed := !slices.EqualFunc(s.notes, next, model.Note.Equal)
	if changed {
		s.notes = next
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Store) streamFailed(err error) {
	logger.Debugf("store stream failed: %v", err)
	storeErr := &Error{Kind: KindStream, Op: "subscribe", Err: err}

	s.listenersMu.Lock()
	handlers := make([]ErrorHandler, 0, len(s.errorHandlers))
	for _, h := range s.errorHandlers {
		handlers = append(handlers, h)
	}
	s.listenersMu.Unlock()

	for _, h := range handlers {
		h(storeErr)
	}
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l()
	}
}

func (s *Store) find(id string) (model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.notes[i], true
	}
	return model.Note{}, false
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.notes, func(n model.Note) bool { return n.ID == id })
}

// upsertLocked применяет подтвержденную запись к снимку
func (s *Store) upsertLocked(note model.Note) bool {
	if i := s.indexLocked(note.ID); i >= 0 {
		if s.notes[i].Equal(note) {
			return false
		}
		s.notes[i] = note
	} else {
		s.notes = append(s.notes, note)
	}
	sortNotes(s.notes)
	return true
}

// sortNotes сортирует по updatedAt по убыванию; равные сохраняют порядок
func sortNotes(notes []model.Note) {
	slices.SortStableFunc(notes, func(a, b model.Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

// Option настраивает хранилище
type Option func(*options)

type options struct {
	now    func() time.Time
	newID  func() string
	kv     *kvstore.Store
	remote []remote.Option
}

func defaultOptions() options {
	return options{
		now:   converter.Now,
		newID: func() string { return ulid.Make().String() },
	}
}

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator подменяет генератор id заметок
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		o.newID = newID
	}
}
