package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/converter"
	"markdown-notes/internal/kvstore"
	"markdown-notes/internal/model"
)

// NotesKey ключ хранилища со списком заметок
const NotesKey = "demo-notes"

// UserID неявный единственный локальный пользователь
const UserID = "demo-user"

var _ backend.Backend = (*Backend)(nil)

// Backend хранит все заметки одним JSON-списком под одним ключом.
// Каждая мутация читает весь список, применяет изменение, записывает его
// обратно и сразу перезагружает подписчика: push-уведомлений нет.
type Backend struct {
	kv  *kvstore.Store
	now func() time.Time

	// mu сериализует read-modify-write
	mu sync.Mutex

	subMu    sync.Mutex
	onChange backend.ChangeFunc
	subID    uint64
}

// Option настраивает локальный бэкенд
type Option func(*Backend)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// New создает локальный бэкенд поверх key-value хранилища
func New(kv *kvstore.Store, opts ...Option) *Backend {
	b := &Backend{
		kv:  kv,
		now: converter.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mode возвращает ModeLocal
func (b *Backend) Mode() backend.Mode {
	return backend.ModeLocal
}

// UserID возвращает неявного локального пользователя
func (b *Backend) UserID() string {
	return UserID
}

// Create добавляет заметку в конец списка
func (b *Backend) Create(ctx context.Context, note model.Note) error {
	err := b.mutate(func(records []converter.Record) []converter.Record {
		for i, rec := range records {
			if rec.ID == note.ID {
				records[i] = converter.ModelToRecord(note)
				return records
			}
		}
		return append(records, converter.ModelToRecord(note))
	})
	if err != nil {
		return err
	}

	return b.Reload()
}

// Update сливает поля в хранимую запись; отсутствующий id - no-op
func (b *Backend) Update(ctx context.Context, id string, fields model.NoteFields) (time.Time, error) {
	var stamped time.Time

	err := b.mutate(func(records []converter.Record) []converter.Record {
		for i, rec := range records {
			if rec.ID != id {
				continue
			}
			note := fields.Apply(converter.RecordToModel(rec))
			note.UpdatedAt = backend.Stamp(b.now(), note.UpdatedAt)
			stamped = note.UpdatedAt
			records[i] = converter.ModelToRecord(note)
			return records
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if stamped.IsZero() {
		return time.Time{}, backend.ErrNotFound
	}

	return stamped, b.Reload()
}

// Remove удаляет заметку без подтверждения, подтверждение - забота UI
func (b *Backend) Remove(ctx context.Context, id string) error {
	err := b.mutate(func(records []converter.Record) []converter.Record {
		kept := records[:0]
		removed := false
		for _, rec := range records {
			if rec.ID == id {
				removed = true
				continue
			}
			kept = append(kept, rec)
		}
		if !removed {
			return nil
		}
		return kept
	})
	if err != nil {
		return err
	}

	return b.Reload()
}

// Subscribe регистрирует получателя и выполняет начальную синхронную загрузку.
// Ошибок потока у локального бэкенда не бывает, onError не используется.
func (b *Backend) Subscribe(ctx context.Context, onChange backend.ChangeFunc, onError backend.ErrorFunc) (func(), error) {
	b.subMu.Lock()
	b.subID++
	id := b.subID
	b.onChange = onChange
	b.subMu.Unlock()

	if err := b.Reload(); err != nil {
		b.unsubscribe(id)
		return nil, err
	}

	return func() { b.unsubscribe(id) }, nil
}

// Reload перечитывает список из хранилища и отдает его подписчику (ручное обновление)
func (b *Backend) Reload() error {
	notes, err := b.List()
	if err != nil {
		return err
	}

	b.subMu.Lock()
	onChange := b.onChange
	b.subMu.Unlock()

	if onChange != nil {
		onChange(notes)
	}
	return nil
}

// List читает все заметки в порядке хранения
func (b *Backend) List() ([]model.Note, error) {
	records, err := b.load()
	if err != nil {
		return nil, err
	}
	return converter.RecordsToModels(records), nil
}

// Close снимает подписку
func (b *Backend) Close() error {
	b.subMu.Lock()
	b.onChange = nil
	b.subMu.Unlock()
	return nil
}

func (b *Backend) unsubscribe(id uint64) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if b.subID == id {
		b.onChange = nil
	}
}

// mutate выполняет read-modify-write; nil от apply означает "ничего не менять"
func (b *Backend) mutate(apply func([]converter.Record) []converter.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	records, err := b.load()
	if err != nil {
		return err
	}

	next := apply(records)
	if next == nil {
		return nil
	}

	return b.save(next)
}

func (b *Backend) load() ([]converter.Record, error) {
	raw, ok := b.kv.Get(NotesKey)
	if !ok || raw == "" {
		return []converter.Record{}, nil
	}

	var records []converter.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return records, nil
}

func (b *Backend) save(records []converter.Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := b.kv.Set(NotesKey, string(raw)); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}
