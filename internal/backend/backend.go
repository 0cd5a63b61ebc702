package backend

import (
	"context"
	"errors"
	"time"

	"markdown-notes/internal/model"
)

// ErrNotFound заметки нет в бэкенде на момент записи
var ErrNotFound = errors.New("note does not exist")

// Mode вид активного бэкенда
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ChangeFunc получает полный текущий набор заметок (не дифф)
type ChangeFunc func(notes []model.Note)

// ErrorFunc получает ошибку потока изменений
type ErrorFunc func(err error)

// Backend единый контракт хранения заметок, за которым скрыт конкретный бэкенд
type Backend interface {
	// Mode возвращает вид бэкенда
	Mode() Mode

	// UserID возвращает идентификатор пользователя, в чьей области лежат заметки
	UserID() string

	// Create записывает заметку целиком по ее id
	Create(ctx context.Context, note model.Note) error

	// Update сливает переданные поля в заметку и возвращает записанный updatedAt.
	// Проверка существования и запись атомарны: отсутствующая заметка не
	// создается заново, а возвращается ErrNotFound.
	Update(ctx context.Context, id string, fields model.NoteFields) (time.Time, error)

	// Remove удаляет заметку; удаление отсутствующей заметки не ошибка
	Remove(ctx context.Context, id string) error

	// Subscribe устанавливает единственную подписку на полный набор заметок.
	// Предыдущая подписка снимается. Возвращает функцию отписки.
	Subscribe(ctx context.Context, onChange ChangeFunc, onError ErrorFunc) (func(), error)

	// Close освобождает ресурсы бэкенда
	Close() error
}

// Stamp возвращает время записи, не меньшее предыдущего updatedAt заметки
func Stamp(now, prev time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
