package store

import (
	"errors"
	"fmt"
)

// Kind категория ошибки хранилища заметок
type Kind int

const (
	// KindConfiguration бэкенд не удалось инициализировать; сессия невозможна
	KindConfiguration Kind = iota + 1
	// KindNotFound заметки с таким id нет в текущем снимке; ничего не изменилось
	KindNotFound
	// KindPersistence бэкенд отклонил запись; снимок не тронут
	KindPersistence
	// KindStream подписка на изменения оборвалась
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindNotFound:
		return "not found"
	case KindPersistence:
		return "persistence"
	case KindStream:
		return "stream"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrNotFound заметка отсутствует в снимке
var ErrNotFound = errors.New("note not found")

// Error ошибка операции хранилища
type Error struct {
	Kind   Kind
	Op     string
	NoteID string
	Err    error
}

func (e *Error) Error() string {
	if e.NoteID != "" {
		return fmt.Sprintf("store: %s %s: %v", e.Op, e.NoteID, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DataAtRisk отличает "ничего не изменилось" (KindNotFound) от ошибок,
// при которых изменения пользователя могли не сохраниться
func (e *Error) DataAtRisk() bool {
	return e.Kind != KindNotFound
}

// KindOf возвращает категорию ошибки хранилища или 0 для чужих ошибок
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func notFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, NoteID: id, Err: ErrNotFound}
}
