package repository

import (
	"context"
	"errors"

	"markdown-notes/internal/model"
)

// ErrDocumentNotFound возвращается, когда документ не найден
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository интерфейс для работы с документами коллекций в хранилище notedb
type DocumentRepository interface {
	// Set записывает документ. При merge=true поля сливаются с существующими,
	// иначе документ заменяется целиком. Возвращает итоговый документ.
	Set(ctx context.Context, path string, doc model.Document, merge bool) (model.Document, error)

	// Update сливает поля в существующий документ. Отсутствующий документ
	// не создается: возвращается ErrDocumentNotFound.
	Update(ctx context.Context, path string, doc model.Document) (model.Document, error)

	// Get возвращает документ по пути коллекции и id
	Get(ctx context.Context, path, id string) (model.Document, error)

	// List возвращает документы коллекции в порядке первой вставки
	List(ctx context.Context, path string) ([]model.Document, error)

	// Delete удаляет документ; отсутствие документа не ошибка
	Delete(ctx context.Context, path, id string) error

	// Close освобождает ресурсы хранилища
	Close() error
}

// Merge сливает поля patch в base, не трогая остальные
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
