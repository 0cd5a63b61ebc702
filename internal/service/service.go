package service

import (
	"context"

	"markdown-notes/internal/model"
)

// DocumentService интерфейс бизнес-логики notedb.
// uid - личность вызывающего; доступ разрешен только к коллекциям под users/{uid}.
type DocumentService interface {
	// Set записывает документ коллекции (целиком или слиянием полей)
	Set(ctx context.Context, uid, path string, doc model.Document, merge bool) error

	// Update сливает поля в существующий документ; отсутствующий документ
	// дает repository.ErrDocumentNotFound и не создается
	Update(ctx context.Context, uid, path string, doc model.Document) error

	// Delete удаляет документ; удаление отсутствующего документа не ошибка
	Delete(ctx context.Context, uid, path, id string) error

	// List возвращает текущий снимок коллекции
	List(ctx context.Context, uid, path string) ([]model.Document, error)

	// Watch подписывает на полные снимки коллекции. Первым приходит текущий снимок.
	// Канал закрывается вызовом cancel.
	Watch(ctx context.Context, uid, path string) (<-chan []model.Document, func(), error)
}
