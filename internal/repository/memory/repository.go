package memory

import (
	"context"
	"sync"

	"markdown-notes/internal/model"
	"markdown-notes/internal/repository"
)

var _ repository.DocumentRepository = (*repo)(nil)

// collection документы одной коллекции и порядок их первой вставки
type collection struct {
	docs  map[string]model.Document
	order []string
}

type repo struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewRepository создает новый экземпляр in-memory репозитория на основе map
func NewRepository() repository.DocumentRepository {
	return &repo{
		collections: make(map[string]*collection),
	}
}

// Set записывает документ (целиком или слиянием полей)
func (r *repo) Set(ctx context.Context, path string, doc model.Document, merge bool) (model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[path]
	if !ok {
		c = &collection{docs: make(map[string]model.Document)}
		r.collections[path] = c
	}

	existing, exists := c.docs[doc.ID]
	if !exists {
		c.order = append(c.order, doc.ID)
	}

	data := doc.Data
	if merge && exists {
		data = repository.Merge(existing.Data, doc.Data)
	}

	stored := model.Document{ID: doc.ID, Data: data}.Clone()
	c.docs[doc.ID] = stored

	return stored.Clone(), nil
}

// Update сливает поля в существующий документ
func (r *repo) Update(ctx context.Context, path string, doc model.Document) (model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[path]
	if !ok {
		return model.Document{}, repository.ErrDocumentNotFound
	}
	existing, exists := c.docs[doc.ID]
	if !exists {
		return model.Document{}, repository.ErrDocumentNotFound
	}

	stored := model.Document{ID: doc.ID, Data: repository.Merge(existing.Data, doc.Data)}.Clone()
	c.docs[doc.ID] = stored

	return stored.Clone(), nil
}

// Get возвращает документ по id
func (r *repo) Get(ctx context.Context, path, id string) (model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[path]
	if !ok {
		return model.Document{}, repository.ErrDocumentNotFound
	}
	doc, exists := c.docs[id]
	if !exists {
		return model.Document{}, repository.ErrDocumentNotFound
	}

	return doc.Clone(), nil
}

// List возвращает список документов коллекции в порядке вставки
func (r *repo) List(ctx context.Context, path string) ([]model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[path]
	if !ok {
		return []model.Document{}, nil
	}

	docs := make([]model.Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.docs[id].Clone())
	}

	return docs, nil
}

// Delete удаляет документ по id
func (r *repo) Delete(ctx context.Context, path, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[path]
	if !ok {
		return nil
	}
	if _, exists := c.docs[id]; !exists {
		return nil
	}

	delete(c.docs, id)
	for i, docID := range c.order {
		if docID == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	return nil
}

// Close ничего не делает для in-memory хранилища
func (r *repo) Close() error {
	return nil
}
