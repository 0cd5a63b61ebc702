package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"markdown-notes/internal/converter"
	"markdown-notes/internal/model"
	"markdown-notes/internal/repository"
	svc "markdown-notes/internal/service"
	notedbv1 "markdown-notes/pkg/notedbv1"
)

// ErrPermissionDenied коллекция не принадлежит вызывающему
var ErrPermissionDenied = errors.New("permission denied")

var _ svc.DocumentService = (*service)(nil)

type service struct {
	repo   repository.DocumentRepository
	events *EventService
	now    func() time.Time

	// publishMu упорядочивает чтение снимка и его рассылку,
	// чтобы последним подписчик всегда получал самый свежий снимок
	publishMu sync.Mutex
}

// NewDocumentService создает новый экземпляр сервиса документов
func NewDocumentService(repo repository.DocumentRepository, events *EventService) svc.DocumentService {
	return &service{
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

// Set записывает документ и рассылает новый снимок коллекции
func (s *service) Set(ctx context.Context, uid, path string, doc model.Document, merge bool) error {
	if err := authorize(uid, path); err != nil {
		return err
	}
	if err := validateID(doc.ID); err != nil {
		return err
	}

	doc = s.resolveSentinels(doc)

	if _, err := s.repo.Set(ctx, path, doc, merge); err != nil {
		return err
	}

	s.publish(ctx, path)
	return nil
}

// Update сливает поля в существующий документ и рассылает новый снимок
func (s *service) Update(ctx context.Context, uid, path string, doc model.Document) error {
	if err := authorize(uid, path); err != nil {
		return err
	}
	if err := validateID(doc.ID); err != nil {
		return err
	}

	if _, err := s.repo.Update(ctx, path, s.resolveSentinels(doc)); err != nil {
		return err
	}

	s.publish(ctx, path)
	return nil
}

// Delete удаляет документ и рассылает новый снимок коллекции
func (s *service) Delete(ctx context.Context, uid, path, id string) error {
	if err := authorize(uid, path); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("id cannot be empty")
	}

	if err := s.repo.Delete(ctx, path, id); err != nil {
		return err
	}

	s.publish(ctx, path)
	return nil
}

// List возвращает снимок коллекции
func (s *service) List(ctx context.Context, uid, path string) ([]model.Document, error) {
	if err := authorize(uid, path); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, path)
}

// Watch подписывает на коллекцию; первый снимок - текущее состояние
func (s *service) Watch(ctx context.Context, uid, path string) (<-chan []model.Document, func(), error) {
	if err := authorize(uid, path); err != nil {
		return nil, nil, err
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	ch := s.events.Subscribe(path)

	snapshot, err := s.repo.List(ctx, path)
	if err != nil {
		s.events.Unsubscribe(path, ch)
		return nil, nil, err
	}
	ch <- snapshot

	cancel := func() { s.events.Unsubscribe(path, ch) }
	return ch, cancel, nil
}

func (s *service) publish(ctx context.Context, path string) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if s.events.Subscribers(path) == 0 {
		return
	}
	snapshot, err := s.repo.List(ctx, path)
	if err != nil {
		return
	}
	s.events.Publish(path, snapshot)
}

// resolveSentinels заменяет маркеры ServerTimestamp временем сервера
func (s *service) resolveSentinels(doc model.Document) model.Document {
	out := doc.Clone()
	for k, v := range out.Data {
		if converter.IsServerTimestamp(v) {
			out.Data[k] = converter.FormatTime(s.now())
		}
	}
	return out
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id cannot be empty")
	}
	if strings.Contains(id, "/") {
		return errors.New("id is invalid: must not contain '/'")
	}
	return nil
}

func authorize(uid, path string) error {
	owner, err := notedbv1.OwnerOf(path)
	if err != nil {
		return err
	}
	if uid == "" || owner != uid {
		return fmt.Errorf("%w: %s cannot access %s", ErrPermissionDenied, uid, path)
	}
	return nil
}
