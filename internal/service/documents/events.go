package documents

import (
	"sync"

	"markdown-notes/internal/model"
)

// EventService управляет подписчиками на снимки коллекций.
// Снимок полный, поэтому новый снимок заменяет еще не прочитанный старый:
// медленный подписчик теряет промежуточные состояния, но не последнее.
type EventService struct {
	subscribers map[string]map[chan []model.Document]struct{}
	mu          sync.Mutex
}

// NewEventService создает новый экземпляр EventService
func NewEventService() *EventService {
	return &EventService{
		subscribers: make(map[string]map[chan []model.Document]struct{}),
	}
}

// Subscribe добавляет подписчика на коллекцию path и возвращает канал снимков
func (s *EventService) Subscribe(path string) chan []model.Document {
	ch := make(chan []model.Document, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	subs, ok := s.subscribers[path]
	if !ok {
		subs = make(map[chan []model.Document]struct{})
		s.subscribers[path] = subs
	}
	subs[ch] = struct{}{}
	return ch
}

// Unsubscribe удаляет подписчика и закрывает его канал
func (s *EventService) Unsubscribe(path string, ch chan []model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs, ok := s.subscribers[path]
	if !ok {
		return
	}
	if _, ok := subs[ch]; ok {
		close(ch)
		delete(subs, ch)
	}
	if len(subs) == 0 {
		delete(s.subscribers, path)
	}
}

// Publish отправляет снимок всем подписчикам коллекции path
func (s *EventService) Publish(path string, snapshot []model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers[path] {
		deliver(ch, snapshot)
	}
}

// Subscribers возвращает число подписчиков коллекции
func (s *EventService) Subscribers(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[path])
}

// deliver кладет снимок в канал, вытесняя непрочитанный.
// Вызывается под s.mu, поэтому других писателей у канала нет.
func deliver(ch chan []model.Document, snapshot []model.Document) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- snapshot
}
