package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"markdown-notes/internal/editor"
)

// eventQueue доставляет события слушателей в Update без блокировки.
// Изменения снимка и статуса схлопываются в флаги, уведомления копятся
// в порядке поступления и не теряются.
type eventQueue struct {
	mu      sync.Mutex
	notes   bool
	status  bool
	notices []editor.Notice

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (q *eventQueue) notesChanged() {
	q.mu.Lock()
	q.notes = true
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) statusChanged() {
	q.mu.Lock()
	q.status = true
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) notice(n editor.Notice) {
	q.mu.Lock()
	q.notices = append(q.notices, n)
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next ждет следующее событие; после close возвращает nil
func (q *eventQueue) next() tea.Msg {
	for {
		select {
		case <-q.done:
			return nil
		case <-q.wake:
		}
		if msg := q.pop(); msg != nil {
			return msg
		}
	}
}

// pop забирает одно событие: сначала изменения, затем уведомления
func (q *eventQueue) pop() tea.Msg {
	q.mu.Lock()
	defer q.mu.Unlock()

	var msg tea.Msg
	switch {
	case q.notes:
		q.notes = false
		msg = notesChangedMsg{}
	case q.status:
		q.status = false
		msg = statusChangedMsg{}
	case len(q.notices) > 0:
		msg = noticeMsg(q.notices[0])
		q.notices = q.notices[1:]
	}

	if q.notes || q.status || len(q.notices) > 0 {
		q.signal()
	}
	return msg
}

func (q *eventQueue) close() {
	q.once.Do(func() { close(q.done) })
}

// waitForEvent ждет следующее событие из очереди
func waitForEvent(q *eventQueue) tea.Cmd {
	return func() tea.Msg {
		return q.next()
	}
}
