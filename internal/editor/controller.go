// Package editor содержит логику интерфейса без привязки к отрисовке:
// намерения пользователя, отложенное автосохранение, строку статуса и уведомления.
package editor

import (
	"context"
	"sync"
	"time"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/logger"
	"markdown-notes/internal/model"
	"markdown-notes/internal/store"
)

// DefaultAutosaveDelay окно тишины автосохранения
const DefaultAutosaveDelay = 1500 * time.Millisecond

// savedDisplay сколько показывается "已儲存 ✓"
const savedDisplay = 2 * time.Second

// NoteStore операции хранилища, которые использует контроллер
type NoteStore interface {
	CreateNote(ctx context.Context) (string, error)
	UpdateNote(ctx context.Context, id string, fields model.NoteFields) error
	DeleteNote(ctx context.Context, id string) error
	SelectNote(id string) error
	ClearSelection()
	Selected() (model.Note, bool)
	SelectedID() string
	OnError(handler store.ErrorHandler) func()
	Mode() backend.Mode
}

// SaveState состояние автосохранения
type SaveState int

const (
	StateIdle SaveState = iota
	StateSaving
	StateSaved
	StateFailed
)

// Тексты строки статуса
const (
	StatusIdle        = "自動儲存"
	StatusIdleDemo    = "自動儲存 (演示模式)"
	StatusSaving      = "儲存中..."
	StatusSaved       = "已儲存 ✓"
	StatusFailed      = "儲存失敗 ✗"
	StatusNoSelection = "請選擇或建立筆記"
)

// Controller преобразует намерения пользователя в операции хранилища
type Controller struct {
	store     NoteStore
	clock     Clock
	debouncer *Debouncer
	ctx       context.Context

	mu       sync.Mutex
	state    SaveState
	savedGen uint64
	revert   Timer

	handlersMu sync.Mutex
	onStatus   []func()
	onNotice   []func(Notice)

	stopErrors func()
}

// Option настраивает контроллер
type Option func(*controllerOptions)

type controllerOptions struct {
	clock Clock
	delay time.Duration
}

// WithClock подменяет часы (для тестов)
func WithClock(c Clock) Option {
	return func(o *controllerOptions) {
		o.clock = c
	}
}

// WithAutosaveDelay задает окно тишины автосохранения
func WithAutosaveDelay(d time.Duration) Option {
	return func(o *controllerOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// NewController создает контроллер. ctx используется отложенными записями.
func NewController(ctx context.Context, s NoteStore, opts ...Option) *Controller {
	o := controllerOptions{clock: RealClock(), delay: DefaultAutosaveDelay}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		store:     s,
		clock:     o.clock,
		debouncer: NewDebouncer(o.clock, o.delay),
		ctx:       ctx,
	}
	c.stopErrors = s.OnError(func(err error) {
		c.notice(NoticeFor(OpRead, err))
	})
	return c
}

// OnStatusChange регистрирует обработчик смены строки статуса
func (c *Controller) OnStatusChange(fn func()) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onStatus = append(c.onStatus, fn)
}

// OnNotice регистрирует получателя уведомлений
func (c *Controller) OnNotice(fn func(Notice)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onNotice = append(c.onNotice, fn)
}

// NewNote создает и выбирает новую заметку
func (c *Controller) NewNote(ctx context.Context) (string, error) {
	id, err := c.store.CreateNote(ctx)
	if err != nil {
		c.notice(NoticeFor(OpCreate, err))
		return "", err
	}
	c.setState(StateIdle)
	return id, nil
}

// EditTitle планирует запись заголовка
func (c *Controller) EditTitle(noteID, title string) {
	c.debouncer.Schedule(noteID, FieldTitle, func() {
		c.save(noteID, model.TitleField(title))
	})
}

// EditContent планирует запись содержимого
func (c *Controller) EditContent(noteID, content string) {
	c.debouncer.Schedule(noteID, FieldContent, func() {
		c.save(noteID, model.ContentField(content))
	})
}

// Select выбирает заметку. Ожидающие записи ранее выбранной заметки отменяются.
func (c *Controller) Select(id string) error {
	if prev := c.store.SelectedID(); prev != "" && prev != id {
		if n := c.debouncer.Cancel(prev); n > 0 {
			logger.Debugf("select %s: dropped %d pending edits of %s", id, n, prev)
		}
	}

	if err := c.store.SelectNote(id); err != nil {
		c.notice(NoticeFor(OpRead, err))
		return err
	}
	c.setState(StateIdle)
	return nil
}

// Back возвращает к списку: ожидающие записи выбранной заметки сохраняются
// сразу, затем выбор сбрасывается
func (c *Controller) Back() {
	if prev := c.store.SelectedID(); prev != "" {
		if n := c.debouncer.FlushNote(prev); n > 0 {
			logger.Debugf("back: flushed %d pending edits of %s", n, prev)
		}
	}
	c.store.ClearSelection()
	c.setState(StateIdle)
}

// Delete удаляет заметку после подтверждения. confirm получает текст вопроса;
// nil означает "без подтверждения". Возвращает true, если удаление выполнено.
func (c *Controller) Delete(ctx context.Context, id string, confirm func(prompt string) bool) (bool, error) {
	if confirm != nil && !confirm(ConfirmDeletePrompt) {
		return false, nil
	}

	c.debouncer.Cancel(id)

	if err := c.store.DeleteNote(ctx, id); err != nil {
		c.notice(NoticeFor(OpDelete, err))
		return false, err
	}
	c.setState(StateIdle)
	return true, nil
}

// Flush немедленно выполняет ожидающие записи
func (c *Controller) Flush() {
	c.debouncer.Flush()
}

// Pending число ожидающих записей
func (c *Controller) Pending() int {
	return c.debouncer.Pending()
}

// Close сохраняет ожидающие записи и освобождает таймеры
func (c *Controller) Close() {
	c.debouncer.Flush()

	c.mu.Lock()
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
	c.mu.Unlock()

	if c.stopErrors != nil {
		c.stopErrors()
	}
}

// State текущее состояние автосохранения
func (c *Controller) State() SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status текст строки статуса
func (c *Controller) Status() string {
	switch c.State() {
	case StateSaving:
		return StatusSaving
	case StateSaved:
		return StatusSaved
	case StateFailed:
		return StatusFailed
	}

	if _, ok := c.store.Selected(); !ok {
		return StatusNoSelection
	}
	if c.store.Mode() == backend.ModeLocal {
		return StatusIdleDemo
	}
	return StatusIdle
}

func (c *Controller) save(noteID string, fields model.NoteFields) {
	c.setState(StateSaving)

	if err := c.store.UpdateNote(c.ctx, noteID, fields); err != nil {
		if store.KindOf(err) == store.KindNotFound {
			// Заметка исчезла до записи: ничего не изменилось
			c.setState(StateIdle)
		} else {
			c.setState(StateFailed)
		}
		c.notice(NoticeFor(OpUpdate, err))
		return
	}

	c.mu.Lock()
	c.state = StateSaved
	c.savedGen++
	gen := c.savedGen
	if c.revert != nil {
		c.revert.Stop()
	}
	c.revert = c.clock.AfterFunc(savedDisplay, func() {
		c.mu.Lock()
		if c.savedGen != gen || c.state != StateSaved {
			c.mu.Unlock()
			return
		}
		c.state = StateIdle
		c.mu.Unlock()
		c.statusChanged()
	})
	c.mu.Unlock()

	c.statusChanged()
}

func (c *Controller) setState(state SaveState) {
	c.mu.Lock()
	c.state = state
	c.savedGen++
	c.mu.Unlock()

	c.statusChanged()
}

func (c *Controller) statusChanged() {
	c.handlersMu.Lock()
	handlers := append([]func(){}, c.onStatus...)
	c.handlersMu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

func (c *Controller) notice(n Notice) {
	logger.Debugf("notice (%s): %s", n.Severity, n.Text)

	c.handlersMu.Lock()
	handlers := append([]func(Notice){}, c.onNotice...)
	c.handlersMu.Unlock()

	for _, fn := range handlers {
		fn(n)
	}
}
