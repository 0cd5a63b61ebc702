package editor

import (
	"sync"
	"time"
)

// Field редактируемое поле заметки
type Field string

const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
)

type debounceKey struct {
	noteID string
	field  Field
}

type debounceTask struct {
	timer Timer
	gen   uint64
	fn    func()
}

// Debouncer откладывает запись каждого поля каждой заметки до окна тишины.
// Новое изменение того же поля заменяет ожидающее; поля не влияют друг на друга.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	pending map[debounceKey]*debounceTask
}

// NewDebouncer создает планировщик с окном тишины delay
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	return &Debouncer{
		clock:   clock,
		delay:   delay,
		pending: make(map[debounceKey]*debounceTask),
	}
}

// Schedule планирует fn для поля заметки, отменяя ранее запланированный вызов
func (d *Debouncer) Schedule(noteID string, field Field, fn func()) {
	key := debounceKey{noteID: noteID, field: field}

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}

	d.gen++
	gen := d.gen
	task := &debounceTask{gen: gen, fn: fn}
	task.timer = d.clock.AfterFunc(d.delay, func() { d.fire(key, gen) })
	d.pending[key] = task
}

// Cancel отменяет все ожидающие записи заметки и возвращает их число
func (d *Debouncer) Cancel(noteID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for key, task := range d.pending {
		if key.noteID != noteID {
			continue
		}
		task.timer.Stop()
		delete(d.pending, key)
		n++
	}
	return n
}

// Flush немедленно выполняет все ожидающие записи (завершение сессии)
func (d *Debouncer) Flush() {
	d.flush(func(debounceKey) bool { return true })
}

// FlushNote немедленно выполняет ожидающие записи одной заметки
// и возвращает их число
func (d *Debouncer) FlushNote(noteID string) int {
	return d.flush(func(key debounceKey) bool { return key.noteID == noteID })
}

func (d *Debouncer) flush(match func(debounceKey) bool) int {
	d.mu.Lock()
	tasks := make([]*debounceTask, 0, len(d.pending))
	for key, task := range d.pending {
		if !match(key) {
			continue
		}
		task.timer.Stop()
		tasks = append(tasks, task)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, task := range tasks {
		task.fn()
	}
	return len(tasks)
}

// Pending число ожидающих записей
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// fire выполняет задачу, если она не была заменена или отменена после запуска таймера
func (d *Debouncer) fire(key debounceKey, gen uint64) {
	d.mu.Lock()
	task, ok := d.pending[key]
	if !ok || task.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	task.fn()
}
