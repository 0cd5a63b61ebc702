package model

import "time"

// DefaultTitle заголовок, который получает только что созданная заметка
const DefaultTitle = "新筆記"

// Note представляет заметку (доменная модель)
type Note struct {
	ID        string    // ULID заметки, генерируется на клиенте
	Title     string    // Заголовок заметки
	Content   string    // Markdown-содержимое
	CreatedAt time.Time // Дата создания, не меняется
	UpdatedAt time.Time // Дата последней успешной записи, ключ сортировки
}

// NoteFields частичное обновление заметки: nil означает "поле не трогать"
type NoteFields struct {
	Title   *string
	Content *string
}

// TitleField возвращает NoteFields, обновляющий только заголовок
func TitleField(title string) NoteFields {
	return NoteFields{Title: &title}
}

// ContentField возвращает NoteFields, обновляющий только содержимое
func ContentField(content string) NoteFields {
	return NoteFields{Content: &content}
}

// IsEmpty проверяет, что не передано ни одного поля
func (f NoteFields) IsEmpty() bool {
	return f.Title == nil && f.Content == nil
}

// Apply сливает переданные поля в заметку, остальные поля остаются как есть
func (f NoteFields) Apply(n Note) Note {
	if f.Title != nil {
		n.Title = *f.Title
	}
	if f.Content != nil {
		n.Content = *f.Content
	}
	return n
}

// Equal сравнивает заметки поле за полем (время через time.Equal)
func (n Note) Equal(o Note) bool {
	return n.ID == o.ID &&
		n.Title == o.Title &&
		n.Content == o.Content &&
		n.CreatedAt.Equal(o.CreatedAt) &&
		n.UpdatedAt.Equal(o.UpdatedAt)
}
