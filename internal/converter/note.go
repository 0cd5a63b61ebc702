package converter

import (
	"fmt"
	"time"

	"markdown-notes/internal/model"
)

// TimeLayout формат ISO-8601, совпадающий с Date.toISOString()
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Имена полей документа (одинаковые для локальной записи и удаленного документа)
const (
	FieldTitle     = "title"
	FieldContent   = "content"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record хранимая форма заметки: все поля текстовые, время в ISO-8601
type Record struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// FormatTime переводит время в UTC и форматирует с точностью до миллисекунд
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime разбирает ISO-8601 строку; пустая строка дает нулевое время
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Now возвращает текущее время, усеченное до точности хранения
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ModelToRecord конвертирует domain модель в хранимую запись
func ModelToRecord(note model.Note) Record {
	return Record{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: FormatTime(note.CreatedAt),
		UpdatedAt: FormatTime(note.UpdatedAt),
	}
}

// RecordToModel конвертирует хранимую запись в domain модель.
// Нечитаемое время превращается в нулевое, запись при этом не теряется.
func RecordToModel(rec Record) model.Note {
	createdAt, _ := ParseTime(rec.CreatedAt)
	updatedAt, _ := ParseTime(rec.UpdatedAt)

	return model.Note{
		ID:        rec.ID,
		Title:     rec.Title,
		Content:   rec.Content,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// RecordsToModels конвертирует слайс записей в слайс domain моделей
func RecordsToModels(records []Record) []model.Note {
	if records == nil {
		return nil
	}

	notes := make([]model.Note, len(records))
	for i, rec := range records {
		notes[i] = RecordToModel(rec)
	}

	return notes
}

// ModelToFields возвращает поля документа без id (id служит ключом документа)
func ModelToFields(note model.Note) map[string]any {
	return map[string]any{
		FieldTitle:     note.Title,
		FieldContent:   note.Content,
		FieldCreatedAt: FormatTime(note.CreatedAt),
		FieldUpdatedAt: FormatTime(note.UpdatedAt),
	}
}

// PatchToFields возвращает только переданные поля плюс updatedAt
func PatchToFields(fields model.NoteFields, updatedAt any) map[string]any {
	out := map[string]any{FieldUpdatedAt: updatedAt}
	if fields.Title != nil {
		out[FieldTitle] = *fields.Title
	}
	if fields.Content != nil {
		out[FieldContent] = *fields.Content
	}
	return out
}

// FieldsToModel собирает domain модель из id документа и его полей
func FieldsToModel(id string, fields map[string]any) model.Note {
	str := func(k string) string {
		s, _ := fields[k].(string)
		return s
	}

	createdAt, _ := ParseTime(str(FieldCreatedAt))
	updatedAt, _ := ParseTime(str(FieldUpdatedAt))

	return model.Note{
		ID:        id,
		Title:     str(FieldTitle),
		Content:   str(FieldContent),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}
