package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"markdown-notes/internal/model"
	"markdown-notes/internal/repository"
)

var (
	//go:embed files/create_documents_tables.sql
	createDocumentsTablesSQL string
)

var _ repository.DocumentRepository = (*repo)(nil)

type repo struct {
	db *sql.DB
}

// NewRepository открывает (и при необходимости создает) базу SQLite по dsn
func NewRepository(dsn string) (repository.DocumentRepository, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// SQLite не любит параллельных писателей, а ":memory:" живет в одном соединении
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createDocumentsTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &repo{db: db}, nil
}

// Set записывает документ в транзакции (read-modify-write для merge)
func (r *repo) Set(ctx context.Context, path string, doc model.Document, merge bool) (model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := getDocument(ctx, tx, path, doc.ID)
	exists := err == nil
	if err != nil && !errors.Is(err, repository.ErrDocumentNotFound) {
		return model.Document{}, err
	}

	data := doc.Data
	if merge && exists {
		data = repository.Merge(existing.Data, doc.Data)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return model.Document{}, fmt.Errorf("encode document: %w", err)
	}

	now := formatTime(time.Now())
	if exists {
		_, err = tx.ExecContext(ctx,
			"UPDATE documents SET data = ?, updated_on = ? WHERE path = ? AND doc_id = ?",
			string(raw), now, path, doc.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO documents (path, doc_id, data, created_on, updated_on) VALUES (?, ?, ?, ?, ?)",
			path, doc.ID, string(raw), now, now)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Document{}, fmt.Errorf("commit: %w", err)
	}

	return model.Document{ID: doc.ID, Data: data}.Clone(), nil
}

// Update сливает поля в существующий документ в одной транзакции
func (r *repo) Update(ctx context.Context, path string, doc model.Document) (model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := getDocument(ctx, tx, path, doc.ID)
	if err != nil {
		return model.Document{}, err
	}

	data := repository.Merge(existing.Data, doc.Data)
	raw, err := json.Marshal(data)
	if err != nil {
		return model.Document{}, fmt.Errorf("encode document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET data = ?, updated_on = ? WHERE path = ? AND doc_id = ?",
		string(raw), formatTime(time.Now()), path, doc.ID)
	if err != nil {
		return model.Document{}, fmt.Errorf("write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Document{}, fmt.Errorf("commit: %w", err)
	}

	return model.Document{ID: doc.ID, Data: data}.Clone(), nil
}

// Get возвращает документ по id
func (r *repo) Get(ctx context.Context, path, id string) (model.Document, error) {
	return getDocument(ctx, r.db, path, id)
}

// List возвращает документы коллекции в порядке вставки
func (r *repo) List(ctx context.Context, path string) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT doc_id, data FROM documents WHERE path = ? ORDER BY seq", path)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// Delete удаляет документ; отсутствие строки не ошибка
func (r *repo) Delete(ctx context.Context, path, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ? AND doc_id = ?", path, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Close закрывает базу
func (r *repo) Close() error {
	return r.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getDocument(ctx context.Context, q queryer, path, id string) (model.Document, error) {
	row := q.QueryRowContext(ctx,
		"SELECT doc_id, data FROM documents WHERE path = ? AND doc_id = ?", path, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, repository.ErrDocumentNotFound
	}
	return doc, err
}

func scanDocument(s scanner) (model.Document, error) {
	var id, raw string
	if err := s.Scan(&id, &raw); err != nil {
		return model.Document{}, err
	}

	data := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return model.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}

	return model.Document{ID: id, Data: data}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
