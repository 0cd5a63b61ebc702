package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store синхронное key-value хранилище строк в одном JSON файле на устройстве.
// Каждая запись переписывает файл целиком через временный файл и rename,
// поэтому неудачная запись оставляет предыдущее состояние нетронутым.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// Open открывает хранилище; отсутствующий файл означает пустое хранилище
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: map[string]string{}}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.values); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	return s, nil
}

// Get возвращает значение ключа и признак его наличия
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Set сохраняет значение ключа на диск
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value

	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}

	return nil
}

// Remove удаляет ключ; отсутствующий ключ не ошибка
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)

	if err := s.flush(); err != nil {
		s.values[key] = prev
		return err
	}

	return nil
}

func (s *Store) flush() error {
	b, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}

	return nil
}
