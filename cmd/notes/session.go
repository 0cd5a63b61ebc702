package main

import (
	"context"
	"errors"
	"fmt"

	"markdown-notes/internal/config"
	"markdown-notes/internal/kvstore"
	"markdown-notes/internal/logger"
	"markdown-notes/internal/prefs"
	"markdown-notes/internal/store"
)

// defaultTUILog файл логов интерфейса, если logger.file не задан
const defaultTUILog = "notes.log"

// initError ошибка инициализации хранилища
type initError struct {
	err error
}

func (e *initError) Error() string { return e.err.Error() }
func (e *initError) Unwrap() error { return e.err }

// session открытое хранилище заметок и настройки одного запуска
type session struct {
	cfg   *config.ClientConfig
	kv    *kvstore.Store
	store *store.Store
	prefs *prefs.Prefs

	closeLog func() error
}

// openSession загружает конфигурацию и открывает хранилище.
// Интерфейс владеет терминалом, поэтому для него логи всегда пишутся в файл.
func openSession(ctx context.Context, interactive bool) (*session, error) {
	cfg, err := config.Load[config.ClientConfig](configFile)
	if err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}

	if interactive && cfg.Logger.File == "" {
		cfg.Logger.File = defaultTUILog
	}
	closer, err := logger.Setup(cfg.Logger)
	if err != nil {
		return nil, err
	}

	kv, err := kvstore.Open(cfg.Local.Path)
	if err != nil {
		closer.Close()
		return nil, &initError{err: err}
	}

	s, err := store.Open(ctx, cfg, store.WithKVStore(kv))
	if err != nil {
		closer.Close()
		return nil, &initError{err: err}
	}

	return &session{
		cfg:      cfg,
		kv:       kv,
		store:    s,
		prefs:    prefs.New(kv),
		closeLog: closer.Close,
	}, nil
}

// Close закрывает хранилище и файл логов
func (s *session) Close() error {
	return errors.Join(s.store.Close(), s.closeLog())
}
