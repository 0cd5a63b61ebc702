package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/backend/local"
	"markdown-notes/internal/backend/remote"
	"markdown-notes/internal/config"
	"markdown-notes/internal/kvstore"
)

// WithKVStore использует уже открытое key-value хранилище для локального бэкенда
// (тот же файл хранит настройки интерфейса)
func WithKVStore(kv *kvstore.Store) Option {
	return func(o *options) {
		o.kv = kv
	}
}

// WithRemoteOptions передает опции удаленному бэкенду
func WithRemoteOptions(opts ...remote.Option) Option {
	return func(o *options) {
		o.remote = append(o.remote, opts...)
	}
}

// Open выбирает ровно один бэкенд по конфигурации и инициализирует хранилище.
// Удаленный выбирается, если его конфигурация задана и валидна (или backend.prefer=remote).
// Переход на локальный при сбое удаленного только при backend.fallback_to_local.
func Open(ctx context.Context, cfg *config.ClientConfig, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s, err := openWith(ctx, cfg, o, opts, chooseMode(cfg))
	if err == nil {
		return s, nil
	}

	var storeErr *Error
	if errors.As(err, &storeErr) && storeErr.Kind == KindConfiguration &&
		chooseMode(cfg) == backend.ModeRemote && cfg.Backend.FallbackToLocal {
		log.Printf("remote backend unavailable, falling back to local storage: %v", err)
		return openWith(ctx, cfg, o, opts, backend.ModeLocal)
	}
	return nil, err
}

func chooseMode(cfg *config.ClientConfig) backend.Mode {
	switch cfg.Backend.Prefer {
	case config.BackendLocal:
		return backend.ModeLocal
	case config.BackendRemote:
		return backend.ModeRemote
	default:
		if cfg.Remote.Valid() {
			return backend.ModeRemote
		}
		return backend.ModeLocal
	}
}

func openWith(ctx context.Context, cfg *config.ClientConfig, o options, opts []Option, mode backend.Mode) (*Store, error) {
	b, err := openBackend(ctx, cfg, o, mode)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "open", Err: err}
	}

	s := New(b, opts...)
	if err := s.Initialize(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return s, nil
}

func openBackend(ctx context.Context, cfg *config.ClientConfig, o options, mode backend.Mode) (backend.Backend, error) {
	if mode == backend.ModeRemote {
		b, err := remote.Dial(ctx, cfg.Remote, o.remote...)
		if err != nil {
			return nil, fmt.Errorf("remote backend: %w", err)
		}
		return b, nil
	}

	kv := o.kv
	if kv == nil {
		var err error
		kv, err = kvstore.Open(cfg.Local.Path)
		if err != nil {
			return nil, fmt.Errorf("local backend: %w", err)
		}
	}
	return local.New(kv, local.WithClock(o.now)), nil
}
