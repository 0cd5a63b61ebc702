package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"markdown-notes/internal/config"
)

var debug atomic.Bool

// Setup настраивает стандартный логгер по секции logger конфигурации.
// Если задан файл, вывод перенаправляется в него (TUI владеет stdout).
// Возвращаемый io.Closer нужно закрыть при завершении процесса.
func Setup(cfg *config.ConfigLogger) (io.Closer, error) {
	debug.Store(cfg != nil && strings.EqualFold(cfg.Level, "debug"))

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if cfg == nil || cfg.File == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)

	return f, nil
}

// Debugf пишет сообщение только на уровне debug
func Debugf(format string, args ...any) {
	if debug.Load() {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Discard отключает вывод логов (используется командами, печатающими в stdout)
func Discard() {
	log.SetOutput(io.Discard)
}
