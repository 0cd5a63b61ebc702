package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run запускает интерфейс и блокируется до выхода.
// Ожидающие записи сохраняются перед возвратом.
func Run(ctx context.Context, deps Deps) error {
	m := New(ctx, deps)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	deps.Controller.Flush()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
