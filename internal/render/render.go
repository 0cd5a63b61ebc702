// Package render превращает Markdown заметки в безопасный HTML
// и в ANSI-текст для предпросмотра в терминале.
package render

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Темы оформления
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// minWidth минимальная ширина переноса для предпросмотра
const minWidth = 20

var (
	// Сырой HTML пропускается парсером и очищается политикой
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	policy   = bluemonday.UGCPolicy()

	renderersMu sync.Mutex
	renderers   = map[rendererKey]*glamour.TermRenderer{}
)

type rendererKey struct {
	width int
	theme string
}

// HTML переводит Markdown в HTML и удаляет из него все опасное
// (скрипты, обработчики событий, javascript: ссылки)
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Terminal переводит Markdown в текст для терминала с переносом по width
func Terminal(md string, width int, theme string) (string, error) {
	// Рендерер хранит состояние разбора и не допускает параллельных вызовов
	renderersMu.Lock()
	defer renderersMu.Unlock()

	r, err := termRenderer(width, theme)
	if err != nil {
		return "", err
	}

	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// termRenderer вызывается под renderersMu
func termRenderer(width int, theme string) (*glamour.TermRenderer, error) {
	if width < minWidth {
		width = minWidth
	}
	if theme != ThemeDark {
		theme = ThemeLight
	}
	key := rendererKey{width: width, theme: theme}

	if r, ok := renderers[key]; ok {
		return r, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	renderers[key] = r
	return r, nil
}
