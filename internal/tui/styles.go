package tui

import (
	"github.com/charmbracelet/lipgloss"

	"markdown-notes/internal/editor"
	"markdown-notes/internal/render"
)

// palette цвета темы
type palette struct {
	fg, muted, accent, border, success, warning, danger, bannerBg lipgloss.Color
}

var palettes = map[string]palette{
	render.ThemeLight: {
		fg:       "235",
		muted:    "245",
		accent:   "27",
		border:   "250",
		success:  "28",
		warning:  "130",
		danger:   "160",
		bannerBg: "229",
	},
	render.ThemeDark: {
		fg:       "252",
		muted:    "242",
		accent:   "75",
		border:   "238",
		success:  "42",
		warning:  "214",
		danger:   "203",
		bannerBg: "58",
	},
}

type styles struct {
	header   lipgloss.Style
	user     lipgloss.Style
	muted    lipgloss.Style
	status   lipgloss.Style
	saved    lipgloss.Style
	failed   lipgloss.Style
	banner   lipgloss.Style
	prompt   lipgloss.Style
	pane     lipgloss.Style
	focused  lipgloss.Style
	severity map[editor.Severity]lipgloss.Style
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[render.ThemeLight]
	}

	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.border).
		Padding(0, 1)

	return styles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		user:    lipgloss.NewStyle().Foreground(p.muted),
		muted:   lipgloss.NewStyle().Foreground(p.muted).Faint(true),
		status:  lipgloss.NewStyle().Foreground(p.muted),
		saved:   lipgloss.NewStyle().Foreground(p.success),
		failed:  lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		banner:  lipgloss.NewStyle().Foreground(p.fg).Background(p.bannerBg).Padding(0, 1),
		prompt:  lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		pane:    pane,
		focused: pane.BorderForeground(p.accent),
		severity: map[editor.Severity]lipgloss.Style{
			editor.SeverityInfo:    lipgloss.NewStyle().Foreground(p.accent),
			editor.SeverityWarning: lipgloss.NewStyle().Foreground(p.warning),
			editor.SeverityError:   lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		},
	}
}

// statusStyle стиль строки статуса по ее тексту
func (s styles) statusStyle(status string) lipgloss.Style {
	switch status {
	case editor.StatusSaved:
		return s.saved
	case editor.StatusFailed:
		return s.failed
	default:
		return s.status
	}
}
