// Package tui терминальный интерфейс заметок: список, редактор заголовка
// и содержимого, предпросмотр Markdown и строка статуса.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/editor"
	"markdown-notes/internal/logger"
	"markdown-notes/internal/model"
	"markdown-notes/internal/prefs"
	"markdown-notes/internal/render"
	"markdown-notes/internal/store"
)

const (
	appTitle   = "Markdown 筆記"
	bannerText = "演示模式：筆記只儲存在此裝置。設定 remote 區段以啟用雲端同步。(Ctrl+X 關閉)"
	helpText   = "ctrl+n 新增 • enter 開啟 • tab 切換 • esc 返回 • ctrl+d 刪除 • ctrl+t 主題 • ctrl+c 離開"
)

type focus int

const (
	focusList focus = iota
	focusTitle
	focusContent
)

// События, приходящие из слушателей хранилища и контроллера
type (
	notesChangedMsg struct{}
	statusChangedMsg struct{}
	noticeMsg        editor.Notice
)

// Deps зависимости интерфейса
type Deps struct {
	Store      *store.Store
	Controller *editor.Controller
	Prefs      *prefs.Prefs
	// Now источник времени для относительных дат; по умолчанию time.Now
	Now func() time.Time
}

// noteItem адаптирует заметку к list.Item
type noteItem struct {
	note model.Note
	now  time.Time
}

func (i noteItem) Title() string { return editor.DisplayTitle(i.note) }

func (i noteItem) Description() string {
	if rel := editor.FormatRelative(i.note.UpdatedAt, i.now); rel != "" {
		return rel + " · " + editor.Excerpt(i.note)
	}
	return editor.Excerpt(i.note)
}

func (i noteItem) FilterValue() string { return i.note.Title }

// Model состояние терминального интерфейса
type Model struct {
	ctx   context.Context
	store *store.Store
	ctl   *editor.Controller
	prefs *prefs.Prefs
	now   func() time.Time

	events      *eventQueue
	unsubscribe []func()

	list    list.Model
	title   textinput.Model
	content textarea.Model
	preview viewport.Model

	focus     focus
	editingID string
	confirmID string

	status string
	notice *editor.Notice
	theme  string
	styles styles

	width, height int
}

// New создает модель и подписывает ее на изменения хранилища и контроллера
func New(ctx context.Context, deps Deps) Model {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = editor.EmptyListMessage
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = editor.UntitledPlaceholder
	ti.CharLimit = 200

	ta := textarea.New()
	ta.Placeholder = "# Markdown"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0

	theme := deps.Prefs.Theme()

	m := Model{
		ctx:     ctx,
		store:   deps.Store,
		ctl:     deps.Controller,
		prefs:   deps.Prefs,
		now:     now,
		events:  newEventQueue(),
		list:    l,
		title:   ti,
		content: ta,
		preview: viewport.New(0, 0),
		theme:   theme,
		styles:  newStyles(theme),
	}

	// Слушатели могут вызываться из Update, поэтому только кладут событие в очередь
	m.unsubscribe = append(m.unsubscribe,
		deps.Store.Subscribe(m.events.notesChanged),
	)
	deps.Controller.OnStatusChange(m.events.statusChanged)
	deps.Controller.OnNotice(m.events.notice)

	m.status = m.ctl.Status()
	m.refreshList()
	return m
}

// Close отписывает модель от хранилища и останавливает очередь событий
func (m Model) Close() {
	for _, fn := range m.unsubscribe {
		fn()
	}
	m.events.close()
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.renderPreview()
		return m, nil

	case notesChangedMsg:
		m.sync()
		return m, waitForEvent(m.events)

	case statusChangedMsg:
		m.status = m.ctl.Status()
		return m, waitForEvent(m.events)

	case noticeMsg:
		n := editor.Notice(msg)
		m.notice = &n
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmID != "" {
		return m.answerConfirm(msg), nil
	}

	switch msg.String() {
	case "ctrl+c":
		m.ctl.Flush()
		return m, tea.Quit

	case "ctrl+n":
		if _, err := m.ctl.NewNote(m.ctx); err == nil {
			m.notice = nil
			m.editingID = ""
			m.sync()
			cmd := m.setFocus(focusTitle)
			return m, cmd
		}
		return m, nil

	case "ctrl+d":
		if id := m.currentID(); id != "" {
			m.confirmID = id
		}
		return m, nil

	case "ctrl+t":
		theme, err := m.prefs.ToggleTheme()
		if err != nil {
			m.notice = &editor.Notice{Text: err.Error(), Severity: editor.SeverityWarning}
		}
		m.theme = theme
		m.styles = newStyles(theme)
		m.renderPreview()
		return m, nil

	case "ctrl+x":
		if err := m.prefs.DismissBanner(); err != nil {
			m.notice = &editor.Notice{Text: err.Error(), Severity: editor.SeverityWarning}
		}
		m.layout()
		return m, nil

	case "esc":
		if m.focus != focusList || m.editingID != "" {
			m.ctl.Back()
			m.clearEditors()
			m.status = m.ctl.Status()
			cmd := m.setFocus(focusList)
			return m, cmd
		}
		m.notice = nil
		return m, nil

	case "tab":
		if m.editingID == "" {
			return m, nil
		}
		cmd := m.setFocus((m.focus + 1) % 3)
		return m, cmd

	case "enter":
		if m.focus == focusList {
			cmd := m.openHighlighted()
			return m, cmd
		}
	}

	return m.updateFocused(msg)
}

// answerConfirm обрабатывает ответ на вопрос об удалении
func (m Model) answerConfirm(msg tea.KeyMsg) Model {
	id := m.confirmID
	m.confirmID = ""

	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		deleted, err := m.ctl.Delete(m.ctx, id, func(string) bool { return true })
		if err == nil && deleted && id == m.editingID {
			m.clearEditors()
			m.focus = focusList
			m.blurEditors()
		}
		m.sync()
	}
	return m
}

// openHighlighted выбирает заметку под курсором списка
func (m *Model) openHighlighted() tea.Cmd {
	item, ok := m.list.SelectedItem().(noteItem)
	if !ok {
		return nil
	}
	if err := m.ctl.Select(item.note.ID); err != nil {
		return nil
	}
	m.notice = nil
	m.editingID = ""
	m.sync()
	return m.setFocus(focusContent)
}

// updateFocused передает сообщение компоненту в фокусе и планирует запись изменений
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.focus {
	case focusList:
		m.list, cmd = m.list.Update(msg)

	case focusTitle:
		before := m.title.Value()
		m.title, cmd = m.title.Update(msg)
		if v := m.title.Value(); v != before && m.editingID != "" {
			m.ctl.EditTitle(m.editingID, v)
		}

	case focusContent:
		before := m.content.Value()
		m.content, cmd = m.content.Update(msg)
		if v := m.content.Value(); v != before && m.editingID != "" {
			m.ctl.EditContent(m.editingID, v)
			m.renderPreview()
		}
	}

	return m, cmd
}

// sync перечитывает список и выбранную заметку из хранилища
func (m *Model) sync() {
	m.refreshList()
	m.status = m.ctl.Status()

	note, ok := m.store.Selected()
	switch {
	case !ok:
		if m.editingID != "" {
			// Выбранная заметка пропала из снимка
			m.clearEditors()
			m.focus = focusList
			m.blurEditors()
		}
	case note.ID != m.editingID:
		m.load(note)
	case m.focus == focusList:
		// Заметка не редактируется: показываем версию из снимка
		m.load(note)
	}
}

func (m *Model) refreshList() {
	notes := m.store.Notes()
	now := m.now()

	items := make([]list.Item, 0, len(notes))
	cursor := m.list.Index()
	selected := m.store.SelectedID()
	for i, n := range notes {
		items = append(items, noteItem{note: n, now: now})
		if n.ID == selected {
			cursor = i
		}
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(min(cursor, len(items)-1))
	}

	if len(notes) == 0 {
		m.list.Title = editor.EmptyListMessage
	} else {
		m.list.Title = fmt.Sprintf("筆記 (%d)", len(notes))
	}
}

func (m *Model) load(note model.Note) {
	m.editingID = note.ID
	m.title.SetValue(note.Title)
	m.content.SetValue(note.Content)
	m.renderPreview()
}

func (m *Model) clearEditors() {
	m.editingID = ""
	m.title.SetValue("")
	m.content.SetValue("")
	m.renderPreview()
}

func (m *Model) blurEditors() {
	m.title.Blur()
	m.content.Blur()
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focus = f
	m.blurEditors()

	switch f {
	case focusTitle:
		return m.title.Focus()
	case focusContent:
		return m.content.Focus()
	}
	return nil
}

// currentID заметка, к которой относится команда: открытая или под курсором
func (m Model) currentID() string {
	if m.editingID != "" {
		return m.editingID
	}
	if item, ok := m.list.SelectedItem().(noteItem); ok {
		return item.note.ID
	}
	return ""
}

func (m *Model) renderPreview() {
	content := m.content.Value()
	if m.editingID == "" || strings.TrimSpace(content) == "" {
		m.preview.SetContent(m.styles.muted.Render(editor.PreviewPlaceholder))
		return
	}

	out, err := render.Terminal(content, m.preview.Width, m.theme)
	if err != nil {
		logger.Debugf("tui: render preview: %v", err)
		m.preview.SetContent(m.styles.failed.Render(editor.RenderErrorMessage))
		return
	}
	m.preview.SetContent(out)
	m.preview.GotoTop()
}

func (m Model) showBanner() bool {
	return m.store.Mode() == backend.ModeLocal && !m.prefs.BannerDismissed()
}

// layout раскладывает компоненты по размеру окна
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// Заголовок, строка статуса и подсказка
	chrome := 3
	if m.showBanner() {
		chrome++
	}
	bodyHeight := max(m.height-chrome, 6)

	listWidth := max(m.width/3, 24)
	rightWidth := max(m.width-listWidth-4, 20)

	// Рамки панелей занимают по две строки и по четыре колонки
	m.list.SetSize(listWidth, bodyHeight-2)
	m.title.Width = rightWidth - 4

	editorHeight := max((bodyHeight-3)/2-2, 3)
	m.content.SetWidth(rightWidth - 4)
	m.content.SetHeight(editorHeight)

	m.preview.Width = rightWidth - 4
	m.preview.Height = max(bodyHeight-3-editorHeight-4, 3)
}

func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	header := s.header.Render(appTitle) + "  " + s.user.Render(editor.UserLabel(m.store.Mode(), m.store.UserID()))
	b.WriteString(header + "\n")

	if m.showBanner() {
		b.WriteString(s.banner.Render(bannerText) + "\n")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.listView(), m.editorView()) + "\n")

	switch {
	case m.confirmID != "":
		b.WriteString(s.prompt.Render(editor.ConfirmDeletePrompt+" (y/n)") + "\n")
	case m.notice != nil:
		b.WriteString(s.severity[m.notice.Severity].Render(m.notice.Text) + "\n")
	default:
		b.WriteString(s.statusStyle(m.status).Render(m.status) + "\n")
	}

	b.WriteString(s.muted.Render(helpText))
	return b.String()
}

func (m Model) listView() string {
	style := m.styles.pane
	if m.focus == focusList {
		style = m.styles.focused
	}

	if len(m.list.Items()) == 0 {
		body := editor.EmptyListMessage + "\n" + m.styles.muted.Render(editor.EmptyListHint)
		return style.Width(m.list.Width()).Render(body)
	}
	return style.Render(m.list.View())
}

func (m Model) editorView() string {
	titleStyle, contentStyle := m.styles.pane, m.styles.pane
	switch m.focus {
	case focusTitle:
		titleStyle = m.styles.focused
	case focusContent:
		contentStyle = m.styles.focused
	}

	if m.editingID == "" {
		width := m.preview.Width + 2
		return m.styles.pane.Width(width).Render(m.styles.muted.Render(editor.StatusNoSelection))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title.View()),
		contentStyle.Render(m.content.View()),
		m.styles.pane.Render(m.preview.View()),
	)
}
