package editor

import (
	"fmt"
	"strings"
	"time"

	"markdown-notes/internal/backend"
	"markdown-notes/internal/model"
)

// Тексты интерфейса
const (
	UntitledPlaceholder  = "無標題"
	NoContentPlaceholder = "無內容"
	EmptyListMessage     = "尚無筆記"
	EmptyListHint        = "按 Ctrl+N 建立第一篇筆記"
	PreviewPlaceholder   = "預覽區域"
	RenderErrorMessage   = "渲染錯誤"
	ConfirmDeletePrompt  = "確定要刪除此筆記嗎？"
	DemoUserLabel        = "使用者: 演示模式"
)

// ExcerptLength длина фрагмента содержимого в списке (в символах)
const ExcerptLength = 50

// FormatRelative форматирует момент относительно now: "N 天前", "N 小時前", "N 分鐘前", "剛剛"
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	days := int(diff / (24 * time.Hour))
	hours := int(diff / time.Hour)
	minutes := int(diff / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%d 天前", days)
	case hours > 0:
		return fmt.Sprintf("%d 小時前", hours)
	case minutes > 0:
		return fmt.Sprintf("%d 分鐘前", minutes)
	default:
		return "剛剛"
	}
}

// DisplayTitle заголовок для списка
func DisplayTitle(n model.Note) string {
	if n.Title == "" {
		return UntitledPlaceholder
	}
	return n.Title
}

// Excerpt первые ExcerptLength символов содержимого в одну строку
func Excerpt(n model.Note) string {
	content := n.Content
	if content == "" {
		content = NoContentPlaceholder
	}
	content = strings.Join(strings.Fields(content), " ")

	runes := []rune(content)
	if len(runes) > ExcerptLength {
		runes = runes[:ExcerptLength]
	}
	return string(runes)
}

// UserLabel подпись пользователя: демо-режим или первые 8 символов uid
func UserLabel(mode backend.Mode, uid string) string {
	if mode == backend.ModeLocal {
		return DemoUserLabel
	}
	short := uid
	if r := []rune(uid); len(r) > 8 {
		short = string(r[:8])
	}
	return "使用者: " + short + "..."
}
