// Package prefs хранит настройки интерфейса в том же key-value файле, что и заметки
package prefs

import (
	"fmt"

	"markdown-notes/internal/kvstore"
	"markdown-notes/internal/render"
)

// Ключи хранилища
const (
	ThemeKey           = "theme"
	BannerDismissedKey = "demo-banner-dismissed"
)

// Prefs настройки интерфейса
type Prefs struct {
	kv *kvstore.Store
}

// New создает настройки поверх открытого хранилища
func New(kv *kvstore.Store) *Prefs {
	return &Prefs{kv: kv}
}

// Theme возвращает сохраненную тему; по умолчанию светлая
func (p *Prefs) Theme() string {
	if v, ok := p.kv.Get(ThemeKey); ok && v == render.ThemeDark {
		return render.ThemeDark
	}
	return render.ThemeLight
}

// SetTheme сохраняет тему
func (p *Prefs) SetTheme(theme string) error {
	if theme != render.ThemeLight && theme != render.ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	if err := p.kv.Set(ThemeKey, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ToggleTheme переключает тему и возвращает новую
func (p *Prefs) ToggleTheme() (string, error) {
	next := render.ThemeDark
	if p.Theme() == render.ThemeDark {
		next = render.ThemeLight
	}
	if err := p.SetTheme(next); err != nil {
		return p.Theme(), err
	}
	return next, nil
}

// BannerDismissed сообщает, закрыт ли баннер демо-режима
func (p *Prefs) BannerDismissed() bool {
	v, _ := p.kv.Get(BannerDismissedKey)
	return v == "true"
}

// DismissBanner запоминает, что баннер закрыт
func (p *Prefs) DismissBanner() error {
	if err := p.kv.Set(BannerDismissedKey, "true"); err != nil {
		return fmt.Errorf("save banner state: %w", err)
	}
	return nil
}

// ResetBanner снова показывает баннер
func (p *Prefs) ResetBanner() error {
	if err := p.kv.Remove(BannerDismissedKey); err != nil {
		return fmt.Errorf("reset banner state: %w", err)
	}
	return nil
}
