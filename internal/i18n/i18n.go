// Package i18n provides the translated labels used on printed papers.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

var (
	mu     sync.RWMutex
	bundle *i18n.Bundle
)

// Init loads every embedded locale with lang as the default language.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := b.LoadMessageFileFS(localeFS, "locales/"+e.Name()); err != nil {
			return fmt.Errorf("load locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	mu.Lock()
	bundle = b
	mu.Unlock()
	return nil
}

func currentBundle() *i18n.Bundle {
	mu.RLock()
	defer mu.RUnlock()
	return bundle
}

// Languages lists the tags of the loaded locales.
func Languages() []string {
	b := currentBundle()
	if b == nil {
		return nil
	}
	var out []string
	for _, t := range b.LanguageTags() {
		out = append(out, t.String())
	}
	return out
}

// NewLocalizer creates a localizer preferring langs in order.
func NewLocalizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(currentBundle(), langs...)
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

// WithLang is shorthand for WithLocalizer(ctx, NewLocalizer(lang)).
func WithLang(ctx context.Context, lang string) context.Context {
	return WithLocalizer(ctx, NewLocalizer(lang))
}

// localizerFromCtx falls back to the bundle's default language.
func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	return i18n.NewLocalizer(currentBundle())
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	if currentBundle() == nil {
		return cfg.MessageID
	}
	s, err := localizerFromCtx(ctx).Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}
