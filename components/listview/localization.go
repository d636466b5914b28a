package listview

import (
	"context"
	"strings"
)

// TranslationService exposes locale-aware translation for labels that are not
// carried by the table definition (filter names, notifications).
type TranslationService interface {
	Translate(ctx context.Context, key, locale string, args map[string]any) (string, error)
}

// ResolveLocalizedValue selects the best translation for the provided locale and falls back to the supplied value.
// Keys are matched case-insensitively, and language-region pairs (`es-mx`) fall back to their
// base language (`es`) when present.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, candidate := range localeCandidates(locale) {
		for key, value := range values {
			if strings.EqualFold(key, candidate) && value != "" {
				return value
			}
		}
	}
	return fallback
}

func localeCandidates(locale string) []string {
	locale = normalizeLocale(locale)
	if locale == "" {
		return []string{"default"}
	}
	candidates := []string{locale}
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		candidates = append(candidates, locale[:idx])
	}
	return append(candidates, "default")
}

func normalizeLocale(locale string) string {
	return strings.TrimSpace(strings.ToLower(locale))
}

func translateOrFallback(ctx context.Context, svc TranslationService, key, locale, fallback string) string {
	if svc != nil {
		if translated, err := svc.Translate(ctx, key, locale, nil); err == nil && translated != "" {
			return translated
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}
