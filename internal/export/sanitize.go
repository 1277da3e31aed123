package export

import (
	"strings"
	"unicode"
)

const (
	maxNameRunes = 80
	fallbackName = "email"
)

// Sanitize turns a subject into a filesystem-safe name component.
func Sanitize(subject string) string {
	var b strings.Builder
	b.Grow(len(subject))
	for _, r := range subject {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			continue
		case r <= 0x1f || r == 0x7f:
			continue
		}
		b.WriteRune(r)
	}

	name := strings.Join(strings.FieldsFunc(b.String(), unicode.IsSpace), "_")

	runes := []rune(name)
	if len(runes) > maxNameRunes {
		name = string(runes[:maxNameRunes])
	}
	if name == "" {
		return fallbackName
	}
	return name
}

// FileName is the per-message artifact name for subject at stamp.
func FileName(subject, stamp string) string {
	return strings.ReplaceAll(Sanitize(subject)+"_"+stamp+".md", ":", "-")
}
