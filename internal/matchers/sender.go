package matchers

import (
	"strings"
)

// SenderFilter accepts messages whose sender text contains any allow-list entry.
type SenderFilter struct {
	entries []string
	lowered []string
}

func NewSenderFilter(allow []string) *SenderFilter {
	f := &SenderFilter{}
	for _, entry := range allow {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		f.entries = append(f.entries, entry)
		f.lowered = append(f.lowered, strings.ToLower(entry))
	}
	return f
}

// Entries returns the effective, trimmed allow-list.
func (f *SenderFilter) Entries() []string {
	return append([]string(nil), f.entries...)
}

// Accept reports whether from matches, case-insensitively, any allow-list entry
// as a substring, and returns the first entry that matched.
func (f *SenderFilter) Accept(from string) (bool, string) {
	sender := strings.ToLower(from)
	for i, entry := range f.lowered {
		if strings.Contains(sender, entry) {
			return true, f.entries[i]
		}
	}
	return false, ""
}
