package message

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const (
	NoReadableText = "[No readable text]"

	FileBodyLimit  = 4000
	FileBodySuffix = "\n\n...[truncated]..."

	PreviewLimit  = 600
	PreviewSuffix = "\n...[truncated]..."

	// StampLayout is a millisecond UTC instant, the timestamp embedded in filenames.
	StampLayout = "2006-01-02T15:04:05.000Z"
)

var stripPolicy = newStripPolicy()

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// Collected is an accepted message ready for export.
type Collected struct {
	UID     uint32
	From    string
	Subject string
	Date    *time.Time
	// Body is the normalized body, or NoReadableText when nothing readable remained.
	Body     string
	FileBody string
	Preview  string
	Stamp    string
}

// Normalize picks the plain-text body when it has content, otherwise the HTML
// body with all markup removed and whitespace collapsed.
func Normalize(p Parsed) string {
	if text := strings.TrimSpace(p.Text); text != "" {
		return text
	}
	if strings.TrimSpace(p.HTML) != "" {
		return stripHTML(p.HTML)
	}
	return ""
}

func stripHTML(input string) string {
	stripped := html.UnescapeString(stripPolicy.Sanitize(input))
	return strings.Join(strings.Fields(stripped), " ")
}

// TruncateFileBody caps body at FileBodyLimit characters for persisted artifacts.
func TruncateFileBody(body string) string {
	return truncate(body, FileBodyLimit, FileBodySuffix)
}

// TruncatePreview caps body at PreviewLimit characters for console output.
func TruncatePreview(body string) string {
	return truncate(body, PreviewLimit, PreviewSuffix)
}

func truncate(body string, limit int, suffix string) string {
	count := 0
	for i := range body {
		if count == limit {
			return body[:i] + suffix
		}
		count++
	}
	return body
}

// Collect builds the export view of an accepted message. now stamps messages
// without a usable date.
func Collect(uid uint32, p Parsed, now time.Time) Collected {
	body := Normalize(p)
	if body == "" {
		body = NoReadableText
	}

	stampTime := now
	if p.Date != nil {
		stampTime = *p.Date
	}

	return Collected{
		UID:      uid,
		From:     p.From,
		Subject:  p.Subject,
		Date:     p.Date,
		Body:     body,
		FileBody: TruncateFileBody(body),
		Preview:  TruncatePreview(body),
		Stamp:    stampTime.UTC().Format(StampLayout),
	}
}
