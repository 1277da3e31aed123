package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aaronromeo/inboxdigest/internal/message"
)

const (
	DigestFileName = "emails-digest.md"
	MessagesDir    = "emails"

	noSubject = "(No Subject)"
	noSender  = "(Unknown Sender)"
	noDate    = "(Unknown Date)"
)

var ErrWrite = errors.New("export write failed")

// WriteError reports the artifact that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrWrite, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

// DigestHeader describes the run in the digest's header block.
type DigestHeader struct {
	AllowedSenders    []string
	DisableTimeFilter bool
	WindowHours       int
	MaxEmails         int
	GeneratedAt       time.Time
}

// Mode renders the active candidate selection mode.
func (h DigestHeader) Mode() string {
	if h.DisableTimeFilter {
		return fmt.Sprintf("time filter disabled (latest %d messages)", h.MaxEmails)
	}
	unit := "hours"
	if h.WindowHours == 1 {
		unit = "hour"
	}
	return fmt.Sprintf("last %d %s (time filter enabled)", h.WindowHours, unit)
}

// Result lists the artifacts a Write produced.
type Result struct {
	OutputDir    string
	DigestPath   string
	MessagePaths []string
}

// Paths returns every written artifact, per-message files first.
func (r Result) Paths() []string {
	if r.DigestPath == "" {
		return append([]string(nil), r.MessagePaths...)
	}
	return append(append([]string(nil), r.MessagePaths...), r.DigestPath)
}

type Option func(*Writer)

func WithOutputDir(dir string) Option {
	return func(w *Writer) {
		w.outputDir = dir
	}
}

func WithFileManager(fm FileManager) Option {
	return func(w *Writer) {
		w.files = fm
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

type Writer struct {
	outputDir string
	files     FileManager
	logger    *slog.Logger
	now       func() time.Time
}

func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		outputDir: ".",
		files:     OSFileManager{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write persists one file per email and then the digest. Nothing is written
// when emails is empty. A failure stops the export; files already written stay.
func (w *Writer) Write(ctx context.Context, emails []message.Collected, header DigestHeader) (Result, error) {
	if len(emails) == 0 {
		return Result{}, nil
	}

	result := Result{OutputDir: w.outputDir}
	messagesDir := filepath.Join(w.outputDir, MessagesDir)
	if err := w.files.MkdirAll(messagesDir, 0o755); err != nil {
		return result, errors.WithStack(&WriteError{Path: messagesDir, Err: err})
	}

	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "export cancelled")
		}
		path := filepath.Join(messagesDir, FileName(email.Subject, email.Stamp))
		if err := w.files.WriteFile(path, []byte(RenderMessage(email)), 0o644); err != nil {
			return result, errors.WithStack(&WriteError{Path: path, Err: err})
		}
		w.logger.Debug("wrote message file", "uid", email.UID, "path", path)
		result.MessagePaths = append(result.MessagePaths, path)
	}

	if header.GeneratedAt.IsZero() {
		header.GeneratedAt = w.now()
	}
	digestPath := filepath.Join(w.outputDir, DigestFileName)
	if err := w.files.WriteFile(digestPath, []byte(RenderDigest(emails, header)), 0o644); err != nil {
		return result, errors.WithStack(&WriteError{Path: digestPath, Err: err})
	}
	result.DigestPath = digestPath
	w.logger.Debug("wrote digest", "path", digestPath, "messages", len(emails))

	return result, nil
}

// RenderDigest builds the aggregate markdown for emails.
func RenderDigest(emails []message.Collected, header DigestHeader) string {
	var b strings.Builder
	b.WriteString("# Email Digest\n\n")
	fmt.Fprintf(&b, "**Allowed senders:** %s\n", strings.Join(header.AllowedSenders, ", "))
	fmt.Fprintf(&b, "**Mode:** %s\n", header.Mode())
	fmt.Fprintf(&b, "**Generated:** %s\n\n", header.GeneratedAt.UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")

	for _, email := range emails {
		fmt.Fprintf(&b, "## %s\n\n", orDefault(email.Subject, noSubject))
		fmt.Fprintf(&b, "**From:** %s\n", orDefault(email.From, noSender))
		fmt.Fprintf(&b, "**Date:** %s\n\n", dateText(email.Date))
		fmt.Fprintf(&b, "```text\n%s\n```\n\n", email.FileBody)
		b.WriteString("---\n\n")
	}
	return b.String()
}

// RenderMessage builds the markdown of one per-message file.
func RenderMessage(email message.Collected) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", orDefault(email.Subject, noSubject))
	fmt.Fprintf(&b, "**From:** %s\n", orDefault(email.From, noSender))
	fmt.Fprintf(&b, "**Date:** %s\n\n", dateText(email.Date))
	fmt.Fprintf(&b, "```text\n%s\n```\n", email.FileBody)
	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func dateText(date *time.Time) string {
	if date == nil {
		return noDate
	}
	return date.UTC().Format(time.RFC3339)
}
