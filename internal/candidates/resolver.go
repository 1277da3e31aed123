package candidates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aaronromeo/inboxdigest/internal/imap/searches"
)

const (
	DefaultMaxEmails   = 10
	DefaultWindowHours = 2
)

var ErrInvalidBound = errors.New("candidate bound must be positive")

type Option func(*Resolver)

func WithFolder(folder string) Option {
	return func(r *Resolver) {
		r.folder = strings.TrimSpace(folder)
	}
}

func WithMaxEmails(n int) Option {
	return func(r *Resolver) {
		r.maxEmails = n
	}
}

func WithWindowHours(h int) Option {
	return func(r *Resolver) {
		r.windowHours = h
	}
}

func WithDisableTimeFilter(disabled bool) Option {
	return func(r *Resolver) {
		r.disableTimeFilter = disabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver decides which UIDs of the selected folder a run should fetch.
type Resolver struct {
	searcher          searches.CandidateSearcher
	folder            string
	maxEmails         int
	windowHours       int
	disableTimeFilter bool
	now               func() time.Time
	logger            *slog.Logger
}

func New(searcher searches.CandidateSearcher, opts ...Option) *Resolver {
	r := &Resolver{
		searcher:    searcher,
		folder:      "INBOX",
		maxEmails:   DefaultMaxEmails,
		windowHours: DefaultWindowHours,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns at most maxEmails UIDs, newest first.
//
// With the time filter disabled the newest UIDs are derived from the folder's
// UIDNEXT. Otherwise a SINCE search over the window is used, falling back to the
// positional range when the search matches nothing.
func (r *Resolver) Resolve(ctx context.Context) ([]uint32, error) {
	if r.searcher == nil {
		return nil, errors.New("candidate searcher is required")
	}
	if r.maxEmails <= 0 {
		return nil, fmt.Errorf("%w: max emails %d", ErrInvalidBound, r.maxEmails)
	}

	var (
		uids []uint32
		err  error
	)
	if r.disableTimeFilter {
		uids, err = r.positional(ctx)
	} else {
		uids, err = r.timeWindow(ctx)
	}
	if err != nil {
		return nil, err
	}

	return Bound(uids, r.maxEmails), nil
}

func (r *Resolver) timeWindow(ctx context.Context) ([]uint32, error) {
	if r.windowHours <= 0 {
		return nil, fmt.Errorf("%w: window hours %d", ErrInvalidBound, r.windowHours)
	}
	since := r.now().Add(-time.Duration(r.windowHours) * time.Hour)
	uids, err := r.searcher.SearchSince(ctx, since)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		r.logger.Info("no messages in time window, falling back to latest messages",
			"window_hours", r.windowHours,
			"max_emails", r.maxEmails,
		)
		return r.positional(ctx)
	}
	r.logger.Debug("time window search", "since", since.UTC().Format(time.RFC3339), "matches", len(uids))
	return uids, nil
}

func (r *Resolver) positional(ctx context.Context) ([]uint32, error) {
	status, err := r.searcher.FolderStatus(ctx, r.folder)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("folder status", "folder", r.folder, "messages", status.Messages, "uid_next", status.UIDNext)
	return PositionalRange(status.UIDNext, r.maxEmails), nil
}

// PositionalRange returns the ascending UIDs [max(1, uidNext-n) .. uidNext-1].
// It is empty when the folder has never assigned a UID.
func PositionalRange(uidNext uint32, n int) []uint32 {
	if uidNext <= 1 || n <= 0 {
		return nil
	}
	last := uidNext - 1
	start := uint32(1)
	if uint64(last) > uint64(n) {
		start = last - uint32(n) + 1
	}
	out := make([]uint32, 0, last-start+1)
	for uid := start; uid <= last; uid++ {
		out = append(out, uid)
	}
	return out
}

// Bound keeps the last n entries of the ascending uids and returns them newest first.
func Bound(uids []uint32, n int) []uint32 {
	if n <= 0 || len(uids) == 0 {
		return nil
	}
	if len(uids) > n {
		uids = uids[len(uids)-n:]
	}
	out := make([]uint32, len(uids))
	for i, uid := range uids {
		out[len(uids)-1-i] = uid
	}
	return out
}
