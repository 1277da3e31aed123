package candidates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronromeo/inboxdigest/internal/imap/searches"
	"github.com/aaronromeo/inboxdigest/pkg/mock"
)

type fakeSearcher struct {
	since       []uint32
	sinceErr    error
	status      searches.FolderStatus
	statusErr   error
	gotSince    time.Time
	gotFolder   string
	sinceCalls  int
	statusCalls int
}

func (f *fakeSearcher) SearchSince(_ context.Context, since time.Time) ([]uint32, error) {
	f.sinceCalls++
	f.gotSince = since
	return f.since, f.sinceErr
}

func (f *fakeSearcher) FolderStatus(_ context.Context, folder string) (searches.FolderStatus, error) {
	f.statusCalls++
	f.gotFolder = folder
	return f.status, f.statusErr
}

func TestResolvePositionalNewestFirst(t *testing.T) {
	searcher := &fakeSearcher{status: searches.FolderStatus{Messages: 10, UIDNext: 11}}
	r := New(searcher,
		WithDisableTimeFilter(true),
		WithMaxEmails(3),
		WithFolder("Archive"),
		WithLogger(mock.SetupLogger(t)),
	)

	uids, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint32{10, 9, 8}, uids)
	assert.Equal(t, "Archive", searcher.gotFolder)
	assert.Zero(t, searcher.sinceCalls)
}

func TestResolvePositionalSizeLaw(t *testing.T) {
	cases := []struct {
		uidNext uint32
		max     int
		want    int
	}{
		{uidNext: 1, max: 10, want: 0},
		{uidNext: 2, max: 10, want: 1},
		{uidNext: 5, max: 10, want: 4},
		{uidNext: 11, max: 10, want: 10},
		{uidNext: 500, max: 10, want: 10},
		{uidNext: 500, max: 1, want: 1},
	}

	for _, tc := range cases {
		searcher := &fakeSearcher{status: searches.FolderStatus{UIDNext: tc.uidNext}}
		r := New(searcher, WithDisableTimeFilter(true), WithMaxEmails(tc.max), WithLogger(mock.SetupLogger(t)))

		uids, err := r.Resolve(context.Background())
		require.NoError(t, err)
		require.Len(t, uids, tc.want, "uidNext=%d max=%d", tc.uidNext, tc.max)

		for i := 1; i < len(uids); i++ {
			assert.Less(t, uids[i], uids[i-1], "uids must be strictly decreasing")
		}
		if len(uids) > 0 {
			assert.Equal(t, tc.uidNext-1, uids[0])
		}
	}
}

func TestResolveTimeWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{since: []uint32{3, 7, 9, 12, 15}}
	r := New(searcher,
		WithMaxEmails(3),
		WithWindowHours(4),
		WithClock(func() time.Time { return now }),
		WithLogger(mock.SetupLogger(t)),
	)

	uids, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint32{15, 12, 9}, uids)
	assert.Equal(t, now.Add(-4*time.Hour), searcher.gotSince)
	assert.Zero(t, searcher.statusCalls)
}

func TestResolveEmptySearchFallsBackToPositional(t *testing.T) {
	status := searches.FolderStatus{Messages: 40, UIDNext: 41}

	windowed := &fakeSearcher{status: status}
	fallback, err := New(windowed, WithMaxEmails(5), WithLogger(mock.SetupLogger(t))).Resolve(context.Background())
	require.NoError(t, err)

	positional := &fakeSearcher{status: status}
	direct, err := New(positional, WithMaxEmails(5), WithDisableTimeFilter(true), WithLogger(mock.SetupLogger(t))).Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, direct, fallback)
	assert.Equal(t, []uint32{40, 39, 38, 37, 36}, fallback)
	assert.Equal(t, 1, windowed.sinceCalls)
	assert.Equal(t, 1, windowed.statusCalls)
}

func TestResolveEmptyFolder(t *testing.T) {
	searcher := &fakeSearcher{status: searches.FolderStatus{UIDNext: 1}}
	uids, err := New(searcher, WithLogger(mock.SetupLogger(t))).Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, uids)
}

func TestResolveErrors(t *testing.T) {
	searchErr := errors.New("connection reset")
	_, err := New(&fakeSearcher{sinceErr: searchErr}, WithLogger(mock.SetupLogger(t))).Resolve(context.Background())
	assert.ErrorIs(t, err, searchErr)

	statusErr := errors.New("no such mailbox")
	_, err = New(&fakeSearcher{statusErr: statusErr}, WithDisableTimeFilter(true), WithLogger(mock.SetupLogger(t))).Resolve(context.Background())
	assert.ErrorIs(t, err, statusErr)

	_, err = New(&fakeSearcher{}, WithMaxEmails(0)).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrInvalidBound)

	_, err = New(&fakeSearcher{}, WithWindowHours(0)).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrInvalidBound)
}

func TestBound(t *testing.T) {
	assert.Equal(t, []uint32{5, 4, 3}, Bound([]uint32{1, 2, 3, 4, 5}, 3))
	assert.Equal(t, []uint32{2, 1}, Bound([]uint32{1, 2}, 3))
	assert.Nil(t, Bound(nil, 3))
	assert.Nil(t, Bound([]uint32{1}, 0))
}
