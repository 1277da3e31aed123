package searches

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

// FolderStatus is the subset of STATUS data the candidate resolver needs.
type FolderStatus struct {
	Messages uint32
	UIDNext  uint32
}

type CandidateSearcher interface {
	SearchSince(ctx context.Context, since time.Time) ([]uint32, error)
	FolderStatus(ctx context.Context, folder string) (FolderStatus, error)
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
}

type IMAPSearchManager struct {
	provider func() *giimapclient.Client
}

func New(provider ClientProvider) *IMAPSearchManager {
	return &IMAPSearchManager{provider: provider.IMAPClient}
}

// SearchSince returns the UIDs in the selected folder received on or after since,
// sorted ascending. IMAP SINCE has day granularity, so the server widens the
// window to the start of since's date.
func (m *IMAPSearchManager) SearchSince(ctx context.Context, since time.Time) ([]uint32, error) {
	if m.provider == nil || m.provider() == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := buildSinceCriteria(since)
	data, err := m.provider().UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search since %s: %w", since.Format(time.RFC3339), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uids := data.AllUIDs()
	matches := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		matches = append(matches, uint32(uid))
	}
	return sortUnique(matches), nil
}

// FolderStatus queries message count and the next assignable UID for folder.
func (m *IMAPSearchManager) FolderStatus(ctx context.Context, folder string) (FolderStatus, error) {
	if m.provider == nil || m.provider() == nil {
		return FolderStatus{}, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return FolderStatus{}, err
	}
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return FolderStatus{}, errors.New("mailbox is required")
	}

	data, err := m.provider().Status(folder, &imap.StatusOptions{
		NumMessages: true,
		UIDNext:     true,
	}).Wait()
	if err != nil {
		return FolderStatus{}, fmt.Errorf("imap status %s: %w", folder, err)
	}

	status := FolderStatus{UIDNext: uint32(data.UIDNext)}
	if data.NumMessages != nil {
		status.Messages = *data.NumMessages
	}
	return status, nil
}

func buildSinceCriteria(since time.Time) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{}
	criteria.NotFlag = append(criteria.NotFlag, imap.FlagDeleted)
	criteria.Since = since
	return criteria
}

func sortUnique(uids []uint32) []uint32 {
	if len(uids) == 0 {
		return uids
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	out := uids[:1]
	for _, uid := range uids[1:] {
		if uid != out[len(out)-1] {
			out = append(out, uid)
		}
	}
	return out
}
