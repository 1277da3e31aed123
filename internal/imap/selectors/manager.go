package selectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

// ErrEmptySource is returned when the store has no source bytes for a UID.
var ErrEmptySource = errors.New("message source is empty")

// FetchError reports a failed source retrieval for a single UID.
type FetchError struct {
	UID uint32
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch uid %d: %v", e.UID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type SourceFetcher interface {
	FetchSource(ctx context.Context, uid uint32) ([]byte, error)
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
}

type IMAPSelectorManager struct {
	provider func() *giimapclient.Client
}

func New(provider ClientProvider) *IMAPSelectorManager {
	return &IMAPSelectorManager{provider: provider.IMAPClient}
}

// FetchSource returns the full RFC 5322 source of uid in the selected folder.
// The fetch uses BODY.PEEK[] so the message keeps its \Seen state.
func (c *IMAPSelectorManager) FetchSource(ctx context.Context, uid uint32) ([]byte, error) {
	if c.provider == nil || c.provider() == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	buffers, err := c.provider().Fetch(imap.UIDSetNum(imap.UID(uid)), fetchOptions).Collect()
	if err != nil {
		return nil, &FetchError{UID: uid, Err: err}
	}
	if len(buffers) == 0 {
		return nil, &FetchError{UID: uid, Err: ErrEmptySource}
	}

	raw := buffers[0].FindBodySection(bodySection)
	if len(raw) == 0 {
		return nil, &FetchError{UID: uid, Err: ErrEmptySource}
	}
	return raw, nil
}
