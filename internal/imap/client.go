package imap

import (
	"github.com/aaronromeo/inboxdigest/internal/imap/searches"
	"github.com/aaronromeo/inboxdigest/internal/imap/selectors"
	"github.com/aaronromeo/inboxdigest/internal/imap/sessionmgr"
)

// Client encapsulates an IMAP connection for the export run.
type Client struct {
	*sessionmgr.IMAPConnector
	*searches.IMAPSearchManager
	*selectors.IMAPSelectorManager
}

func New(opts ...sessionmgr.Option) *Client {
	session := sessionmgr.NewServerConnector(opts...)
	client := &Client{
		session,
		searches.New(session),
		selectors.New(session),
	}
	return client
}
