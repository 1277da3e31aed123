package base

import (
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

// State is the live connection shared by the session, search and fetch managers.
type State struct {
	Client *giimapclient.Client
}
