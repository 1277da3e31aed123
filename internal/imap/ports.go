package imap

import (
	"github.com/aaronromeo/inboxdigest/internal/imap/searches"
	"github.com/aaronromeo/inboxdigest/internal/imap/selectors"
	"github.com/aaronromeo/inboxdigest/internal/imap/sessionmgr"
)

//go:generate mockgen -source=ports.go -destination=../../pkg/mock/mailbox_mock.go -package=mock

// ExportRunner is everything one export run needs from the mailbox store.
type ExportRunner interface {
	sessionmgr.Session
	searches.CandidateSearcher
	selectors.SourceFetcher
}
