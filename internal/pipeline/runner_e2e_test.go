package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronromeo/inboxdigest/ftest"
	"github.com/aaronromeo/inboxdigest/internal/candidates"
	"github.com/aaronromeo/inboxdigest/internal/export"
	"github.com/aaronromeo/inboxdigest/internal/imap"
	"github.com/aaronromeo/inboxdigest/internal/imap/sessionmgr"
	"github.com/aaronromeo/inboxdigest/internal/matchers"
	"github.com/aaronromeo/inboxdigest/pkg/mock"
)

func TestRunAgainstLocalServer(t *testing.T) {
	srv, cleanup := ftest.SetupIMAPServer(t, []ftest.MailboxMessage{
		{
			From:    "Alerts <alerts@notify.example>",
			Subject: "Old alert",
			Body:    "stale",
			Date:    "Mon, 01 Jan 2024 08:00:00 +0000",
		},
		{
			From:    "Spam <spam@other.example>",
			Subject: "Buy now",
			Body:    "ignore me",
		},
		{
			From:     "Owner <owner@personal.example>",
			Subject:  "Weekly: report",
			Date:     "Tue, 02 Jan 2024 09:30:00 +0000",
			HTMLBody: "<html><body><p>Numbers &amp; charts</p><script>x()</script></body></html>",
		},
	})
	t.Cleanup(cleanup)

	logger := mock.SetupLogger(t)
	dir := t.TempDir()
	client := imap.New(
		sessionmgr.WithAddr(srv.Addr),
		sessionmgr.WithCreds(ftest.DefaultUser, ftest.DefaultPass),
		sessionmgr.WithTLSConfig(ftest.ClientTLSConfig()),
		sessionmgr.WithLogger(logger),
	)
	filter := matchers.NewSenderFilter([]string{"alerts@notify.example", "owner@personal.example"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	report, err := Run(ctx, Deps{
		Mailbox: client,
		Folder:  "INBOX",
		Resolver: candidates.New(client,
			candidates.WithDisableTimeFilter(true),
			candidates.WithMaxEmails(2),
			candidates.WithLogger(logger),
		),
		Filter: filter,
		Writer: export.NewWriter(export.WithOutputDir(dir), export.WithLogger(logger)),
		Header: export.DigestHeader{
			AllowedSenders:    filter.Entries(),
			DisableTimeFilter: true,
			MaxEmails:         2,
		},
		Log: logger,
	})
	require.NoError(t, err)

	// The two newest UIDs are the spam message and the owner report.
	assert.Equal(t, Stats{Candidates: 2, Rejected: 1, Collected: 1}, report.Stats)
	require.Len(t, report.Emails, 1)
	assert.Equal(t, "Numbers & charts", report.Emails[0].Body)

	wantFile := filepath.Join(dir, "emails", "Weekly_report_2024-01-02T09-30-00.000Z.md")
	assert.Equal(t, []string{wantFile}, report.Result.MessagePaths)

	content, err := os.ReadFile(wantFile)
	require.NoError(t, err)
	assert.Equal(t, "# Weekly: report\n\n"+
		"**From:** Owner <owner@personal.example>\n"+
		"**Date:** 2024-01-02T09:30:00Z\n\n"+
		"```text\nNumbers & charts\n```\n", string(content))

	digest, err := os.ReadFile(filepath.Join(dir, "emails-digest.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(digest), "# Email Digest\n\n**Allowed senders:** alerts@notify.example, owner@personal.example\n"))
	assert.Contains(t, string(digest), "**Mode:** time filter disabled (latest 2 messages)\n")
	assert.NotContains(t, string(digest), "Buy now")
	assert.NotContains(t, string(digest), "Old alert")

	// The session is closed by Run; closing again is a no-op.
	assert.NoError(t, client.Close())
}
