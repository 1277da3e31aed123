package cli

import (
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/aaronromeo/inboxdigest/ftest"
	"github.com/aaronromeo/inboxdigest/internal/config"
)

var envVars = []string{
	"INBOXDIGEST_CONFIG", "INBOXDIGEST_IMAP_HOST", "INBOXDIGEST_IMAP_PORT", "INBOXDIGEST_IMAP_SECURE",
	"INBOXDIGEST_IMAP_FOLDER", "INBOXDIGEST_IMAP_USER", "INBOXDIGEST_IMAP_PASS",
	"INBOXDIGEST_ALLOWED_SENDERS", "INBOXDIGEST_WINDOW_HOURS", "INBOXDIGEST_DISABLE_TIME_FILTER",
	"INBOXDIGEST_MAX_EMAILS", "INBOXDIGEST_OUTPUT_DIR", "INBOXDIGEST_LOG_LEVEL", "INBOXDIGEST_TELEMETRY",
	"INBOXDIGEST_S3_BUCKET", "INBOXDIGEST_S3_REGION", "INBOXDIGEST_S3_ENDPOINT", "INBOXDIGEST_S3_KEY",
	"INBOXDIGEST_S3_SECRET", "INBOXDIGEST_S3_PREFIX", "INBOXDIGEST_WEBHOOK_URL",
}

func resetCommand(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
	exportCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	t.Cleanup(func() { tlsConfig = nil })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	if t.Failed() || err != nil {
		t.Logf("stderr:\n%s", stderr.String())
	}
	return stdout.String(), err
}

func useLocalServer(t *testing.T, messages []ftest.MailboxMessage) {
	t.Helper()
	srv, cleanup := ftest.SetupIMAPServer(t, messages)
	t.Cleanup(cleanup)

	host, port, err := net.SplitHostPort(srv.Addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	t.Setenv("INBOXDIGEST_IMAP_HOST", host)
	t.Setenv("INBOXDIGEST_IMAP_PORT", port)
	t.Setenv("INBOXDIGEST_IMAP_USER", ftest.DefaultUser)
	t.Setenv("INBOXDIGEST_IMAP_PASS", ftest.DefaultPass)
	tlsConfig = ftest.ClientTLSConfig()
}

func TestExportMissingCredentials(t *testing.T) {
	resetCommand(t)
	t.Setenv("INBOXDIGEST_IMAP_HOST", "imap.invalid")

	_, err := execute(t, "export")
	if !errors.Is(err, config.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "INBOXDIGEST_IMAP_USER") || !strings.Contains(err.Error(), "INBOXDIGEST_IMAP_PASS") {
		t.Fatalf("expected missing variables to be named, got: %v", err)
	}
}

func TestExportRejectsInvalidFlag(t *testing.T) {
	resetCommand(t)
	t.Setenv("INBOXDIGEST_IMAP_HOST", "imap.invalid")
	t.Setenv("INBOXDIGEST_IMAP_USER", "me")
	t.Setenv("INBOXDIGEST_IMAP_PASS", "secret")

	_, err := execute(t, "export", "--max-emails", "0")
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected invalid config error, got: %v", err)
	}
}

func TestExportWritesArtifacts(t *testing.T) {
	resetCommand(t)
	useLocalServer(t, []ftest.MailboxMessage{
		{From: "Alerts <alerts@notify.example>", Subject: "Backup finished", Body: "All volumes copied."},
		{From: "Spam <spam@other.example>", Subject: "Deal", Body: "Buy"},
	})
	dir := t.TempDir()

	out, err := execute(t, "export", "--no-time-filter", "--output-dir", dir, "--verbose")
	if err != nil {
		t.Fatalf("expected export to succeed, got: %v", err)
	}
	if !strings.Contains(out, "Config summary") {
		t.Fatalf("expected verbose summary, got:\n%s", out)
	}
	if !strings.Contains(out, "exported 1 emails") {
		t.Fatalf("expected one exported email, got:\n%s", out)
	}

	digest, err := os.ReadFile(filepath.Join(dir, "emails-digest.md"))
	if err != nil {
		t.Fatalf("read digest: %v", err)
	}
	if !strings.Contains(string(digest), "## Backup finished\n") || strings.Contains(string(digest), "Deal") {
		t.Fatalf("unexpected digest:\n%s", digest)
	}
	if !strings.Contains(string(digest), "**Mode:** time filter disabled (latest 10 messages)\n") {
		t.Fatalf("unexpected mode line:\n%s", digest)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "emails"))
	if err != nil {
		t.Fatalf("read emails dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "Backup_finished_") {
		t.Fatalf("unexpected message files: %v", entries)
	}
}

func TestExportNoEmailsCollected(t *testing.T) {
	resetCommand(t)
	useLocalServer(t, []ftest.MailboxMessage{
		{From: "Spam <spam@other.example>", Subject: "Deal", Body: "Buy"},
	})
	dir := t.TempDir()
	t.Setenv("INBOXDIGEST_OUTPUT_DIR", dir)
	t.Setenv("INBOXDIGEST_ALLOWED_SENDERS", "billing@service.example")

	out, err := execute(t, "export", "--no-time-filter")
	if err != nil {
		t.Fatalf("expected export to succeed, got: %v", err)
	}
	if !strings.Contains(out, "no emails collected") {
		t.Fatalf("expected empty report, got:\n%s", out)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifacts, got %v", entries)
	}
}

func TestExportConnectionFailure(t *testing.T) {
	resetCommand(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	t.Setenv("INBOXDIGEST_IMAP_HOST", "127.0.0.1")
	t.Setenv("INBOXDIGEST_IMAP_PORT", port)
	t.Setenv("INBOXDIGEST_IMAP_USER", "me")
	t.Setenv("INBOXDIGEST_IMAP_PASS", "secret")

	_, err = execute(t, "export", "--output-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "imap connection failed") {
		t.Fatalf("expected connection error, got: %v", err)
	}
}

func TestVersion(t *testing.T) {
	resetCommand(t)
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out) != Version {
		t.Fatalf("unexpected version output %q", out)
	}
}
