package announcer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const webhookAnnouncePath = "/announcements"

type Option func(*webhookAnnouncer)

type Service interface {
	Announce(ctx context.Context, run RunSummary) error
}

// RunSummary is what a finished export reports.
type RunSummary struct {
	RunID      string
	Folder     string
	Candidates int
	Collected  int
	Rejected   int
	Failures   int
	DigestPath string
}

// Message renders the one-line announcement.
func (s RunSummary) Message() string {
	if s.Collected == 0 {
		return fmt.Sprintf("export %s: folder %q had %d candidates, no emails collected", s.RunID, s.Folder, s.Candidates)
	}
	return fmt.Sprintf("export %s: folder %q exported %d of %d candidates (%d rejected, %d failed) to %s",
		s.RunID, s.Folder, s.Collected, s.Candidates, s.Rejected, s.Failures, s.DigestPath)
}

func WithWebhookURL(webhookURL string) Option {
	return func(a *webhookAnnouncer) {
		a.baseURL = strings.TrimSpace(webhookURL)
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(a *webhookAnnouncer) {
		a.client = client
	}
}

type webhookAnnouncer struct {
	baseURL string
	client  *http.Client
}

func New(opts ...Option) *webhookAnnouncer {
	announcer := &webhookAnnouncer{
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(announcer)
	}
	return announcer
}

// Announce posts the run summary to the webhook. It does nothing without a URL.
func (a *webhookAnnouncer) Announce(ctx context.Context, run RunSummary) error {
	if a.baseURL == "" {
		return nil
	}
	baseURL := strings.TrimRight(a.baseURL, "/")
	payload, err := json.Marshal(map[string]string{"message": run.Message()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+webhookAnnouncePath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reporting webhook returned status %s", resp.Status)
	}
	return nil
}
