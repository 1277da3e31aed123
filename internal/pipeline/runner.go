package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aaronromeo/inboxdigest/internal/export"
	"github.com/aaronromeo/inboxdigest/internal/imap"
	"github.com/aaronromeo/inboxdigest/internal/matchers"
	"github.com/aaronromeo/inboxdigest/internal/message"
	"github.com/aaronromeo/inboxdigest/internal/telemetry"
)

type Resolver interface {
	Resolve(ctx context.Context) ([]uint32, error)
}

type ArtifactWriter interface {
	Write(ctx context.Context, emails []message.Collected, header export.DigestHeader) (export.Result, error)
}

// Deps is everything one export run is wired with.
type Deps struct {
	Mailbox  imap.ExportRunner
	Folder   string
	Resolver Resolver
	Filter   *matchers.SenderFilter
	Writer   ArtifactWriter
	Header   export.DigestHeader
	Log      *slog.Logger
	Metrics  *telemetry.Metrics
	Now      func() time.Time
}

// Stats summarizes what happened to the candidates of a run.
type Stats struct {
	Candidates    int
	FetchFailures int
	ParseFailures int
	Rejected      int
	Collected     int
}

type Report struct {
	Stats  Stats
	Result export.Result
	Emails []message.Collected
}

type outcomeKind int

const (
	outcomeCollected outcomeKind = iota
	outcomeFetchFailed
	outcomeParseFailed
	outcomeRejected
)

// outcome is the result of processing one UID.
type outcome struct {
	kind  outcomeKind
	email message.Collected
	from  string
	err   error
}

// Run connects, resolves candidates, processes them one UID at a time and
// writes the artifacts. The session is always closed; a close failure is only logged.
func Run(ctx context.Context, deps Deps) (report Report, err error) {
	if err := validate(&deps); err != nil {
		return Report{}, err
	}

	ctx, span := otel.Tracer(telemetry.InstrumentationName).Start(ctx, "inboxdigest.export")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	defer func() {
		if closeErr := deps.Mailbox.Close(); closeErr != nil {
			deps.Log.Warn("failed to close mailbox session", "error", closeErr)
		}
	}()

	if err := deps.Mailbox.Connect(ctx); err != nil {
		return report, err
	}
	if err := deps.Mailbox.SelectFolder(ctx, deps.Folder); err != nil {
		return report, err
	}
	deps.Log.Info("selected folder", "folder", deps.Folder)

	uids, err := deps.Resolver.Resolve(ctx)
	if err != nil {
		return report, fmt.Errorf("resolve candidates: %w", err)
	}
	report.Stats.Candidates = len(uids)
	deps.Metrics.Candidates.Add(ctx, int64(len(uids)))
	span.SetAttributes(attribute.Int("inboxdigest.candidates", len(uids)))
	deps.Log.Info("resolved candidates", "count", len(uids), "uids", uids)

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := processUID(ctx, deps, uid)
		switch res.kind {
		case outcomeFetchFailed:
			report.Stats.FetchFailures++
			deps.Metrics.FetchFailures.Add(ctx, 1)
			deps.Log.Warn("failed to fetch message", "uid", uid, "error", res.err)
		case outcomeParseFailed:
			report.Stats.ParseFailures++
			deps.Metrics.ParseFailures.Add(ctx, 1)
			deps.Log.Warn("failed to parse message", "uid", uid, "error", res.err)
		case outcomeRejected:
			report.Stats.Rejected++
			deps.Metrics.Rejected.Add(ctx, 1)
			deps.Log.Info("skipping message from sender not in allow-list", "uid", uid, "from", res.from)
		case outcomeCollected:
			report.Stats.Collected++
			deps.Metrics.Collected.Add(ctx, 1)
			report.Emails = append(report.Emails, res.email)
			deps.Log.Info("collected message",
				"uid", uid,
				"from", res.email.From,
				"subject", res.email.Subject,
				"preview", res.email.Preview,
			)
		}
	}

	if len(report.Emails) == 0 {
		deps.Log.Info("no emails collected", "stats", report.Stats)
		return report, nil
	}

	result, err := deps.Writer.Write(ctx, report.Emails, deps.Header)
	report.Result = result
	deps.Metrics.Artifacts.Add(ctx, int64(len(result.Paths())))
	if err != nil {
		return report, err
	}

	deps.Log.Info("exported emails",
		"count", len(report.Emails),
		"digest", result.DigestPath,
		"files", result.MessagePaths,
		"stats", report.Stats,
	)
	return report, nil
}

func processUID(ctx context.Context, deps Deps, uid uint32) outcome {
	raw, err := deps.Mailbox.FetchSource(ctx, uid)
	if err != nil {
		return outcome{kind: outcomeFetchFailed, err: err}
	}

	parsed, err := message.Parse(raw)
	if err != nil {
		return outcome{kind: outcomeParseFailed, err: err}
	}

	if ok, _ := deps.Filter.Accept(parsed.From); !ok {
		return outcome{kind: outcomeRejected, from: parsed.From}
	}

	return outcome{kind: outcomeCollected, email: message.Collect(uid, parsed, deps.Now())}
}

func validate(deps *Deps) error {
	if deps.Mailbox == nil {
		return errors.New("mailbox is required")
	}
	if deps.Resolver == nil {
		return errors.New("candidate resolver is required")
	}
	if deps.Filter == nil {
		return errors.New("sender filter is required")
	}
	if deps.Writer == nil {
		return errors.New("artifact writer is required")
	}
	if deps.Folder == "" {
		deps.Folder = "INBOX"
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return nil
}
