package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aaronromeo/inboxdigest/internal/announcer"
	"github.com/aaronromeo/inboxdigest/internal/archive"
	"github.com/aaronromeo/inboxdigest/internal/candidates"
	"github.com/aaronromeo/inboxdigest/internal/config"
	"github.com/aaronromeo/inboxdigest/internal/export"
	"github.com/aaronromeo/inboxdigest/internal/imap"
	"github.com/aaronromeo/inboxdigest/internal/imap/sessionmgr"
	"github.com/aaronromeo/inboxdigest/internal/matchers"
	"github.com/aaronromeo/inboxdigest/internal/pipeline"
	"github.com/aaronromeo/inboxdigest/internal/telemetry"
)

const defaultEnvFile = ".env"

// tlsConfig is used for secure connections when set; tests point it at a local server.
var tlsConfig *tls.Config

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent messages from allow-listed senders",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnvFile(); err != nil {
			return err
		}

		cfgPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfgPath) == "" {
			cfgPath = os.Getenv(config.EnvConfig)
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, &cfg); err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintln(cmd.OutOrStdout(), config.Summary(cfg))
			cfg.LogLevel = "debug"
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runExport(ctx, cmd, cfg)
	},
}

func init() {
	exportCmd.Flags().String("config", "", "Path to YAML config file (or set INBOXDIGEST_CONFIG)")
	exportCmd.Flags().String("output-dir", "", "Directory the digest and message files are written to")
	exportCmd.Flags().Int("max-emails", 0, "Maximum number of messages to export")
	exportCmd.Flags().Int("window-hours", 0, "Only consider messages received in the last N hours")
	exportCmd.Flags().Bool("no-time-filter", false, "Export the latest messages regardless of age")
	exportCmd.Flags().Bool("verbose", false, "Print the effective configuration and enable debug logging")
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		dir, err := flags.GetString("output-dir")
		if err != nil {
			return err
		}
		cfg.OutputDir = dir
	}
	if flags.Changed("max-emails") {
		n, err := flags.GetInt("max-emails")
		if err != nil {
			return err
		}
		cfg.MaxEmails = n
	}
	if flags.Changed("window-hours") {
		h, err := flags.GetInt("window-hours")
		if err != nil {
			return err
		}
		cfg.WindowHours = h
	}
	if flags.Changed("no-time-filter") {
		disabled, err := flags.GetBool("no-time-filter")
		if err != nil {
			return err
		}
		cfg.DisableTimeFilter = disabled
	}
	return nil
}

func runExport(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	level, err := telemetry.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	mode, err := telemetry.ParseMode(cfg.Telemetry)
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, mode, telemetry.WithVersion(Version), telemetry.WithWriter(cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := telemetry.NewLogger(cmd.ErrOrStderr(), level, mode).With("run_id", runID)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush telemetry", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return err
	}

	client := imap.New(
		sessionmgr.WithAddr(cfg.IMAP.Addr()),
		sessionmgr.WithCreds(cfg.IMAP.User, cfg.IMAP.Pass),
		sessionmgr.WithSecure(cfg.IMAP.Secure),
		sessionmgr.WithTLSConfig(tlsConfig),
		sessionmgr.WithLogger(logger),
	)
	filter := matchers.NewSenderFilter(cfg.AllowedSenders)
	runAt := time.Now()

	report, err := pipeline.Run(ctx, pipeline.Deps{
		Mailbox: client,
		Folder:  cfg.IMAP.Folder,
		Resolver: candidates.New(client,
			candidates.WithFolder(cfg.IMAP.Folder),
			candidates.WithMaxEmails(cfg.MaxEmails),
			candidates.WithWindowHours(cfg.WindowHours),
			candidates.WithDisableTimeFilter(cfg.DisableTimeFilter),
			candidates.WithLogger(logger),
		),
		Filter: filter,
		Writer: export.NewWriter(
			export.WithOutputDir(cfg.OutputDir),
			export.WithLogger(logger),
		),
		Header: export.DigestHeader{
			AllowedSenders:    filter.Entries(),
			DisableTimeFilter: cfg.DisableTimeFilter,
			WindowHours:       cfg.WindowHours,
			MaxEmails:         cfg.MaxEmails,
			GeneratedAt:       runAt,
		},
		Log:     logger,
		Metrics: metrics,
	})
	if err != nil {
		logger.Error("export failed", "error", err)
		return err
	}

	if paths := report.Result.Paths(); len(paths) > 0 && cfg.ArchiveEnabled() {
		archiveArtifacts(ctx, logger, cfg, report.Result, runAt)
	}

	if cfg.ReportingEnabled() {
		a := announcer.New(announcer.WithWebhookURL(cfg.WebhookURL))
		if err := a.Announce(ctx, summarize(runID, cfg.IMAP.Folder, report)); err != nil {
			logger.Warn("failed to announce run", "error", err)
		}
	}

	printReport(cmd, report)
	return nil
}

func archiveArtifacts(ctx context.Context, logger *slog.Logger, cfg config.Config, result export.Result, runAt time.Time) {
	archiver, err := archive.NewS3(archive.Settings{
		Endpoint: cfg.Archive.Endpoint,
		Region:   cfg.Archive.Region,
		Bucket:   cfg.Archive.Bucket,
		Key:      cfg.Archive.Key,
		Secret:   cfg.Archive.Secret,
		Prefix:   cfg.Archive.Prefix,
	}, archive.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to configure archive", "error", err)
		return
	}
	keys, err := archiver.Upload(ctx, result.OutputDir, result.Paths(), runAt)
	if err != nil {
		logger.Warn("failed to archive artifacts", "error", err, "uploaded", len(keys))
		return
	}
	logger.Info("archived artifacts", "bucket", cfg.Archive.Bucket, "objects", len(keys))
}

func summarize(runID, folder string, report pipeline.Report) announcer.RunSummary {
	return announcer.RunSummary{
		RunID:      runID,
		Folder:     folder,
		Candidates: report.Stats.Candidates,
		Collected:  report.Stats.Collected,
		Rejected:   report.Stats.Rejected,
		Failures:   report.Stats.FetchFailures + report.Stats.ParseFailures,
		DigestPath: report.Result.DigestPath,
	}
}

func printReport(cmd *cobra.Command, report pipeline.Report) {
	out := cmd.OutOrStdout()
	if len(report.Emails) == 0 {
		fmt.Fprintln(out, "no emails collected")
		return
	}
	fmt.Fprintf(out, "exported %d emails\n", len(report.Emails))
	fmt.Fprintf(out, "- digest: %s\n", report.Result.DigestPath)
	for _, p := range report.Result.MessagePaths {
		fmt.Fprintf(out, "- %s\n", p)
	}
}

func loadEnvFile() error {
	if _, err := os.Stat(defaultEnvFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(defaultEnvFile)
}
