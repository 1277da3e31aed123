package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aaronromeo/inboxdigest/internal/telemetry"
)

const (
	EnvConfig            = "INBOXDIGEST_CONFIG"
	envIMAPHost          = "INBOXDIGEST_IMAP_HOST"
	envIMAPPort          = "INBOXDIGEST_IMAP_PORT"
	envIMAPSecure        = "INBOXDIGEST_IMAP_SECURE"
	envIMAPFolder        = "INBOXDIGEST_IMAP_FOLDER"
	envIMAPUser          = "INBOXDIGEST_IMAP_USER"
	envIMAPPass          = "INBOXDIGEST_IMAP_PASS"
	envAllowedSenders    = "INBOXDIGEST_ALLOWED_SENDERS"
	envWindowHours       = "INBOXDIGEST_WINDOW_HOURS"
	envDisableTimeFilter = "INBOXDIGEST_DISABLE_TIME_FILTER"
	envMaxEmails         = "INBOXDIGEST_MAX_EMAILS"
	envOutputDir         = "INBOXDIGEST_OUTPUT_DIR"
	envLogLevel          = "INBOXDIGEST_LOG_LEVEL"
	envTelemetry         = "INBOXDIGEST_TELEMETRY"
	envS3Endpoint        = "INBOXDIGEST_S3_ENDPOINT"
	envS3Region          = "INBOXDIGEST_S3_REGION"
	envS3Bucket          = "INBOXDIGEST_S3_BUCKET"
	envS3Key             = "INBOXDIGEST_S3_KEY"
	envS3Secret          = "INBOXDIGEST_S3_SECRET"
	envS3Prefix          = "INBOXDIGEST_S3_PREFIX"
	envWebhookURL        = "INBOXDIGEST_WEBHOOK_URL"
)

var (
	// ErrMissingCredentials marks absent connection settings. Nothing is dialed.
	ErrMissingCredentials = errors.New("missing required environment variables")
	ErrInvalid            = errors.New("invalid configuration")
)

// DefaultAllowedSenders is used when no allow-list is configured.
var DefaultAllowedSenders = []string{"alerts@notify.example", "owner@personal.example"}

// Config is the effective configuration of one run. Secrets only come from the environment.
type Config struct {
	IMAP              IMAP     `yaml:"imap"`
	AllowedSenders    []string `yaml:"allowed_senders"`
	WindowHours       int      `yaml:"window_hours"`
	DisableTimeFilter bool     `yaml:"disable_time_filter"`
	MaxEmails         int      `yaml:"max_emails"`
	OutputDir         string   `yaml:"output_dir"`
	LogLevel          string   `yaml:"log_level"`
	Telemetry         string   `yaml:"telemetry"`
	Archive           Archive  `yaml:"-"`
	WebhookURL        string   `yaml:"-"`
}

// IMAP holds the store connection details.
type IMAP struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secure bool   `yaml:"secure"`
	Folder string `yaml:"folder"`
	User   string `yaml:"-"`
	Pass   string `yaml:"-"`
}

// Addr joins host and port.
func (i IMAP) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

// Archive configures the optional S3 upload of artifacts.
type Archive struct {
	Endpoint string
	Region   string
	Bucket   string
	Key      string
	Secret   string
	Prefix   string
}

func Default() Config {
	return Config{
		IMAP: IMAP{
			Port:   993,
			Secure: true,
			Folder: "INBOX",
		},
		AllowedSenders: append([]string(nil), DefaultAllowedSenders...),
		WindowHours:    2,
		MaxEmails:      10,
		OutputDir:      ".",
		LogLevel:       "info",
	}
}

// Load layers the YAML file at path (optional) and then the environment over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.AllowedSenders = cleanList(cfg.AllowedSenders)
	return cfg, nil
}

// FromEnv loads the configuration using the YAML path named by INBOXDIGEST_CONFIG, if any.
func FromEnv() (Config, error) {
	return Load(os.Getenv(EnvConfig))
}

func applyEnv(cfg *Config) error {
	setString(&cfg.IMAP.Host, envIMAPHost)
	setString(&cfg.IMAP.Folder, envIMAPFolder)
	setString(&cfg.IMAP.User, envIMAPUser)
	setString(&cfg.IMAP.Pass, envIMAPPass)
	setString(&cfg.OutputDir, envOutputDir)
	setString(&cfg.LogLevel, envLogLevel)
	setString(&cfg.Telemetry, envTelemetry)
	setString(&cfg.WebhookURL, envWebhookURL)
	setString(&cfg.Archive.Endpoint, envS3Endpoint)
	setString(&cfg.Archive.Region, envS3Region)
	setString(&cfg.Archive.Bucket, envS3Bucket)
	setString(&cfg.Archive.Key, envS3Key)
	setString(&cfg.Archive.Secret, envS3Secret)
	setString(&cfg.Archive.Prefix, envS3Prefix)

	if raw := lookup(envAllowedSenders); raw != "" {
		cfg.AllowedSenders = strings.Split(raw, ",")
	}

	if err := setInt(&cfg.IMAP.Port, envIMAPPort); err != nil {
		return err
	}
	if err := setInt(&cfg.WindowHours, envWindowHours); err != nil {
		return err
	}
	if err := setInt(&cfg.MaxEmails, envMaxEmails); err != nil {
		return err
	}
	if err := setBool(&cfg.IMAP.Secure, envIMAPSecure); err != nil {
		return err
	}
	return setBool(&cfg.DisableTimeFilter, envDisableTimeFilter)
}

func lookup(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func setString(target *string, name string) {
	if value := lookup(name); value != "" {
		*target = value
	}
}

func setInt(target *int, name string) error {
	value := lookup(name)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, name, value)
	}
	*target = n
	return nil
}

func setBool(target *bool, name string) error {
	value := lookup(name)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, name, value)
	}
	*target = b
	return nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

// Validate reports missing credentials first, then any invalid option.
func Validate(cfg Config) error {
	missing := []string{}
	if strings.TrimSpace(cfg.IMAP.Host) == "" {
		missing = append(missing, envIMAPHost)
	}
	if strings.TrimSpace(cfg.IMAP.User) == "" {
		missing = append(missing, envIMAPUser)
	}
	if strings.TrimSpace(cfg.IMAP.Pass) == "" {
		missing = append(missing, envIMAPPass)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if cfg.IMAP.Port < 1 || cfg.IMAP.Port > 65535 {
		return fmt.Errorf("%w: imap port %d out of range", ErrInvalid, cfg.IMAP.Port)
	}
	if strings.TrimSpace(cfg.IMAP.Folder) == "" {
		return fmt.Errorf("%w: imap folder is required", ErrInvalid)
	}
	if len(cleanList(cfg.AllowedSenders)) == 0 {
		return fmt.Errorf("%w: allowed senders must not be empty", ErrInvalid)
	}
	if cfg.MaxEmails <= 0 {
		return fmt.Errorf("%w: max emails must be positive, got %d", ErrInvalid, cfg.MaxEmails)
	}
	if cfg.WindowHours <= 0 {
		return fmt.Errorf("%w: window hours must be positive, got %d", ErrInvalid, cfg.WindowHours)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalid)
	}
	if _, err := telemetry.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := telemetry.ParseMode(cfg.Telemetry); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cfg.ArchiveEnabled() && strings.TrimSpace(cfg.Archive.Region) == "" {
		return fmt.Errorf("%w: %s is required when %s is set", ErrInvalid, envS3Region, envS3Bucket)
	}
	return nil
}

// ArchiveEnabled returns true when an S3 bucket is configured.
func (c Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.Archive.Bucket) != ""
}

// ReportingEnabled returns true when a webhook URL is configured.
func (c Config) ReportingEnabled() bool {
	return strings.TrimSpace(c.WebhookURL) != ""
}

// Summary returns the effective non-secret configuration.
func Summary(cfg Config) string {
	mode := fmt.Sprintf("last %d hour(s)", cfg.WindowHours)
	if cfg.DisableTimeFilter {
		mode = "time filter disabled"
	}
	return fmt.Sprintf(
		"Config summary\n"+
			"- imap: %s (secure: %t)\n"+
			"- folder: %s\n"+
			"- allowed senders: %s\n"+
			"- mode: %s\n"+
			"- max emails: %d\n"+
			"- output dir: %s\n"+
			"- archive: %s\n"+
			"- reporting webhook: %s",
		cfg.IMAP.Addr(), cfg.IMAP.Secure,
		cfg.IMAP.Folder,
		strings.Join(cfg.AllowedSenders, ", "),
		mode,
		cfg.MaxEmails,
		cfg.OutputDir,
		enabledIf(cfg.ArchiveEnabled(), "s3://"+cfg.Archive.Bucket+"/"+cfg.Archive.Prefix),
		enabledIf(cfg.ReportingEnabled(), "enabled"),
	)
}

func enabledIf(enabled bool, detail string) string {
	if !enabled {
		return "disabled"
	}
	return detail
}
