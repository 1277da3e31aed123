package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

const (
	runLayout   = "20060102T150405Z"
	contentType = "text/markdown; charset=utf-8"
)

// Settings locate the bucket. Key and Secret fall back to the default AWS
// credential chain when empty.
type Settings struct {
	Endpoint string
	Region   string
	Bucket   string
	Key      string
	Secret   string
	Prefix   string
}

type Option func(*Archiver)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Archiver) {
		a.logger = logger
	}
}

func WithPrefix(prefix string) Option {
	return func(a *Archiver) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// Archiver uploads a run's artifacts under one key prefix per run.
type Archiver struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
	logger   *slog.Logger
}

func New(uploader s3manageriface.UploaderAPI, bucket string, opts ...Option) *Archiver {
	a := &Archiver{
		uploader: uploader,
		bucket:   bucket,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewS3 builds an Archiver backed by an s3manager uploader. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3(settings Settings, opts ...Option) (*Archiver, error) {
	if strings.TrimSpace(settings.Bucket) == "" {
		return nil, errors.New("archive bucket is required")
	}

	awsCfg := &aws.Config{Region: aws.String(settings.Region)}
	if settings.Endpoint != "" {
		awsCfg.Endpoint = aws.String(settings.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if settings.Key != "" && settings.Secret != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(settings.Key, settings.Secret, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	opts = append([]Option{WithPrefix(settings.Prefix)}, opts...)
	return New(s3manager.NewUploader(sess), settings.Bucket, opts...), nil
}

// KeyFor returns the object key of the artifact at rel, relative to the output directory.
func (a *Archiver) KeyFor(runAt time.Time, rel string) string {
	return path.Join(a.prefix, runAt.UTC().Format(runLayout), filepath.ToSlash(rel))
}

// Upload stores every file in paths and returns the object keys in order.
// Paths are keyed relative to baseDir.
func (a *Archiver) Upload(ctx context.Context, baseDir string, paths []string, runAt time.Time) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(baseDir, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(p)
		}
		key := a.KeyFor(runAt, rel)
		if err := a.uploadFile(ctx, p, key); err != nil {
			return keys, err
		}
		a.logger.Debug("archived artifact", "path", p, "bucket", a.bucket, "key", key)
		keys = append(keys, key)
	}
	return keys, nil
}

func (a *Archiver) uploadFile(ctx context.Context, p, key string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", p, err)
	}
	defer f.Close()

	_, err = a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
