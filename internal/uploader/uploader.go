package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/samber/lo"

	"github.com/john/chatbridge/internal/recorder"
)

// Options configures the S3 uploader
type Options struct {
	Bucket          string
	Region          string
	RoleARN         string // OIDC role, preferred
	AccessKeyID     string // Legacy static credentials
	SecretAccessKey string
	Endpoint        string // S3-compatible endpoint, empty for AWS
	DeleteAfter     bool
	MaxRetries      int
}

// Uploader uploads completed archive files to S3
type Uploader struct {
	client      ObjectPutter
	bucket      string
	deleteAfter bool
	maxRetries  int
	backoff     time.Duration
	logger      *slog.Logger
}

// New creates an S3 uploader. Static credentials win over the OIDC role;
// with neither, the default AWS credential chain is used.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Uploader, error) {
	logger = logger.With("component", "uploader")

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		logger.Warn("using static AWS credentials (deprecated), migrate to OIDC")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if opts.AccessKeyID == "" && opts.RoleARN != "" {
		logger.Info("using OIDC authentication", "role", opts.RoleARN)
		credProvider := stscreds.NewWebIdentityRoleProvider(
			sts.NewFromConfig(cfg),
			opts.RoleARN,
			newFlyTokenRetriever(flySocketPath, stsAudience),
		)
		cfg.Credentials = aws.NewCredentialsCache(credProvider)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newUploader(client, opts.Bucket, opts.DeleteAfter, opts.MaxRetries, logger), nil
}

func newUploader(client ObjectPutter, bucket string, deleteAfter bool, maxRetries int, logger *slog.Logger) *Uploader {
	return &Uploader{
		client:      client,
		bucket:      bucket,
		deleteAfter: deleteAfter,
		maxRetries:  maxRetries,
		backoff:     time.Second,
		logger:      logger,
	}
}

// ScanAndUploadExisting uploads archive files left behind by a previous run
func (u *Uploader) ScanAndUploadExisting(ctx context.Context, outputDir string) error {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read directory: %w", err)
	}

	files := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			return "", false
		}
		return filepath.Join(outputDir, entry.Name()), true
	})

	if len(files) == 0 {
		u.logger.Info("no existing files found to upload", "dir", outputDir)
		return nil
	}

	u.logger.Info("uploading existing files", "count", len(files))
	for _, path := range files {
		go u.uploadWithRetry(ctx, path)
	}

	return nil
}

// Start uploads files as they arrive until ctx is cancelled
func (u *Uploader) Start(ctx context.Context, fileChan <-chan string) error {
	for {
		select {
		case localPath := <-fileChan:
			go u.uploadWithRetry(ctx, localPath)

		case <-ctx.Done():
			u.logger.Info("uploader shutting down")
			return ctx.Err()
		}
	}
}

// uploadWithRetry uploads a file, backing off exponentially between attempts
func (u *Uploader) uploadWithRetry(ctx context.Context, localPath string) error {
	filename := filepath.Base(localPath)

	key, err := generateS3Key(filename)
	if err != nil {
		u.logger.Error("generate S3 key", "file", filename, "error", err)
		return err
	}

	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		err = u.uploadFile(ctx, localPath, key)
		if err == nil {
			u.logger.Info("uploaded file", "file", filename, "bucket", u.bucket, "key", key)
			if u.deleteAfter {
				if err := os.Remove(localPath); err != nil {
					u.logger.Error("delete local file", "file", localPath, "error", err)
				}
			}
			return nil
		}

		if attempt < u.maxRetries {
			backoff := u.backoff << uint(attempt)
			u.logger.Warn("upload attempt failed",
				"file", filename, "attempt", attempt+1, "max_retries", u.maxRetries, "retry_in", backoff, "error", err)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	u.logger.Error("giving up on upload", "file", filename, "attempts", u.maxRetries+1, "error", err)
	return err
}

func (u *Uploader) uploadFile(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	return nil
}

// generateS3Key derives the object key from an archive file name
// Input: discord_general-123_20251230_103000.jsonl
// Output: 2025/12/30/discord/general-123/discord_general-123_20251230_103000.jsonl
func generateS3Key(filename string) (string, error) {
	nameWithoutExt := strings.TrimSuffix(filename, ".jsonl")

	// Channel names may contain underscores, so parse from the end
	parts := strings.Split(nameWithoutExt, "_")
	if len(parts) < 4 {
		return "", fmt.Errorf("invalid filename format: %s", filename)
	}

	platform := parts[0]
	channel := strings.Join(parts[1:len(parts)-2], "_")
	stamp := parts[len(parts)-2] + "_" + parts[len(parts)-1]

	t, err := time.Parse(recorder.FileTimeLayout, stamp)
	if err != nil {
		return "", fmt.Errorf("parse timestamp: %w", err)
	}

	return fmt.Sprintf("%04d/%02d/%02d/%s/%s/%s",
		t.Year(), t.Month(), t.Day(), platform, channel, filename), nil
}
