package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/platform/s3"
)

// LogArchiver uploads a gathered log tree to object storage.
type LogArchiver interface {
	EnsureBucket(ctx context.Context, bucket string) error
	UploadDir(ctx context.Context, bucket, prefix, dir string) (int, error)
}

// newLogArchiver creates the S3 archive client - replaced in tests.
var newLogArchiver = func(a config.ArchiveOptions, log zerolog.Logger) (LogArchiver, error) {
	return s3.NewClient(a.Endpoint, a.Region, a.AccessKey, a.SecretKey, log)
}

// Logs handles the logs command: it gathers every node's log directory
// into the destination and optionally archives the tree to an
// S3-compatible bucket. A partial gather still archives what was
// fetched; the per-node failures are reported afterwards.
func Logs(ctx context.Context, configPath string, flags *config.Options) error {
	opts, err := loadOptions(configPath, flags)
	if err != nil {
		return err
	}
	if opts.Destination == "" {
		return fmt.Errorf("a destination directory is required")
	}

	deployer, err := newDeployer(opts)
	if err != nil {
		return err
	}

	gatherErr := deployer.GatherLogs(ctx, opts)

	if opts.Archive.Enabled() {
		if err := archiveLogs(ctx, opts); err != nil {
			if gatherErr != nil {
				return fmt.Errorf("gather failed (%v) and archive failed: %w", gatherErr, err)
			}
			return err
		}
	}
	if gatherErr != nil {
		return gatherErr
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("Logs gathered into %s", opts.Destination)))
	return nil
}

func archiveLogs(ctx context.Context, opts *config.Options) error {
	archiver, err := newLogArchiver(opts.Archive, newLogger(opts.Verbose))
	if err != nil {
		return err
	}
	if err := archiver.EnsureBucket(ctx, opts.Archive.Bucket); err != nil {
		return err
	}
	prefix := fmt.Sprintf("%s/%s", opts.Keyname, time.Now().UTC().Format("2006-01-02T15-04-05"))
	count, err := archiver.UploadDir(ctx, opts.Archive.Bucket, prefix, opts.Destination)
	if err != nil {
		return fmt.Errorf("archiving logs to %s: %w", opts.Archive.Bucket, err)
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Archived %d log files to %s/%s", count, opts.Archive.Bucket, prefix)))
	return nil
}
