package config

import (
	"context"

	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/infra/gcs"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Archive holds raw payload archive configuration
type Archive struct {
	Bucket string
	Prefix string
}

// Flags returns CLI flags for archive configuration
func (c *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket keeping raw payloads of published releases",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("RELEASEPOST_ARCHIVE_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix in the archive bucket",
			Value:       "payloads",
			Destination: &c.Prefix,
			Sources:     cli.EnvVars("RELEASEPOST_ARCHIVE_PREFIX"),
		},
	}
}

// Configure returns a nil archiver when no bucket is set. The returned function releases the client.
func (c *Archive) Configure(ctx context.Context, opts ...option.ClientOption) (interfaces.PayloadArchiver, func(), error) {
	if c.Bucket == "" {
		return nil, func() {}, nil
	}

	archiver, err := gcs.NewArchiver(ctx, c.Bucket, c.Prefix, opts...)
	if err != nil {
		return nil, nil, err
	}
	return archiver, closer(ctx, archiver.Close), nil
}
