package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a backend. Kind is "fs", "s3" or "gcs".
type Config struct {
	Kind    string
	Dir     string
	BaseURL string
	S3      S3Config
	GCS     string
}

func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case "", "fs":
		return NewFSStore(cfg.Dir, cfg.BaseURL)
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("blob store s3: bucket is required")
		}
		return NewS3Store(ctx, cfg.S3)
	case "gcs":
		if cfg.GCS == "" {
			return nil, fmt.Errorf("blob store gcs: bucket is required")
		}
		return NewGCSStore(ctx, cfg.GCS)
	}
	return nil, fmt.Errorf("unknown blob store %q", cfg.Kind)
}
