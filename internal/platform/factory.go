package platform

import (
	"context"
	"fmt"
	"slices"

	"sitereg/internal/config"
	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
	"sitereg/internal/platform/bucket"
)

// NewAdapterFromConfig builds the Adapter a platform config describes.
func NewAdapterFromConfig(ctx context.Context, cfg config.PlatformConfig, clock lifecycle.Clock) (lifecycle.Adapter, error) {
	switch cfg.Type {
	case "github":
		if cfg.Org == "" {
			return nil, fmt.Errorf("github platform requires an org")
		}
		return NewGitHubAdapter(cfg, clock), nil

	case "deploy":
		if cfg.APIBaseURL == "" {
			return nil, fmt.Errorf("deploy platform requires an api_base_url")
		}
		return NewDeployAdapter(cfg, clock), nil

	case "cms":
		if cfg.APIBaseURL == "" {
			return nil, fmt.Errorf("cms platform requires an api_base_url")
		}
		return NewCMSAdapter(cfg), nil

	case "bucket":
		b, err := newBucketBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewBackupAdapter(b, clock, cfg.StaleAfterDays), nil

	case "memory":
		platform := model.Platform(cfg.Platform)
		if !slices.Contains(model.AllPlatforms(), platform) {
			return nil, fmt.Errorf("memory platform requires a valid platform slot, got %q", cfg.Platform)
		}
		return NewMemoryAdapter(platform), nil

	default:
		return nil, fmt.Errorf("unknown platform type: %s", cfg.Type)
	}
}

func newBucketBackend(ctx context.Context, cfg config.PlatformConfig) (bucket.Bucket, error) {
	if cfg.Bucket == "" && cfg.Backend != "memory" {
		return nil, fmt.Errorf("bucket platform requires a bucket name")
	}
	switch cfg.Backend {
	case "s3":
		return bucket.NewS3Bucket(ctx, cfg.Bucket, cfg.Region)
	case "gcs":
		return bucket.NewGCSBucket(ctx, cfg.Bucket, cfg.CredentialsFile)
	case "memory":
		return bucket.NewMemoryBucket(), nil
	default:
		return nil, fmt.Errorf("unknown bucket backend: %s", cfg.Backend)
	}
}
