package aws_ce

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/cost-notifier/pkg/models/domain"
)

const (
	// Cost Explorer is served from us-east-1 regardless of where the caller runs.
	DefaultRegion = "us-east-1"
)

// LoadConfig resolves AWS credentials for profile (empty means the default
// chain) and fails early when they cannot be retrieved.
func LoadConfig(ctx context.Context, profile, region string) (*awssdk.Config, error) {
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{
		config.WithDefaultRegion(region),
	}
	if profile != "" {
		if err := CheckProfile(profile); err != nil {
			return nil, domain.PermanentSourceError("load aws config", err)
		}
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, domain.PermanentSourceError("load aws config", fmt.Errorf("unable to load AWS SDK config: %w", err))
	}

	// Test the credentials
	if _, err = awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, domain.PermanentSourceError("load aws config",
			fmt.Errorf("invalid AWS credentials for profile %q: %w", profile, err))
	}

	return &awsCfg, nil
}
