// Package cloudwatch publishes session metrics to CloudWatch and ships log
// lines to CloudWatch Logs.
package cloudwatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// NewLogsClient creates a CloudWatch Logs client with the specified profile and region.
func NewLogsClient(ctx context.Context, profile, region string) (*cloudwatchlogs.Client, error) {
	cfg, err := loadAWSConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return cloudwatchlogs.NewFromConfig(cfg), nil
}

// NewMetricsClient creates a CloudWatch metrics client with the specified profile and region.
func NewMetricsClient(ctx context.Context, profile, region string) (*cloudwatch.Client, error) {
	cfg, err := loadAWSConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return cloudwatch.NewFromConfig(cfg), nil
}

// loadAWSConfig loads the AWS configuration with optional profile and region.
func loadAWSConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, fmt.Errorf("no AWS region configured - set cloudwatch.region or AWS_REGION")
	}

	return cfg, nil
}

// GetAccountID returns the AWS account the credentials belong to, so the
// destination of shipped logs can be reported before anything is sent.
func GetAccountID(ctx context.Context, profile, region string) (string, error) {
	cfg, err := loadAWSConfig(ctx, profile, region)
	if err != nil {
		return "", err
	}

	result, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	if result.Account == nil {
		return "", fmt.Errorf("account ID not returned")
	}
	return *result.Account, nil
}
