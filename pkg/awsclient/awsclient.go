// Package awsclient builds the AWS SDK clients shared by the entry points.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/siqueiraa/pipemetrics/pkg/config"
)

// Clients holds one client per service used by pipemetrics.
type Clients struct {
	CloudWatch   *cloudwatch.Client
	CodePipeline *codepipeline.Client
	S3           *s3.Client
}

// LoadConfig resolves the SDK configuration. Region and static credentials
// are only applied when set, otherwise the default chain (Lambda role,
// environment, shared files) is used.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsConfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsConfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// New builds every client, pointing them at cfg.Endpoint when set (for
// LocalStack and similar emulators).
func New(ctx context.Context, cfg config.AWSConfig) (*Clients, error) {
	awsCfg, err := LoadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Clients{
		CloudWatch: cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		}),
		CodePipeline: codepipeline.NewFromConfig(awsCfg, func(o *codepipeline.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		}),
		S3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		}),
	}, nil
}

// Uploader returns a multipart uploader over the S3 client.
func (c *Clients) Uploader() *manager.Uploader {
	return manager.NewUploader(c.S3)
}
