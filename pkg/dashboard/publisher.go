package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// PutDashboardAPI is the subset of *cloudwatch.Client used by CloudWatchPublisher.
type PutDashboardAPI interface {
	PutDashboard(ctx context.Context, params *cloudwatch.PutDashboardInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error)
}

type CloudWatchPublisher struct {
	client PutDashboardAPI
}

func NewCloudWatchPublisher(client PutDashboardAPI) *CloudWatchPublisher {
	return &CloudWatchPublisher{client: client}
}

func (p *CloudWatchPublisher) PutDashboard(ctx context.Context, name string, body []byte) error {
	out, err := p.client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(name),
		DashboardBody: aws.String(string(body)),
	})
	if err != nil {
		return err
	}
	for _, m := range out.DashboardValidationMessages {
		log.Printf("[Dashboard] Validation %s: %s", aws.ToString(m.DataPath), aws.ToString(m.Message))
	}
	return nil
}

// FilePublisher writes the body to a local file, replacing its content.
type FilePublisher struct {
	Path string
}

func (p FilePublisher) PutDashboard(_ context.Context, name string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), dirMode); err != nil {
		return fmt.Errorf("create dashboard directory: %w", err)
	}
	if err := os.WriteFile(p.Path, body, fileMode); err != nil {
		return err
	}
	log.Printf("[Dashboard] Wrote %s to %s", name, p.Path)
	return nil
}

// Uploader is satisfied by *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput,
		opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver uploads each body under <prefix><name>-<unix seconds>.json.
type S3Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	now      func() time.Time
}

func NewS3Archiver(uploader Uploader, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		now:      time.Now,
	}
}

func (a *S3Archiver) Archive(ctx context.Context, name string, body []byte) error {
	key := fmt.Sprintf("%s%s-%d.json", a.prefix, name, a.now().Unix())
	res, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return err
	}
	log.Printf("[Dashboard] Archived to %s", res.Location)
	return nil
}
