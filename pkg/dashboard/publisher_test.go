package dashboard

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutDashboard struct {
	inputs []*cloudwatch.PutDashboardInput
}

func (f *fakePutDashboard) PutDashboard(_ context.Context, in *cloudwatch.PutDashboardInput,
	_ ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutDashboardOutput{
		DashboardValidationMessages: []types.DashboardValidationMessage{
			{DataPath: aws.String("/widgets/0"), Message: aws.String("ignored in test")},
		},
	}, nil
}

func TestCloudWatchPublisher(t *testing.T) {
	fake := &fakePutDashboard{}

	err := NewCloudWatchPublisher(fake).PutDashboard(context.Background(), "Pipeline", []byte(`{"widgets":[]}`))
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "Pipeline", aws.ToString(fake.inputs[0].DashboardName))
	assert.Equal(t, `{"widgets":[]}`, aws.ToString(fake.inputs[0].DashboardBody))
}

type fakeUploader struct {
	bucket, key, contentType string
	body                     []byte
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput,
	_ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &manager.UploadOutput{Location: "s3://" + f.bucket + "/" + f.key}, nil
}

func TestS3Archiver(t *testing.T) {
	up := &fakeUploader{}
	arch := NewS3Archiver(up, "archive-bucket", "dashboards/")
	arch.now = func() time.Time { return time.Unix(1704067200, 0) }

	require.NoError(t, arch.Archive(context.Background(), "Pipeline", []byte(`{"widgets":[]}`)))

	assert.Equal(t, "archive-bucket", up.bucket)
	assert.Equal(t, "dashboards/Pipeline-1704067200.json", up.key)
	assert.Equal(t, "application/json", up.contentType)
	assert.Equal(t, `{"widgets":[]}`, string(up.body))
}
