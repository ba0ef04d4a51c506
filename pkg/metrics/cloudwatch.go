package metrics

import (
	"context"
	"fmt"
	"iter"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatchAPI is the subset of *cloudwatch.Client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
	cloudwatch.ListMetricsAPIClient
}

// CloudWatch is the Sink and Lister backed by Amazon CloudWatch.
type CloudWatch struct {
	client CloudWatchAPI
}

func NewCloudWatch(client CloudWatchAPI) *CloudWatch {
	return &CloudWatch{client: client}
}

// Put submits data as a single PutMetricData call. Empty batches are a no-op.
func (c *CloudWatch) Put(ctx context.Context, namespace string, data []Datum) error {
	if len(data) == 0 {
		return nil
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: make([]types.MetricDatum, 0, len(data)),
	}
	for _, d := range data {
		input.MetricData = append(input.MetricData, toMetricDatum(d))
	}

	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data to %s: %w", namespace, err)
	}
	log.Printf("[CloudWatch] Put %d datum(s) to namespace %s", len(data), namespace)
	return nil
}

// List walks ListMetrics pages on demand.
func (c *CloudWatch) List(ctx context.Context, namespace string) iter.Seq2[Descriptor, error] {
	return func(yield func(Descriptor, error) bool) {
		pager := cloudwatch.NewListMetricsPaginator(c.client, &cloudwatch.ListMetricsInput{
			Namespace: aws.String(namespace),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(Descriptor{}, fmt.Errorf("list metrics in %s: %w", namespace, err))
				return
			}
			for _, m := range page.Metrics {
				if !yield(fromMetric(m), nil) {
					return
				}
			}
		}
	}
}

func toMetricDatum(d Datum) types.MetricDatum {
	dims := make([]types.Dimension, 0, len(d.Dimensions))
	for _, dim := range d.Dimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(dim.Name),
			Value: aws.String(dim.Value),
		})
	}

	unit := types.StandardUnitCount
	if d.Unit == UnitSeconds {
		unit = types.StandardUnitSeconds
	}

	return types.MetricDatum{
		MetricName: aws.String(string(d.Name)),
		Dimensions: dims,
		Timestamp:  aws.Time(d.Timestamp),
		Value:      aws.Float64(d.Value),
		Unit:       unit,
	}
}

func fromMetric(m types.Metric) Descriptor {
	desc := Descriptor{
		Namespace:  aws.ToString(m.Namespace),
		Name:       Name(aws.ToString(m.MetricName)),
		Dimensions: make([]Dimension, 0, len(m.Dimensions)),
	}
	for _, dim := range m.Dimensions {
		desc.Dimensions = append(desc.Dimensions, Dimension{
			Name:  aws.ToString(dim.Name),
			Value: aws.ToString(dim.Value),
		})
	}
	return desc
}
