package queue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

const (
	metricNamespace = "AWS/SQS"
	metricName      = "ApproximateNumberOfMessagesVisible"
	metricQueryID   = "visiblesqsmessages"
	metricLabel     = "VisibleSQSMessages"
	metricPeriod    = 60
	maxDatapoints   = 100
	defaultWindow   = 60 * time.Second
)

// MetricDataAPI is the subset of the CloudWatch client used by CloudWatch.
type MetricDataAPI interface {
	GetMetricDataWithContext(ctx aws.Context, input *cloudwatch.GetMetricDataInput, opts ...request.Option) (*cloudwatch.GetMetricDataOutput, error)
}

// CloudWatch reads the average visible message count over a trailing
// window.
type CloudWatch struct {
	api     MetricDataAPI
	queue   string
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewCloudWatch creates a CloudWatch reader for cfg.Name.
func NewCloudWatch(api MetricDataAPI, cfg config.QueueConfig) (*CloudWatch, error) {
	if cfg.Name == "" {
		return nil, errors.NewConfigError("queue name is empty", errors.ErrMissingSetting).
			WithField("queue.name")
	}
	window := cfg.Window
	if window <= 0 {
		window = defaultWindow
	}
	return &CloudWatch{
		api:     api,
		queue:   cfg.Name,
		window:  window,
		timeout: cfg.Timeout,
		now:     time.Now,
	}, nil
}

// Name returns "cloudwatch".
func (c *CloudWatch) Name() string { return config.QueueProviderCloudWatch }

// Depth returns the mean of the datapoints in the window, newest first, or
// 0 when the window holds no datapoints.
func (c *CloudWatch) Depth(ctx context.Context) (float64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	end := c.now().UTC()
	out, err := c.api.GetMetricDataWithContext(ctx, c.input(end.Add(-c.window), end))
	if err != nil {
		return 0, c.fail(err)
	}

	for _, res := range out.MetricDataResults {
		if aws.StringValue(res.Label) != metricLabel {
			continue
		}
		return average(aws.Float64ValueSlice(res.Values)), nil
	}
	return 0, c.fail(errors.ErrNoDatapoints)
}

func (c *CloudWatch) input(start, end time.Time) *cloudwatch.GetMetricDataInput {
	return &cloudwatch.GetMetricDataInput{
		MetricDataQueries: []*cloudwatch.MetricDataQuery{
			{
				Id: aws.String(metricQueryID),
				MetricStat: &cloudwatch.MetricStat{
					Metric: &cloudwatch.Metric{
						Namespace:  aws.String(metricNamespace),
						MetricName: aws.String(metricName),
						Dimensions: []*cloudwatch.Dimension{
							{
								Name:  aws.String("QueueName"),
								Value: aws.String(c.queue),
							},
						},
					},
					Period: aws.Int64(metricPeriod),
					Stat:   aws.String(cloudwatch.StatisticAverage),
				},
				Label:      aws.String(metricLabel),
				ReturnData: aws.Bool(true),
			},
		},
		StartTime:     aws.Time(start),
		EndTime:       aws.Time(end),
		ScanBy:        aws.String(cloudwatch.ScanByTimestampDescending),
		MaxDatapoints: aws.Int64(maxDatapoints),
	}
}

func (c *CloudWatch) fail(err error) error {
	return errors.NewMetricFetchError(c.Name(), err).WithQueue(c.queue)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
