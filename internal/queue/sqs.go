package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sqs"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// QueueAttributesAPI is the subset of the SQS client used by SQS.
type QueueAttributesAPI interface {
	GetQueueUrlWithContext(ctx aws.Context, input *sqs.GetQueueUrlInput, opts ...request.Option) (*sqs.GetQueueUrlOutput, error)
	GetQueueAttributesWithContext(ctx aws.Context, input *sqs.GetQueueAttributesInput, opts ...request.Option) (*sqs.GetQueueAttributesOutput, error)
}

// SQS reads the ApproximateNumberOfMessages attribute of a queue. The queue
// URL is resolved on the first successful read and cached.
type SQS struct {
	api     QueueAttributesAPI
	queue   string
	timeout time.Duration

	mu  sync.Mutex
	url string
}

// NewSQS creates an SQS reader for cfg.Name.
func NewSQS(api QueueAttributesAPI, cfg config.QueueConfig) (*SQS, error) {
	if cfg.Name == "" {
		return nil, errors.NewConfigError("queue name is empty", errors.ErrMissingSetting).
			WithField("queue.name")
	}
	return &SQS{api: api, queue: cfg.Name, timeout: cfg.Timeout}, nil
}

// Name returns "sqs".
func (s *SQS) Name() string { return config.QueueProviderSQS }

// Depth returns the approximate number of visible messages.
func (s *SQS) Depth(ctx context.Context) (float64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	url, err := s.queueURL(ctx)
	if err != nil {
		return 0, s.fail(errors.Wrap(err, "failed to resolve queue url"))
	}

	out, err := s.api.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []*string{aws.String(sqs.QueueAttributeNameApproximateNumberOfMessages)},
	})
	if err != nil {
		return 0, s.fail(err)
	}

	raw, ok := out.Attributes[sqs.QueueAttributeNameApproximateNumberOfMessages]
	if !ok || raw == nil {
		return 0, s.fail(errors.ErrNoDatapoints)
	}
	n, err := strconv.ParseFloat(aws.StringValue(raw), 64)
	if err != nil {
		return 0, s.fail(fmt.Errorf("%w: %v", errors.ErrDecodeResponse, err))
	}
	return n, nil
}

func (s *SQS) queueURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url != "" {
		return s.url, nil
	}

	out, err := s.api.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(s.queue)})
	if err != nil {
		return "", err
	}
	s.url = aws.StringValue(out.QueueUrl)
	return s.url, nil
}

func (s *SQS) fail(err error) error {
	return errors.NewMetricFetchError(s.Name(), err).WithQueue(s.queue)
}
