// Package queue reads queue depth from AWS.
//
// Two readers are provided. [CloudWatch] averages the
// ApproximateNumberOfMessagesVisible metric over a trailing window, which
// smooths short bursts. [SQS] reads the ApproximateNumberOfMessages queue
// attribute directly. Both use the AWS SDK default credential chain unless
// static keys are configured.
package queue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/sqs"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// Reader reports the current depth of one queue.
type Reader interface {
	Name() string
	Depth(ctx context.Context) (float64, error)
}

// NewSession builds an AWS session for the configured region and optional
// static credentials.
func NewSession(cfg config.QueueConfig) (*session.Session, error) {
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.NewConfigError("unable to create AWS session", err)
	}
	return sess, nil
}

// New creates the Reader selected by cfg.Provider.
func New(cfg config.QueueConfig) (Reader, error) {
	if cfg.Name == "" {
		return nil, errors.NewConfigError("queue name is empty", errors.ErrMissingSetting).
			WithField("queue.name")
	}

	sess, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.QueueProviderCloudWatch:
		cw, err := NewCloudWatch(cloudwatch.New(sess), cfg)
		if err != nil {
			return nil, err
		}
		return cw, nil
	case config.QueueProviderSQS:
		q, err := NewSQS(sqs.New(sess), cfg)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, errors.NewConfigError("unsupported queue provider "+cfg.Provider, errors.ErrUnknownProvider).
			WithField("queue.provider")
	}
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
