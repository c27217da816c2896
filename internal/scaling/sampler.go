package scaling

import (
	"context"
	"fmt"
	"math"

	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// MetricSource produces one Sample per cycle.
type MetricSource interface {
	Sample(ctx context.Context) (Sample, error)
}

// DepthReader reports the current queue depth.
type DepthReader interface {
	Name() string
	Depth(ctx context.Context) (float64, error)
}

// SizeReader reports the current fleet size.
type SizeReader interface {
	Name() string
	GetSize(ctx context.Context) (int, error)
}

// Sampler is a MetricSource reading the fleet size and then the queue depth.
// A sample is returned only when both reads succeed.
type Sampler struct {
	depth DepthReader
	size  SizeReader
}

// NewSampler creates a Sampler.
func NewSampler(depth DepthReader, size SizeReader) *Sampler {
	return &Sampler{depth: depth, size: size}
}

// Sample reads both values. Every failure is a *errors.MetricFetchError.
func (s *Sampler) Sample(ctx context.Context) (Sample, error) {
	n, err := s.size.GetSize(ctx)
	if err != nil {
		return Sample{}, asMetricFetch(s.size.Name(), err)
	}
	if n < 0 {
		return Sample{}, errors.NewMetricFetchError(s.size.Name(), fmt.Errorf("negative fleet size %d", n))
	}

	depth, err := s.depth.Depth(ctx)
	if err != nil {
		return Sample{}, asMetricFetch(s.depth.Name(), err)
	}
	if depth < 0 || math.IsNaN(depth) || math.IsInf(depth, 0) {
		return Sample{}, errors.NewMetricFetchError(s.depth.Name(), fmt.Errorf("invalid queue depth %v", depth))
	}

	return Sample{QueueDepth: depth, ActiveInstances: n}, nil
}

// asMetricFetch keeps an existing MetricFetchError and wraps anything else.
func asMetricFetch(source string, err error) error {
	var mfe *errors.MetricFetchError
	if errors.As(err, &mfe) {
		return err
	}
	return errors.NewMetricFetchError(source, err)
}
