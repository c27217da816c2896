package scaling

import (
	"context"
	"math"
	"testing"

	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

type fakeDepth struct {
	depth float64
	err   error
	calls int
}

func (f *fakeDepth) Name() string { return "fake-queue" }

func (f *fakeDepth) Depth(context.Context) (float64, error) {
	f.calls++
	return f.depth, f.err
}

type fakeSize struct {
	size int
	err  error
}

func (f *fakeSize) Name() string { return "fake-fleet" }

func (f *fakeSize) GetSize(context.Context) (int, error) {
	return f.size, f.err
}

func TestSampler_Sample(t *testing.T) {
	s := NewSampler(&fakeDepth{depth: 42.5}, &fakeSize{size: 3})

	got, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if got.QueueDepth != 42.5 || got.ActiveInstances != 3 {
		t.Errorf("Sample() = %+v, want depth 42.5 and 3 instances", got)
	}
}

func TestSampler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		depth      *fakeDepth
		size       *fakeSize
		wantSource string
		depthCalls int
	}{
		{
			name:       "fleet size failure skips depth read",
			depth:      &fakeDepth{depth: 1},
			size:       &fakeSize{err: errors.New("timeout")},
			wantSource: "fake-fleet",
			depthCalls: 0,
		},
		{
			name:       "negative fleet size",
			depth:      &fakeDepth{depth: 1},
			size:       &fakeSize{size: -1},
			wantSource: "fake-fleet",
			depthCalls: 0,
		},
		{
			name:       "depth failure",
			depth:      &fakeDepth{err: errors.New("throttled")},
			size:       &fakeSize{size: 1},
			wantSource: "fake-queue",
			depthCalls: 1,
		},
		{
			name:       "negative depth",
			depth:      &fakeDepth{depth: -4},
			size:       &fakeSize{size: 1},
			wantSource: "fake-queue",
			depthCalls: 1,
		},
		{
			name:       "NaN depth",
			depth:      &fakeDepth{depth: math.NaN()},
			size:       &fakeSize{size: 1},
			wantSource: "fake-queue",
			depthCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSampler(tt.depth, tt.size).Sample(context.Background())
			if err == nil {
				t.Fatal("Sample() expected error")
			}
			var mfe *errors.MetricFetchError
			if !errors.As(err, &mfe) {
				t.Fatalf("error = %T, want *MetricFetchError", err)
			}
			if mfe.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", mfe.Source, tt.wantSource)
			}
			if tt.depth.calls != tt.depthCalls {
				t.Errorf("depth calls = %d, want %d", tt.depth.calls, tt.depthCalls)
			}
		})
	}
}

func TestSampler_KeepsExistingMetricFetchError(t *testing.T) {
	orig := errors.NewMetricFetchError("cloudwatch", errors.ErrNoDatapoints).WithQueue("jobs")
	_, err := NewSampler(&fakeDepth{err: orig}, &fakeSize{size: 1}).Sample(context.Background())

	var mfe *errors.MetricFetchError
	if !errors.As(err, &mfe) {
		t.Fatalf("error = %T, want *MetricFetchError", err)
	}
	if mfe != orig {
		t.Error("expected the adapter's MetricFetchError to be returned unchanged")
	}
	if !errors.Is(err, errors.ErrNoDatapoints) {
		t.Error("expected ErrNoDatapoints in chain")
	}
}
