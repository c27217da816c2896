// Package fleet reports and sets the size of a worker fleet.
//
// [Heroku] scales one process type of an app through the platform API.
// [Kubernetes] scales a Deployment through its scale subresource. Both
// follow the same contract: SetSize returns the remote status code, and a
// non-2xx code comes back with a nil error so the caller can tell a
// rejected resize from one that never reached the API.
package fleet

import (
	"context"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// Controller reports and sets the fleet size.
type Controller interface {
	Name() string
	GetSize(ctx context.Context) (int, error)
	SetSize(ctx context.Context, n int) (int, error)
}

// New creates the Controller selected by cfg.Provider.
func New(cfg config.FleetConfig) (Controller, error) {
	switch cfg.Provider {
	case config.FleetProviderHeroku:
		h, err := NewHeroku(cfg.Heroku, cfg.Timeout, nil)
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.FleetProviderKubernetes:
		client, err := NewKubernetesClient(cfg.Kubernetes)
		if err != nil {
			return nil, err
		}
		k, err := NewKubernetes(client, cfg.Kubernetes, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return k, nil
	default:
		return nil, errors.NewConfigError("unsupported fleet provider "+cfg.Provider, errors.ErrUnknownProvider).
			WithField("fleet.provider")
	}
}
