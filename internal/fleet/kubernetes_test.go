package fleet

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

var deploymentsResource = schema.GroupResource{Group: "apps", Resource: "deployments"}

func kubernetesConfig() config.KubernetesConfig {
	return config.KubernetesConfig{Namespace: "jobs", Deployment: "worker"}
}

func TestNewKubernetes(t *testing.T) {
	_, err := NewKubernetes(fake.NewSimpleClientset(), config.KubernetesConfig{}, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingSetting))

	k, err := NewKubernetes(fake.NewSimpleClientset(), config.KubernetesConfig{Deployment: "worker"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "default", k.namespace)
	assert.Equal(t, "kubernetes", k.Name())
}

func TestKubernetes_GetSize(t *testing.T) {
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if action.GetSubresource() != "scale" {
			return false, nil, nil
		}
		assert.Equal(t, "jobs", action.GetNamespace())
		assert.Equal(t, "worker", action.(k8stesting.GetAction).GetName())
		return true, &autoscalingv1.Scale{
			ObjectMeta: metav1.ObjectMeta{Name: "worker", Namespace: "jobs"},
			Spec:       autoscalingv1.ScaleSpec{Replicas: 4},
		}, nil
	})

	k, err := NewKubernetes(client, kubernetesConfig(), time.Second)
	require.NoError(t, err)

	got, err := k.GetSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestKubernetes_GetSizeError(t *testing.T) {
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewNotFound(deploymentsResource, "worker")
	})

	k, err := NewKubernetes(client, kubernetesConfig(), 0)
	require.NoError(t, err)

	_, err = k.GetSize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs/worker")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestKubernetes_SetSize(t *testing.T) {
	var got int32
	client := fake.NewSimpleClientset()
	client.PrependReactor("update", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if action.GetSubresource() != "scale" {
			return false, nil, nil
		}
		scale := action.(k8stesting.UpdateAction).GetObject().(*autoscalingv1.Scale)
		got = scale.Spec.Replicas
		return true, scale, nil
	})

	k, err := NewKubernetes(client, kubernetesConfig(), time.Second)
	require.NoError(t, err)

	code, err := k.SetSize(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int32(3), got)
}

func TestKubernetes_SetSizeOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  bool
	}{
		{
			name:     "conflict is rejected",
			err:      apierrors.NewConflict(deploymentsResource, "worker", errors.New("object modified")),
			wantCode: http.StatusConflict,
		},
		{
			name:     "forbidden is rejected",
			err:      apierrors.NewForbidden(deploymentsResource, "worker", errors.New("rbac")),
			wantCode: http.StatusForbidden,
		},
		{
			name:    "transport error is transient",
			err:     errors.New("connection refused"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := fake.NewSimpleClientset()
			client.PrependReactor("update", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, tt.err
			})

			k, err := NewKubernetes(client, kubernetesConfig(), time.Second)
			require.NoError(t, err)

			code, err := k.SetSize(context.Background(), 2)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(config.FleetConfig{Provider: "nomad"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownProvider))
}

func TestNew_Heroku(t *testing.T) {
	c, err := New(config.FleetConfig{Provider: config.FleetProviderHeroku, Heroku: herokuConfig(""), Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "heroku", c.Name())

	_, err = New(config.FleetConfig{Provider: config.FleetProviderHeroku})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
