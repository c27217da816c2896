package fleet

import (
	"context"
	"net/http"
	"time"

	autoscalingv1 "k8s.io/api/autoscaling/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// Kubernetes scales a Deployment through its scale subresource.
type Kubernetes struct {
	client     kubernetes.Interface
	namespace  string
	deployment string
	timeout    time.Duration
}

// NewKubernetes creates a Kubernetes controller over client.
func NewKubernetes(client kubernetes.Interface, cfg config.KubernetesConfig, timeout time.Duration) (*Kubernetes, error) {
	if cfg.Deployment == "" {
		return nil, errors.NewConfigError("kubernetes deployment is empty", errors.ErrMissingSetting).
			WithField("fleet.kubernetes.deployment")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = metav1.NamespaceDefault
	}
	return &Kubernetes{
		client:     client,
		namespace:  ns,
		deployment: cfg.Deployment,
		timeout:    timeout,
	}, nil
}

// NewKubernetesClient builds a clientset from cfg.Kubeconfig, or from the
// in-cluster service account when it is empty.
func NewKubernetesClient(cfg config.KubernetesConfig) (kubernetes.Interface, error) {
	var (
		restCfg *rest.Config
		err     error
	)
	if cfg.Kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	} else {
		restCfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, errors.NewConfigError("unable to load kubernetes config", err).
			WithField("fleet.kubernetes.kubeconfig")
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, errors.NewConfigError("unable to create kubernetes client", err)
	}
	return client, nil
}

// Name returns "kubernetes".
func (k *Kubernetes) Name() string { return config.FleetProviderKubernetes }

// GetSize returns the deployment's desired replica count.
func (k *Kubernetes) GetSize(ctx context.Context) (int, error) {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()

	scale, err := k.client.AppsV1().Deployments(k.namespace).GetScale(ctx, k.deployment, metav1.GetOptions{})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get scale of %s/%s", k.namespace, k.deployment)
	}
	return int(scale.Spec.Replicas), nil
}

// SetSize updates the deployment's replica count. An API status error is
// returned as its HTTP code with a nil error.
func (k *Kubernetes) SetSize(ctx context.Context, n int) (int, error) {
	ctx, cancel := k.withTimeout(ctx)
	defer cancel()

	scale := &autoscalingv1.Scale{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k.deployment,
			Namespace: k.namespace,
		},
		Spec: autoscalingv1.ScaleSpec{
			Replicas: int32(n),
		},
	}

	_, err := k.client.AppsV1().Deployments(k.namespace).UpdateScale(ctx, k.deployment, scale, metav1.UpdateOptions{})
	if err != nil {
		var statusErr *apierrors.StatusError
		if errors.As(err, &statusErr) && statusErr.ErrStatus.Code != 0 {
			return int(statusErr.ErrStatus.Code), nil
		}
		return 0, errors.Wrapf(err, "failed to update scale of %s/%s", k.namespace, k.deployment)
	}
	return http.StatusOK, nil
}

func (k *Kubernetes) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, k.timeout)
}
