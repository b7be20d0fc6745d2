package kubernetes

import (
	"context"
	"fmt"
	"log/slog"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
)

// Compute implements batch.Compute on a Kubernetes namespace
type Compute struct {
	client         client.Client
	namespace      string
	serviceAccount string
}

var _ batch.Compute = (*Compute)(nil)

// NewCompute creates a compute backend running Jobs in namespace. Pods run
// as serviceAccount when it is set.
func NewCompute(c client.Client, namespace, serviceAccount string) *Compute {
	return &Compute{client: c, namespace: namespace, serviceAccount: serviceAccount}
}

// Register creates or replaces the PodTemplate of def
func (c *Compute) Register(ctx context.Context, def batch.Definition) (string, error) {
	desired, err := buildPodTemplate(def, c.namespace, c.serviceAccount)
	if err != nil {
		return "", err
	}

	err = c.client.Create(ctx, desired)
	if apierrors.IsAlreadyExists(err) {
		existing := &corev1.PodTemplate{}
		if err := c.client.Get(ctx, client.ObjectKeyFromObject(desired), existing); err != nil {
			return "", fmt.Errorf("failed to get pod template %s: %w", desired.Name, err)
		}
		existing.Labels = desired.Labels
		existing.Annotations = desired.Annotations
		existing.Template = desired.Template
		err = c.client.Update(ctx, existing)
	}
	if err != nil {
		return "", fmt.Errorf("failed to register pod template %s: %w", desired.Name, err)
	}

	slog.DebugContext(ctx, "Registered pod template", "namespace", c.namespace, "name", desired.Name)
	return desired.Name, nil
}

// Submit creates a Job from a registered PodTemplate. Submitting the same
// name twice returns the handle of the existing Job.
func (c *Compute) Submit(ctx context.Context, sub batch.Submission) (string, error) {
	template := &corev1.PodTemplate{}
	key := types.NamespacedName{Namespace: c.namespace, Name: sub.Definition}
	if err := c.client.Get(ctx, key, template); err != nil {
		return "", fmt.Errorf("failed to get pod template %s: %w", sub.Definition, err)
	}

	job, err := buildJob(template, sub, c.namespace)
	if err != nil {
		return "", err
	}
	handle := Handle(job.Namespace, job.Name)

	if err := c.client.Create(ctx, job); err != nil {
		if apierrors.IsAlreadyExists(err) {
			slog.InfoContext(ctx, "Job already submitted", "handle", handle)
			return handle, nil
		}
		return "", fmt.Errorf("failed to create job %s: %w", job.Name, err)
	}

	slog.InfoContext(ctx, "Submitted job", "handle", handle, "template", sub.Definition)
	return handle, nil
}

// Cancel records reason on the Job and deletes it. The controller reports
// the deleted Job as FAILED.
func (c *Compute) Cancel(ctx context.Context, handle, reason string) error {
	namespace, name, err := ParseHandle(handle)
	if err != nil {
		return err
	}

	job := &batchv1.Job{}
	if err := c.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, job); err != nil {
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("%w: %s", batch.ErrUnknownJob, handle)
		}
		return fmt.Errorf("failed to get job %s: %w", handle, err)
	}

	patch := client.MergeFrom(job.DeepCopy())
	if job.Annotations == nil {
		job.Annotations = map[string]string{}
	}
	job.Annotations[AnnotationCancelReason] = reason
	if err := c.client.Patch(ctx, job, patch); err != nil {
		return fmt.Errorf("failed to annotate job %s: %w", handle, err)
	}

	background := metav1.DeletePropagationBackground
	if err := c.client.Delete(ctx, job, &client.DeleteOptions{PropagationPolicy: &background}); err != nil &&
		!apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete job %s: %w", handle, err)
	}

	slog.InfoContext(ctx, "Cancelled job", "handle", handle, "reason", reason)
	return nil
}
