package kubernetes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
)

// JobReconciler reports the completion of managed Jobs
type JobReconciler struct {
	client       client.Client
	handler      batch.CompletionHandler
	requeueAfter time.Duration
}

// NewJobReconciler creates a reconciler delivering completions to handler
func NewJobReconciler(c client.Client, handler batch.CompletionHandler, requeueAfter time.Duration) *JobReconciler {
	return &JobReconciler{client: c, handler: handler, requeueAfter: requeueAfter}
}

// Reconcile reports a Job that reached a terminal condition or is being
// deleted. Each Job is reported once; a failed delivery is retried.
func (r *JobReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	job := &batchv1.Job{}
	if err := r.client.Get(ctx, req.NamespacedName, job); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	handle := Handle(job.Namespace, job.Name)
	deleting := !job.DeletionTimestamp.IsZero()
	outcome, reason, done := jobOutcome(job)
	if deleting && !done {
		outcome, done = batch.OutcomeFailed, true
		reason = job.Annotations[AnnotationCancelReason]
	}
	if !done {
		return ctrl.Result{}, nil
	}

	if !checkAnnotation(job.Annotations, AnnotationReported) {
		completion := batch.CompletionFromTags(handle, tagsFromAnnotations(job.Annotations), outcome, reason)
		if err := r.handler.HandleCompletion(ctx, completion); err != nil {
			slog.ErrorContext(ctx, "Failed to deliver job completion", "handle", handle, "error", err)
			return ctrl.Result{RequeueAfter: r.requeueAfter}, nil
		}
		slog.InfoContext(ctx, "Reported job completion", "handle", handle, "outcome", outcome)

		if !deleting {
			patch := client.MergeFrom(job.DeepCopy())
			if job.Annotations == nil {
				job.Annotations = map[string]string{}
			}
			job.Annotations[AnnotationReported] = "true"
			if err := r.client.Patch(ctx, job, patch); err != nil {
				return ctrl.Result{}, fmt.Errorf("failed to mark job %s reported: %w", handle, err)
			}
		}
	}

	if deleting && controllerutil.RemoveFinalizer(job, FinalizerCompletion) {
		if err := r.client.Update(ctx, job); err != nil && !apierrors.IsNotFound(err) {
			return ctrl.Result{}, fmt.Errorf("failed to remove finalizer from job %s: %w", handle, err)
		}
	}
	return ctrl.Result{}, nil
}

func checkAnnotation(annotations map[string]string, annotation string) bool {
	if annotations == nil {
		return false
	}
	return annotations[annotation] == "true"
}

func isManaged(obj client.Object) bool {
	return obj.GetLabels()[LabelManaged] == "true"
}

func makeNewObjectPredicate[T client.Object]() func(event.TypedCreateEvent[T]) bool {
	return func(e event.TypedCreateEvent[T]) bool {
		return isManaged(e.Object)
	}
}

func makeUpdateObjectPredicate[T client.Object]() func(event.TypedUpdateEvent[T]) bool {
	return func(e event.TypedUpdateEvent[T]) bool {
		return isManaged(e.ObjectNew) || isManaged(e.ObjectOld)
	}
}

// SetupWithManager sets up the controller with the Manager.
func (r *JobReconciler) SetupWithManager(mgr ctrl.Manager) error {
	managedPredicate := predicate.Funcs{
		CreateFunc: makeNewObjectPredicate[client.Object](),
		UpdateFunc: makeUpdateObjectPredicate[client.Object](),
		DeleteFunc: func(event.DeleteEvent) bool { return false },
	}

	return ctrl.NewControllerManagedBy(mgr).
		Named("connector-jobs").
		For(&batchv1.Job{}, builder.WithPredicates(managedPredicate)).
		Complete(r)
}
