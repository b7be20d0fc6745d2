package kubernetes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/batch/mocks"
)

func managedJob(conditions ...batchv1.JobCondition) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        "ccj-1",
			Namespace:   "default",
			Labels:      objectLabels(testTags()),
			Annotations: tagAnnotations(testTags()),
			Finalizers:  []string{FinalizerCompletion},
		},
		Status: batchv1.JobStatus{Conditions: conditions},
	}
}

func reconcileRequest() ctrl.Request {
	return ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "ccj-1"}}
}

func TestReconcileReportsCompletionOnce(t *testing.T) {
	t.Parallel()

	job := managedJob(batchv1.JobCondition{Type: batchv1.JobComplete, Status: corev1.ConditionTrue})
	c := newFakeClient(t, job)
	handler := mocks.NewMockCompletionHandler(gomock.NewController(t))
	r := NewJobReconciler(c, handler, time.Second)
	ctx := context.Background()

	handler.EXPECT().HandleCompletion(gomock.Any(), batch.Completion{
		Handle:      "default/ccj-1",
		JobID:       "ccj-0123456789ab",
		ConnectorID: "cc-0123456789ab",
		Scope:       "arn:aws:ccf:us-east-1:123456789012",
		Outcome:     batch.OutcomeSucceeded,
	}).Return(nil).Times(1)

	_, err := r.Reconcile(ctx, reconcileRequest())
	require.NoError(t, err)

	stored := &batchv1.Job{}
	require.NoError(t, c.Get(ctx, reconcileRequest().NamespacedName, stored))
	assert.Equal(t, "true", stored.Annotations[AnnotationReported])

	_, err = r.Reconcile(ctx, reconcileRequest())
	require.NoError(t, err)
}

func TestReconcileIgnoresRunningJobs(t *testing.T) {
	t.Parallel()

	c := newFakeClient(t, managedJob())
	handler := mocks.NewMockCompletionHandler(gomock.NewController(t))
	r := NewJobReconciler(c, handler, time.Second)

	result, err := r.Reconcile(context.Background(), reconcileRequest())
	require.NoError(t, err)
	assert.Zero(t, result)
}

func TestReconcileMissingJob(t *testing.T) {
	t.Parallel()

	handler := mocks.NewMockCompletionHandler(gomock.NewController(t))
	r := NewJobReconciler(newFakeClient(t), handler, time.Second)

	_, err := r.Reconcile(context.Background(), reconcileRequest())
	assert.NoError(t, err)
}

func TestReconcileRequeuesFailedDelivery(t *testing.T) {
	t.Parallel()

	job := managedJob(batchv1.JobCondition{Type: batchv1.JobFailed, Status: corev1.ConditionTrue, Reason: "BackoffLimitExceeded"})
	c := newFakeClient(t, job)
	handler := mocks.NewMockCompletionHandler(gomock.NewController(t))
	r := NewJobReconciler(c, handler, 3*time.Second)

	handler.EXPECT().HandleCompletion(gomock.Any(), gomock.Any()).Return(errors.New("store unavailable"))

	result, err := r.Reconcile(context.Background(), reconcileRequest())
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, result.RequeueAfter)

	stored := &batchv1.Job{}
	require.NoError(t, c.Get(context.Background(), reconcileRequest().NamespacedName, stored))
	assert.NotContains(t, stored.Annotations, AnnotationReported)
}

func TestReconcileReportsCancelledJob(t *testing.T) {
	t.Parallel()

	c := newFakeClient(t)
	compute := NewCompute(c, "default", "")
	handler := mocks.NewMockCompletionHandler(gomock.NewController(t))
	r := NewJobReconciler(c, handler, time.Second)
	ctx := context.Background()

	_, err := compute.Register(ctx, batch.Definition{Name: "ccj-1", Image: "img", Tags: testTags()})
	require.NoError(t, err)
	handle, err := compute.Submit(ctx, batch.Submission{Name: "ccj-1", Definition: "ccj-1", Tags: testTags()})
	require.NoError(t, err)
	require.NoError(t, compute.Cancel(ctx, handle, "Job stopped by user"))

	handler.EXPECT().HandleCompletion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, got batch.Completion) error {
			assert.Equal(t, batch.OutcomeFailed, got.Outcome)
			assert.Equal(t, "Job stopped by user", got.Reason)
			assert.Equal(t, "ccj-0123456789ab", got.JobID)
			return nil
		})

	_, err = r.Reconcile(ctx, reconcileRequest())
	require.NoError(t, err)

	err = c.Get(ctx, reconcileRequest().NamespacedName, &batchv1.Job{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestManagedPredicates(t *testing.T) {
	t.Parallel()

	managed := managedJob()
	unmanaged := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: "other", Namespace: "default"}}

	tests := []struct {
		name   string
		oldObj client.Object
		newObj client.Object
		want   bool
	}{
		{name: "managed", oldObj: managed, newObj: managed, want: true},
		{name: "unmanaged", oldObj: unmanaged, newObj: unmanaged, want: false},
		{name: "label removed", oldObj: managed, newObj: unmanaged, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			create := makeNewObjectPredicate[client.Object]()
			update := makeUpdateObjectPredicate[client.Object]()

			assert.Equal(t, isManaged(tt.newObj), create(event.TypedCreateEvent[client.Object]{Object: tt.newObj}))
			assert.Equal(t, tt.want,
				update(event.TypedUpdateEvent[client.Object]{ObjectOld: tt.oldObj, ObjectNew: tt.newObj}))
		})
	}
}
