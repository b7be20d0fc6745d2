package kubernetes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
)

func newFakeClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	return fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
}

func TestComputeRegisterAndSubmit(t *testing.T) {
	t.Parallel()

	c := newFakeClient(t)
	compute := NewCompute(c, "connectors", "")
	ctx := context.Background()

	def := batch.Definition{Name: "ccj-1", Image: "img:1", Tags: testTags()}
	name, err := compute.Register(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, "ccj-1", name)

	// registering again replaces the template
	def.Image = "img:2"
	_, err = compute.Register(ctx, def)
	require.NoError(t, err)

	pt := &corev1.PodTemplate{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Namespace: "connectors", Name: "ccj-1"}, pt))
	assert.Equal(t, "img:2", pt.Template.Spec.Containers[0].Image)

	handle, err := compute.Submit(ctx, batch.Submission{
		Name: "ccj-1", Definition: name, Timeout: time.Hour, Tags: testTags(),
	})
	require.NoError(t, err)
	assert.Equal(t, "connectors/ccj-1", handle)

	job := &batchv1.Job{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Namespace: "connectors", Name: "ccj-1"}, job))
	assert.Equal(t, int64(3600), *job.Spec.ActiveDeadlineSeconds)
	assert.Equal(t, "img:2", job.Spec.Template.Spec.Containers[0].Image)

	again, err := compute.Submit(ctx, batch.Submission{Name: "ccj-1", Definition: name, Tags: testTags()})
	require.NoError(t, err)
	assert.Equal(t, handle, again)
}

func TestComputeSubmitUnknownTemplate(t *testing.T) {
	t.Parallel()

	compute := NewCompute(newFakeClient(t), "default", "")
	_, err := compute.Submit(context.Background(), batch.Submission{Name: "ccj-1", Definition: "missing"})
	assert.Error(t, err)
}

func TestComputeCancel(t *testing.T) {
	t.Parallel()

	c := newFakeClient(t)
	compute := NewCompute(c, "default", "")
	ctx := context.Background()

	_, err := compute.Register(ctx, batch.Definition{Name: "ccj-1", Image: "img", Tags: testTags()})
	require.NoError(t, err)
	handle, err := compute.Submit(ctx, batch.Submission{Name: "ccj-1", Definition: "ccj-1", Tags: testTags()})
	require.NoError(t, err)

	require.NoError(t, compute.Cancel(ctx, handle, "stopped by user"))

	// the finalizer keeps the Job until the completion is reported
	job := &batchv1.Job{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Namespace: "default", Name: "ccj-1"}, job))
	assert.False(t, job.DeletionTimestamp.IsZero())
	assert.Equal(t, "stopped by user", job.Annotations[AnnotationCancelReason])

	assert.ErrorIs(t, compute.Cancel(ctx, "default/unknown", "x"), batch.ErrUnknownJob)
	assert.Error(t, compute.Cancel(ctx, "not-a-handle", "x"))
}
