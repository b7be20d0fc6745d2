package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/batch/mocks"
)

func TestMemoryComputeLifecycle(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	handler := mocks.NewMockCompletionHandler(ctrl)
	compute := batch.NewMemoryCompute()
	compute.SetCompletionHandler(handler)
	ctx := context.Background()

	tags := map[string]string{
		batch.TagJobID:       "ccj-1",
		batch.TagConnectorID: "cc-1",
		batch.TagARNPrefix:   "arn:aws:ccf:us-east-1:123456789012",
	}

	name, err := compute.Register(ctx, batch.Definition{Name: "ccj-1", Image: "image", Tags: tags})
	require.NoError(t, err)
	assert.Equal(t, "ccj-1", name)

	handle, err := compute.Submit(ctx, batch.Submission{Name: "ccj-1", Definition: name, Timeout: time.Hour, Tags: tags})
	require.NoError(t, err)

	handler.EXPECT().HandleCompletion(gomock.Any(), batch.Completion{
		Handle:      handle,
		JobID:       "ccj-1",
		ConnectorID: "cc-1",
		Scope:       "arn:aws:ccf:us-east-1:123456789012",
		Outcome:     batch.OutcomeSucceeded,
	}).Return(nil)
	require.NoError(t, compute.Complete(ctx, handle, batch.OutcomeSucceeded))

	runs := compute.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, batch.OutcomeSucceeded, runs[0].Outcome)
	assert.Equal(t, "image", runs[0].Definition.Image)
}

func TestMemoryComputeCancelReportsFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	handler := mocks.NewMockCompletionHandler(ctrl)
	compute := batch.NewMemoryCompute()
	compute.SetCompletionHandler(handler)
	ctx := context.Background()

	_, err := compute.Register(ctx, batch.Definition{Name: "def"})
	require.NoError(t, err)
	handle, err := compute.Submit(ctx, batch.Submission{Name: "run", Definition: "def"})
	require.NoError(t, err)

	handler.EXPECT().HandleCompletion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c batch.Completion) error {
			assert.Equal(t, batch.OutcomeFailed, c.Outcome)
			assert.Equal(t, "stopped", c.Reason)
			return nil
		})
	require.NoError(t, compute.Cancel(ctx, handle, "stopped"))

	runs := compute.Runs()
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Cancelled)
}

func TestMemoryComputeErrors(t *testing.T) {
	t.Parallel()

	compute := batch.NewMemoryCompute()
	ctx := context.Background()

	_, err := compute.Register(ctx, batch.Definition{})
	assert.Error(t, err)

	_, err = compute.Submit(ctx, batch.Submission{Name: "run", Definition: "missing"})
	assert.Error(t, err)

	assert.ErrorIs(t, compute.Cancel(ctx, "nope", "reason"), batch.ErrUnknownJob)
	assert.ErrorIs(t, compute.Complete(ctx, "nope", batch.OutcomeFailed), batch.ErrUnknownJob)
}
