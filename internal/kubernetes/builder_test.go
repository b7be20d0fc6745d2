package kubernetes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
)

type noopHandler struct{}

func (noopHandler) HandleCompletion(context.Context, batch.Completion) error {
	return nil
}

func TestOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		opt         Option
		check       func(t *testing.T, o *controllerOptions)
		expectError bool
	}{
		{
			name:  "namespace",
			opt:   WithNamespace("connectors"),
			check: func(t *testing.T, o *controllerOptions) { t.Helper(); assert.Equal(t, "connectors", o.namespace) },
		},
		{name: "empty namespace", opt: WithNamespace(""), expectError: true},
		{
			name:  "service account",
			opt:   WithServiceAccount("runner"),
			check: func(t *testing.T, o *controllerOptions) { t.Helper(); assert.Equal(t, "runner", o.serviceAccount) },
		},
		{
			name:  "requeue after",
			opt:   WithRequeueAfter(time.Minute),
			check: func(t *testing.T, o *controllerOptions) { t.Helper(); assert.Equal(t, time.Minute, o.requeueAfter) },
		},
		{name: "zero requeue after", opt: WithRequeueAfter(0), expectError: true},
		{name: "negative requeue after", opt: WithRequeueAfter(-time.Second), expectError: true},
		{
			name:  "leader election",
			opt:   WithLeaderElection(true),
			check: func(t *testing.T, o *controllerOptions) { t.Helper(); assert.True(t, o.leaderElection) },
		},
		{
			name:  "completion handler",
			opt:   WithCompletionHandler(noopHandler{}),
			check: func(t *testing.T, o *controllerOptions) { t.Helper(); assert.NotNil(t, o.handler) },
		},
		{name: "nil completion handler", opt: WithCompletionHandler(nil), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := &controllerOptions{}
			err := tt.opt(o)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, o)
		})
	}
}

func TestNewBackendRequiresHandler(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(context.Background(), WithNamespace("default"))
	assert.ErrorContains(t, err, "completion handler is required")
}
