package jobs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from     jobs.Status
		to       jobs.Status
		expected bool
	}{
		{jobs.StatusStarted, jobs.StatusRunning, true},
		{jobs.StatusStarted, jobs.StatusFailed, true},
		{jobs.StatusStarted, jobs.StatusSucceeded, true},
		{jobs.StatusStarted, jobs.StatusStopping, true},
		{jobs.StatusStarted, jobs.StatusStopped, false},
		{jobs.StatusRunning, jobs.StatusStopping, true},
		{jobs.StatusRunning, jobs.StatusSucceeded, true},
		{jobs.StatusRunning, jobs.StatusStarted, false},
		{jobs.StatusStopping, jobs.StatusStopped, true},
		{jobs.StatusStopping, jobs.StatusFailed, true},
		{jobs.StatusStopping, jobs.StatusSucceeded, false},
		{jobs.StatusStopping, jobs.StatusRunning, false},
		{jobs.StatusStopped, jobs.StatusRunning, false},
		{jobs.StatusFailed, jobs.StatusStopped, false},
		{jobs.StatusSucceeded, jobs.StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, jobs.CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	for _, s := range []jobs.Status{jobs.StatusStopped, jobs.StatusFailed, jobs.StatusSucceeded} {
		assert.True(t, s.Terminal(), s)
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []jobs.Status{jobs.StatusStarted, jobs.StatusRunning, jobs.StatusStopping} {
		assert.False(t, s.Terminal(), s)
	}
	assert.False(t, jobs.Status("PAUSED").Valid())
}
