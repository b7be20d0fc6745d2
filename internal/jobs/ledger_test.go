package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	connmocks "github.com/stacklok/connector-lifecycle-server/internal/connectors/mocks"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

var testScope = service.Scope{Region: "us-east-1", Account: "123456789012"}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	store    kv.Store
	registry connectors.Registry
	ledger   jobs.Ledger
	now      time.Time
}

func newFixture(t *testing.T, store kv.Store) *fixture {
	t.Helper()
	if store == nil {
		store = kv.NewMemoryStore()
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	registry := connectors.New(store, connectors.WithClock(clock))
	return &fixture{
		store:    store,
		registry: registry,
		ledger:   jobs.New(store, registry, jobs.WithClock(clock)),
		now:      now,
	}
}

func (f *fixture) createConnector(t *testing.T) *connectors.Connector {
	t.Helper()
	c, err := f.registry.Create(context.Background(), testScope, &connectors.CreateRequest{
		Name: "wiki",
		ContainerProperties: connectors.ContainerPropertiesInput{
			ExecutionRoleARN: ptr("exec"),
			ImageURI:         ptr("image"),
			JobRoleARN:       ptr("job"),
		},
	})
	require.NoError(t, err)
	return c
}

func TestLedger_StartAcquiresConnector(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.createConnector(t)

	env := []connectors.EnvironmentVariable{{Name: "SPACE", Value: "eng"}}
	job, err := f.ledger.Start(ctx, testScope, c.ID, env)
	require.NoError(t, err)

	assert.Regexp(t, `^ccj-[0-9a-f]{12}$`, job.ID)
	assert.Equal(t, jobs.StatusStarted, job.Status)
	assert.Equal(t, env, job.Environment)

	got, err := f.registry.Get(ctx, testScope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, connectors.StatusInUse, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestLedger_StartOnBusyConnectorConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.createConnector(t)

	_, err := f.ledger.Start(ctx, testScope, c.ID, nil)
	require.NoError(t, err)

	_, err = f.ledger.Start(ctx, testScope, c.ID, nil)
	assert.ErrorIs(t, err, service.ErrConflict)

	list, _, err := f.ledger.List(ctx, testScope, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLedger_StartOnMissingConnector(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, err := f.ledger.Start(context.Background(), testScope, "cc-missing", nil)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// failingJobsStore fails every write to the jobs table.
type failingJobsStore struct {
	kv.Store
}

func (s failingJobsStore) Put(ctx context.Context, item kv.Item, cond kv.Condition) (*kv.Item, error) {
	if item.Table == kv.TableJobs {
		return nil, errors.New("throughput exceeded")
	}
	return s.Store.Put(ctx, item, cond)
}

func TestLedger_StartCompensatesFailedInsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, failingJobsStore{Store: kv.NewMemoryStore()})
	c := f.createConnector(t)

	_, err := f.ledger.Start(ctx, testScope, c.ID, nil)
	assert.ErrorIs(t, err, service.ErrInternal)

	got, err := f.registry.Get(ctx, testScope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, connectors.StatusAvailable, got.Status)
	assert.Equal(t, int64(3), got.Version)
}

func TestLedger_LifecycleToSucceeded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.createConnector(t)

	job, err := f.ledger.Start(ctx, testScope, c.ID, nil)
	require.NoError(t, err)

	running, err := f.ledger.UpdateStatus(ctx, testScope, c.ID, job.ID, jobs.StatusRunning, jobs.WithBatchJobID("h1"))
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusRunning, running.Status)
	assert.Equal(t, "h1", running.BatchJobID)
	assert.Nil(t, running.TTL)

	conn, err := f.registry.Get(ctx, testScope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, connectors.StatusInUse, conn.Status)

	done, err := f.ledger.UpdateStatus(ctx, testScope, c.ID, job.ID, jobs.StatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, done.Status)
	assert.Equal(t, "h1", done.BatchJobID)
	require.NotNil(t, done.TTL)
	assert.Equal(t, f.now.Add(jobs.RetentionPeriod).Unix(), *done.TTL)

	conn, err = f.registry.Get(ctx, testScope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, connectors.StatusAvailable, conn.Status)
	assert.Equal(t, int64(3), conn.Version)

	item, err := f.store.Get(ctx, kv.TableJobs, testScope.String(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, item.ExpiresAt)
	assert.Equal(t, *done.TTL, item.ExpiresAt.Unix())
}

func TestLedger_TerminalJobRejectsUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.createConnector(t)

	job, err := f.ledger.Start(ctx, testScope, c.ID, nil)
	require.NoError(t, err)
	_, err = f.ledger.UpdateStatus(ctx, testScope, c.ID, job.ID, jobs.StatusFailed)
	require.NoError(t, err)

	for _, status := range []jobs.Status{jobs.StatusRunning, jobs.StatusStopped, jobs.StatusFailed} {
		_, err = f.ledger.UpdateStatus(ctx, testScope, c.ID, job.ID, status)
		assert.ErrorIs(t, err, service.ErrConflict, status)
	}

	got, err := f.ledger.Get(ctx, testScope, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
}

func TestLedger_UpdateStatusNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.createConnector(t)

	_, err := f.ledger.UpdateStatus(ctx, testScope, c.ID, "ccj-missing", jobs.StatusRunning)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.ledger.UpdateStatus(ctx, testScope, "cc-missing", "ccj-missing", jobs.StatusRunning)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.ledger.UpdateStatus(ctx, testScope, c.ID, "ccj-missing", jobs.Status("PAUSED"))
	assert.ErrorIs(t, err, service.ErrBadRequest)
}

func TestLedger_StopMarksCancellation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.createConnector(t)

	job, err := f.ledger.Start(ctx, testScope, c.ID, nil)
	require.NoError(t, err)
	_, err = f.ledger.UpdateStatus(ctx, testScope, c.ID, job.ID, jobs.StatusRunning, jobs.WithBatchJobID("h1"))
	require.NoError(t, err)

	stopping, err := f.ledger.Stop(ctx, testScope, c.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusStopping, stopping.Status)
	assert.True(t, stopping.CancelRequested)

	_, err = f.ledger.UpdateStatus(ctx, testScope, c.ID, job.ID, jobs.StatusSucceeded)
	assert.ErrorIs(t, err, service.ErrConflict)

	stopped, err := f.ledger.UpdateStatus(ctx, testScope, c.ID, job.ID, jobs.StatusStopped)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusStopped, stopped.Status)
}

func TestLedger_ReleaseSwallowsMissingConnector(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := kv.NewMemoryStore()
	_, err := store.Put(ctx, kv.Item{
		Table: kv.TableJobs, Scope: testScope.String(), Key: "ccj-1", Owner: "cc-1",
		Status: string(jobs.StatusRunning), Version: 1,
		Data: []byte(`{"job_id":"ccj-1","connector_id":"cc-1"}`),
	}, kv.Condition{MustNotExist: true})
	require.NoError(t, err)

	registry := connmocks.NewMockRegistry(ctrl)
	registry.EXPECT().Get(gomock.Any(), testScope, "cc-1").Return(&connectors.Connector{ID: "cc-1"}, nil)
	registry.EXPECT().
		UpdateStatus(gomock.Any(), testScope, "cc-1", connectors.StatusAvailable).
		Return(nil, service.NotFoundf("Connector 'cc-1' not found"))

	job, err := jobs.New(store, registry).UpdateStatus(ctx, testScope, "cc-1", "ccj-1", jobs.StatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, job.Status)
}

func TestLedger_ReleaseFailureIsFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := kv.NewMemoryStore()
	_, err := store.Put(ctx, kv.Item{
		Table: kv.TableJobs, Scope: testScope.String(), Key: "ccj-1", Owner: "cc-1",
		Status: string(jobs.StatusRunning), Version: 1,
		Data: []byte(`{"job_id":"ccj-1","connector_id":"cc-1"}`),
	}, kv.Condition{MustNotExist: true})
	require.NoError(t, err)

	registry := connmocks.NewMockRegistry(ctrl)
	registry.EXPECT().Get(gomock.Any(), testScope, "cc-1").Return(&connectors.Connector{ID: "cc-1"}, nil)
	registry.EXPECT().
		UpdateStatus(gomock.Any(), testScope, "cc-1", connectors.StatusAvailable).
		Return(nil, service.Internal(errors.New("timeout"), "failed to access connector"))

	_, err = jobs.New(store, registry).UpdateStatus(ctx, testScope, "cc-1", "ccj-1", jobs.StatusFailed)
	assert.ErrorIs(t, err, service.ErrInternal)
}

func TestLedger_ListFiltersByStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.createConnector(t)

	first, err := f.ledger.Start(ctx, testScope, c.ID, nil)
	require.NoError(t, err)
	_, err = f.ledger.UpdateStatus(ctx, testScope, c.ID, first.ID, jobs.StatusSucceeded)
	require.NoError(t, err)
	second, err := f.ledger.Start(ctx, testScope, c.ID, nil)
	require.NoError(t, err)

	all, cursor, err := f.ledger.List(ctx, testScope, c.ID)
	require.NoError(t, err)
	assert.Empty(t, cursor)
	assert.Len(t, all, 2)

	started, _, err := f.ledger.List(ctx, testScope, c.ID, service.WithStatus(string(jobs.StatusStarted)))
	require.NoError(t, err)
	require.Len(t, started, 1)
	assert.Equal(t, second.ID, started[0].ID)

	_, _, err = f.ledger.List(ctx, testScope, "cc-missing")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, _, err = f.ledger.List(ctx, testScope, c.ID, service.WithStatus("PAUSED"))
	assert.ErrorIs(t, err, service.ErrBadRequest)
}
