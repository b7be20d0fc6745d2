package feed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/connector-lifecycle-server/internal/feed"
	"github.com/stacklok/connector-lifecycle-server/internal/feed/mocks"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

func TestPublishingStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		table      string
		publishErr error
		wantEvent  bool
	}{
		{name: "watched table is published", table: kv.TableJobs, wantEvent: true},
		{name: "other tables are not published", table: kv.TableConnectors},
		{name: "publish failure does not fail the write", table: kv.TableJobs, publishErr: errors.New("down"), wantEvent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			publisher := mocks.NewMockPublisher(ctrl)
			store := feed.NewPublishingStore(kv.NewMemoryStore(), publisher, kv.TableJobs)

			if tt.wantEvent {
				publisher.EXPECT().Publish(gomock.Any(), feed.Event{
					Table:   tt.table,
					Scope:   "arn:aws:ccf:us-east-1:123456789012",
					Key:     "ccj-1",
					Owner:   "cc-1",
					Status:  "STARTED",
					Version: 1,
				}).Return(tt.publishErr)
			}

			stored, err := store.Put(context.Background(), kv.Item{
				Table:   tt.table,
				Scope:   "arn:aws:ccf:us-east-1:123456789012",
				Key:     "ccj-1",
				Owner:   "cc-1",
				Status:  "STARTED",
				Version: 1,
			}, kv.Condition{MustNotExist: true})
			require.NoError(t, err)
			assert.Equal(t, "ccj-1", stored.Key)
		})
	}
}

func TestPublishingStoreSkipsFailedWrites(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	base := kv.NewMemoryStore()
	store := feed.NewPublishingStore(base, publisher, kv.TableJobs)

	_, err := base.Put(context.Background(), kv.Item{Table: kv.TableJobs, Key: "ccj-1", Version: 1}, kv.Condition{})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), kv.Item{Table: kv.TableJobs, Key: "ccj-1", Version: 1},
		kv.Condition{MustNotExist: true})
	assert.ErrorIs(t, err, kv.ErrConditionFailed)
}
