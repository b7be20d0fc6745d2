package kv_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

// runStoreSuite exercises the behaviour every Store backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Helper()

	item := func(key string) kv.Item {
		return kv.Item{
			Table:   kv.TableConnectors,
			Scope:   "tenant-a",
			Key:     key,
			Status:  "AVAILABLE",
			Version: 1,
			Data:    []byte(`{"name":"` + key + `"}`),
		}
	}

	t.Run("get missing item", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), kv.TableConnectors, "tenant-a", "missing")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("put must not exist", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		stored, err := store.Put(ctx, item("c1"), kv.Condition{MustNotExist: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
		assert.False(t, stored.CreatedAt.IsZero())

		_, err = store.Put(ctx, item("c1"), kv.Condition{MustNotExist: true})
		assert.ErrorIs(t, err, kv.ErrConditionFailed)
	})

	t.Run("put with version condition", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, item("c1"), kv.Condition{MustNotExist: true})
		require.NoError(t, err)

		next := item("c1")
		next.Version = 2
		next.Status = "IN_USE"
		stored, err := store.Put(ctx, next, kv.Condition{Version: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
		assert.Equal(t, "IN_USE", stored.Status)

		stale := item("c1")
		stale.Version = 2
		_, err = store.Put(ctx, stale, kv.Condition{Version: 1})
		assert.ErrorIs(t, err, kv.ErrConditionFailed)

		got, err := store.Get(ctx, kv.TableConnectors, "tenant-a", "c1")
		require.NoError(t, err)
		assert.Equal(t, "IN_USE", got.Status)
	})

	t.Run("conditional put on missing item", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Put(context.Background(), item("ghost"), kv.Condition{MustExist: true})
		assert.ErrorIs(t, err, kv.ErrConditionFailed)
	})

	t.Run("delete with status condition", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		busy := item("busy")
		busy.Status = "IN_USE"
		_, err := store.Put(ctx, busy, kv.Condition{MustNotExist: true})
		require.NoError(t, err)

		err = store.Delete(ctx, kv.TableConnectors, "tenant-a", "busy", kv.Condition{MustExist: true, StatusNot: "IN_USE"})
		assert.ErrorIs(t, err, kv.ErrConditionFailed)

		err = store.Delete(ctx, kv.TableConnectors, "tenant-a", "absent", kv.Condition{MustExist: true, StatusNot: "IN_USE"})
		assert.ErrorIs(t, err, kv.ErrConditionFailed)

		err = store.Delete(ctx, kv.TableConnectors, "tenant-a", "absent", kv.Condition{})
		assert.ErrorIs(t, err, kv.ErrNotFound)

		_, err = store.Put(ctx, item("idle"), kv.Condition{MustNotExist: true})
		require.NoError(t, err)
		err = store.Delete(ctx, kv.TableConnectors, "tenant-a", "idle", kv.Condition{MustExist: true, StatusNot: "IN_USE"})
		require.NoError(t, err)

		_, err = store.Get(ctx, kv.TableConnectors, "tenant-a", "idle")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("list pages in insertion order", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := range 5 {
			_, err := store.Put(ctx, item(fmt.Sprintf("c%d", i)), kv.Condition{MustNotExist: true})
			require.NoError(t, err)
		}
		other := item("elsewhere")
		other.Scope = "tenant-b"
		_, err := store.Put(ctx, other, kv.Condition{MustNotExist: true})
		require.NoError(t, err)

		var keys []string
		cursor := ""
		pages := 0
		for {
			page, err := store.List(ctx, kv.Query{Table: kv.TableConnectors, Scope: "tenant-a", Limit: 2, Cursor: cursor})
			require.NoError(t, err)
			pages++
			for _, it := range page.Items {
				keys = append(keys, it.Key)
			}
			if page.Cursor == "" {
				break
			}
			cursor = page.Cursor
		}
		assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, keys)
		assert.Equal(t, 3, pages)
	})

	t.Run("list by owner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i, owner := range []string{"cc-1", "cc-2", "cc-1"} {
			job := kv.Item{
				Table:   kv.TableJobs,
				Scope:   "tenant-a",
				Key:     fmt.Sprintf("ccj-%d", i),
				Owner:   owner,
				Status:  "STARTED",
				Version: 1,
				Data:    []byte(`{}`),
			}
			_, err := store.Put(ctx, job, kv.Condition{MustNotExist: true})
			require.NoError(t, err)
		}

		page, err := store.List(ctx, kv.Query{Table: kv.TableJobs, Scope: "tenant-a", Owner: "cc-1"})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "ccj-0", page.Items[0].Key)
		assert.Equal(t, "ccj-2", page.Items[1].Key)
		assert.Empty(t, page.Cursor)
	})

	t.Run("list rejects foreign cursor", func(t *testing.T) {
		store := newStore(t)
		_, err := store.List(context.Background(), kv.Query{
			Table:  kv.TableJobs,
			Cursor: kv.EncodeCursor(kv.TableConnectors, 1),
		})
		assert.Error(t, err)
	})

	t.Run("sweep removes expired items", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		past := now.Add(-time.Minute)
		future := now.Add(time.Hour)

		expired := item("expired")
		expired.ExpiresAt = &past
		live := item("live")
		live.ExpiresAt = &future
		for _, it := range []kv.Item{expired, live, item("forever")} {
			_, err := store.Put(ctx, it, kv.Condition{MustNotExist: true})
			require.NoError(t, err)
		}

		n, err := store.Sweep(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.Get(ctx, kv.TableConnectors, "tenant-a", "expired")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		got, err := store.Get(ctx, kv.TableConnectors, "tenant-a", "live")
		require.NoError(t, err)
		require.NotNil(t, got.ExpiresAt)
		assert.WithinDuration(t, future, *got.ExpiresAt, time.Millisecond)
	})

	t.Run("write batch", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, item("old"), kv.Condition{MustNotExist: true})
		require.NoError(t, err)

		err = store.WriteBatch(ctx, []kv.Write{
			{Item: item("new-1")},
			{Item: item("new-2")},
			{Item: kv.Item{Table: kv.TableConnectors, Scope: "tenant-a", Key: "old"}, Delete: true},
			{Item: kv.Item{Table: kv.TableConnectors, Scope: "tenant-a", Key: "never-existed"}, Delete: true},
		})
		require.NoError(t, err)

		page, err := store.List(ctx, kv.Query{Table: kv.TableConnectors, Scope: "tenant-a"})
		require.NoError(t, err)
		var keys []string
		for _, it := range page.Items {
			keys = append(keys, it.Key)
		}
		assert.ElementsMatch(t, []string{"new-1", "new-2"}, keys)
	})

	t.Run("transact bumps version", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, item("c1"), kv.Condition{MustNotExist: true})
		require.NoError(t, err)

		updated, err := kv.Transact(ctx, store, kv.TableConnectors, "tenant-a", "c1", func(cur kv.Item) (kv.Item, error) {
			cur.Status = "IN_USE"
			return cur, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)
		assert.Equal(t, "IN_USE", updated.Status)
	})

	t.Run("list sees whole items during concurrent puts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, item("c1"), kv.Condition{MustNotExist: true})
		require.NoError(t, err)

		const writes = 200
		errCh := make(chan error, 1)
		go func() {
			defer close(errCh)
			for v := int64(2); v <= writes; v++ {
				next := item("c1")
				next.Version = v
				next.Data = []byte(fmt.Sprintf(`{"version":%d}`, v))
				if _, err := store.Put(ctx, next, kv.Condition{}); err != nil {
					errCh <- err
					return
				}
			}
		}()

		for i := 0; i < 50; i++ {
			page, err := store.List(ctx, kv.Query{Table: kv.TableConnectors, Scope: "tenant-a"})
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			got := page.Items[0]
			if got.Version > 1 {
				assert.JSONEq(t, fmt.Sprintf(`{"version":%d}`, got.Version), string(got.Data))
			}
		}
		require.NoError(t, <-errCh)
	})
}
