package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
)

// Mutator derives the next state of an item from the stored one. It must not
// have side effects because Retry may call it several times.
type Mutator func(current Item) (Item, error)

// Transact performs one optimistic read-modify-write cycle: it reads the item,
// applies mutate and writes the result on condition that the stored version
// is still the one that was read. The written item carries version+1.
// A concurrent writer makes Transact fail with ErrConditionFailed.
func Transact(ctx context.Context, store Store, table, scope, key string, mutate Mutator) (*Item, error) {
	current, err := store.Get(ctx, table, scope, key)
	if err != nil {
		return nil, err
	}

	next, err := mutate(cloneItem(*current))
	if err != nil {
		return nil, err
	}
	next.Table, next.Scope, next.Key = current.Table, current.Scope, current.Key
	next.Version = current.Version + 1

	return store.Put(ctx, next, Condition{Version: current.Version})
}

// Retry runs op until it succeeds, fails with an error other than
// ErrConditionFailed or the retry policy gives up. Callers opt into retrying;
// the registries built on Store never retry on their own.
func Retry[T any](ctx context.Context, op func() (T, error), opts ...backoff.RetryOption) (T, error) {
	if len(opts) == 0 {
		opts = []backoff.RetryOption{
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(5),
		}
	}

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, ErrConditionFailed) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
	if err != nil {
		return result, fmt.Errorf("retry failed: %w", err)
	}
	return result, nil
}
