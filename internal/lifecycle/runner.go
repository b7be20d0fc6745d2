package lifecycle

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/connector-lifecycle-server/internal/feed"
)

// Run feeds the change events of subscriber to the controller and, when
// resync is not nil, runs the resync loop beside it. It returns once ctx is
// cancelled or either of them fails.
func Run(ctx context.Context, subscriber feed.Subscriber, controller *Controller, resync *Resync) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := subscriber.Subscribe(ctx, controller.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if resync != nil {
		g.Go(func() error {
			return resync.Start(ctx)
		})
	}
	return g.Wait()
}
