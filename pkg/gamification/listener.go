package gamification

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// listenerHandle owns the single outstanding listener task a Manager may
// hold per projection (spec.md §5 "listener task ownership"). Cancel is
// idempotent and blocks until the task has fully unwound.
type listenerHandle struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

// startListener spawns run under its own cancellable context derived from
// parent, reporting via errgroup so Cancel can wait for clean shutdown.
// onFail is invoked with the listener's terminal error unless that error is
// attributable to cancellation.
func startListener(parent context.Context, run func(ctx context.Context) error, onFail func(error)) *listenerHandle {
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := run(gctx)
		if err != nil && gctx.Err() == nil {
			onFail(err)
		}
		return err
	})
	return &listenerHandle{cancel: cancel, group: group}
}

// Cancel stops the listener task and waits for it to exit. Safe to call on a
// nil handle and safe to call more than once.
func (h *listenerHandle) Cancel() {
	if h == nil {
		return
	}
	h.cancel()
	_ = h.group.Wait()
}
