package enumerator

import "context"

// release is registered with runtime.AddCleanup on the Enumerator handle.
// It runs once the handle is unreachable; asynchronous operations keep the
// handle reachable, so nothing can be in flight here.
//
// Cleanups share one runtime goroutine, so the backend close runs on its own
// goroutine without a cancellation context; the outcome is only logged.
func (c *core[E]) release() {
	if c.guard.closed.Swap(true) {
		return
	}
	c.ins.released.Add(1)
	go c.closeReleased()
}

func (c *core[E]) closeReleased() {
	if err := c.backend.CloseBackend(context.Background()); err != nil {
		c.logger.Warn().Err(err).Msg("closing unreachable enumerator failed")
		return
	}
	c.logger.Debug().Msg("unreachable enumerator closed")
}
