// Package shutdown coordinates graceful process termination.
//
// A Handler waits for SIGINT, SIGTERM, a programmatic Trigger (the
// SHUTDOWN command) or cancellation of the parent context, then runs the
// registered hooks in reverse order under a deadline:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	h.OnShutdown(func(context.Context) error { return engine.Close() })
//	err := h.Wait(ctx)
package shutdown
