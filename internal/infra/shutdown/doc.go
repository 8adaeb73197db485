// Package shutdown provides graceful shutdown for the snapshot engine.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Timeout-based forced shutdown
//   - Cleanup callback registration
//   - Shutdown coordination
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return store.Close(ctx) })
//	err := h.Wait() // Blocks until SIGINT/SIGTERM, then runs the hooks
//
package shutdown
