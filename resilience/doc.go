// Package resilience guards calls to the shared cache tier.
//
// A shared tier sits across the network, so each call can hang, fail
// transiently, or fail for a long stretch. The package provides:
//
//   - CircuitBreaker: stops calling a store after repeated failures and
//     tries it again after a cool-down.
//   - Retry: re-runs transient failures with constant, linear or
//     exponential backoff. Caller cancellation is never retried.
//   - Timeout: bounds each attempt.
//   - Executor: composes the three, breaker outermost.
//
// # Usage
//
//	exec := resilience.NewStoreExecutor(resilience.DefaultStorePolicy(), nil)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return client.Get(ctx, key).Err()
//	})
//	if errors.Is(err, resilience.ErrCircuitOpen) {
//	    // the store is considered down; do not wait on it
//	}
package resilience
