// Package manager drives the F/G pipeline.
//
// A Manager owns the in-flight ring and the descriptors of both workers and
// is driven from a single goroutine, one tick at a time:
//
//   - Communicate: wait for readiness, accept one input line, collect
//     results, dispatch pending arguments
//   - Finalize: requeue soft failures of the oldest unresolved record, then
//     combine and emit every resolved record in arrival order
//
// Run repeats both until shutdown has been requested and every accepted
// input has been emitted.
//
// Ordering:
//
// Results from one worker are matched to records in the order the arguments
// were sent to that worker. Retries are sent after later records, so the
// dispatch order, not the ring order, decides the match. Outputs are always
// emitted in input order.
//
// Example Usage:
//
//	mgr, err := manager.New(manager.Options{Capacity: 10, MaxSoftRetry: 3, Final: types.FuncIMul}, deps)
//	if err != nil {
//		return err
//	}
//	return mgr.Run(ctx, nil)
package manager
