// Package pipeline provides the fixed-capacity ring of in-flight input records.
//
// Each record carries the raw input and one completion slot per worker. Three
// cursors walk the ring in the same direction:
//
//	head ──► current ──► free
//	 │          │          │
//	 │          │          └─ next position to push a new record
//	 │          └─ oldest record with outstanding worker activity
//	 └─ oldest record not yet finalized
//
// Records in [head, current) are resolved and wait to be combined; records in
// [current, free) are still being dispatched or answered. The ring is full
// when pushing would make free catch up with head, so a capacity of N holds
// N-1 records. A full ring is backpressure, not an error.
//
// The ring is owned by a single goroutine and does no locking.
package pipeline
