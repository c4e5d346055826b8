// Package types provides the value model shared by the manager and the workers.
//
// This package defines the tagged result value exchanged over worker channels
// and the identifiers that select what each worker computes.
//
// Core Types:
//   - Value: Status plus a payload tagged by Kind
//   - Status: Success, SoftFail (transient, retryable), HardFail (permanent)
//   - Kind: Int, Uint, Float, Bool
//   - Function: imul, imin, fmul, and, or
//   - Role: F or G worker
//
// Casting:
//
// Cast converts a successful payload between kinds with the usual numeric
// truncation and widening. Failed values keep their status and are only
// retagged, so a failure can never turn into a success through a cast.
//
// Example Usage:
//
//	fn, err := types.ParseFunction("imin")
//	v := types.Uint(7)
//	f := types.Cast(v, types.KindFloat) // 7.0
//	x, ok := f.Float()
package types
