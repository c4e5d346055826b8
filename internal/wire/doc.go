// Package wire implements the fixed-width binary records exchanged between
// the manager and its workers.
//
// Both ends of a channel agree on the record size; there is no framing or
// length prefix. All integers use the host's native byte order since both
// ends always run on the same machine.
//
// Records:
//
//	argument (8 bytes):  int64 x
//	result  (16 bytes):  int32 status | int32 kind | 8-byte payload
//
// The payload holds an int64, a uint64, IEEE-754 float64 bits, or 0/1 for
// bool, selected by kind. Decoder accumulates partial reads and only yields
// complete records.
package wire
