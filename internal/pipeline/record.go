package pipeline

import (
	"time"

	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// CommState tracks one argument's trip to a worker and back
type CommState uint8

const (
	StateNone CommState = iota
	StateSent
	StateReceived
)

// String returns the string representation of the state
func (s CommState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSent:
		return "sent"
	case StateReceived:
		return "received"
	default:
		return "unknown"
	}
}

// Slot is the completion state of one record for one worker
type Slot struct {
	State   CommState
	Retries int
	Result  types.Value

	// SentSeq orders dispatches to the same worker; results are matched
	// against outstanding slots in this order
	SentSeq uint64
	// ReadyAt delays re-dispatch after a soft failure
	ReadyAt time.Time
}

// Terminal reports whether the slot needs no further worker activity.
// A received soft failure is terminal once retries are exhausted or when
// retrying has been disabled.
func (s *Slot) Terminal(maxRetries int, noRetry bool) bool {
	if s.State != StateReceived {
		return false
	}
	if s.Result.Status() != types.StatusSoftFail {
		return true
	}
	return noRetry || s.Retries >= maxRetries
}

// Retryable reports whether the slot holds a soft failure that may be resent
func (s *Slot) Retryable(maxRetries int, noRetry bool) bool {
	return s.State == StateReceived &&
		s.Result.Status() == types.StatusSoftFail &&
		!noRetry && s.Retries < maxRetries
}

// Requeue resets a soft-failed slot for retransmission at readyAt. The
// soft failure stays in Result until a new answer arrives.
func (s *Slot) Requeue(readyAt time.Time) {
	s.State = StateNone
	s.Retries++
	s.SentSeq = 0
	s.ReadyAt = readyAt
}

// Requeued reports whether the slot waits for a retransmission
func (s *Slot) Requeued() bool {
	return s.State == StateNone && s.Retries > 0
}

// CancelRetry turns a requeued slot back into its received soft failure
func (s *Slot) CancelRetry() bool {
	if !s.Requeued() {
		return false
	}
	s.State = StateReceived
	s.ReadyAt = time.Time{}
	return true
}

// Dispatchable reports whether the slot may be sent at now
func (s *Slot) Dispatchable(now time.Time) bool {
	return s.State == StateNone && !now.Before(s.ReadyAt)
}

// Record is one accepted input and its per-worker completion state
type Record struct {
	Value    int64
	Slots    [types.WorkerCount]Slot
	Accepted time.Time
}

// Slot returns the record's slot for role
func (r *Record) Slot(role types.Role) *Slot {
	return &r.Slots[role]
}

// Resolved reports whether every slot is terminal. noRetry is indexed by role.
func (r *Record) Resolved(maxRetries int, noRetry [types.WorkerCount]bool) bool {
	for i := range r.Slots {
		if !r.Slots[i].Terminal(maxRetries, noRetry[i]) {
			return false
		}
	}
	return true
}

// Retries returns the total number of retransmissions across workers
func (r *Record) Retries() int {
	total := 0
	for i := range r.Slots {
		total += r.Slots[i].Retries
	}
	return total
}
