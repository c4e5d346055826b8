package pipeline

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

// MinCapacity is the smallest usable ring: one slot always stays free
const MinCapacity = 2

var (
	ErrFull  = errors.New("pipeline buffer is full")
	ErrEmpty = errors.New("pipeline buffer is empty")
)

// Pos is a stable position of a record inside the ring. It stays valid until
// the record is finalized.
type Pos int

// Ring is a fixed-capacity circular buffer of records with head, current and
// free cursors
type Ring struct {
	records []Record
	head    int
	current int
	free    int
}

// New creates a ring with the given capacity
func New(capacity int) (*Ring, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("ring capacity %d is below minimum %d", capacity, MinCapacity)
	}
	return &Ring{records: make([]Record, capacity)}, nil
}

// Cap returns the ring capacity
func (r *Ring) Cap() int {
	return len(r.records)
}

func (r *Ring) next(i int) int {
	return (i + 1) % len(r.records)
}

func (r *Ring) distance(from, to int) int {
	return (to - from + len(r.records)) % len(r.records)
}

// Len returns the number of records not yet finalized
func (r *Ring) Len() int {
	return r.distance(r.head, r.free)
}

// Resolved returns the number of records waiting to be finalized
func (r *Ring) Resolved() int {
	return r.distance(r.head, r.current)
}

// Outstanding returns the number of records with worker activity left
func (r *Ring) Outstanding() int {
	return r.distance(r.current, r.free)
}

// IsEmpty reports whether every accepted record has been finalized
func (r *Ring) IsEmpty() bool {
	return r.head == r.free
}

// IsFull reports whether a push would overwrite an unfinalized record
func (r *Ring) IsFull() bool {
	return r.next(r.free) == r.head
}

// Push accepts a new input with all slots in StateNone
func (r *Ring) Push(value int64, accepted time.Time) (Pos, error) {
	if r.IsFull() {
		return 0, ErrFull
	}
	pos := r.free
	r.records[pos] = Record{Value: value, Accepted: accepted}
	r.free = r.next(pos)
	return Pos(pos), nil
}

// PeekOldest returns the oldest unfinalized record
func (r *Ring) PeekOldest() (*Record, bool) {
	if r.IsEmpty() {
		return nil, false
	}
	return &r.records[r.head], true
}

// AdvanceHead finalizes the oldest record. Only resolved records, those
// already passed by current, can be finalized.
func (r *Ring) AdvanceHead() error {
	if r.head == r.current {
		return ErrEmpty
	}
	r.records[r.head] = Record{}
	r.head = r.next(r.head)
	return nil
}

// Current returns the oldest record with outstanding worker activity
func (r *Ring) Current() (*Record, bool) {
	if r.current == r.free {
		return nil, false
	}
	return &r.records[r.current], true
}

// AdvanceCurrent marks the current record as resolved
func (r *Ring) AdvanceCurrent() error {
	if r.current == r.free {
		return ErrEmpty
	}
	r.current = r.next(r.current)
	return nil
}

// At returns the record at pos
func (r *Ring) At(pos Pos) *Record {
	return &r.records[pos]
}

// Outstandings yields records in [current, free), oldest first
func (r *Ring) Outstandings() iter.Seq2[Pos, *Record] {
	return func(yield func(Pos, *Record) bool) {
		for i := r.current; i != r.free; i = r.next(i) {
			if !yield(Pos(i), &r.records[i]) {
				return
			}
		}
	}
}

// All yields every unfinalized record in [head, free), oldest first
func (r *Ring) All() iter.Seq2[Pos, *Record] {
	return func(yield func(Pos, *Record) bool) {
		for i := r.head; i != r.free; i = r.next(i) {
			if !yield(Pos(i), &r.records[i]) {
				return
			}
		}
	}
}
