package manager

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fgpipe/internal/pipeline"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// ErrUnexpectedResult is returned when a worker answers more arguments than
// it was sent
var ErrUnexpectedResult = errors.New("result without outstanding request")

// DefaultPollTimeout bounds one readiness wait
const DefaultPollTimeout = time.Second

// Worker is the manager's handle on one worker process
type Worker interface {
	Role() types.Role
	Function() types.Function
	ArgFd() int
	ResultFd() int
	Send(x int64) error
	Receive() ([]types.Value, error)
}

// Observer receives pipeline events, typically for metrics
type Observer interface {
	InputAccepted()
	InputRejected()
	Dispatched(role types.Role)
	ResultReceived(role types.Role, status types.Status)
	Retried(role types.Role)
	WorkerExited(role types.Role)
	Finalized(ok bool, retries int, latency time.Duration)
	BufferDepth(n int)
}

// Options tune the pipeline
type Options struct {
	// Capacity of the in-flight ring; one slot always stays free
	Capacity int
	// MaxSoftRetry bounds retransmissions per worker per record
	MaxSoftRetry int
	// RetryBackoff delays the first retry; later retries double it
	RetryBackoff time.Duration
	// PollTimeout bounds one readiness wait
	PollTimeout time.Duration
	// DrainTimeout abandons outstanding requests this long after shutdown;
	// zero waits indefinitely
	DrainTimeout time.Duration
	// Final combines both worker results
	Final types.Function
}

// Deps are the collaborators a Manager drives
type Deps struct {
	Workers  [types.WorkerCount]Worker
	Source   InputSource
	Poller   Poller
	Emitter  Emitter
	Logger   *zap.Logger
	Observer Observer
}

// Stats counts what happened during a run
type Stats struct {
	Accepted  int
	Rejected  int
	Finalized int
	Failed    int
	Retries   int
}

// Manager owns the in-flight ring and both worker channels. It is not safe
// for concurrent use.
type Manager struct {
	opts     Options
	workers  [types.WorkerCount]Worker
	source   InputSource
	poller   Poller
	emitter  Emitter
	logger   *zap.Logger
	observer Observer
	now      func() time.Time

	ring     *pipeline.Ring
	alive    [types.WorkerCount]bool
	seq      [types.WorkerCount]uint64
	inflight [types.WorkerCount][]pipeline.Pos

	shutdown   bool
	shutdownAt time.Time
	stats      Stats
}

// New validates options and builds a manager
func New(opts Options, deps Deps) (*Manager, error) {
	if opts.MaxSoftRetry < 0 {
		return nil, fmt.Errorf("max soft retry must not be negative, got %d", opts.MaxSoftRetry)
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	for _, role := range types.Roles() {
		w := deps.Workers[role]
		if w == nil {
			return nil, fmt.Errorf("worker %s is not configured", role)
		}
		if w.Role() != role {
			return nil, fmt.Errorf("worker in slot %s reports role %s", role, w.Role())
		}
	}
	if deps.Source == nil {
		return nil, errors.New("input source is not configured")
	}
	if deps.Emitter == nil {
		return nil, errors.New("emitter is not configured")
	}

	ring, err := pipeline.New(opts.Capacity)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		opts:     opts,
		workers:  deps.Workers,
		source:   deps.Source,
		poller:   deps.Poller,
		emitter:  deps.Emitter,
		logger:   deps.Logger,
		observer: deps.Observer,
		now:      time.Now,
		ring:     ring,
	}
	if m.poller == nil {
		m.poller = NewPoller()
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	for i := range m.alive {
		m.alive[i] = true
	}
	return m, nil
}

// Shutdown stops input acceptance and disables retries. Outstanding
// requests keep draining.
func (m *Manager) Shutdown(reason string) {
	if m.shutdown {
		return
	}
	m.shutdown = true
	m.shutdownAt = m.now()

	cancelled := 0
	for _, rec := range m.ring.Outstandings() {
		for i := range rec.Slots {
			if rec.Slots[i].CancelRetry() {
				cancelled++
			}
		}
	}
	m.logger.Info("Shutting down",
		zap.String("reason", reason),
		zap.Int("in_flight", m.ring.Len()),
		zap.Int("retries_cancelled", cancelled))
}

// ShuttingDown reports whether Shutdown was called
func (m *Manager) ShuttingDown() bool {
	return m.shutdown
}

// Done reports whether the run may exit: shutting down and nothing left to emit
func (m *Manager) Done() bool {
	return m.shutdown && m.ring.IsEmpty()
}

// InFlight returns the number of accepted inputs not yet emitted
func (m *Manager) InFlight() int {
	return m.ring.Len()
}

// Stats returns run counters
func (m *Manager) Stats() Stats {
	return m.stats
}

// noRetry is indexed by role: no retries once shutting down or for a dead worker
func (m *Manager) noRetry() [types.WorkerCount]bool {
	var nr [types.WorkerCount]bool
	for i := range nr {
		nr[i] = m.shutdown || !m.alive[i]
	}
	return nr
}

// backoff returns the delay before retry number n (1-based)
func (m *Manager) backoff(n int) time.Duration {
	if m.opts.RetryBackoff <= 0 || n <= 0 {
		return 0
	}
	shift := n - 1
	if shift > 16 {
		shift = 16
	}
	return m.opts.RetryBackoff << shift
}

type nopObserver struct{}

func (nopObserver) InputAccepted()                          {}
func (nopObserver) InputRejected()                          {}
func (nopObserver) Dispatched(types.Role)                   {}
func (nopObserver) ResultReceived(types.Role, types.Status) {}
func (nopObserver) Retried(types.Role)                      {}
func (nopObserver) WorkerExited(types.Role)                 {}
func (nopObserver) Finalized(bool, int, time.Duration)      {}
func (nopObserver) BufferDepth(int)                         {}
