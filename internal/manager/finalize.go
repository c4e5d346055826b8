package manager

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fgpipe/internal/pipeline"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// Finalize requeues soft failures of the record at current, advances
// current past resolved records, and emits every resolved record in order.
func (m *Manager) Finalize() error {
	now := m.now()
	m.abandonIfOverdue()

	for {
		rec, ok := m.ring.Current()
		if !ok {
			break
		}

		noRetry := m.noRetry()
		for _, role := range types.Roles() {
			slot := rec.Slot(role)
			if !slot.Retryable(m.opts.MaxSoftRetry, noRetry[role]) {
				continue
			}
			delay := m.backoff(slot.Retries + 1)
			slot.Requeue(now.Add(delay))
			m.stats.Retries++
			m.observer.Retried(role)
			m.logger.Info("Retrying soft failure",
				zap.Stringer("worker", role),
				zap.Int64("x", rec.Value),
				zap.Int("attempt", slot.Retries),
				zap.Duration("backoff", delay))
		}

		if !rec.Resolved(m.opts.MaxSoftRetry, noRetry) {
			break
		}
		if err := m.ring.AdvanceCurrent(); err != nil {
			return fmt.Errorf("advance current: %w", err)
		}
	}

	for m.ring.Resolved() > 0 {
		rec, _ := m.ring.PeekOldest()
		if err := m.emit(rec); err != nil {
			return err
		}
		if err := m.ring.AdvanceHead(); err != nil {
			return fmt.Errorf("advance head: %w", err)
		}
	}

	m.observer.BufferDepth(m.ring.Len())
	return nil
}

func (m *Manager) emit(rec *pipeline.Record) error {
	f := rec.Slot(types.RoleF).Result
	g := rec.Slot(types.RoleG).Result
	out := Outcome{
		X:       rec.Value,
		Final:   m.opts.Final,
		F:       f,
		G:       g,
		Result:  Combine(m.opts.Final, f, g),
		Retries: rec.Retries(),
		Latency: m.now().Sub(rec.Accepted),
	}

	m.stats.Finalized++
	if !out.Result.OK() {
		m.stats.Failed++
	}
	m.observer.Finalized(out.Result.OK(), out.Retries, out.Latency)

	if err := m.emitter.Emit(out); err != nil {
		return fmt.Errorf("emit result for x=%d: %w", rec.Value, err)
	}
	return nil
}

// abandonIfOverdue gives up on outstanding requests once the drain timeout
// after shutdown has passed
func (m *Manager) abandonIfOverdue() {
	if !m.shutdown || m.opts.DrainTimeout <= 0 {
		return
	}
	if m.now().Sub(m.shutdownAt) < m.opts.DrainTimeout {
		return
	}

	abandoned := 0
	for _, rec := range m.ring.Outstandings() {
		for _, role := range types.Roles() {
			slot := rec.Slot(role)
			if slot.State != pipeline.StateReceived {
				m.markLost(slot, role)
				abandoned++
			}
		}
	}
	for _, role := range types.Roles() {
		m.alive[role] = false
		m.inflight[role] = nil
	}
	if abandoned > 0 {
		m.logger.Warn("Drain timeout expired, abandoning outstanding requests",
			zap.Duration("drain_timeout", m.opts.DrainTimeout),
			zap.Int("abandoned", abandoned))
	}
}
