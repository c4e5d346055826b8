package manager

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fgpipe/internal/pipeline"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

type watchKind uint8

const (
	watchInput watchKind = iota
	watchResults
	watchArgs
)

type watch struct {
	kind watchKind
	role types.Role
}

// Communicate runs one readiness wait and dispatches whatever became ready.
// A timeout or an interrupted wait is an empty tick. Errors are fatal for
// the run.
func (m *Manager) Communicate() error {
	// The input may also have been drained by a confirmation prompt
	if m.source.EOF() && !m.source.Ready() {
		m.Shutdown("end of input")
	}

	now := m.now()
	interests, watches := m.interests(now)

	ready, err := m.poller.Wait(interests, m.waitTimeout(now))
	if errors.Is(err, ErrInterrupted) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("wait for readiness: %w", err)
	}

	var (
		inputReady bool
		results    [types.WorkerCount]bool
		args       [types.WorkerCount]bool
	)
	for i, w := range watches {
		switch w.kind {
		case watchInput:
			inputReady = ready[i].Readable
		case watchResults:
			results[w.role] = ready[i].Readable
		case watchArgs:
			args[w.role] = ready[i].Writable
		}
	}

	if m.acceptingInput() && (inputReady || m.source.Ready()) {
		if err := m.readInput(inputReady); err != nil {
			return err
		}
	}

	for _, role := range types.Roles() {
		if results[role] {
			if _, err := m.receive(role); err != nil {
				return err
			}
		}
	}

	now = m.now()
	for _, role := range types.Roles() {
		if args[role] {
			if err := m.dispatch(role, now); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *Manager) acceptingInput() bool {
	return !m.shutdown && !m.ring.IsFull()
}

// interests builds the readiness set for this tick
func (m *Manager) interests(now time.Time) ([]Interest, []watch) {
	interests := make([]Interest, 0, 1+2*types.WorkerCount)
	watches := make([]watch, 0, cap(interests))

	if m.acceptingInput() && !m.source.EOF() && !m.source.Ready() {
		interests = append(interests, Interest{Fd: m.source.Fd(), Read: true})
		watches = append(watches, watch{kind: watchInput})
	}

	for _, role := range types.Roles() {
		if !m.alive[role] {
			continue
		}
		w := m.workers[role]
		interests = append(interests, Interest{Fd: w.ResultFd(), Read: true})
		watches = append(watches, watch{kind: watchResults, role: role})

		if _, ok := m.nextDispatch(role, now); ok {
			interests = append(interests, Interest{Fd: w.ArgFd(), Write: true})
			watches = append(watches, watch{kind: watchArgs, role: role})
		}
	}
	return interests, watches
}

// waitTimeout shortens the wait when a buffered line or a retry is due
func (m *Manager) waitTimeout(now time.Time) time.Duration {
	if m.acceptingInput() && m.source.Ready() {
		return 0
	}

	timeout := m.opts.PollTimeout
	for _, rec := range m.ring.Outstandings() {
		for role := range rec.Slots {
			slot := &rec.Slots[role]
			if !m.alive[role] || slot.State != pipeline.StateNone {
				continue
			}
			if wait := slot.ReadyAt.Sub(now); wait > 0 && wait < timeout {
				timeout = wait
			}
		}
	}
	return timeout
}

// readInput consumes at most one line
func (m *Manager) readInput(readable bool) error {
	if readable && !m.source.Ready() {
		if err := m.source.Fill(); err != nil {
			return err
		}
	}

	if line, ok := m.source.Next(); ok {
		m.accept(line)
	}

	if m.source.EOF() && !m.source.Ready() {
		m.Shutdown("end of input")
	}
	return nil
}

func (m *Manager) accept(line string) {
	text := strings.TrimSpace(line)
	if text == "" {
		return
	}

	x, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		m.stats.Rejected++
		m.observer.InputRejected()
		m.logger.Warn("Discarding malformed input",
			zap.String("input", text),
			zap.Error(err))
		return
	}

	pos, err := m.ring.Push(x, m.now())
	if err != nil {
		// acceptingInput guards against a full ring
		m.logger.Error("Input accepted while buffer is full", zap.Int64("x", x))
		return
	}
	m.stats.Accepted++
	m.observer.InputAccepted()

	rec := m.ring.At(pos)
	for _, role := range types.Roles() {
		if !m.alive[role] {
			m.markLost(rec.Slot(role), role)
		}
	}
	m.logger.Debug("Accepted input", zap.Int64("x", x), zap.Int("in_flight", m.ring.Len()))
}

// WorkerGone tells the manager that role's process has exited. Results
// written before the exit are still collected.
func (m *Manager) WorkerGone(role types.Role) error {
	for m.alive[role] {
		n, err := m.receive(role)
		if err != nil {
			return err
		}
		if n == 0 && m.alive[role] {
			m.workerExited(role)
		}
	}
	return nil
}

// receive reads whatever results the worker has produced
func (m *Manager) receive(role types.Role) (int, error) {
	w := m.workers[role]
	values, err := w.Receive()

	for _, v := range values {
		if len(m.inflight[role]) == 0 {
			return 0, fmt.Errorf("receive from worker %s: %w", role, ErrUnexpectedResult)
		}
		pos := m.inflight[role][0]
		m.inflight[role] = m.inflight[role][1:]

		rec := m.ring.At(pos)
		slot := rec.Slot(role)
		slot.State = pipeline.StateReceived
		slot.Result = v
		m.observer.ResultReceived(role, v.Status())

		m.logger.Info("Received result",
			zap.Stringer("worker", role),
			zap.Stringer("function", w.Function()),
			zap.Int64("x", rec.Value),
			zap.Stringer("status", v.Status()),
			zap.Stringer("value", v),
			zap.Int("retry", slot.Retries))
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			m.workerExited(role)
			return len(values), nil
		}
		return 0, fmt.Errorf("receive from worker %s: %w", role, err)
	}
	return len(values), nil
}

// workerExited resolves every open slot of a dead worker as a hard failure
func (m *Manager) workerExited(role types.Role) {
	m.alive[role] = false
	m.inflight[role] = nil
	m.observer.WorkerExited(role)

	lost := 0
	for _, rec := range m.ring.Outstandings() {
		slot := rec.Slot(role)
		if slot.State != pipeline.StateReceived {
			m.markLost(slot, role)
			lost++
		}
	}
	m.logger.Warn("Worker exited",
		zap.Stringer("worker", role),
		zap.Stringer("function", m.workers[role].Function()),
		zap.Int("lost", lost))

	if !m.alive[types.RoleF] && !m.alive[types.RoleG] {
		m.Shutdown("all workers exited")
	}
}

func (m *Manager) markLost(slot *pipeline.Slot, role types.Role) {
	slot.State = pipeline.StateReceived
	slot.Result = types.Failure(types.StatusHardFail, m.workers[role].Function().ResultKind())
}

// nextDispatch finds the oldest record whose slot for role may be sent now
func (m *Manager) nextDispatch(role types.Role, now time.Time) (pipeline.Pos, bool) {
	if !m.alive[role] {
		return 0, false
	}
	for pos, rec := range m.ring.Outstandings() {
		if rec.Slot(role).Dispatchable(now) {
			return pos, true
		}
	}
	return 0, false
}

// dispatch sends one argument to the worker
func (m *Manager) dispatch(role types.Role, now time.Time) error {
	pos, ok := m.nextDispatch(role, now)
	if !ok {
		return nil
	}
	rec := m.ring.At(pos)

	if err := m.workers[role].Send(rec.Value); err != nil {
		return fmt.Errorf("send to worker %s: %w", role, err)
	}

	m.seq[role]++
	slot := rec.Slot(role)
	slot.State = pipeline.StateSent
	slot.SentSeq = m.seq[role]
	m.inflight[role] = append(m.inflight[role], pos)
	m.observer.Dispatched(role)

	m.logger.Debug("Dispatched argument",
		zap.Stringer("worker", role),
		zap.Int64("x", rec.Value),
		zap.Uint64("seq", slot.SentSeq))
	return nil
}
