package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/GriffinCanCode/fgpipe/internal/channel"
	"github.com/GriffinCanCode/fgpipe/internal/pipeline"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves scripted lines
type fakeSource struct {
	lines  []string
	closed bool
}

func (s *fakeSource) Fd() int     { return 100 }
func (s *fakeSource) Ready() bool { return len(s.lines) > 0 }
func (s *fakeSource) Fill() error { return nil }
func (s *fakeSource) EOF() bool   { return s.closed && len(s.lines) == 0 }

func (s *fakeSource) push(lines ...string) {
	s.lines = append(s.lines, lines...)
}

func (s *fakeSource) Next() (string, bool) {
	if len(s.lines) == 0 {
		return "", false
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, true
}

// fakeWorker answers every argument in order using eval
type fakeWorker struct {
	role types.Role
	fn   types.Function
	eval func(x int64, attempt int) types.Value

	attempts map[int64]int
	sent     []int64
	pending  []types.Value
	hold     bool
	exited   bool
	sendErr  error

	// exitAfterDrain reports end of stream once pending replies are read
	exitAfterDrain bool
}

func newFakeWorker(role types.Role, fn types.Function, eval func(x int64, attempt int) types.Value) *fakeWorker {
	return &fakeWorker{role: role, fn: fn, eval: eval, attempts: make(map[int64]int)}
}

func (w *fakeWorker) Role() types.Role         { return w.role }
func (w *fakeWorker) Function() types.Function { return w.fn }
func (w *fakeWorker) ArgFd() int               { return 10 + 2*int(w.role) }
func (w *fakeWorker) ResultFd() int            { return 11 + 2*int(w.role) }

func (w *fakeWorker) Send(x int64) error {
	if w.sendErr != nil {
		return w.sendErr
	}
	w.sent = append(w.sent, x)
	w.attempts[x]++
	w.pending = append(w.pending, w.eval(x, w.attempts[x]))
	return nil
}

func (w *fakeWorker) Receive() ([]types.Value, error) {
	if w.exited {
		return nil, channel.ErrWorkerExited
	}
	if w.hold {
		return nil, nil
	}
	out := w.pending
	w.pending = nil
	if len(out) == 0 && w.exitAfterDrain {
		w.exited = true
		return nil, channel.ErrWorkerExited
	}
	return out, nil
}

func (w *fakeWorker) readable() bool {
	return w.exited || (!w.hold && len(w.pending) > 0)
}

// fakePoller reports fake workers' state without blocking
type fakePoller struct {
	workers []*fakeWorker
	waits   int
	timeout time.Duration
}

func (p *fakePoller) Wait(interests []Interest, timeout time.Duration) ([]Readiness, error) {
	p.waits++
	p.timeout = timeout
	ready := make([]Readiness, len(interests))
	for i, in := range interests {
		ready[i].Fd = in.Fd
		for _, w := range p.workers {
			if in.Read && in.Fd == w.ResultFd() {
				ready[i].Readable = w.readable()
			}
			if in.Write && in.Fd == w.ArgFd() {
				ready[i].Writable = true
			}
		}
	}
	return ready, nil
}

type collector struct {
	outcomes []Outcome
}

func (c *collector) Emit(o Outcome) error {
	c.outcomes = append(c.outcomes, o)
	return nil
}

func (c *collector) xs() []int64 {
	xs := make([]int64, len(c.outcomes))
	for i, o := range c.outcomes {
		xs[i] = o.X
	}
	return xs
}

type harness struct {
	m      *Manager
	f, g   *fakeWorker
	src    *fakeSource
	out    *collector
	poller *fakePoller
}

func newHarness(t *testing.T, opts Options, f, g *fakeWorker) *harness {
	t.Helper()
	if opts.Capacity == 0 {
		opts.Capacity = 10
	}
	h := &harness{
		f:      f,
		g:      g,
		src:    &fakeSource{},
		out:    &collector{},
		poller: &fakePoller{workers: []*fakeWorker{f, g}},
	}
	m, err := New(opts, Deps{
		Workers: [types.WorkerCount]Worker{f, g},
		Source:  h.src,
		Poller:  h.poller,
		Emitter: h.out,
	})
	require.NoError(t, err)
	h.m = m
	return h
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, h.m.Communicate())
	require.NoError(t, h.m.Finalize())
}

// tickUntil runs ticks until cond holds
func (h *harness) tickUntil(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		h.tick(t)
	}
	t.Fatal("condition not reached within 200 ticks")
}

// runUntilEmitted runs the pipeline until n outcomes were emitted
func (h *harness) runUntilEmitted(t *testing.T, n int) {
	t.Helper()
	ticks := 0
	err := h.m.Run(context.Background(), func(m *Manager) error {
		ticks++
		if ticks > 500 {
			return errors.New("pipeline did not drain")
		}
		if len(h.out.outcomes) >= n {
			m.Shutdown("test complete")
		}
		return nil
	})
	require.NoError(t, err)
}

func imulF(x int64, attempt int) types.Value {
	if x == 1 && attempt == 1 {
		return types.Failure(types.StatusSoftFail, types.KindInt)
	}
	return types.Int(3*x + 1)
}

func iminG(x int64, _ int) types.Value {
	return types.Uint(uint64(x * x))
}

func TestNewValidation(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	deps := Deps{
		Workers: [types.WorkerCount]Worker{f, g},
		Source:  &fakeSource{},
		Emitter: &collector{},
	}

	_, err := New(Options{Capacity: 1}, deps)
	assert.Error(t, err, "capacity below minimum")

	_, err = New(Options{Capacity: 4, MaxSoftRetry: -1}, deps)
	assert.Error(t, err)

	swapped := deps
	swapped.Workers = [types.WorkerCount]Worker{g, f}
	_, err = New(Options{Capacity: 4}, swapped)
	assert.Error(t, err, "workers must sit in their role's slot")

	m, err := New(Options{Capacity: 4}, deps)
	require.NoError(t, err)
	assert.Equal(t, DefaultPollTimeout, m.opts.PollTimeout)
}

func TestPipelineOrderWithRetry(t *testing.T) {
	h := newHarness(t, Options{MaxSoftRetry: 3, Final: types.FuncIMul},
		newFakeWorker(types.RoleF, types.FuncIMul, imulF),
		newFakeWorker(types.RoleG, types.FuncIMin, iminG))
	h.src.push("0", "1", "2", "3")

	h.runUntilEmitted(t, 4)

	require.Len(t, h.out.outcomes, 4)
	assert.Equal(t, []int64{0, 1, 2, 3}, h.out.xs())

	want := []int64{1 * 0, 4 * 1, 7 * 4, 10 * 9}
	for i, o := range h.out.outcomes {
		v, ok := o.Result.Int()
		require.True(t, ok, "x=%d", o.X)
		assert.Equal(t, want[i], v, "x=%d", o.X)
	}

	assert.Equal(t, 1, h.out.outcomes[1].Retries)
	for _, i := range []int{0, 2, 3} {
		assert.Zero(t, h.out.outcomes[i].Retries)
	}
	assert.Equal(t, 2, h.f.attempts[1], "x=1 sent twice to f")
	assert.Equal(t, 1, h.g.attempts[1], "g never retried")

	stats := h.m.Stats()
	assert.Equal(t, 4, stats.Accepted)
	assert.Equal(t, 4, stats.Finalized)
	assert.Equal(t, 1, stats.Retries)
	assert.Zero(t, stats.Failed)
}

func TestRetryMatchesDispatchOrder(t *testing.T) {
	// x=10 soft-fails once; its retry is sent after x=11, so the
	// replies arrive as 10(soft), 11, 10(ok)
	f := newFakeWorker(types.RoleF, types.FuncIMul, func(x int64, attempt int) types.Value {
		if x == 10 && attempt == 1 {
			return types.Failure(types.StatusSoftFail, types.KindInt)
		}
		return types.Int(x * 100)
	})
	g := newFakeWorker(types.RoleG, types.FuncIMul, func(x int64, _ int) types.Value {
		return types.Int(1)
	})
	h := newHarness(t, Options{MaxSoftRetry: 2, Final: types.FuncIMul}, f, g)
	h.src.push("10", "11")

	h.runUntilEmitted(t, 2)

	assert.Equal(t, []int64{10, 11, 10}, f.sent)
	require.Len(t, h.out.outcomes, 2)
	v, _ := h.out.outcomes[0].Result.Int()
	assert.Equal(t, int64(1000), v)
	v, _ = h.out.outcomes[1].Result.Int()
	assert.Equal(t, int64(1100), v)
}

func TestOutOfOrderRepliesEmitInOrder(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncFMul, func(x int64, _ int) types.Value {
		return types.Float(float64(x) / 2)
	})
	g := newFakeWorker(types.RoleG, types.FuncFMul, func(x int64, _ int) types.Value {
		return types.Float(float64(x) + 0.5)
	})
	h := newHarness(t, Options{MaxSoftRetry: 1, Final: types.FuncFMul}, f, g)
	h.src.push("1", "2", "3", "4")

	// g answers everything before f says a word
	f.hold = true
	h.tickUntil(t, func() bool { return len(f.sent) == 4 && len(g.sent) == 4 && len(g.pending) == 0 })
	assert.Empty(t, h.out.outcomes, "nothing finalizes while f is silent")
	assert.Equal(t, 4, h.m.InFlight())

	f.hold = false
	h.runUntilEmitted(t, 4)

	assert.Equal(t, []int64{1, 2, 3, 4}, h.out.xs())
	for _, o := range h.out.outcomes {
		got, ok := o.Result.Float()
		require.True(t, ok)
		assert.InDelta(t, float64(o.X)/2*(float64(o.X)+0.5), got, 1e-9)
	}
}

func TestRetryExhaustion(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, func(x int64, _ int) types.Value {
		if x == 1 {
			return types.Failure(types.StatusSoftFail, types.KindInt)
		}
		return types.Int(x)
	})
	g := newFakeWorker(types.RoleG, types.FuncIMul, func(x int64, _ int) types.Value { return types.Int(x) })
	h := newHarness(t, Options{MaxSoftRetry: 2, Final: types.FuncIMul}, f, g)
	h.src.push("1", "2")

	h.runUntilEmitted(t, 2)

	assert.Equal(t, 3, f.attempts[1], "one send plus two retries")
	first := h.out.outcomes[0]
	assert.Equal(t, int64(1), first.X)
	assert.Equal(t, 2, first.Retries)
	assert.Equal(t, types.StatusSoftFail, first.Result.Status())
	assert.Equal(t, types.StatusSoftFail, first.F.Status())

	v, ok := h.out.outcomes[1].Result.Int()
	require.True(t, ok)
	assert.Equal(t, int64(4), v)
	assert.Equal(t, 1, h.m.Stats().Failed)
}

func TestAndShortCircuitsWhenWorkerExits(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncAnd, func(x int64, _ int) types.Value {
		return types.Bool(x%2 == 0)
	})
	g := newFakeWorker(types.RoleG, types.FuncAnd, func(x int64, _ int) types.Value {
		return types.Bool(true)
	})
	g.exited = true
	h := newHarness(t, Options{MaxSoftRetry: 3, Final: types.FuncAnd}, f, g)
	h.src.push("3", "2")

	h.runUntilEmitted(t, 2)

	assert.Empty(t, g.sent, "dead worker receives nothing")
	require.Len(t, h.out.outcomes, 2)

	b, ok := h.out.outcomes[0].Result.Bool()
	require.True(t, ok, "false from f decides and")
	assert.False(t, b)
	assert.Equal(t, types.StatusHardFail, h.out.outcomes[0].G.Status())

	assert.False(t, h.out.outcomes[1].Result.OK(), "true from f cannot decide and")
}

func TestAllWorkersExitedShutsDown(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncOr, nil)
	g := newFakeWorker(types.RoleG, types.FuncOr, nil)
	f.exited, g.exited = true, true
	h := newHarness(t, Options{Final: types.FuncOr}, f, g)

	h.tick(t)
	assert.True(t, h.m.ShuttingDown())
	assert.True(t, h.m.Done())
}

func TestShutdownDrainsWithoutRetries(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, func(x int64, _ int) types.Value {
		return types.Failure(types.StatusSoftFail, types.KindInt)
	})
	g := newFakeWorker(types.RoleG, types.FuncIMul, func(x int64, _ int) types.Value { return types.Int(x) })
	h := newHarness(t, Options{MaxSoftRetry: 3, Final: types.FuncIMul}, f, g)
	h.src.push("5", "6")

	f.hold = true
	h.tickUntil(t, func() bool { return len(f.sent) == 2 && len(g.sent) == 2 })

	h.m.Shutdown("interrupt")
	h.src.push("7")
	f.hold = false

	require.NoError(t, h.m.Run(context.Background(), nil))

	assert.Equal(t, []int64{5, 6}, f.sent, "no retries after shutdown")
	assert.Equal(t, []int64{5, 6}, h.out.xs(), "input after shutdown is ignored")
	for _, o := range h.out.outcomes {
		assert.Zero(t, o.Retries)
		assert.Equal(t, types.StatusSoftFail, o.Result.Status())
	}
}

func TestShutdownCancelsPendingRetry(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{MaxSoftRetry: 3, RetryBackoff: time.Hour, Final: types.FuncIMul}, f, g)
	h.m.now = func() time.Time { return clock }
	h.src.push("1")

	h.tickUntil(t, func() bool { return h.m.Stats().Retries == 1 })
	rec, ok := h.m.ring.Current()
	require.True(t, ok)
	slot := rec.Slot(types.RoleF)
	assert.Equal(t, pipeline.StateNone, slot.State)
	assert.Equal(t, types.StatusSoftFail, slot.Result.Status(), "requeued slot keeps its failure")

	h.m.Shutdown("interrupt")
	clock = clock.Add(2 * time.Hour)
	h.tickUntil(t, h.m.Done)

	assert.Equal(t, []int64{1}, f.sent, "no retransmission after shutdown")
	require.Len(t, h.out.outcomes, 1)
	assert.Equal(t, types.StatusSoftFail, h.out.outcomes[0].F.Status())
	assert.Equal(t, 1, h.out.outcomes[0].Retries)
}

func TestBackpressure(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, func(x int64, _ int) types.Value { return types.Int(x) })
	g := newFakeWorker(types.RoleG, types.FuncIMul, func(x int64, _ int) types.Value { return types.Int(1) })
	h := newHarness(t, Options{Capacity: 3, MaxSoftRetry: 1, Final: types.FuncIMul}, f, g)
	h.src.push("1", "2", "3", "4", "5")

	f.hold = true
	for i := 0; i < 20; i++ {
		h.tick(t)
	}
	assert.Equal(t, 2, h.m.InFlight(), "capacity 3 holds two records")
	assert.Len(t, h.src.lines, 3, "input stays unread while full")
	assert.Equal(t, 2, h.m.Stats().Accepted)

	f.hold = false
	h.runUntilEmitted(t, 5)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, h.out.xs())
}

func TestMalformedInputIsDropped(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, func(x int64, _ int) types.Value { return types.Int(x) })
	g := newFakeWorker(types.RoleG, types.FuncIMul, func(x int64, _ int) types.Value { return types.Int(x) })
	h := newHarness(t, Options{Final: types.FuncIMul}, f, g)
	h.src.push("abc", "", "  4  ", "1.5")
	h.src.closed = true

	require.NoError(t, h.m.Run(context.Background(), nil))

	assert.Equal(t, []int64{4}, h.out.xs())
	stats := h.m.Stats()
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 2, stats.Rejected)
}

func TestEndOfInputShutsDown(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{MaxSoftRetry: 3, Final: types.FuncIMul}, f, g)
	h.src.push("2")
	h.src.closed = true

	require.NoError(t, h.m.Run(context.Background(), nil))
	assert.True(t, h.m.ShuttingDown())
	assert.Equal(t, []int64{2}, h.out.xs())
}

func TestEndOfInputSeenByPromptShutsDown(t *testing.T) {
	r, w := pipe(t)
	require.NoError(t, w.Close())
	src := NewSource(int(r.Fd()), NewPoller())

	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	m, err := New(Options{Capacity: 4, MaxSoftRetry: 1, Final: types.FuncIMul}, Deps{
		Workers: [types.WorkerCount]Worker{f, g},
		Source:  src,
		Poller:  &fakePoller{workers: []*fakeWorker{f, g}},
		Emitter: &collector{},
	})
	require.NoError(t, err)

	ticks := 0
	err = m.Run(context.Background(), func(m *Manager) error {
		ticks++
		if ticks > 50 {
			return errors.New("run never finished")
		}
		if ticks == 1 {
			_, ok, err := src.ReadLine(20 * time.Millisecond)
			if err != nil {
				return err
			}
			assert.False(t, ok)
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, m.ShuttingDown())
	assert.True(t, src.EOF())
}

func TestUnexpectedResultIsFatal(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	f.pending = []types.Value{types.Int(1)}
	h := newHarness(t, Options{Final: types.FuncIMul}, f, g)

	err := h.m.Communicate()
	assert.ErrorIs(t, err, ErrUnexpectedResult)
	assert.Contains(t, err.Error(), "worker f")
}

func TestSendErrorIsFatal(t *testing.T) {
	broken := errors.New("broken pipe")
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	g.sendErr = broken
	h := newHarness(t, Options{Final: types.FuncIMul}, f, g)
	h.src.push("1")

	err := h.m.Run(context.Background(), nil)
	assert.ErrorIs(t, err, broken)
	assert.Contains(t, err.Error(), "send to worker g")
}

func TestEmitErrorIsFatal(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{Final: types.FuncIMul}, f, g)
	closed := errors.New("stdout closed")
	h.m.emitter = EmitterFunc(func(Outcome) error { return closed })
	h.src.push("0")

	err := h.m.Run(context.Background(), nil)
	assert.ErrorIs(t, err, closed)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{Final: types.FuncIMul}, f, g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.m.Run(ctx, nil))
	assert.True(t, h.m.ShuttingDown())
	assert.Zero(t, h.poller.waits, "cancelled before the first wait")
}

func TestRunHookError(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{Final: types.FuncIMul}, f, g)

	stop := errors.New("stop")
	err := h.m.Run(context.Background(), func(*Manager) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestRetryBackoff(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{MaxSoftRetry: 3, RetryBackoff: 100 * time.Millisecond, Final: types.FuncIMul}, f, g)
	h.m.now = func() time.Time { return clock }
	h.src.push("1")

	h.tickUntil(t, func() bool {
		rec, ok := h.m.ring.Current()
		return ok && rec.Slot(types.RoleF).Retries == 1
	})

	_, ok := h.m.nextDispatch(types.RoleF, clock)
	assert.False(t, ok, "retry waits for its backoff")
	assert.Equal(t, 100*time.Millisecond, h.m.waitTimeout(clock))

	clock = clock.Add(100 * time.Millisecond)
	_, ok = h.m.nextDispatch(types.RoleF, clock)
	assert.True(t, ok)

	assert.Equal(t, 200*time.Millisecond, h.m.backoff(2))
	assert.Zero(t, (&Manager{}).backoff(1))
}

func TestDrainTimeoutAbandonsRequests(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{MaxSoftRetry: 3, DrainTimeout: time.Second, Final: types.FuncIMul}, f, g)
	h.m.now = func() time.Time { return clock }
	h.src.push("3")

	f.hold = true
	h.tickUntil(t, func() bool { return len(f.sent) == 1 })
	h.m.Shutdown("interrupt")

	h.tick(t)
	assert.Empty(t, h.out.outcomes, "still draining")

	clock = clock.Add(time.Second)
	h.tick(t)

	require.Len(t, h.out.outcomes, 1)
	assert.Equal(t, types.StatusHardFail, h.out.outcomes[0].F.Status())
	assert.True(t, h.m.Done())
}

func TestSlotsNeverSkipStates(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{MaxSoftRetry: 3, Final: types.FuncIMul}, f, g)
	h.src.push("1")
	f.hold, g.hold = true, true

	h.tickUntil(t, func() bool { return len(f.sent) == 1 && len(g.sent) == 1 })
	rec, ok := h.m.ring.Current()
	require.True(t, ok)
	assert.Equal(t, pipeline.StateSent, rec.Slot(types.RoleF).State)
	assert.Equal(t, uint64(1), rec.Slot(types.RoleF).SentSeq)
	assert.Empty(t, h.out.outcomes, "no finalization before both answers")
}

func TestWorkerGoneCollectsLastResults(t *testing.T) {
	f := newFakeWorker(types.RoleF, types.FuncIMul, imulF)
	g := newFakeWorker(types.RoleG, types.FuncIMin, iminG)
	h := newHarness(t, Options{MaxSoftRetry: 3, Final: types.FuncIMul}, f, g)
	h.src.push("2", "3")

	g.hold = true
	h.tickUntil(t, func() bool { return len(g.sent) == 2 })

	// g wrote its answer for 2, then died before answering 3
	g.hold = false
	g.pending = g.pending[:1]
	g.exitAfterDrain = true

	require.NoError(t, h.m.WorkerGone(types.RoleG))
	require.NoError(t, h.m.WorkerGone(types.RoleG), "second report is a no-op")

	h.runUntilEmitted(t, 2)
	require.Len(t, h.out.outcomes, 2)
	assert.True(t, h.out.outcomes[0].Result.OK())
	assert.Equal(t, types.StatusHardFail, h.out.outcomes[1].G.Status())
}
