// Package control handles interrupts during a run.
//
// An interrupt asks the operator to confirm the shutdown. The answer is read
// from the input stream with a bounded wait; anything but an explicit yes,
// including a timeout, keeps the pipeline running. Confirmed shutdowns stop
// accepting input and let in-flight requests drain.
package control

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fgpipe/internal/manager"
)

// DefaultConfirmTimeout bounds the wait for an answer
const DefaultConfirmTimeout = 5 * time.Second

// LineReader reads one line with a bounded wait
type LineReader interface {
	ReadLine(timeout time.Duration) (string, bool, error)
	// EOF reports whether the stream has ended
	EOF() bool
}

// Notify relays SIGINT and SIGTERM on the returned channel until stop is called
func Notify() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

// Confirm prints prompt and waits at most timeout for y or yes
func Confirm(r LineReader, w io.Writer, prompt string, timeout time.Duration) (bool, error) {
	if _, err := fmt.Fprintf(w, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}
	line, ok, err := r.ReadLine(timeout)
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Guard turns interrupts into manager shutdowns
type Guard struct {
	Signals <-chan os.Signal
	// Reader supplies the confirmation answer; nil shuts down without asking
	Reader  LineReader
	Prompt  io.Writer
	Timeout time.Duration
	Logger  *zap.Logger
}

// Tick checks for a pending interrupt without blocking. It is meant to be
// passed to Manager.Run.
func (g *Guard) Tick(m *manager.Manager) error {
	var sig os.Signal
	select {
	case sig = <-g.Signals:
	default:
		return nil
	}

	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if m.ShuttingDown() {
		logger.Info("Already draining", zap.Stringer("signal", sig), zap.Int("in_flight", m.InFlight()))
		return nil
	}

	if g.Reader == nil {
		m.Shutdown(sig.String())
		return nil
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	prompt := g.Prompt
	if prompt == nil {
		prompt = os.Stderr
	}

	ok, err := Confirm(g.Reader, prompt, "Shut down?", timeout)
	if err != nil {
		return fmt.Errorf("confirm shutdown: %w", err)
	}
	if !ok && g.Reader.EOF() {
		logger.Info("Input ended while waiting for confirmation", zap.Stringer("signal", sig))
		m.Shutdown("end of input")
		return nil
	}
	if !ok {
		logger.Info("Shutdown not confirmed, continuing", zap.Stringer("signal", sig))
		return nil
	}
	m.Shutdown(sig.String())
	return nil
}
