package manager

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ErrInterrupted is returned by Wait when a signal interrupted the wait
var ErrInterrupted = errors.New("readiness wait interrupted")

// Interest registers a descriptor for read and/or write readiness
type Interest struct {
	Fd    int
	Read  bool
	Write bool
}

// Readiness reports what a registered descriptor is ready for
type Readiness struct {
	Fd       int
	Readable bool
	Writable bool
	Hangup   bool
}

// Poller waits for readiness on a set of descriptors
type Poller interface {
	// Wait blocks for at most timeout. The result is index-aligned with
	// interests.
	Wait(interests []Interest, timeout time.Duration) ([]Readiness, error)
}

// NewPoller returns a Poller backed by poll(2)
func NewPoller() Poller {
	return &unixPoller{}
}

type unixPoller struct {
	fds []unix.PollFd
}

func (p *unixPoller) Wait(interests []Interest, timeout time.Duration) ([]Readiness, error) {
	p.fds = p.fds[:0]
	for _, in := range interests {
		var events int16
		if in.Read {
			events |= unix.POLLIN
		}
		if in.Write {
			events |= unix.POLLOUT
		}
		p.fds = append(p.fds, unix.PollFd{Fd: int32(in.Fd), Events: events})
	}

	_, err := unix.Poll(p.fds, pollMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, ErrInterrupted
		}
		return nil, fmt.Errorf("poll: %w", err)
	}

	ready := make([]Readiness, len(interests))
	for i, pfd := range p.fds {
		if pfd.Revents&unix.POLLNVAL != 0 {
			return nil, fmt.Errorf("poll: invalid descriptor %d", pfd.Fd)
		}
		failed := pfd.Revents&(unix.POLLERR|unix.POLLHUP) != 0
		ready[i] = Readiness{
			Fd:       interests[i].Fd,
			Readable: interests[i].Read && (pfd.Revents&unix.POLLIN != 0 || failed),
			Writable: interests[i].Write && (pfd.Revents&unix.POLLOUT != 0 || pfd.Revents&unix.POLLERR != 0),
			Hangup:   pfd.Revents&unix.POLLHUP != 0,
		}
	}
	return ready, nil
}

// pollMillis rounds up so sub-millisecond timeouts do not become busy loops
func pollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return int(ms)
}
