package manager

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const sourceReadSize = 4096

// InputSource is a line-oriented input the event loop polls
type InputSource interface {
	// Fd is the descriptor to poll for read readiness
	Fd() int
	// Ready reports whether Next would return a line without reading
	Ready() bool
	// Fill performs one read; it must only be called after the descriptor
	// was reported readable
	Fill() error
	// Next pops one buffered line without its terminator
	Next() (string, bool)
	// EOF reports whether the underlying stream has ended
	EOF() bool
}

// Source splits a descriptor's byte stream into lines. Partial lines stay
// buffered until their terminator arrives or the stream ends.
type Source struct {
	fd     int
	poller Poller
	buf    []byte
	chunk  []byte
	eof    bool
}

// NewSource reads lines from fd, typically standard input
func NewSource(fd int, poller Poller) *Source {
	return &Source{
		fd:     fd,
		poller: poller,
		chunk:  make([]byte, sourceReadSize),
	}
}

// Fd returns the input descriptor
func (s *Source) Fd() int { return s.fd }

// EOF reports whether the stream ended
func (s *Source) EOF() bool { return s.eof }

// Ready reports whether a complete line, or the final unterminated line, is buffered
func (s *Source) Ready() bool {
	if bytes.IndexByte(s.buf, '\n') >= 0 {
		return true
	}
	return s.eof && len(s.buf) > 0
}

// Fill reads once from the descriptor
func (s *Source) Fill() error {
	if s.eof {
		return nil
	}
	n, err := unix.Read(s.fd, s.chunk)
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return nil
		}
		return fmt.Errorf("read input: %w", err)
	}
	if n == 0 {
		s.eof = true
		return nil
	}
	s.buf = append(s.buf, s.chunk[:n]...)
	return nil
}

// Next pops the oldest buffered line
func (s *Source) Next() (string, bool) {
	if i := bytes.IndexByte(s.buf, '\n'); i >= 0 {
		line := string(bytes.TrimSuffix(s.buf[:i], []byte{'\r'}))
		s.buf = s.buf[i+1:]
		return line, true
	}
	if s.eof && len(s.buf) > 0 {
		line := string(s.buf)
		s.buf = nil
		return line, true
	}
	return "", false
}

// ReadLine waits at most timeout for one line. It reports false when the
// timeout expired or the stream ended first.
func (s *Source) ReadLine(timeout time.Duration) (string, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if line, ok := s.Next(); ok {
			return line, true, nil
		}
		if s.eof {
			return "", false, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false, nil
		}
		ready, err := s.poller.Wait([]Interest{{Fd: s.fd, Read: true}}, remaining)
		if errors.Is(err, ErrInterrupted) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if ready[0].Readable {
			if err := s.Fill(); err != nil {
				return "", false, err
			}
		}
	}
}
