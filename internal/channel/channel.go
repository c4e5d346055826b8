package channel

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
	"github.com/GriffinCanCode/fgpipe/internal/wire"
)

// readSize bounds one batch read from a result channel
const readSize = 64 * wire.ResultSize

// ErrWorkerExited is returned by Receive once the worker closed its result
// channel. It matches io.EOF.
var ErrWorkerExited = fmt.Errorf("worker exited: %w", io.EOF)

// Channel is the manager's end of one worker's argument and result streams
type Channel struct {
	role types.Role
	fn   types.Function

	argFd int
	resFd int

	dec    wire.Decoder
	buf    []byte
	closed bool
}

// New wraps already-open descriptors. The result descriptor is switched to
// non-blocking mode.
func New(role types.Role, fn types.Function, argFd, resFd int) (*Channel, error) {
	if err := unix.SetNonblock(resFd, true); err != nil {
		return nil, fmt.Errorf("set result channel of worker %s non-blocking: %w", role, err)
	}
	return &Channel{
		role:  role,
		fn:    fn,
		argFd: argFd,
		resFd: resFd,
		buf:   make([]byte, readSize),
	}, nil
}

// Open opens the manager's ends of a worker's named pipes
func Open(role types.Role, fn types.Function, argsPath, resultsPath string) (*Channel, error) {
	argFd, err := unix.Open(argsPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open argument channel %s: %w", argsPath, err)
	}
	resFd, err := unix.Open(resultsPath, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(argFd)
		return nil, fmt.Errorf("open result channel %s: %w", resultsPath, err)
	}
	ch, err := New(role, fn, argFd, resFd)
	if err != nil {
		unix.Close(argFd)
		unix.Close(resFd)
		return nil, err
	}
	return ch, nil
}

// Role returns the worker role
func (c *Channel) Role() types.Role { return c.role }

// Function returns the function the worker evaluates
func (c *Channel) Function() types.Function { return c.fn }

// ArgFd returns the descriptor to poll for write readiness
func (c *Channel) ArgFd() int { return c.argFd }

// ResultFd returns the descriptor to poll for read readiness
func (c *Channel) ResultFd() int { return c.resFd }

// Send writes one argument record
func (c *Channel) Send(x int64) error {
	var rec [wire.ArgSize]byte
	wire.PutArg(rec[:], x)

	for off := 0; off < len(rec); {
		n, err := unix.Write(c.argFd, rec[off:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("write argument: %w", err)
		}
		off += n
	}
	return nil
}

// Receive performs one non-blocking read and returns the results it
// completes, oldest first. It returns ErrWorkerExited when the worker closed
// its end; a dangling partial record at that point is reported as
// wire.ErrShortRecord.
func (c *Channel) Receive() ([]types.Value, error) {
	n, err := unix.Read(c.resFd, c.buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results: %w", err)
	}
	if n == 0 {
		if c.dec.Buffered() > 0 {
			return nil, fmt.Errorf("%w: %d bytes left", wire.ErrShortRecord, c.dec.Buffered())
		}
		return nil, ErrWorkerExited
	}
	return c.dec.Feed(c.buf[:n])
}

// Close closes both descriptors. Closing the argument channel lets the
// worker see end of input and exit.
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return multierr.Combine(
		closeFd(c.argFd, "argument"),
		closeFd(c.resFd, "result"),
	)
}

func closeFd(fd int, name string) error {
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close %s channel: %w", name, err)
	}
	return nil
}
