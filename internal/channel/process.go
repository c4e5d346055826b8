package channel

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/GriffinCanCode/fgpipe/internal/shared/paths"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// DefaultGrace is how long a worker gets to exit after SIGTERM
const DefaultGrace = 500 * time.Millisecond

// Spawner starts worker processes
type Spawner struct {
	// Binary is the worker executable
	Binary string
	// Args are extra arguments appended after the pipe paths
	Args []string
	// Stderr receives the worker's diagnostics; nil discards them
	Stderr io.Writer
}

// Process is a running worker
type Process struct {
	Role types.Role

	cmd      *exec.Cmd
	done     chan struct{}
	waitOnce sync.Once
	waitErr  error
}

// Command builds the worker command line for role
func (s *Spawner) Command(role types.Role, fn types.Function, run paths.Run) *exec.Cmd {
	args := []string{
		role.String(), fn.String(),
		"--args", run.Args(role),
		"--results", run.Results(role),
	}
	args = append(args, s.Args...)

	cmd := exec.Command(s.Binary, args...)
	cmd.Stderr = s.Stderr
	// Own process group so terminal interrupts reach only the manager
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// Start launches the worker for role
func (s *Spawner) Start(role types.Role, fn types.Function, run paths.Run) (*Process, error) {
	cmd := s.Command(role, fn, run)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %s (%s): %w", role, s.Binary, err)
	}
	return &Process{
		Role: role,
		cmd:  cmd,
		done: make(chan struct{}),
	}, nil
}

// Pid returns the worker's process ID
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the worker exits and returns its exit error
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		close(p.done)
	})
	return p.waitErr
}

// Done is closed once Wait has observed the exit
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Terminate asks the worker's process group to stop, escalating to SIGKILL
// after grace. It relies on someone calling Wait concurrently.
func (p *Process) Terminate(grace time.Duration) {
	if p.cmd.Process == nil {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}

	pid := p.cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil || pgid <= 0 {
		_ = p.cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-p.done:
	case <-time.After(grace):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}
