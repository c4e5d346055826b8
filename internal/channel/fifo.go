package channel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/fgpipe/internal/shared/paths"
)

// Permissions restrict the pipes to the owning user and group
const (
	DirMode  os.FileMode = 0o770
	FifoMode uint32      = 0o660
)

// Provisioner creates and removes the named pipes of one run
type Provisioner struct {
	run paths.Run
}

// NewProvisioner creates a provisioner for run
func NewProvisioner(run paths.Run) *Provisioner {
	return &Provisioner{run: run}
}

// Run returns the layout being provisioned
func (p *Provisioner) Run() paths.Run {
	return p.run
}

// Create makes the run directory and its four pipes. On failure everything
// created so far is removed again.
func (p *Provisioner) Create() error {
	if err := p.run.Validate(); err != nil {
		return fmt.Errorf("invalid run layout: %w", err)
	}

	dir := p.run.Dir()
	if err := os.Mkdir(dir, DirMode); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	// Mkdir and Mkfifo are subject to umask
	if err := os.Chmod(dir, DirMode); err != nil {
		return multierr.Append(fmt.Errorf("chmod run directory: %w", err), p.Remove())
	}

	for _, path := range p.run.All() {
		if err := unix.Mkfifo(path, FifoMode); err != nil {
			return multierr.Append(fmt.Errorf("mkfifo %s: %w", path, err), p.Remove())
		}
		if err := os.Chmod(path, os.FileMode(FifoMode)); err != nil {
			return multierr.Append(fmt.Errorf("chmod %s: %w", path, err), p.Remove())
		}
	}
	return nil
}

// Remove deletes the pipes and the run directory. Missing entries are ignored.
func (p *Provisioner) Remove() error {
	var err error
	for _, path := range p.run.All() {
		err = multierr.Append(err, removeIfExists(path))
	}
	return multierr.Append(err, removeIfExists(p.run.Dir()))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
