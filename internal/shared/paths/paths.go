package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/fgpipe/internal/shared/id"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// DirPrefix prefixes every run directory name
const DirPrefix = "fgpipe-"

// Suffixes of the per-worker pipes
const (
	ArgsSuffix    = ".args"
	ResultsSuffix = ".results"
)

// Run returns paths for a specific run
type Run struct {
	Base string
	ID   id.RunID
}

// ForRun returns the layout of a run rooted at base
func ForRun(base string, runID id.RunID) Run {
	return Run{Base: base, ID: runID}
}

// Dir returns the run's directory
func (r Run) Dir() string {
	return filepath.Join(r.Base, DirPrefix+r.ID.String())
}

// Args returns the manager → worker pipe path
func (r Run) Args(role types.Role) string {
	return filepath.Join(r.Dir(), role.String()+ArgsSuffix)
}

// Results returns the worker → manager pipe path
func (r Run) Results(role types.Role) string {
	return filepath.Join(r.Dir(), role.String()+ResultsSuffix)
}

// All returns every pipe path of the run
func (r Run) All() []string {
	var all []string
	for _, role := range types.Roles() {
		all = append(all, r.Args(role), r.Results(role))
	}
	return all
}

// Validate checks that the run can be laid out safely under its base
func (r Run) Validate() error {
	if r.Base == "" {
		return fmt.Errorf("base directory cannot be empty")
	}
	if r.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if strings.ContainsRune(r.ID.String(), filepath.Separator) || filepath.Clean(r.ID.String()) != r.ID.String() {
		return fmt.Errorf("run ID contains invalid path components")
	}
	return nil
}
