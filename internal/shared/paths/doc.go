// Package paths provides the filesystem layout of a run.
//
// Every run gets its own directory holding the four named pipes that connect
// the manager with its two workers:
//
//	<base>/fgpipe-<run id>/
//	  ├── f.args       (manager → F arguments)
//	  ├── f.results    (F → manager results)
//	  ├── g.args
//	  └── g.results
//
// # Usage
//
//	run := paths.ForRun(os.TempDir(), runID)
//	argsPath := run.Args(types.RoleF)
package paths
