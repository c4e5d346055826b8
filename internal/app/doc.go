// Package app manages the lifecycle of one fgpipe run.
//
// A run provisions a fresh directory of named pipes, opens the manager's
// ends, spawns the F and G workers, and drives the manager until the input
// is drained. Close tears the run down in reverse order.
//
// Example Usage:
//
//	a, err := app.New(app.Options{Config: cfg, Functions: fns, Final: final, Stdin: 0})
//	if err != nil {
//	    return err
//	}
//	err = multierr.Append(a.Run(ctx), a.Close())
package app
