// Package channel connects the manager with its worker processes.
//
// A worker is reached through two unidirectional byte streams: an argument
// channel the manager writes to and a result channel it reads from. This
// package provides:
//   - Channel: the manager's end of both streams, speaking the wire format
//   - Provisioner: creation and removal of the named pipes of a run
//   - Spawner/Process: starting a worker binary and stopping its process group
//
// Channel never blocks on reads: the result descriptor is non-blocking and is
// only read after the event loop reports it ready. The argument descriptor is
// opened read-write on the FIFO so opening never blocks and a vanished worker
// never raises SIGPIPE; a dead worker is detected on the result side.
//
// Example Usage:
//
//	prov := channel.NewProvisioner(run)
//	if err := prov.Create(); err != nil { ... }
//	defer prov.Remove()
//
//	ch, err := channel.Open(types.RoleF, types.FuncIMul, run.Args(types.RoleF), run.Results(types.RoleF))
//	proc, err := spawner.Start(types.RoleF, types.FuncIMul, run)
package channel
