// Package main is the fgpipe worker.
//
// A worker is started by the manager with its role, its function and the
// two named pipes it talks over:
//
//	calculon f imul --args /tmp/fgpipe-<id>/f.args --results /tmp/fgpipe-<id>/f.results
//
// It answers every argument record with one result record and exits with
// status 0 once the manager closes the argument pipe.
package main
