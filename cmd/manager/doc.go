// Package main is the fgpipe orchestrator.
//
// It reads one integer per line from stdin, hands every value to two worker
// processes (F and G), combines their answers with a final function and
// prints one line per input, in input order.
//
// Usage:
//
//	manager [--config FILE] [--format text|json] [--worker PATH] [--no-confirm] F G FINAL
//
// F, G and FINAL each name one of imul, imin, fmul, and, or.
//
// Configuration:
//   - Defaults, then the optional TOML or YAML file, then FGPIPE_* variables
//   - Flags override all of the above
//
// An interrupt asks for confirmation on stdin (unless disabled) and then
// drains the records in flight before exiting.
package main
