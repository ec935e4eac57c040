// Package monitoring carries the diagnostic logger shared by the
// long-running loops (ingest watcher, bench monitor). Indirection
// through Logf lets tests mute the chatter those loops produce.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// and may be swapped with SetLogger.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger, which keeps callers free of nil checks.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
