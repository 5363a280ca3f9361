// Package monitoring carries the process-wide diagnostic logger used by the
// analysis engine and its tools. Stages tag their output ([Engine], [Detect],
// [Background]) so a single capture log can be filtered per concern.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Binaries redirect it to their own sink; tests
// usually mute it with Mute.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Mute silences the package logger and returns a function that restores the
// previous one. Callers are expected to defer the restore.
func Mute() func() {
	prev := Logf
	Logf = func(string, ...interface{}) {}
	return func() { Logf = prev }
}
