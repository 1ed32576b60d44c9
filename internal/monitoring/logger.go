// Package monitoring holds the pipeline's diagnostic logger and its
// Prometheus instrumentation.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used for non-fatal pipeline
// errors (sensor read failures, dropped publishes). It defaults to
// log.Printf but may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
