// Package monitoring carries the replaceable log hook shared by the
// long-running services (capture store, frame forwarder).
package monitoring

import "log"

// Logf is the service-level log hook. It defaults to log.Printf;
// daemons and tests replace it with SetLogger to redirect or mute
// lifecycle messages.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the log hook. A nil f installs a no-op, which is
// how tests silence session and forwarder chatter.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
