//go:build debug

// Package check provides build-tagged assertions. Scheduler phases and
// clock-probe transitions assert their state graphs in debug builds;
// release builds compile the checks away.
package check

import "fmt"

// Enabled reports whether assertions are compiled in.
const Enabled = true

// Assert panics if cond is false. Only active in debug builds.
func Assert(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}

// Assertf panics if cond is false with a formatted message. Only active in debug builds.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}
