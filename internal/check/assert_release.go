//go:build !debug

package check

// Enabled reports whether assertions are compiled in.
const Enabled = false

// Assert is a no-op in release builds.
func Assert(_ bool, _ string) {}

// Assertf is a no-op in release builds.
func Assertf(_ bool, _ string, _ ...any) {}
