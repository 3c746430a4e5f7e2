// Package buildinfo exposes the version stamped into the binary.
package buildinfo

import "runtime/debug"

// Version is the release version, overridable at link time:
//
//	go build -ldflags "-X dockmon/internal/support/buildinfo.Version=v1.2.3"
//
// Unstamped builds fall back to the module version recorded by the
// toolchain, or "dev".
var Version = "dev"

func init() {
	if Version != "dev" {
		return
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
}
