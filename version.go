package pdsession

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the library semantic version (injected at build time optionally).
	Version = "v1.0.0"
	// GitCommit is the git SHA (inject via -ldflags at build time).
	GitCommit = "unknown"
	// BuildDate is the build timestamp (inject via -ldflags).
	BuildDate = "unknown"
	// GoVersion records the Go toolchain version used.
	GoVersion = runtime.Version()
)

// GetVersion returns a human-readable version string.
func GetVersion() string {
	return fmt.Sprintf("pdsession %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildDate, GoVersion)
}

// userAgent identifies the client and runtime in outgoing requests.
func userAgent() string {
	return fmt.Sprintf("pdsession/%s go/%s",
		strings.TrimPrefix(Version, "v"), strings.TrimPrefix(GoVersion, "go"))
}
