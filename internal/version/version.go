// Package version holds the spelunker's build metadata, injected via
// ldflags and logged at startup.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
