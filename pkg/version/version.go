// Package version holds the symbolic version and commit of the running code.
// Both are set at build time, e.g.
// -ldflags "-X github.com/m-lab/txbench/pkg/version.Version=v0.1.0".
package version

var (
	// Version is the symbolic version of the running code.
	Version = "v0.0.0-dev"
	// GitShortCommit is the Git commit (short form) of the running code.
	GitShortCommit = "unknown"
)
