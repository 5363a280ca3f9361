// Package version exposes build metadata injected at link time via
// -ldflags "-X github.com/deepsky-data/starqc/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the metadata in the form printed by the -version flag.
func String() string {
	return fmt.Sprintf("starqc %s (%s, built %s)", Version, GitSHA, BuildTime)
}
