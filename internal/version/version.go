// Package version holds build metadata, set at link time:
//
//	go build -ldflags "-X github.com/kailas-cloud/skills-handbook/internal/version.Version=v0.3.0 \
//	  -X github.com/kailas-cloud/skills-handbook/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata for logs and --version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
