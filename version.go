// Package tokenfarm carries build metadata for the farm CLI and gateway.
package tokenfarm

import "fmt"

// Version information - populated at build time via ldflags
// Build with: go build -ldflags "-X tokenfarm.Version=v1.0.0 -X tokenfarm.GitCommit=$(git rev-parse --short HEAD) -X tokenfarm.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/farm
var (
	// Version is the semantic version of the release
	Version = "dev"

	// GitCommit is the git commit hash
	GitCommit = "unknown"

	// BuildTime is the UTC build timestamp
	BuildTime = "unknown"
)

// BuildInfo returns version information as a formatted string
func BuildInfo() string {
	return fmt.Sprintf("%s (%s) built %s", Version, GitCommit, BuildTime)
}

// UserAgent identifies the gateway in response headers
func UserAgent() string {
	return "tokenfarm/" + Version
}
