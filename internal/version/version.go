// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/mympd-webserver/internal/version.Version=7.0.2 \
//	                   -X github.com/rickgao/mympd-webserver/internal/version.Commit=$(git rev-parse --short HEAD)"
//
// Version is what clients see in the websocket welcome and /api/serverinfo.
package version

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "7.0.2")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ")"
}
