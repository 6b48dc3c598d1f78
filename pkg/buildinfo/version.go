// Package buildinfo carries version metadata stamped at build time.
//
// Release builds override the defaults via ldflags, for example:
//
//	go build -ldflags "-X github.com/aspector/aspector/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/aspector/aspector/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/aspector/aspector/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	// Version is the semantic version, "dev" for unstamped builds.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Template returns the cobra version template, expanding to the full build
// information block.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
