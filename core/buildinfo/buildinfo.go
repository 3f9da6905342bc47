// Package buildinfo carries version stamps injected at link time:
//
//	go build -ldflags "-X github.com/m3rciful/teleform/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/teleform/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/teleform/core/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC 3339; empty for local builds.
	Date = ""
)

// String renders the stamps as "v0.3.0 (abc1234, 2026-01-02T03:04:05Z)".
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
