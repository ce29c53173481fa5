// Package buildinfo exposes build identification for logs and health checks.
package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    string // release tag or "dev"
	CommitHash string // short git commit hash
	BuildTime  string // when the binary was compiled
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Summary returns a single identification string for startup logs
func Summary() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if CommitHash != "" {
		v += "+" + CommitHash
	}
	return v
}
