// Package buildinfo carries release metadata stamped at link time:
//
//	go build -ldflags "-X github.com/m3rciful/supportbot/core/buildinfo.Version=v0.4.0 \
//	  -X github.com/m3rciful/supportbot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/supportbot/core/buildinfo.Date=$(date -u +%FT%TZ)" ./cmd/supportbot
package buildinfo

import "strings"

var (
	Version = "dev"
	Commit  = "local"
	// Date is an RFC3339 timestamp; empty for local builds.
	Date = ""
)

// Info is the build metadata of the running binary.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date,omitempty"`
}

// Current returns the stamped metadata.
func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String renders "version (commit, date)".
func (i Info) String() string {
	meta := []string{i.Commit}
	if i.Date != "" {
		meta = append(meta, i.Date)
	}
	return i.Version + " (" + strings.Join(meta, ", ") + ")"
}
