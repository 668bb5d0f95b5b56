// Package buildinfo carries version metadata stamped at link time:
//
//	-X 'github.com/m3rciful/assocbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/assocbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/assocbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// Info is the JSON shape served by the stats endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date,omitempty"`
}

// Current returns the stamped metadata.
func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String renders "version (commit)".
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
