package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitTime string // last git commit time (last code edit)
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Info is the build metadata reported by /health
type Info struct {
	Version    string `json:"version"`
	BuildTime  string `json:"build_time,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	CommitHash string `json:"commit,omitempty"`
	StartTime  string `json:"start_time"`
}

// Current returns the metadata of the running binary
func Current() Info {
	return Info{
		Version:    Version,
		BuildTime:  BuildTime,
		CommitTime: CommitTime,
		CommitHash: CommitHash,
		StartTime:  StartTime,
	}
}

// String is the one-line form printed by --version
func (i Info) String() string {
	s := i.Version
	if i.CommitHash != "" {
		s += " (" + i.CommitHash + ")"
	}
	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}
	return s
}
