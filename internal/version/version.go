// Package version carries build information set through -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Build information, overridden at link time:
//
//	go build -ldflags "-X github.com/sanonone/kektorgraph/internal/version.Version=v0.1.0"
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// Info contains version and build information.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("kektorgraph %s (commit %s, built %s, %s %s)",
		i.Version, i.CommitHash, i.BuildTime, i.GoVersion, i.Platform)
}
