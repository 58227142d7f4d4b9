// Package version carries the build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Populated by the linker, e.g.
// -X github.com/grovetools/agents/version.Version=v0.3.0
var (
	Version   = "dev"
	Commit    = "none"
	Branch    = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build metadata.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the metadata as an indented block.
func (i Info) String() string {
	return fmt.Sprintf("  Commit:    %s (%s)\n  Built:     %s\n  Go:        %s\n  Platform:  %s",
		i.Commit, i.Branch, i.BuildDate, i.GoVersion, i.Platform)
}
