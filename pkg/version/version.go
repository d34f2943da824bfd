// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/Sumatoshi-tech/jsbundle/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = ""
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string `json:"version"        yaml:"version"`
	Commit    string `json:"commit"         yaml:"commit"`
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
	GoVersion string `json:"go_version"     yaml:"go_version"`
}

// Get returns the build metadata, falling back to the module build info
// when the binary was built without ldflags.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && info.Commit == "<unknown>" {
			info.Commit = s.Value
		}
	}

	return info
}

// String formats i on one line.
func (i Info) String() string {
	return fmt.Sprintf("jsbundle %s (commit %s, %s)", i.Version, i.Commit, i.GoVersion)
}
