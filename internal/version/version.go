// Package version reports the agenda build. Values set via ldflags win;
// otherwise the module version and VCS stamps embedded by the Go toolchain
// are used.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables set via ldflags.
// Example: go build -ldflags="-X github.com/andywolf/agenda/internal/version.Version=v1.0.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var (
	buildOnce sync.Once
	buildInfo *debug.BuildInfo
)

func readBuildInfo() *debug.BuildInfo {
	buildOnce.Do(func() {
		if bi, ok := debug.ReadBuildInfo(); ok {
			buildInfo = bi
		}
	})
	return buildInfo
}

// resolved returns version, commit and date, filling ldflags gaps from
// embedded build info.
func resolved() (string, string, string) {
	v, c, d := Version, Commit, BuildDate
	bi := readBuildInfo()
	if bi == nil {
		return v, c, d
	}
	if v == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if c == "unknown" && s.Value != "" {
				c = s.Value
			}
		case "vcs.time":
			if d == "unknown" && s.Value != "" {
				d = s.Value
			}
		}
	}
	return v, c, d
}

// Short returns the version string (e.g., "v1.2.3" or "dev").
func Short() string {
	v, _, _ := resolved()
	return v
}

// Info returns a single-line version string with commit and build info.
// Format: "agenda v1.2.3 (commit: abc1234, built: 2024-01-15T10:30:00Z, go: go1.25.x)"
func Info() string {
	v, c, d := resolved()
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("agenda %s (commit: %s, built: %s, go: %s)", v, c, d, runtime.Version())
}

// Full returns a multi-line verbose version output.
func Full() string {
	v, c, d := resolved()
	return fmt.Sprintf(`agenda %s
  Commit:     %s
  Built:      %s
  Go version: %s
  OS/Arch:    %s/%s`,
		v, c, d, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
