// Package version reports the build version of commsframe.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Version and Commit can be set at build time:
//
//	go build -ldflags="-X github.com/muurk/commsframe/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/commsframe/internal/version.Commit=abc1234"
//
// Otherwise they come from the VCS stamp in the build info, or fall back to
// "dev" and "unknown".
var (
	Version = ""
	Commit  = ""
)

// Info is the resolved build identity.
type Info struct {
	Version   string
	Commit    string
	GoVersion string
}

func init() {
	if Version == "" || Commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			v, c := fromSettings(bi.Settings)
			if Version == "" {
				Version = v
			}
			if Commit == "" {
				Commit = c
			}
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromSettings derives a version and short commit from vcs.* build settings.
func fromSettings(settings []debug.BuildSetting) (version, commit string) {
	var revision, modified, stamp string
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			stamp = s.Value
		}
	}

	if revision != "" {
		commit = revision
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if modified == "true" {
			commit += "-dirty"
		}
	}
	if t, err := time.Parse(time.RFC3339, stamp); err == nil {
		version = "dev-" + t.UTC().Format("20060102")
	}
	return version, commit
}

// Get returns the build identity.
func Get() Info {
	return Info{Version: Version, Commit: Commit, GoVersion: runtime.Version()}
}

// Full returns the version string including commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
