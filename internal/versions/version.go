// Package versions reports the build version of the reconciler.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Component names the binary in version output.
const Component = "notice-reconciler"

const unknown = "unknown"

// Set with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = unknown
	BuildDate = unknown
)

// VersionInfo is what `version` and GET /version report.
type VersionInfo struct {
	Component string `json:"component"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Release   bool   `json:"release"`
}

// GetVersionInfo returns the version of the running binary.
func GetVersionInfo() VersionInfo {
	return buildVersionInfo(Version, Commit, BuildDate, debug.ReadBuildInfo)
}

// IsRelease reports whether version is a semantic version without a
// prerelease suffix.
func IsRelease(version string) bool {
	v, err := semver.NewVersion(version)
	return err == nil && v.Prerelease() == ""
}

func buildVersionInfo(version, commit, built string, readBuild func() (*debug.BuildInfo, bool)) VersionInfo {
	if version == "dev" {
		commit, built = fromVCS(commit, built, readBuild)
		version = fmt.Sprintf("build-%.*s", 8, commit)
	}
	if ts, err := time.Parse(time.RFC3339, built); err == nil {
		built = ts.UTC().Format("2006-01-02 15:04:05 MST")
	}
	return VersionInfo{
		Component: Component,
		Version:   version,
		Commit:    commit,
		BuildDate: built,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Release:   IsRelease(version),
	}
}

// fromVCS fills unset commit and build date from the module's VCS stamp.
func fromVCS(commit, built string, readBuild func() (*debug.BuildInfo, bool)) (string, string) {
	info, ok := readBuild()
	if !ok {
		return commit, built
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == unknown:
			commit = s.Value
		case s.Key == "vcs.time" && built == unknown:
			built = s.Value
		}
	}
	return commit, built
}
