package versions

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRelease(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		want    bool
	}{
		{version: "1.2.3", want: true},
		{version: "v0.4.0", want: true},
		{version: "1.2.3-rc.1", want: false},
		{version: "build-abcdef12", want: false},
		{version: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRelease(tt.version))
		})
	}
}

func TestBuildVersionInfo(t *testing.T) {
	t.Parallel()

	noBuild := func() (*debug.BuildInfo, bool) { return nil, false }
	stamped := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "fedcba9876543210"},
			{Key: "vcs.time", Value: "2025-03-04T05:06:07Z"},
		}}, true
	}

	tests := []struct {
		name      string
		version   string
		commit    string
		built     string
		readBuild func() (*debug.BuildInfo, bool)
		want      VersionInfo
	}{
		{
			name:      "release",
			version:   "v1.4.0",
			commit:    "0123456789abcdef",
			built:     "2024-06-01T12:00:00Z",
			readBuild: stamped,
			want: VersionInfo{Version: "v1.4.0", Commit: "0123456789abcdef",
				BuildDate: "2024-06-01 12:00:00 UTC", Release: true},
		},
		{
			name:      "dev with ldflags",
			version:   "dev",
			commit:    "0123456789abcdef",
			built:     "not-a-date",
			readBuild: stamped,
			want: VersionInfo{Version: "build-01234567", Commit: "0123456789abcdef",
				BuildDate: "not-a-date"},
		},
		{
			name:      "dev from vcs stamp",
			version:   "dev",
			commit:    unknown,
			built:     unknown,
			readBuild: stamped,
			want: VersionInfo{Version: "build-fedcba98", Commit: "fedcba9876543210",
				BuildDate: "2025-03-04 05:06:07 UTC"},
		},
		{
			name:      "dev without build info",
			version:   "dev",
			commit:    unknown,
			built:     unknown,
			readBuild: noBuild,
			want:      VersionInfo{Version: "build-unknown", Commit: unknown, BuildDate: unknown},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := buildVersionInfo(tt.version, tt.commit, tt.built, tt.readBuild)
			tt.want.Component = Component
			tt.want.GoVersion = runtime.Version()
			tt.want.Platform = runtime.GOOS + "/" + runtime.GOARCH
			assert.Equal(t, tt.want, got)
		})
	}
}
