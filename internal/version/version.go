// Package version provides build-time version information for vodforge.
//
// Version, Commit, and Date are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/vodforge/vodforge/internal/version.Version=x.y.z \
//	                   -X github.com/vodforge/vodforge/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/vodforge/vodforge/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Build-time variables injected via ldflags.
var (
	// Version is the semantic version following SemVer 2.0.0.
	Version = "dev"

	// Commit is the full git commit SHA.
	Commit = "unknown"

	// Date is the build timestamp in RFC3339 format.
	Date = "unknown"
)

// GoVersion is the Go runtime version.
var GoVersion = runtime.Version()

// ApplicationName is the canonical name of this application.
const ApplicationName = "vodforge"

// Info contains structured version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns all version information as a structured type.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// JSON returns the version information encoded as JSON.
func JSON() string {
	data, err := json.Marshal(GetInfo())
	if err != nil {
		return fmt.Sprintf(`{"version":%q}`, Version)
	}
	return string(data)
}

// String returns a human-readable version string.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", ApplicationName, Version, Commit, Date, GoVersion)
}

// Short returns just the version number.
func Short() string {
	return Version
}
