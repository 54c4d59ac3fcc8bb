// Package version provides version metadata for the application.
package version

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Masterminds/semver/v3"
)

// These variables are injected at build time using -ldflags.
var (
	// Version holds the current version of glimpse.
	Version = "dev"
	// Commit holds the git commit glimpse was built from.
	Commit = "none"
	// BuildDate holds the build date of glimpse.
	BuildDate = "unknown"
	// StartDate holds the start date of this process.
	StartDate = time.Now()
)

// Struct returns version information in a structured format.
type Struct struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("glimpse %s (commit: %s, date: %s)", Version, Commit, BuildDate)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Satisfies reports whether the running version meets a semver constraint
// such as ">= 0.3" or "~1.2". Development builds satisfy every constraint,
// since they carry no comparable version number.
func Satisfies(constraint string) (bool, error) {
	if constraint == "" {
		return true, nil
	}

	if Version == "dev" {
		return true, nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("parse version constraint %q: %w", constraint, err)
	}

	v, err := semver.NewVersion(Version)
	if err != nil {
		return false, fmt.Errorf("parse running version %q: %w", Version, err)
	}

	return c.Check(v), nil
}
