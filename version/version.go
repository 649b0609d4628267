// Package version holds the build-time identity of the spyrun binary.
package version

import "fmt"

var (
	// Name is the executable's display name, used in usage text, the CLI
	// flag set name, and the syslog tag.
	Name = "spyrun"

	// GitCommit is set at build time via -ldflags.
	GitCommit string

	// Version is the semantic version of this build.
	Version = "0.1.0"

	// VersionPrerelease marks non-final builds, e.g. "dev".
	VersionPrerelease = "dev"
)

// HumanVersion is the user-facing version string printed by -v/-version.
var HumanVersion = func() string {
	v := fmt.Sprintf("%s v%s", Name, Version)
	if VersionPrerelease != "" {
		v = fmt.Sprintf("%s-%s", v, VersionPrerelease)
	}
	if GitCommit != "" {
		v = fmt.Sprintf("%s (%s)", v, GitCommit)
	}
	return v
}()
