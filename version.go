package dca

import "fmt"

const (
	// MajorVersion is incremented on incompatible changes of the command line or config.
	MajorVersion = 0
	// MinorVersion is incremented on new features.
	MinorVersion = 3
	// PatchVersion is incremented on bug fixes.
	PatchVersion = 0
)

var (
	// GitRev is filled in at build time with -ldflags.
	GitRev = "unknown"
	// BuildTime is filled in at build time with -ldflags.
	BuildTime = "unknown"
)

// Version returns the semantic version of dca.
func Version() (int, int, int) {
	return MajorVersion, MinorVersion, PatchVersion
}

// VersionString returns the version as "major.minor.patch".
func VersionString() string {
	return fmt.Sprintf("%d.%d.%d", MajorVersion, MinorVersion, PatchVersion)
}
