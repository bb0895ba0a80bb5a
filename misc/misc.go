// Package misc holds small helpers needed across the program which have no
// better home: build identification mostly.
package misc

import (
	"runtime/debug"
)

const appName = "r2epub"

// Following variables are set by the linker during official builds, otherwise
// values are derived from the module build information.
var (
	version string
	gitHash string
)

// GetAppName returns short program name used for logs, temporary files and
// reports.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	if len(version) != 0 {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) != 0 {
		return bi.Main.Version
	}
	return "(devel)"
}

// GetGitHash returns git revision program was built from.
func GetGitHash() string {
	if len(gitHash) != 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
