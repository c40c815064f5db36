package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Build-time version reporting for GetDaemonVersion/
 *		GetLibraryVersion (§6), grounded on version.go's
 *		getBuildSettingOrDefault/debug.ReadBuildInfo idiom for
 *		resolving VCS metadata without a separate build-info file.
 *
 *------------------------------------------------------------------*/

import "runtime/debug"

// DaemonVersionOverride is set at build time via -ldflags
// "-X 'github.com/cdemu-project/cdemud/internal/cdemu.DaemonVersionOverride=X'";
// falling back to the VCS
// revision embedded by `go build` lets unreleased builds still report
// something useful.
var DaemonVersionOverride string

// libraryVersionSuffix is appended to the daemon's own version to form
// the version reported for the image-parsing collaborator: since that
// collaborator isn't linked in (§1), there is no separate library
// release number to report.
const libraryVersionSuffix = "-govhba"

func buildSetting(key, fallback string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return fallback
	}

	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}

	return fallback
}

// DaemonVersion reports the running build's version: the override if
// set at link time, otherwise the VCS revision baked in by `go build`.
func DaemonVersion() string {
	if DaemonVersionOverride != "" {
		return DaemonVersionOverride
	}

	rev := buildSetting("vcs.revision", "")
	if rev == "" {
		return "unknown"
	}

	if buildSetting("vcs.modified", "false") == "true" {
		rev += "-dirty"
	}

	return rev
}

// LibraryVersion reports the version of the DiscImage collaborator this
// daemon was built against. With no collaborator library linked in
// (§1), it is derived from the daemon's own version instead of a real
// libMirage release string.
func LibraryVersion() string {
	return DaemonVersion() + libraryVersionSuffix
}
