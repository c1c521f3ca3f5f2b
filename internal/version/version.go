package version

import "runtime/debug"

// Get returns the VCS revision the binary was built from, or "unavailable".
func Get() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unavailable"
	}

	var revision, modified string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}

	if revision == "" {
		return bi.Main.Version
	}

	if modified == "true" {
		return revision + "-dirty"
	}

	return revision
}
