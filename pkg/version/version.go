// Package version carries the build identity baked into the binary.
package version

import "runtime/debug"

// AppName is used in log banners and the bridge handshake.
const AppName = "maicraft"

// Set via -ldflags for release and container builds where the module is
// compiled outside its git checkout:
//
//	-X github.com/maicraft/maicraft-go/pkg/version.releaseTag=v0.4.0
//	-X github.com/maicraft/maicraft-go/pkg/version.commitOverride=abc1234
var (
	releaseTag     string
	commitOverride string
)

// GitCommit is the short revision this binary was built from, with a -dirty
// suffix for modified trees. Builds without VCS stamping report "dev".
var GitCommit = resolveCommit()

// Tag returns the release tag, or "dev" for untagged builds.
func Tag() string {
	if releaseTag != "" {
		return releaseTag
	}
	return "dev"
}

// Full renders "maicraft/<tag>@<commit>" for user agents and startup logs.
func Full() string {
	return AppName + "/" + Tag() + "@" + GitCommit
}

func resolveCommit() string {
	if commitOverride != "" {
		return short(commitOverride)
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	var rev, modified string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	if rev == "" {
		return "dev"
	}
	rev = short(rev)
	if modified == "true" {
		rev += "-dirty"
	}
	return rev
}

func short(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
