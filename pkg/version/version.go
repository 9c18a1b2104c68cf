// Package version exposes the build commit of the binaries.
//
// Priority: -ldflags override > VCS info from debug.BuildInfo > "dev" fallback.
//
//	version.GitCommit  // "a3f8c2d1" or "dev"
//	version.Full()     // "dialogreplay/a3f8c2d1"
package version

import "runtime/debug"

// AppName prefixes version strings and the CLI user agent.
const AppName = "dialogreplay"

// gitCommitOverride is set via -ldflags for container builds without .git.
var gitCommitOverride string

// GitCommit is the short git commit hash from build info, or "dev".
var GitCommit = resolveCommit(gitCommitOverride, readBuildInfo)

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

func resolveCommit(override string, buildInfo func() (*debug.BuildInfo, bool)) string {
	if override != "" {
		return shortCommit(override)
	}
	info, ok := buildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return shortCommit(s.Value)
		}
	}
	return "dev"
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

// Full returns "dialogreplay/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}
