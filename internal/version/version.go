package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// shortCommitLength is the number of revision characters shown.
const shortCommitLength = 7

// Info is the resolved build metadata.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	Platform  string
}

// Get resolves build metadata, filling ldflags defaults from the embedded build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	return fillFromBuildInfo(info, buildInfo)
}

// fillFromBuildInfo replaces default values with what the toolchain recorded.
func fillFromBuildInfo(info Info, buildInfo *debug.BuildInfo) Info {
	if info.Version == "dev" && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		info.Version = buildInfo.Main.Version
	}

	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "none" && setting.Value != "" {
				info.Commit = setting.Value[:min(len(setting.Value), shortCommitLength)]
			}
		case "vcs.time":
			if info.BuildTime == "unknown" && setting.Value != "" {
				info.BuildTime = setting.Value
			}
		}
	}

	return info
}

// Short returns only the semantic version string.
func Short() string {
	return Get().Version
}

// Full returns a human-readable version string with commit, build time and runtime.
func Full() string {
	info := Get()

	return fmt.Sprintf("version: %s, commit: %s, built at: %s, %s %s",
		info.Version, info.Commit, info.BuildTime, info.GoVersion, info.Platform)
}
