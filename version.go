package fmutools

import "runtime/debug"

const modulePath = "github.com/f9-o/fmutools"

// devVersion is reported when neither the linker nor the build info carries
// a version.
const devVersion = "0.0.0-dev"

// buildVersion is injected with
//
//	go build -ldflags "-X github.com/f9-o/fmutools.buildVersion=v1.2.3"
var buildVersion string

// Version is the fmutools version, resolved once at package load.
var Version = theVersion()

func theVersion() string {
	if buildVersion != "" {
		return buildVersion
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return devVersion
	}
	return versionFromBuildInfo(info)
}

func versionFromBuildInfo(info *debug.BuildInfo) string {
	usable := func(v string) bool { return v != "" && v != "(devel)" }

	if info.Main.Path == modulePath && usable(info.Main.Version) {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil && usable(dep.Replace.Version) {
			return dep.Replace.Version
		}
		if usable(dep.Version) {
			return dep.Version
		}
	}
	return devVersion
}
