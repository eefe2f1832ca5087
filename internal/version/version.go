package version

import (
	"fmt"
	"runtime/debug"
)

// GitVersion is a version as described by Git (passed in at build via
// -ldflags "-X github.com/xymaxim/vdl/internal/version.GitVersion=...").
var GitVersion string

const revisionLength = 7

// Build describes the running binary.
type Build struct {
	Version   string
	Revision  string
	Modified  bool
	GoVersion string
	Platform  string
}

// Read collects build information. It reports false when the binary
// carries none.
func Read() (Build, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Build{}, false
	}
	return fromBuildInfo(info, GitVersion), true
}

func fromBuildInfo(info *debug.BuildInfo, gitVersion string) Build {
	b := Build{GoVersion: info.GoVersion}

	var goos, goarch string
	for _, kv := range info.Settings {
		switch kv.Key {
		case "GOOS":
			goos = kv.Value
		case "GOARCH":
			goarch = kv.Value
		case "vcs.revision":
			b.Revision = kv.Value
			if len(b.Revision) > revisionLength {
				b.Revision = b.Revision[:revisionLength]
			}
		case "vcs.modified":
			b.Modified = kv.Value == "true"
		}
	}
	if goos != "" || goarch != "" {
		b.Platform = goos + "/" + goarch
	}
	b.Version = buildVersionNumber(gitVersion, b.Modified)

	return b
}

// Short returns the version number alone.
func (b Build) Short() string {
	return b.Version
}

// String returns a one-line description such as
// "vdl version v0.3.0 from 1a2b3c4 with go1.25.5 on linux/amd64".
func (b Build) String() string {
	version := b.Version
	if version == "" {
		version = "(untagged)"
	}
	s := "vdl version " + version
	if b.Revision != "" {
		s += " from " + b.Revision
	}
	if b.GoVersion != "" {
		s += " with " + b.GoVersion
	}
	if b.Platform != "" {
		s += fmt.Sprintf(" on %s", b.Platform)
	}
	return s
}

func GetFull() string {
	b, ok := Read()
	if !ok {
		return ""
	}
	return b.String()
}

func GetShort() string {
	b, ok := Read()
	if !ok {
		return ""
	}
	return b.Short()
}

func buildVersionNumber(v string, dirty bool) string {
	if v != "" && dirty {
		return v + "+dirty"
	}
	return v
}
