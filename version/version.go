package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set with -ldflags -X. When Commit or BuildTime are empty they are filled
// from the VCS stamp the go tool embeds in the binary.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

const shortCommitLen = 7

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

// GetVersionInfo merges the link-time variables with the embedded build
// info.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		}
	}
	if len(info.Commit) > shortCommitLen {
		info.Commit = info.Commit[:shortCommitLen]
	}
	return info
}

// Short renders version[-commit][-dirty]. Stage markers record this.
func (i *Info) Short() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// GetShortVersion is GetVersionInfo().Short().
func GetShortVersion() string {
	return GetVersionInfo().Short()
}

// IsRelease reports whether the build carries a tagged, clean version.
func (i *Info) IsRelease() bool {
	return i.Version != "dev" && !i.Dirty
}

// String renders the info the way the version command prints it.
func (i *Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "amiprep %s\n", i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&b, "  commit: %s", i.Commit)
		if i.Dirty {
			b.WriteString(" (dirty)")
		}
		b.WriteString("\n")
	}
	if i.BuildTime != "" {
		fmt.Fprintf(&b, "  built:  %s\n", i.BuildTime)
	}
	if i.GoVersion != "" {
		fmt.Fprintf(&b, "  go:     %s\n", i.GoVersion)
	}
	return b.String()
}
