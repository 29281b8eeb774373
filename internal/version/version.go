package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/tabcounter"

// buildVersion is set via -ldflags "-X pkt.systems/tabcounter/internal/version.buildVersion=...".
var buildVersion = ""

// Info is what the binary knows about its own build.
type Info struct {
	Module   string
	Version  string
	Revision string
	Modified bool
}

// Read collects build information for the running binary.
func Read() Info {
	out := Info{Module: defaultModule}
	info, ok := debug.ReadBuildInfo()
	if ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			out.Module = path
		}
		rev, _, modified := vcsSettings(info)
		out.Revision = rev
		out.Modified = modified
	}
	out.Version = resolve(info, true)
	return out
}

// Current returns the best available version string (without dirty suffix).
func Current() string {
	info, _ := debug.ReadBuildInfo()
	return resolve(info, false)
}

// String renders the build info on one line for the version command.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Module)
	b.WriteByte(' ')
	b.WriteString(i.Version)
	if i.Revision != "" && !strings.Contains(i.Version, shortRevision(i.Revision)) {
		b.WriteString(" (")
		b.WriteString(shortRevision(i.Revision))
		b.WriteByte(')')
	}
	return b.String()
}

func resolve(info *debug.BuildInfo, includeDirty bool) string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return trimDirty(v, includeDirty)
	}
	if info != nil {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return trimDirty(v, includeDirty)
		}
		if v := pseudoVersion(info, includeDirty); v != "" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

func trimDirty(v string, includeDirty bool) string {
	if includeDirty {
		return v
	}
	return strings.TrimSuffix(v, "+dirty")
}

func vcsSettings(info *debug.BuildInfo) (revision, at string, modified bool) {
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			at = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, at, modified
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// pseudoVersion mirrors the go toolchain's v0.0.0-<time>-<rev> form.
func pseudoVersion(info *debug.BuildInfo, includeDirty bool) string {
	if info == nil {
		return ""
	}
	revision, at, modified := vcsSettings(info)
	if revision == "" || at == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return ""
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + shortRevision(revision)
	if modified && includeDirty {
		ver += "+dirty"
	}
	return ver
}
