package version

import (
	"runtime/debug"
	"strings"
	"time"
)

// Set with -ldflags -X. Empty values are taken from the VCS stamps Go
// embeds in the binary.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Build describes the running connectord binary.
type Build struct {
	Version string    `json:"version"`
	Commit  string    `json:"commit,omitempty"`
	Dirty   bool      `json:"dirty,omitempty"`
	Time    time.Time `json:"build_time,omitempty"`
	Go      string    `json:"go_version"`
}

// Current returns the build of this binary.
func Current() Build {
	b := Build{Version: Version, Commit: Commit}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		b.Time = t
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	b.Go = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		case "vcs.time":
			if b.Time.IsZero() {
				b.Time, _ = time.Parse(time.RFC3339, s.Value)
			}
		}
	}
	return b
}

// Release reports whether the binary was built from a tagged, clean tree.
func (b Build) Release() bool {
	return b.Version != "dev" && !b.Dirty
}

// Short is the version with the abbreviated commit, e.g. "1.2.0-abc1234".
func (b Build) Short() string {
	parts := []string{b.Version}
	if b.Commit != "" {
		parts = append(parts, b.Commit[:min(len(b.Commit), 7)])
	}
	if b.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// String adds the build date and toolchain to Short.
func (b Build) String() string {
	s := b.Short()
	var extra []string
	if !b.Time.IsZero() {
		extra = append(extra, "built "+b.Time.UTC().Format(time.DateOnly))
	}
	if b.Go != "" {
		extra = append(extra, b.Go)
	}
	if len(extra) > 0 {
		s += " (" + strings.Join(extra, ", ") + ")"
	}
	return s
}

// UserAgent identifies connectord to the backend of a provider kind, e.g.
// "connectord/1.2.0-abc1234 (social)".
func UserAgent(kind string) string {
	ua := "connectord/" + Current().Short()
	if kind != "" {
		ua += " (" + kind + ")"
	}
	return ua
}
