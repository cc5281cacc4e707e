package version

import (
	"strings"
	"testing"
	"time"
)

func stamp(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	v, c, b := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = v, c, b })
	Version, Commit, BuildTime = version, commit, buildTime
}

func TestBuild_Short(t *testing.T) {
	tests := []struct {
		name  string
		build Build
		want  string
	}{
		{"dev", Build{Version: "dev"}, "dev"},
		{"long commit", Build{Version: "1.2.0", Commit: "abc1234def5678"}, "1.2.0-abc1234"},
		{"short commit", Build{Version: "1.2.0", Commit: "abc"}, "1.2.0-abc"},
		{"dirty tree", Build{Version: "1.2.0", Commit: "abc1234", Dirty: true}, "1.2.0-abc1234-dirty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.build.Short(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuild_Release(t *testing.T) {
	if (Build{Version: "dev"}).Release() {
		t.Error("dev builds are not releases")
	}
	if (Build{Version: "1.0.0", Dirty: true}).Release() {
		t.Error("dirty builds are not releases")
	}
	if !(Build{Version: "1.0.0"}).Release() {
		t.Error("expected a clean tagged build to be a release")
	}
}

func TestBuild_String(t *testing.T) {
	b := Build{Version: "1.2.0", Commit: "abc1234", Time: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), Go: "go1.26.0"}
	if got := b.String(); got != "1.2.0-abc1234 (built 2026-01-15, go1.26.0)" {
		t.Errorf("unexpected %q", got)
	}
	if got := (Build{Version: "dev"}).String(); got != "dev" {
		t.Errorf("expected bare version, got %q", got)
	}
}

func TestCurrent_LinkerValuesWin(t *testing.T) {
	stamp(t, "1.2.0", "abc1234", "2026-01-15T10:30:00Z")

	b := Current()
	if b.Version != "1.2.0" || b.Commit != "abc1234" {
		t.Errorf("unexpected build %+v", b)
	}
	if b.Time.Year() != 2026 {
		t.Errorf("expected the linked build time, got %s", b.Time)
	}
}

func TestUserAgent(t *testing.T) {
	stamp(t, "1.2.0", "abc1234", "")

	if ua := UserAgent("social"); !strings.HasPrefix(ua, "connectord/1.2.0-abc1234") || !strings.HasSuffix(ua, " (social)") {
		t.Errorf("unexpected user agent %q", ua)
	}
	if ua := UserAgent(""); strings.Contains(ua, "(") {
		t.Errorf("expected no kind suffix, got %q", ua)
	}
}
