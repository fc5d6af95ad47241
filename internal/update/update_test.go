package update

import (
	"path/filepath"
	"testing"
	"time"
)

func TestShouldCheck(t *testing.T) {
	c := &Checker{}
	if !c.ShouldCheck() {
		t.Error("no cache must trigger a check")
	}

	c.cache = &checkCache{LastCheck: time.Now().Unix()}
	if c.ShouldCheck() {
		t.Error("a fresh cache must not trigger a check")
	}

	c.cache.LastCheck = time.Now().Add(-CheckInterval - time.Hour).Unix()
	if !c.ShouldCheck() {
		t.Error("an expired cache must trigger a check")
	}
}

func TestCachedReportsOnlyNewerVersions(t *testing.T) {
	c := &Checker{}
	if _, _, ok := c.Cached(); ok {
		t.Error("no cache must report nothing")
	}

	c.cache = &checkCache{LatestVersion: "99.0.0", ReleaseURL: "https://example.com/rel"}
	version, url, ok := c.Cached()
	if !ok || version != "99.0.0" || url != "https://example.com/rel" {
		t.Errorf("expected cached newer version, got %q %q %v", version, url, ok)
	}

	c.cache.LatestVersion = Version
	if _, _, ok := c.Cached(); ok {
		t.Error("the current version must not report as an update")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update_check.json")

	saved := &Checker{
		cachePath: path,
		cache:     &checkCache{LastCheck: 12345, LatestVersion: "9.9.9", ReleaseURL: "https://example.com/r"},
	}
	saved.saveCache()

	loaded := &Checker{cachePath: path}
	loaded.loadCache()
	if loaded.cache == nil || loaded.cache.LatestVersion != "9.9.9" || loaded.cache.LastCheck != 12345 {
		t.Errorf("cache did not round-trip: %+v", loaded.cache)
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest  string
		current string
		want    bool
	}{
		{"0.2.0", "0.1.0", true},
		{"1.0.0", "0.9.9", true},
		{"0.1.0", "0.1.0", false},
		{"0.1.0", "0.2.0", false},
		{"v0.3.0", "0.2.0", true},
		{"0.10.0", "0.9.0", true},
		{"0.2.0", "dev", false},
		{"0.2.0-beta", "0.1.0", true},
		{"0.2.0", "0.2.0-beta", false},
		{"", "0.1.0", false},
		{"0.1.1", "0.1", true},
		{"0.1", "0.1.1", false},
	}
	for _, tt := range tests {
		if got := IsNewer(tt.latest, tt.current); got != tt.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}
}
