// Package update checks GitHub releases for a newer Rewind build.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// GitHubRepo is the repository checked for releases.
	GitHubRepo = "rewindhq/rewind"
	// CheckInterval is the minimum time between update checks.
	CheckInterval = 24 * time.Hour
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

type checkCache struct {
	LastCheck     int64  `json:"last_check"`
	LatestVersion string `json:"latest_version"`
	ReleaseURL    string `json:"release_url"`
}

// Checker polls GitHub for new releases, caching the result on disk so the
// CLI does not hit the API on every invocation.
type Checker struct {
	cachePath string
	cache     *checkCache
	client    *http.Client
}

// NewChecker creates a checker with its cache under the Rewind config dir.
func NewChecker() (*Checker, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".rewind")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	c := &Checker{
		cachePath: filepath.Join(dir, "update_check.json"),
		client:    &http.Client{Timeout: 5 * time.Second},
	}
	c.loadCache()
	return c, nil
}

// ShouldCheck reports whether enough time has passed since the last check.
func (c *Checker) ShouldCheck() bool {
	if c.cache == nil {
		return true
	}
	return time.Since(time.Unix(c.cache.LastCheck, 0)) > CheckInterval
}

// Check queries GitHub for the latest release. It returns the newer version
// and its release page URL, or ("", "") when the build is current.
func (c *Checker) Check() (version, url string, err error) {
	resp, err := c.client.Get(fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", GitHubRepo))
	if err != nil {
		return "", "", fmt.Errorf("check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", "", fmt.Errorf("parse release info: %w", err)
	}

	latest := strings.TrimPrefix(rel.TagName, "v")
	c.cache = &checkCache{
		LastCheck:     time.Now().Unix(),
		LatestVersion: latest,
		ReleaseURL:    rel.HTMLURL,
	}
	c.saveCache()

	if !IsNewer(latest, Version) {
		return "", "", nil
	}
	return latest, rel.HTMLURL, nil
}

// Notice returns a one-line newer-version message for CLI startup, or ""
// when the build is current. The network is only touched once the cached
// check has aged past CheckInterval; failures stay silent.
func Notice() string {
	c, err := NewChecker()
	if err != nil {
		return ""
	}

	var version, url string
	if c.ShouldCheck() {
		version, url, err = c.Check()
		if err != nil {
			return ""
		}
	} else if v, u, ok := c.Cached(); ok {
		version, url = v, u
	}

	if version == "" {
		return ""
	}
	return fmt.Sprintf("A newer Rewind version is available: %s (%s)", version, url)
}

// Cached returns the last known newer version without touching the network.
func (c *Checker) Cached() (version, url string, ok bool) {
	if c.cache == nil || !IsNewer(c.cache.LatestVersion, Version) {
		return "", "", false
	}
	return c.cache.LatestVersion, c.cache.ReleaseURL, true
}

// IsNewer compares two dotted version strings numerically per component.
// Dev builds never report an update.
func IsNewer(latest, current string) bool {
	latest = strings.TrimPrefix(latest, "v")
	current = strings.TrimPrefix(current, "v")
	if latest == "" || current == "" || current == "dev" {
		return false
	}

	lp := strings.Split(cutPrerelease(latest), ".")
	cp := strings.Split(cutPrerelease(current), ".")
	for i := 0; i < len(lp) || i < len(cp); i++ {
		l, cur := 0, 0
		if i < len(lp) {
			fmt.Sscanf(lp[i], "%d", &l)
		}
		if i < len(cp) {
			fmt.Sscanf(cp[i], "%d", &cur)
		}
		if l != cur {
			return l > cur
		}
	}
	return false
}

func cutPrerelease(v string) string {
	if idx := strings.IndexAny(v, "-+"); idx >= 0 {
		return v[:idx]
	}
	return v
}

func (c *Checker) loadCache() {
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return
	}
	var cache checkCache
	if json.Unmarshal(data, &cache) == nil {
		c.cache = &cache
	}
}

func (c *Checker) saveCache() {
	data, err := json.Marshal(c.cache)
	if err != nil {
		return
	}
	os.WriteFile(c.cachePath, data, 0o600)
}
