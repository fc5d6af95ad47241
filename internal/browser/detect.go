package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Install describes a Chromium-family browser found on this machine.
type Install struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

// candidate is one browser the detector knows how to look for. Commands are
// tried via PATH lookup, paths are checked directly.
type candidate struct {
	id       string
	name     string
	commands []string
	paths    []string
}

func detectCandidates() []candidate {
	home, _ := os.UserHomeDir()
	return []candidate{
		{
			id:       "chrome",
			name:     "Google Chrome",
			commands: []string{"google-chrome", "google-chrome-stable"},
			paths: []string{
				"/usr/bin/google-chrome",
				"/opt/google/chrome/chrome",
				"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
				filepath.Join(os.Getenv("ProgramFiles"), "Google", "Chrome", "Application", "chrome.exe"),
			},
		},
		{
			id:       "chromium",
			name:     "Chromium",
			commands: []string{"chromium", "chromium-browser"},
			paths: []string{
				"/usr/bin/chromium",
				"/snap/bin/chromium",
				"/Applications/Chromium.app/Contents/MacOS/Chromium",
				filepath.Join(home, ".local/bin/chromium"),
			},
		},
		{
			id:       "edge",
			name:     "Microsoft Edge",
			commands: []string{"microsoft-edge", "msedge"},
			paths: []string{
				"/usr/bin/microsoft-edge",
				"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
				filepath.Join(os.Getenv("ProgramFiles(x86)"), "Microsoft", "Edge", "Application", "msedge.exe"),
			},
		},
		{
			id:       "brave",
			name:     "Brave",
			commands: []string{"brave", "brave-browser"},
			paths: []string{
				"/usr/bin/brave-browser",
				"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
			},
		},
	}
}

// Detect scans for installed Chromium-family browsers, preferring Chrome.
func Detect() []Install {
	var found []Install
	for _, c := range detectCandidates() {
		if inst := locate(c); inst != nil {
			found = append(found, *inst)
		}
	}
	return found
}

// DetectDefault returns the preferred installed browser, or nil when none is
// found. Replay runs through chromedp's own lookup in that case, which may
// still fail at launch.
func DetectDefault() *Install {
	for _, c := range detectCandidates() {
		if inst := locate(c); inst != nil {
			return inst
		}
	}
	return nil
}

func locate(c candidate) *Install {
	for _, cmd := range c.commands {
		if path, err := exec.LookPath(cmd); err == nil {
			return &Install{ID: c.id, Name: c.name, Path: path, Version: browserVersion(path)}
		}
	}
	for _, p := range c.paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return &Install{ID: c.id, Name: c.name, Path: p, Version: browserVersion(p)}
		}
	}
	return nil
}

func browserVersion(path string) string {
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return ""
	}
	version := strings.TrimSpace(string(out))
	if idx := strings.Index(version, "\n"); idx > 0 {
		version = version[:idx]
	}
	if len(version) > 40 {
		version = version[:40]
	}
	return version
}
