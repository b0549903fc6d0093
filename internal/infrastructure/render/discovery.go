package render

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Candidate browser locations in lookup order. Bare names are resolved
// through PATH; on Windows they are accepted as-is.
var (
	linuxCandidates = []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
		"/opt/google/chrome/chrome",
		"google-chrome",
		"chromium",
	}
	darwinCandidates = []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	}
	windowsCandidates = []string{
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
		"chrome",
		"msedge",
	}
)

// Candidates returns the built-in lookup list for goos.
func Candidates(goos string) []string {
	var list []string
	switch goos {
	case "windows":
		list = windowsCandidates
	case "darwin":
		list = darwinCandidates
	default:
		list = linuxCandidates
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Discovery is the result of a browser lookup.
type Discovery struct {
	Path    string   // empty when nothing was found
	Checked []string // every candidate examined, in order
}

// Resolved reports whether a browser binary was found.
func (d Discovery) Resolved() bool {
	return d.Path != ""
}

// ExistsFunc reports whether a candidate is usable.
type ExistsFunc func(candidate string) bool

// Discover walks explicit (configured path first) and then candidates,
// returning the first usable entry. On Windows a bare command name is
// accepted without checking it exists.
func Discover(explicit string, candidates []string, goos string, exists ExistsFunc) Discovery {
	var d Discovery

	ordered := make([]string, 0, len(candidates)+1)
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		ordered = append(ordered, explicit)
	}
	ordered = append(ordered, candidates...)

	for _, c := range ordered {
		d.Checked = append(d.Checked, c)
		if goos == "windows" && isBareName(c) {
			d.Path = c
			return d
		}
		if exists(c) {
			d.Path = c
			return d
		}
	}
	return d
}

// DiscoverLocal runs Discover against the host file system.
func DiscoverLocal(explicit string, extra []string) Discovery {
	candidates := append(append([]string{}, extra...), Candidates(runtime.GOOS)...)
	return Discover(explicit, candidates, runtime.GOOS, fileExists)
}

var lookPath = exec.LookPath

func isBareName(c string) bool {
	return !strings.ContainsAny(c, `/\`)
}

func fileExists(candidate string) bool {
	if isBareName(candidate) {
		if p, err := lookPath(candidate); err == nil && p != "" {
			return true
		}
		return false
	}
	info, err := os.Stat(filepath.Clean(candidate))
	return err == nil && !info.IsDir()
}
