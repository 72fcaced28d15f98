package browser

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrBrowserUnavailable is returned when browser mode is requested but no
// Chrome binary can be located.
var ErrBrowserUnavailable = errors.New("Browser engine unavailable: no Chrome installation found and CHROME_PATH is unset.")

// ChromePathEnv overrides Chrome discovery.
const ChromePathEnv = "CHROME_PATH"

var lookPath = exec.LookPath

func chromeCandidates(goos string, env map[string]string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		local := env["LOCALAPPDATA"]
		return []string{
			"chrome.exe",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			filepath.Join(local, `Google\Chrome\Application\chrome.exe`),
		}
	default:
		return []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
			"/usr/bin/google-chrome",
			"/snap/bin/chromium",
		}
	}
}

// FindChrome returns the Chrome binary to launch: CHROME_PATH from env when
// set, otherwise the first installed candidate for the platform.
func FindChrome(env map[string]string) (string, bool) {
	if p := env[ChromePathEnv]; p != "" {
		return p, true
	}
	for _, c := range chromeCandidates(runtime.GOOS, env) {
		if filepath.IsAbs(c) {
			if info, err := os.Stat(c); err == nil && !info.IsDir() {
				return c, true
			}
			continue
		}
		if p, err := lookPath(c); err == nil {
			return p, true
		}
	}
	return "", false
}

// EnsureAvailable fails fast with ErrBrowserUnavailable when engine is
// "browser" and no Chrome binary can be found.
func EnsureAvailable(engine string, env map[string]string) error {
	if engine != "browser" {
		return nil
	}
	if _, ok := FindChrome(env); !ok {
		return ErrBrowserUnavailable
	}
	return nil
}
