package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "goalgraph"

// DefaultDataDir returns the per-OS directory goals live in when neither
// --dir, GOALGRAPH_DIR nor data_dir is set.
//
//   - macOS:   ~/Library/Application Support/goalgraph
//   - Linux:   $XDG_DATA_HOME/goalgraph (fallback ~/.local/share/goalgraph)
//   - Windows: %LOCALAPPDATA%\goalgraph (fallback %APPDATA%, then home)
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return dataDirFor(runtime.GOOS, home, os.Getenv)
}

func dataDirFor(goos, home string, getenv func(string) string) string {
	var envs []string
	fallback := filepath.Join(home, ".local", "share")
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		envs = []string{"LOCALAPPDATA", "APPDATA"}
		fallback = home
	default:
		envs = []string{"XDG_DATA_HOME"}
	}
	for _, key := range envs {
		if base := getenv(key); base != "" {
			return filepath.Join(base, appName)
		}
	}
	return filepath.Join(fallback, appName)
}
