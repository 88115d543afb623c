package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataDirFor(t *testing.T) {
	home := filepath.Join("home", "ada")
	tests := []struct {
		name string
		goos string
		env  map[string]string
		want string
	}{
		{"darwin ignores xdg", "darwin", map[string]string{"XDG_DATA_HOME": "/xdg"},
			filepath.Join(home, "Library", "Application Support", appName)},
		{"linux default", "linux", nil, filepath.Join(home, ".local", "share", appName)},
		{"linux xdg", "linux", map[string]string{"XDG_DATA_HOME": "/custom/data"}, filepath.Join("/custom/data", appName)},
		{"freebsd follows xdg", "freebsd", map[string]string{"XDG_DATA_HOME": "/x"}, filepath.Join("/x", appName)},
		{"windows localappdata first", "windows",
			map[string]string{"LOCALAPPDATA": `C:\Local`, "APPDATA": `C:\Roaming`}, filepath.Join(`C:\Local`, appName)},
		{"windows appdata fallback", "windows", map[string]string{"APPDATA": `C:\Roaming`}, filepath.Join(`C:\Roaming`, appName)},
		{"windows home fallback", "windows", nil, filepath.Join(home, appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			assert.Equal(t, tt.want, dataDirFor(tt.goos, home, getenv))
		})
	}
}

func TestDefaultDataDirEndsInAppName(t *testing.T) {
	assert.Equal(t, appName, filepath.Base(DefaultDataDir()))
}
