package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, &Settings{}, settings)
}

func TestSaveAndLoadSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	debug := true
	in := &Settings{
		CalendarProvider: CalendarGoogle,
		Debug:            &debug,
		GeminiModel:      "gemini-3-flash-preview",
		Language:         "zh",
	}
	require.NoError(t, SaveSettings(in))

	out, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadSettingsInvalidJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".flux"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".flux", "settings.json"), []byte("{nope"), 0644))

	_, err := LoadSettings()
	assert.Error(t, err)
}

func TestLoadSettingsExpandsDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, SaveSettings(&Settings{DBPath: "~/custom/thoughts.db"}))

	out, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "custom", "thoughts.db"), out.DBPath)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), ExpandPath("~/x"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/absolute/path", ExpandPath("/absolute/path"))
	assert.Equal(t, "relative", ExpandPath("relative"))
}
