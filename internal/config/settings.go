package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Calendar provider identifiers persisted in settings.
const (
	CalendarGoogle = "GOOGLE"
	CalendarApple  = "APPLE"
)

// Settings represents the structure of ~/.flux/settings.json
type Settings struct {
	CalendarProvider string `json:"calendar_provider,omitempty"`
	DBPath           string `json:"db_path,omitempty"`
	Debug            *bool  `json:"debug,omitempty"`
	GeminiModel      string `json:"gemini_model,omitempty"`
	Language         string `json:"language,omitempty"`
	MaxLogFiles      *int   `json:"max_log_files,omitempty"`
}

// DefaultDBPath is where the thought database lives unless overridden.
const DefaultDBPath = "~/.flux/thoughts.db"

// DefaultGeminiModel is the generation model used when settings don't name one.
const DefaultGeminiModel = "gemini-3-flash-preview"

// settingsPath returns the settings file location.
func settingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".flux", "settings.json"), nil
}

// LoadSettings loads settings from ~/.flux/settings.json.
// Returns empty Settings if the file doesn't exist (not an error).
func LoadSettings() (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil // Not an error, use defaults
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	if settings.DBPath != "" {
		settings.DBPath = ExpandPath(settings.DBPath)
	}

	return &settings, nil
}

// SaveSettings writes settings to ~/.flux/settings.json, creating the
// directory if needed.
func SaveSettings(settings *Settings) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// ExpandPath expands ~ to home directory in paths
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path // Return as-is if we can't get home dir
		}
		if len(path) == 1 {
			return homeDir
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
