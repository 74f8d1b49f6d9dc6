package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fluxmind/flux/internal/config"
	"github.com/fluxmind/flux/internal/domain"
)

// SettingsCmd manages ~/.flux/settings.json
type SettingsCmd struct {
	Set  SettingsSetCmd  `cmd:"set" help:"Update settings"`
	Show SettingsShowCmd `cmd:"show" help:"Show current settings"`
}

// SettingsShowCmd prints the effective settings
type SettingsShowCmd struct{}

// Run executes the show command
func (s *SettingsShowCmd) Run(cli *CLI) error {
	data, err := json.MarshalIndent(cli.GetSettings(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// SettingsSetCmd updates one or more settings
type SettingsSetCmd struct {
	Calendar    string `help:"Calendar provider (GOOGLE, APPLE, or 'none' to clear)"`
	GeminiModel string `help:"Gemini model used for classification"`
	Language    string `help:"Verdict language" enum:",zh,en,es,ja,fr" default:""`
}

// Run executes the set command
func (s *SettingsSetCmd) Run(cli *CLI) error {
	settings := cli.GetSettings()

	if s.Language != "" {
		if !domain.Language(s.Language).Valid() {
			return fmt.Errorf("unsupported language: %s", s.Language)
		}
		settings.Language = s.Language
	}
	if s.GeminiModel != "" {
		settings.GeminiModel = s.GeminiModel
	}
	switch s.Calendar {
	case "":
	case "none":
		settings.CalendarProvider = ""
	case config.CalendarGoogle, config.CalendarApple:
		settings.CalendarProvider = s.Calendar
	default:
		return fmt.Errorf("unsupported calendar provider: %s", s.Calendar)
	}

	if err := config.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Println("Settings saved")
	return nil
}
