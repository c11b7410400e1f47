package storage

import (
	"fmt"
	"slices"
)

// validExtension reports whether ext can name slot files: non-empty,
// ASCII letters and digits only
func validExtension(ext string) bool {
	if ext == "" || len(ext) > 8 {
		return false
	}
	for _, c := range ext {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// ValidateConfig checks all config fields against valid ranges and returns
// human-readable error descriptions. An empty slice means the config is valid.
func ValidateConfig(config *Config) []string {
	var errors []string

	// version
	if config.Version != 1 {
		errors = append(errors, fmt.Sprintf("version: %d (valid: 1)", config.Version))
	}

	// savestate.extension
	if !validExtension(config.SaveState.Extension) {
		errors = append(errors, fmt.Sprintf("savestate.extension: %q (valid: 1-8 letters or digits)", config.SaveState.Extension))
	}

	// resume.screenshotwidth
	if config.Resume.ScreenshotWidth < 0 || config.Resume.ScreenshotWidth > MaxScreenshotWidth {
		errors = append(errors, fmt.Sprintf("resume.screenshotwidth: %d (valid: 0-%d)", config.Resume.ScreenshotWidth, MaxScreenshotWidth))
	}

	// log.level
	if !slices.Contains(LogLevels, config.Log.Level) {
		errors = append(errors, fmt.Sprintf("log.level: %q (valid: %v)", config.Log.Level, LogLevels))
	}

	return errors
}

// CorrectConfig resets any invalid fields to their defaults from DefaultConfig().
// Valid fields are preserved.
func CorrectConfig(config *Config) *Config {
	defaults := DefaultConfig()

	if config.Version != 1 {
		config.Version = defaults.Version
	}
	if !validExtension(config.SaveState.Extension) {
		config.SaveState.Extension = defaults.SaveState.Extension
	}
	if config.Resume.ScreenshotWidth < 0 || config.Resume.ScreenshotWidth > MaxScreenshotWidth {
		config.Resume.ScreenshotWidth = defaults.Resume.ScreenshotWidth
	}
	if !slices.Contains(LogLevels, config.Log.Level) {
		config.Log.Level = defaults.Log.Level
	}

	return config
}
