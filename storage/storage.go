package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

var appName = "mstate"

// Init sets the application data directory name. Must be called before
// any storage operations that use the default layout.
func Init(dataDirName string) {
	appName = dataDirName
}

const (
	configFile     = "config.yaml"
	saveStatesDir  = "SaveStates"
	recentGamesDir = "RecentGames"
	screenshotDir  = "Screenshots"
)

// GetBaseDir returns the base directory for application data.
// The directory name is set by Init(). Example paths:
// - macOS: ~/Library/Application Support/<appName>
// - Linux: ~/.local/share/<appName>
// - Windows: %APPDATA%/<appName>
func GetBaseDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, appName), nil
	}

	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// GetConfigPath returns the full path to config.yaml
func GetConfigPath() (string, error) {
	baseDir, err := GetBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, configFile), nil
}

// Folders is the resolved folder layout.
type Folders struct {
	SaveStates  string
	RecentGames string
	Screenshots string
}

// ResolveFolders applies the configured overrides on top of the default
// layout under the base directory.
func (c *Config) ResolveFolders() (Folders, error) {
	f := Folders{
		SaveStates:  c.Folders.SaveStates,
		RecentGames: c.Folders.RecentGames,
		Screenshots: c.Folders.Screenshots,
	}
	if f.SaveStates != "" && f.RecentGames != "" && f.Screenshots != "" {
		return f, nil
	}

	baseDir, err := GetBaseDir()
	if err != nil {
		return Folders{}, err
	}
	if f.SaveStates == "" {
		f.SaveStates = filepath.Join(baseDir, saveStatesDir)
	}
	if f.RecentGames == "" {
		f.RecentGames = filepath.Join(baseDir, recentGamesDir)
	}
	if f.Screenshots == "" {
		f.Screenshots = filepath.Join(baseDir, screenshotDir)
	}
	return f, nil
}

// EnsureDirectories creates every folder of the layout
func EnsureDirectories(f Folders) error {
	for _, dir := range []string{f.SaveStates, f.RecentGames, f.Screenshots} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// AtomicWriteYAML writes data to a YAML file atomically.
// It writes to a temporary file first, then renames to the target path.
func AtomicWriteYAML(path string, data any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, yamlData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Rename temp file to target (atomic on most filesystems)
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
