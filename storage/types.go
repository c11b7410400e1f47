package storage

// Config represents the application configuration stored in config.yaml
type Config struct {
	Version   int             `koanf:"version" yaml:"version"`
	Folders   FoldersConfig   `koanf:"folders" yaml:"folders"`
	SaveState SaveStateConfig `koanf:"savestate" yaml:"savestate"`
	Emulation EmulationConfig `koanf:"emulation" yaml:"emulation"`
	Resume    ResumeConfig    `koanf:"resume" yaml:"resume"`
	Log       LogConfig       `koanf:"log" yaml:"log"`
}

// FoldersConfig overrides the data folders. Empty paths resolve under
// the base directory.
type FoldersConfig struct {
	SaveStates    string   `koanf:"savestates" yaml:"savestates"`
	RecentGames   string   `koanf:"recentgames" yaml:"recentgames"`
	Screenshots   string   `koanf:"screenshots" yaml:"screenshots"`
	Roms          []string `koanf:"roms" yaml:"roms"`                   // Searched when a state names another ROM
	RecursiveRoms bool     `koanf:"recursiveroms" yaml:"recursiveroms"` // Descend into ROM subfolders
}

// SaveStateConfig contains slot file settings
type SaveStateConfig struct {
	Extension string `koanf:"extension" yaml:"extension"` // Without the leading dot
}

// EmulationConfig contains the session modes that disable resume archives
type EmulationConfig struct {
	ConsoleMode                bool `koanf:"consolemode" yaml:"consolemode"`
	DisableGameSelectionScreen bool `koanf:"disablegameselectionscreen" yaml:"disablegameselectionscreen"`
}

// ResumeConfig contains resume archive settings
type ResumeConfig struct {
	ScreenshotWidth int `koanf:"screenshotwidth" yaml:"screenshotwidth"` // 0 = native size
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `koanf:"level" yaml:"level"` // trace, debug, info, warn, error
}

// LogLevels lists the accepted log levels
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// MaxScreenshotWidth bounds resume.screenshotwidth
const MaxScreenshotWidth = 1024

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		SaveState: SaveStateConfig{
			Extension: "mst",
		},
		Resume: ResumeConfig{
			ScreenshotWidth: 256,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
