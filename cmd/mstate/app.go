package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	"github.com/user-none/savestates/savestate"
	"github.com/user-none/savestates/storage"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const metaSession = "session"

// session is the state shared by every command, set up in the Before hook.
type session struct {
	configPath string
	config     *storage.Config
	logger     hclog.Logger
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     "mstate",
		Usage:    "Inspect and manage emulator save states",
		Version:  fmt.Sprintf("%s (commit: %s, state writer: %s)", Version, Commit, savestate.FormatWriterVersion(savestate.CurrentVersion)),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			InspectCommand(),
			VerifyCommand(),
			SlotsCommand(),
			ResumeCommand(),
			RecentCommand(),
			ConfigCommand(),
		},
		Before: setup,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config.yaml (default: data directory)",
			EnvVars: []string{"MSTATE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: trace, debug, info, warn, error (overrides log.level)",
		},
	}
}

func setup(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		p, err := storage.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	config, err := storage.LoadConfig(path)
	if err != nil {
		return err
	}
	problems := storage.ValidateConfig(config)
	config = storage.CorrectConfig(config)

	level := config.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
		if !slices.Contains(storage.LogLevels, level) {
			return fmt.Errorf("invalid log level %q (valid: %v)", level, storage.LogLevels)
		}
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "mstate",
		Level:  hclog.LevelFromString(level),
		Output: c.App.ErrWriter,
	})
	for _, p := range problems {
		logger.Warn("invalid config value reset to default", "field", p)
	}

	c.App.Metadata[metaSession] = &session{
		configPath: path,
		config:     config,
		logger:     logger,
	}
	return nil
}

// getSession retrieves the session from context.
func getSession(c *cli.Context) *session {
	if s, ok := c.App.Metadata[metaSession].(*session); ok {
		return s
	}
	return &session{
		config: storage.DefaultConfig(),
		logger: hclog.NewNullLogger(),
	}
}

// folders resolves the data folders of the session.
func (s *session) folders() (storage.Folders, error) {
	return s.config.ResolveFolders()
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
