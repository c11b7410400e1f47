package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/user-none/savestates/storage"
)

// ConfigCommand returns the config command.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: configValidate,
			},
			{
				Name:   "init",
				Usage:  "Write the default configuration if none exists",
				Action: configInit,
			},
			{
				Name:   "paths",
				Usage:  "Show the resolved data folders",
				Action: configPaths,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	s := getSession(c)
	data, err := yaml.Marshal(s.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "# %s\n%s", s.configPath, data)
	return nil
}

func configValidate(c *cli.Context) error {
	s := getSession(c)
	// The session copy has already been corrected
	config, err := storage.LoadConfig(s.configPath)
	if err != nil {
		return err
	}
	if problems := storage.ValidateConfig(config); len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	fmt.Fprintln(c.App.Writer, "Configuration is valid")
	return nil
}

func configInit(c *cli.Context) error {
	s := getSession(c)
	if err := storage.CreateConfigIfMissing(s.configPath); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Config: %s\n", s.configPath)
	return nil
}

func configPaths(c *cli.Context) error {
	s := getSession(c)
	folders, err := s.folders()
	if err != nil {
		return err
	}
	if err := storage.EnsureDirectories(folders); err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "Config:      %s\n", s.configPath)
	fmt.Fprintf(w, "SaveStates:  %s\n", folders.SaveStates)
	fmt.Fprintf(w, "RecentGames: %s\n", folders.RecentGames)
	fmt.Fprintf(w, "Screenshots: %s\n", folders.Screenshots)
	for _, dir := range s.config.Folders.Roms {
		fmt.Fprintf(w, "Roms:        %s\n", dir)
	}
	return nil
}
