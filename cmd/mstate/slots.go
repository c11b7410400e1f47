package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/user-none/savestates/savestate"
)

const timeLayout = "2006-01-02 15:04:05"

// SlotsCommand returns the slots command.
func SlotsCommand() *cli.Command {
	return &cli.Command{
		Name:      "slots",
		Usage:     "List the save slots of a ROM",
		ArgsUsage: "ROM",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep running and report slot changes",
			},
		},
		Action: slotsAction,
	}
}

func slotsAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("slots requires a ROM name")
	}
	romName := c.Args().First()
	s := getSession(c)

	folders, err := s.folders()
	if err != nil {
		return err
	}
	ext := s.config.SaveState.Extension

	w := c.App.Writer
	for slot := 1; slot <= savestate.MaxSlots; slot++ {
		fmt.Fprintf(w, "%2d  %s\n", slot, slotStatus(savestate.SlotPath(folders.SaveStates, romName, slot, ext)))
	}

	if !c.Bool("watch") {
		return nil
	}

	changes := make(chan int, savestate.MaxSlots)
	sw, err := savestate.WatchSlots(folders.SaveStates, romName, ext, s.logger, func(slot int) {
		select {
		case changes <- slot:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sw.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case slot := <-changes:
			fmt.Fprintf(w, "%2d  %s\n", slot, slotStatus(savestate.SlotPath(folders.SaveStates, romName, slot, ext)))
		}
	}
}

func slotStatus(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "empty"
	}
	return info.ModTime().Format(timeLayout)
}

// RecentCommand returns the recent command.
func RecentCommand() *cli.Command {
	return &cli.Command{
		Name:   "recent",
		Usage:  "List resume archives, newest first",
		Action: recentAction,
	}
}

func recentAction(c *cli.Context) error {
	s := getSession(c)
	folders, err := s.folders()
	if err != nil {
		return err
	}

	games, err := savestate.ListRecentGames(folders.RecentGames)
	if err != nil {
		return err
	}
	w := c.App.Writer
	if len(games) == 0 {
		fmt.Fprintln(w, "No recent games")
		return nil
	}

	width := 0
	for _, g := range games {
		width = max(width, len(g.Name))
	}
	for _, g := range games {
		fmt.Fprintf(w, "%s  %s%s  %s\n", g.ModTime.Local().Format(timeLayout), g.Name,
			strings.Repeat(" ", width-len(g.Name)), g.Path)
	}
	return nil
}

