package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/user-none/savestates/emuthread"
	"github.com/user-none/savestates/notify"
	"github.com/user-none/savestates/romloader"
	"github.com/user-none/savestates/savestate"
)

// stateTool wires a save state manager around the stand-in machine.
type stateTool struct {
	machine  *fileMachine
	loader   *romloader.Loader
	control  *emuthread.Control
	notes    *notify.Notification
	registry *prometheus.Registry
	states   *savestate.Manager
	logger   hclog.Logger
}

func newStateTool(s *session, folder string) *stateTool {
	t := &stateTool{
		machine:  &fileMachine{},
		control:  emuthread.NewControl(s.logger),
		notes:    notify.NewNotification(s.logger),
		registry: prometheus.NewRegistry(),
		logger:   s.logger,
	}
	finder := &romloader.Finder{
		Dirs:      s.config.Folders.Roms,
		Recursive: s.config.Folders.RecursiveRoms,
		Logger:    s.logger,
	}
	t.loader = romloader.NewLoader(finder, t.machine.boot, s.logger)
	t.states = savestate.NewManager(savestate.Options{
		Machine:   t.machine,
		Pauser:    t.control,
		Loader:    t.loader,
		Notifier:  t.notes,
		Logger:    s.logger,
		Metrics:   savestate.NewMetrics(t.registry),
		Folder:    folder,
		Extension: s.config.SaveState.Extension,
	})
	return t
}

// close ends the session and logs the counters it collected.
func (t *stateTool) close() {
	t.control.Stop()
	logMetrics(t.logger, t.registry)
}

// logMetrics writes every counter of g to the debug log.
func logMetrics(logger hclog.Logger, g prometheus.Gatherer) {
	if !logger.IsDebug() {
		return
	}
	families, err := g.Gather()
	if err != nil {
		logger.Debug("failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			args := []any{"name", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				args = append(args, lp.GetName(), lp.GetValue())
			}
			logger.Debug("metric", args...)
		}
	}
}

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the header of a save state file",
		ArgsUsage: "FILE",
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("inspect requires a state file")
	}
	path := c.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	// Any writer version is shown, newer releases are only flagged
	h, err := savestate.DecodeHeader(r, ^uint32(0))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	payload, err := io.Copy(io.Discard, r)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	w := c.App.Writer
	writer := savestate.FormatWriterVersion(h.WriterVersion)
	if h.WriterVersion > savestate.CurrentVersion {
		writer += " (newer than this release)"
	}
	fmt.Fprintf(w, "File:    %s\n", path)
	fmt.Fprintf(w, "Writer:  %s\n", writer)
	fmt.Fprintf(w, "Format:  %d\n", h.FormatVersion)
	fmt.Fprintf(w, "Mapper:  %s\n", formatMapper(h.MapperID, h.SubMapperID))
	if h.HasIdentity {
		fmt.Fprintf(w, "ROM:     %s\n", h.RomName)
		fmt.Fprintf(w, "SHA1:    %s\n", h.SHA1)
	} else {
		fmt.Fprintf(w, "ROM:     -\n")
	}
	fmt.Fprintf(w, "Payload: %d bytes\n", payload)
	return nil
}

func formatMapper(mapper, sub int) string {
	if mapper < 0 {
		return "-"
	}
	if sub < 0 {
		return strconv.Itoa(mapper)
	}
	return fmt.Sprintf("%d/%d", mapper, sub)
}

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check that a save state can be loaded, locating its ROM if needed",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rom",
				Usage: "ROM to load before the state",
			},
			&cli.StringFlag{
				Name:  "patch",
				Usage: "IPS patch applied to --rom",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Require the state to match the ROM hash",
			},
			&cli.IntFlag{
				Name:  "slot",
				Usage: "Copy the state into this slot of the loaded ROM",
			},
		},
		Action: verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("verify requires a state file")
	}
	path := c.Args().First()
	s := getSession(c)

	folders, err := s.folders()
	if err != nil {
		return err
	}
	t := newStateTool(s, folders.SaveStates)
	defer t.close()

	if rom := c.String("rom"); rom != "" {
		if err := t.loader.LoadROMFile(rom, c.String("patch")); err != nil {
			return fmt.Errorf("load ROM: %w", err)
		}
	} else if c.IsSet("patch") {
		return fmt.Errorf("--patch requires --rom")
	}
	before := t.machine.Identity()

	if err := t.states.LoadFromFile(path, c.Bool("strict")); err != nil {
		if _, msg := t.notes.Last(); msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}

	w := c.App.Writer
	payload, format := t.machine.Payload()
	after := t.machine.Identity()
	if after.SHA1 != before.SHA1 {
		fmt.Fprintf(w, "ROM:     %s (found by hash)\n", after.RomName)
	} else if after.Loaded() {
		fmt.Fprintf(w, "ROM:     %s\n", after.RomName)
	}
	fmt.Fprintf(w, "OK:      format %d, %d byte payload\n", format, len(payload))

	if !c.IsSet("slot") {
		return nil
	}
	return copyToSlot(c, t, c.Int("slot"))
}

// copyToSlot writes the restored state into a slot of the loaded ROM.
// The payload is copied verbatim, so only current format states qualify.
func copyToSlot(c *cli.Context, t *stateTool, slot int) error {
	if !savestate.ValidSlot(slot) {
		return fmt.Errorf("invalid slot %d (valid: 1-%d)", slot, savestate.MaxSlots)
	}
	if !t.machine.Identity().Loaded() {
		return errors.New("--slot requires a ROM, pass --rom or configure folders.roms")
	}
	if _, format := t.machine.Payload(); format != savestate.FormatVersion {
		return fmt.Errorf("cannot copy a format %d state, only format %d", format, savestate.FormatVersion)
	}
	if !t.states.Save(slot) {
		return fmt.Errorf("failed to save slot %d", slot)
	}
	fmt.Fprintf(c.App.Writer, "Saved:   %s\n", t.states.StatePath(slot))
	return nil
}
