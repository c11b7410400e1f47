package main

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/user-none/savestates/savestate"
	"github.com/user-none/savestates/screenshot"
)

// NES output resolution, used for the blank frame of archives packed
// without a screenshot
const (
	screenWidth  = 256
	screenHeight = 240
)

// ResumeCommand returns the resume command.
func ResumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "resume",
		Usage: "Resume archive management",
		Subcommands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Show the ROM and state stored in a resume archive",
				ArgsUsage: "ARCHIVE",
				Action:    resumeInfo,
			},
			{
				Name:      "screenshot",
				Usage:     "Extract the screenshot of a resume archive",
				ArgsUsage: "ARCHIVE OUT.png",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "width",
						Usage: "Scale the image down to this width",
					},
				},
				Action: resumeScreenshot,
			},
			{
				Name:      "check",
				Usage:     "Load the ROM and state of a resume archive",
				ArgsUsage: "ARCHIVE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Only load the ROM, as a game reset would",
					},
				},
				Action: resumeCheck,
			},
			{
				Name:      "pack",
				Usage:     "Build a resume archive from a save state and its ROM",
				ArgsUsage: "STATE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "rom",
						Usage:    "ROM the state belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "patch",
						Usage: "IPS patch applied to the ROM",
					},
					&cli.StringFlag{
						Name:  "screenshot",
						Usage: "PNG stored as the archive screenshot",
					},
				},
				Action: resumePack,
			},
		},
	}
}

func resumeInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("resume info requires an archive")
	}
	path := c.Args().First()
	s := getSession(c)

	a, err := savestate.OpenResumeArchive(path, s.config.SaveState.Extension)
	if err != nil {
		return err
	}
	h, err := savestate.DecodeHeader(bytes.NewReader(a.State), ^uint32(0))
	if err != nil {
		return fmt.Errorf("state entry: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "ROM:        %s\n", a.Info.RomName)
	fmt.Fprintf(w, "Path:       %s\n", a.Info.RomPath)
	if a.Info.PatchPath != "" {
		fmt.Fprintf(w, "Patch:      %s\n", a.Info.PatchPath)
	}
	fmt.Fprintf(w, "Writer:     %s\n", savestate.FormatWriterVersion(h.WriterVersion))
	fmt.Fprintf(w, "Format:     %d\n", h.FormatVersion)
	fmt.Fprintf(w, "Mapper:     %s\n", formatMapper(h.MapperID, h.SubMapperID))
	fmt.Fprintf(w, "SHA1:       %s\n", h.SHA1)
	fmt.Fprintf(w, "Screenshot: %d bytes\n", len(a.Screenshot))
	return nil
}

func resumeScreenshot(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("resume screenshot requires an archive and an output file")
	}
	path, out := c.Args().Get(0), c.Args().Get(1)
	s := getSession(c)

	a, err := savestate.OpenResumeArchive(path, s.config.SaveState.Extension)
	if err != nil {
		return err
	}
	if len(a.Screenshot) == 0 {
		return fmt.Errorf("%s has no screenshot", path)
	}

	data := a.Screenshot
	if width := c.Int("width"); width > 0 {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to decode screenshot: %w", err)
		}
		if img.Bounds().Dx() > width {
			var buf bytes.Buffer
			if err := png.Encode(&buf, screenshot.Scale(img, width)); err != nil {
				return fmt.Errorf("failed to encode screenshot: %w", err)
			}
			data = buf.Bytes()
		}
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}
	s.logger.Debug("screenshot extracted", "archive", path, "out", out)
	return nil
}

func resumeCheck(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("resume check requires an archive")
	}
	path := c.Args().First()
	s := getSession(c)

	folders, err := s.folders()
	if err != nil {
		return err
	}
	t := newStateTool(s, folders.SaveStates)
	defer t.close()

	rm := savestate.NewResumeManager(savestate.ResumeOptions{
		States: t.states,
		Loader: t.loader,
		Pauser: t.control,
		Logger: s.logger,
		Folder: folders.RecentGames,
	})
	if err := rm.Resume(path, c.Bool("reset")); err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "ROM:     %s\n", t.machine.Identity().RomName)
	if c.Bool("reset") {
		return nil
	}
	payload, format := t.machine.Payload()
	fmt.Fprintf(w, "OK:      format %d, %d byte payload\n", format, len(payload))
	return nil
}

func resumePack(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("resume pack requires a state file")
	}
	statePath := c.Args().First()
	romPath, patchPath := c.String("rom"), c.String("patch")
	s := getSession(c)

	folders, err := s.folders()
	if err != nil {
		return err
	}

	fb, err := loadFrame(c.String("screenshot"))
	if err != nil {
		return err
	}

	t := newStateTool(s, folders.SaveStates)
	defer t.close()

	if err := t.loader.LoadROMFile(romPath, patchPath); err != nil {
		return fmt.Errorf("load ROM: %w", err)
	}
	if err := t.states.LoadFromFile(statePath, false); err != nil {
		return err
	}
	if _, format := t.machine.Payload(); format != savestate.FormatVersion {
		return fmt.Errorf("cannot pack a format %d state, only format %d", format, savestate.FormatVersion)
	}

	rm := savestate.NewResumeManager(savestate.ResumeOptions{
		States:                     t.states,
		Video:                      screenshot.NewCapturer(fb, s.config.Resume.ScreenshotWidth),
		Loader:                     t.loader,
		Pauser:                     t.control,
		Logger:                     s.logger,
		Folder:                     folders.RecentGames,
		ConsoleMode:                s.config.Emulation.ConsoleMode,
		DisableGameSelectionScreen: s.config.Emulation.DisableGameSelectionScreen,
	})

	absROM, err := filepath.Abs(romPath)
	if err != nil {
		return err
	}
	if patchPath != "" {
		if patchPath, err = filepath.Abs(patchPath); err != nil {
			return err
		}
	}
	built, err := rm.Build(t.machine.Identity().RomName, absROM, patchPath)
	if err != nil {
		return err
	}
	if !built {
		fmt.Fprintln(c.App.Writer, "Skipped: resume archives are disabled for this ROM or session")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Saved:   %s\n", rm.ArchivePath())
	return nil
}

// loadFrame fills a framebuffer from a PNG file, or with a blank frame
// when path is empty.
func loadFrame(path string) (*screenshot.Framebuffer, error) {
	if path == "" {
		fb := screenshot.NewFramebuffer(screenWidth, screenHeight)
		fb.Update(make([]byte, screenWidth*screenHeight*4), screenWidth*4, screenHeight)
		return fb, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	fb := screenshot.NewFramebuffer(bounds.Dx(), bounds.Dy())
	fb.Update(rgba.Pix, rgba.Stride, bounds.Dy())
	return fb, nil
}
