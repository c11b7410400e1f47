package savestate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/zip"
	emucore "github.com/user-none/savestates/api"
)

// Resume archive entries
const (
	ResumeExtension = "rgd"

	entryScreenshot = "Screenshot.png"
	entryRomInfo    = "RomInfo.txt"
	entryStatePfx   = "Savestate."

	// Upper bound for any single entry once decompressed
	maxEntrySize = 32 * 1024 * 1024
)

// ErrIncompleteArchive is returned when a resume archive lacks one of its
// entries.
var ErrIncompleteArchive = errors.New("resume archive is incomplete")

// RomInfo is the ROM descriptor stored in a resume archive.
type RomInfo struct {
	RomName   string
	RomPath   string
	PatchPath string
}

// MarshalText renders the descriptor as three newline terminated lines.
func (ri RomInfo) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	for _, line := range []string{ri.RomName, ri.RomPath, ri.PatchPath} {
		if strings.ContainsAny(line, "\r\n") {
			return nil, fmt.Errorf("rom info field %q contains a line break", line)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// UnmarshalText parses a descriptor. Missing lines leave fields empty.
func (ri *RomInfo) UnmarshalText(data []byte) error {
	var lines [3]string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for i := 0; i < len(lines) && sc.Scan(); i++ {
		lines[i] = strings.TrimRight(sc.Text(), "\r")
	}
	if err := sc.Err(); err != nil {
		return err
	}
	ri.RomName, ri.RomPath, ri.PatchPath = lines[0], lines[1], lines[2]
	return nil
}

// ResumeArchive is the decoded content of a resume archive.
type ResumeArchive struct {
	Screenshot []byte
	State      []byte
	Info       RomInfo
}

// OpenResumeArchive reads all entries of the archive at path. ext is the
// save state extension used for the state entry.
func OpenResumeArchive(path, ext string) (*ResumeArchive, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open resume archive: %w", err)
	}
	defer r.Close()

	entries := map[string][]byte{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		entries[f.Name] = data
	}

	a := &ResumeArchive{
		Screenshot: entries[entryScreenshot],
		State:      entries[entryStatePfx+ext],
	}
	info, ok := entries[entryRomInfo]
	if !ok || a.State == nil {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteArchive, path)
	}
	if err := a.Info.UnmarshalText(info); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", entryRomInfo, err)
	}
	return a, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return data, nil
}

// WriteResumeArchive commits all entries of a to path in one rename.
func WriteResumeArchive(path, ext string, a *ResumeArchive) error {
	info, err := a.Info.MarshalText()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := path + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create resume archive: %w", err)
	}

	zw := zip.NewWriter(f)
	werr := func() error {
		for _, e := range []struct {
			name string
			data []byte
		}{
			{entryScreenshot, a.Screenshot},
			{entryStatePfx + ext, a.State},
			{entryRomInfo, info},
		} {
			w, err := zw.Create(e.name)
			if err != nil {
				return fmt.Errorf("failed to create %s in archive: %w", e.name, err)
			}
			if _, err := w.Write(e.data); err != nil {
				return fmt.Errorf("failed to write %s: %w", e.name, err)
			}
		}
		return zw.Close()
	}()
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tempFile, path)
	}
	if werr != nil {
		os.Remove(tempFile)
		return werr
	}
	return nil
}

// ResumeOptions configures a ResumeManager.
type ResumeOptions struct {
	States *Manager
	Video  emucore.Screenshotter
	Loader emucore.ROMLoader
	Pauser emucore.Pauser
	Logger hclog.Logger

	// Folder holds the resume archives.
	Folder string

	// Either flag disables building archives.
	ConsoleMode                bool
	DisableGameSelectionScreen bool
}

// ResumeManager builds and replays resume archives.
type ResumeManager struct {
	states   *Manager
	video    emucore.Screenshotter
	loader   emucore.ROMLoader
	pauser   emucore.Pauser
	logger   hclog.Logger
	folder   string
	disabled bool
}

// NewResumeManager creates a resume manager on top of a slot manager,
// sharing its codec and machine.
func NewResumeManager(opts ResumeOptions) *ResumeManager {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ResumeManager{
		states:   opts.States,
		video:    opts.Video,
		loader:   opts.Loader,
		pauser:   opts.Pauser,
		logger:   logger.Named("resume"),
		folder:   opts.Folder,
		disabled: opts.ConsoleMode || opts.DisableGameSelectionScreen,
	}
}

// ArchivePath returns <folder>/<rom base name>.rgd for the loaded ROM.
func (m *ResumeManager) ArchivePath() string {
	name := m.states.machine.Identity().RomName
	return filepath.Join(m.folder, RomBaseName(name)+"."+ResumeExtension)
}

// Build captures the running session into a resume archive. It returns
// false without error when resume archives are disabled or the loaded
// title cannot be resumed.
func (m *ResumeManager) Build(romName, romPath, patchPath string) (built bool, err error) {
	id := m.states.machine.Identity()
	if m.disabled || !id.Format.Resumable() {
		m.logger.Debug("resume archive skipped", "rom", romName, "format", id.Format)
		return false, nil
	}
	defer func() { m.states.metrics.observeResume("build", err) }()

	// Screenshot and state come from the same paused frame
	release := acquire(m.pauser)
	defer release()

	var shot bytes.Buffer
	if m.video != nil {
		if err := m.video.Screenshot(&shot); err != nil {
			return false, fmt.Errorf("failed to capture screenshot: %w", err)
		}
	}

	var state bytes.Buffer
	if err := m.states.codec.Write(&state, id, m.states.machine.SaveState); err != nil {
		return false, err
	}

	path := m.ArchivePath()
	a := &ResumeArchive{
		Screenshot: shot.Bytes(),
		State:      state.Bytes(),
		Info:       RomInfo{RomName: romName, RomPath: romPath, PatchPath: patchPath},
	}
	if err := WriteResumeArchive(path, m.states.extension, a); err != nil {
		m.logger.Warn("failed to write resume archive", "path", path, "error", err)
		return false, err
	}

	m.logger.Debug("resume archive written", "path", path)
	return true, nil
}

// Resume loads the ROM described by the archive at archivePath and, unless
// resetGame is set, replays the bundled state. A ROM that fails to load
// stops the session.
func (m *ResumeManager) Resume(archivePath string, resetGame bool) (err error) {
	defer func() { m.states.metrics.observeResume("resume", err) }()

	a, err := OpenResumeArchive(archivePath, m.states.extension)
	if err != nil {
		m.logger.Warn("failed to open resume archive", "path", archivePath, "error", err)
		return err
	}

	release := acquire(m.pauser)
	defer release()

	if err := m.loadROM(a.Info); err != nil {
		m.logger.Error("resume failed, stopping session", "rom", a.Info.RomPath, "error", err)
		if m.pauser != nil {
			m.pauser.Stop()
		}
		return err
	}

	if resetGame {
		return nil
	}
	return m.states.LoadStream(bytes.NewReader(a.State), false)
}

// loadROM treats a panic inside the loader as a load failure.
func (m *ResumeManager) loadROM(info RomInfo) (err error) {
	if m.loader == nil {
		return fmt.Errorf("no ROM loader for %s", info.RomPath)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ROM loader panicked: %v", r)
		}
	}()
	if err := m.loader.LoadROMFile(info.RomPath, info.PatchPath); err != nil {
		return fmt.Errorf("failed to load ROM %s: %w", info.RomPath, err)
	}
	return nil
}

// RecentGame is a resume archive found on disk.
type RecentGame struct {
	Path    string
	Name    string
	ModTime time.Time
}

// RecentGames lists the resume archives in the folder, newest first.
func (m *ResumeManager) RecentGames() ([]RecentGame, error) {
	return ListRecentGames(m.folder)
}

// ListRecentGames lists the resume archives in folder, newest first. A
// missing folder yields no games.
func ListRecentGames(folder string) ([]RecentGame, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var games []RecentGame
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), "."+ResumeExtension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		games = append(games, RecentGame{
			Path:    filepath.Join(folder, e.Name()),
			Name:    RomBaseName(e.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(games, func(i, j int) bool {
		if !games[i].ModTime.Equal(games[j].ModTime) {
			return games[i].ModTime.After(games[j].ModTime)
		}
		return games[i].Name < games[j].Name
	})
	return games, nil
}
