package savestate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	emucore "github.com/user-none/savestates/api"
	"github.com/user-none/savestates/notify"
)

// DefaultExtension is the file extension of slot files.
const DefaultExtension = "mst"

// Options configures a Manager. Machine and Folder are required; the rest
// may be left nil.
type Options struct {
	Machine  emucore.StateMachine
	Pauser   emucore.Pauser
	Loader   emucore.ROMLoader
	Notifier notify.Notifier
	Debugger emucore.DebugHook
	Movies   emucore.MovieStopper
	Logger   hclog.Logger
	Metrics  *Metrics

	// Folder holds the slot files.
	Folder string
	// Extension of slot files, DefaultExtension when empty.
	Extension string
	// WriterVersion stamped into states, CurrentVersion when zero.
	WriterVersion uint32
}

// Manager handles save state operations
type Manager struct {
	codec     *Codec
	identity  *IdentityResolver
	machine   emucore.StateMachine
	pauser    emucore.Pauser
	notifier  notify.Notifier
	debugger  emucore.DebugHook
	movies    emucore.MovieStopper
	logger    hclog.Logger
	metrics   *Metrics
	folder    string
	extension string
}

// NewManager creates a new save state manager
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("savestate")

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}

	ext := strings.TrimPrefix(opts.Extension, ".")
	if ext == "" {
		ext = DefaultExtension
	}

	return &Manager{
		codec:     NewCodec(opts.WriterVersion),
		identity:  NewIdentityResolver(opts.Loader, logger),
		machine:   opts.Machine,
		pauser:    opts.Pauser,
		notifier:  notifier,
		debugger:  opts.Debugger,
		movies:    opts.Movies,
		logger:    logger,
		metrics:   opts.Metrics,
		folder:    opts.Folder,
		extension: ext,
	}
}

// Codec returns the codec used for every state this manager writes.
func (m *Manager) Codec() *Codec {
	return m.codec
}

// Extension returns the slot file extension, without the dot.
func (m *Manager) Extension() string {
	return m.extension
}

// SlotPath returns <folder>/<rom base name>_<slot>.<ext>.
func SlotPath(folder, romName string, slot int, ext string) string {
	return filepath.Join(folder, RomBaseName(romName)+"_"+strconv.Itoa(slot)+"."+ext)
}

// RomBaseName strips directories and the extension from a ROM name.
func RomBaseName(romName string) string {
	base := filepath.Base(strings.ReplaceAll(romName, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StatePath returns the slot file of the loaded ROM.
func (m *Manager) StatePath(slot int) string {
	return SlotPath(m.folder, m.machine.Identity().RomName, slot, m.extension)
}

// SlotTimestamp returns the modification time of a slot file, and false
// when the slot is empty.
func (m *Manager) SlotTimestamp(slot int) (time.Time, bool) {
	info, err := os.Stat(m.StatePath(slot))
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Save writes the current state to slot and announces it.
func (m *Manager) Save(slot int) bool {
	if !m.SaveQuiet(slot) {
		return false
	}
	m.notifier.Notify(notify.StateSaved, strconv.Itoa(slot))
	return true
}

// SaveQuiet writes the current state to slot without a notification.
func (m *Manager) SaveQuiet(slot int) bool {
	if !ValidSlot(slot) {
		m.logger.Warn("invalid save slot", "slot", slot)
		return false
	}
	return m.SaveToFile(m.StatePath(slot)) == nil
}

// SaveCurrent saves to the slot selected in t.
func (m *Manager) SaveCurrent(t *SlotTracker) bool {
	return m.Save(t.Current())
}

// SaveToFile writes the current state to path. The file is replaced
// atomically so a failed save never clobbers an older state.
func (m *Manager) SaveToFile(path string) (err error) {
	defer func() { m.metrics.observeSave(err) }()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		m.logger.Warn("failed to create save directory", "path", path, "error", err)
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	tempFile := path + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		m.logger.Warn("failed to create state file", "path", path, "error", err)
		return fmt.Errorf("failed to create state file: %w", err)
	}

	release := acquire(m.pauser)
	defer release()

	w := bufio.NewWriter(f)
	werr := m.codec.Write(w, m.machine.Identity(), m.machine.SaveState)
	if werr == nil {
		werr = w.Flush()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tempFile, path)
	}
	if werr != nil {
		os.Remove(tempFile)
		m.logger.Warn("save state failed", "path", path, "error", werr)
		return werr
	}

	if m.debugger != nil {
		m.debugger.ProcessEvent(emucore.DebugStateSaved)
	}
	m.logger.Debug("state saved", "path", path)
	return nil
}

// Load restores the state in slot. Slot files always belong to the
// loaded ROM by name, so the hash check is lenient.
func (m *Manager) Load(slot int) bool {
	if !ValidSlot(slot) {
		m.logger.Warn("invalid save slot", "slot", slot)
		return false
	}
	if err := m.LoadFromFile(m.StatePath(slot), false); err != nil {
		return false
	}
	m.notifier.Notify(notify.StateLoaded, strconv.Itoa(slot))
	return true
}

// LoadCurrent loads the slot selected in t.
func (m *Manager) LoadCurrent(t *SlotTracker) bool {
	return m.Load(t.Current())
}

// LoadFromFile restores the state stored at path. Failures are reported
// to the notifier and returned.
func (m *Manager) LoadFromFile(path string, hashCheckRequired bool) error {
	f, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrEmptySaveState, err)
		m.report(err)
		return err
	}
	defer f.Close()

	release := acquire(m.pauser)
	defer release()

	if err := m.LoadStream(bufio.NewReader(f), hashCheckRequired); err != nil {
		return err
	}

	if m.debugger != nil {
		m.debugger.ProcessEvent(emucore.DebugStateLoaded)
	}
	return nil
}

// LoadStream restores a state from r. The caller holds the pause bracket.
// Failures are reported to the notifier and returned.
func (m *Manager) LoadStream(r io.Reader, hashCheckRequired bool) error {
	h, err := m.codec.Read(r, m.machine.Identity(), hashCheckRequired, m.identity.Resolve, m.restore)
	if err != nil {
		m.report(err)
		return err
	}
	m.metrics.observeLoad(nil)
	m.logger.Debug("state loaded", "format", h.FormatVersion, "rom", h.RomName)
	return nil
}

// restore replays the payload. A movie cannot survive a state load, so it
// is stopped first.
func (m *Manager) restore(r io.Reader, formatVersion uint32) error {
	if m.movies != nil {
		m.movies.Stop()
	}
	return m.machine.LoadState(r, formatVersion)
}

func (m *Manager) report(err error) {
	m.metrics.observeLoad(err)
	event, result := classify(err)
	m.logger.Warn("load state failed", "result", result, "error", err)
	if result == resultError {
		// Payload failures belong to the machine, not the file
		return
	}

	var missing *MissingROMError
	if event == notify.MissingROM && errors.As(err, &missing) {
		m.notifier.Notify(event, missing.Name)
		return
	}
	m.notifier.Notify(event)
}

// acquire pauses the machine and returns the function that resumes it.
func acquire(p emucore.Pauser) (release func()) {
	if p == nil {
		return func() {}
	}
	p.Pause()
	return p.Resume
}
