package savestate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// SlotWatcher reports changes to the slot files of one ROM, so slot
// indicators can be refreshed without polling.
type SlotWatcher struct {
	watcher  *fsnotify.Watcher
	base     string
	ext      string
	onChange func(slot int)
	logger   hclog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// WatchSlots starts watching folder for slot files of romName. onChange
// runs on the watcher goroutine each time a slot file is created,
// rewritten or removed.
func WatchSlots(folder, romName, ext string, logger hclog.Logger, onChange func(slot int)) (*SlotWatcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(folder); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", folder, err)
	}

	sw := &SlotWatcher{
		watcher:  watcher,
		base:     RomBaseName(romName),
		ext:      strings.TrimPrefix(ext, "."),
		onChange: onChange,
		logger:   logger.Named("slotwatch"),
		done:     make(chan struct{}),
	}
	go sw.run()
	return sw, nil
}

func (sw *SlotWatcher) run() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			slot, ok := ParseSlotFile(filepath.Base(event.Name), sw.base, sw.ext)
			if !ok {
				continue
			}
			sw.logger.Trace("slot changed", "slot", slot, "op", event.Op.String())
			sw.onChange(slot)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("slot watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (sw *SlotWatcher) Close() error {
	var err error
	sw.closeOnce.Do(func() {
		close(sw.done)
		err = sw.watcher.Close()
	})
	return err
}

// ParseSlotFile extracts the slot index from a slot file name of the ROM
// with the given base name.
func ParseSlotFile(name, romBase, ext string) (int, bool) {
	prefix := romBase + "_"
	suffix := "." + ext
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	n := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	slot, err := strconv.Atoi(n)
	if err != nil || !ValidSlot(slot) {
		return 0, false
	}
	return slot, true
}
