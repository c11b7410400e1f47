package romloader

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// BootFunc starts the machine with rom.
type BootFunc func(rom *ROM) error

// Loader resolves ROMs from disk and hands them to the machine. It
// satisfies emucore.ROMLoader.
type Loader struct {
	finder *Finder
	boot   BootFunc
	logger hclog.Logger
}

// NewLoader creates a loader that searches with finder and boots the
// result with boot
func NewLoader(finder *Finder, boot BootFunc, logger hclog.Logger) *Loader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if finder == nil {
		finder = &Finder{}
	}
	return &Loader{finder: finder, boot: boot, logger: logger.Named("romloader")}
}

// LoadROMByIdentity boots the ROM named name whose SHA-1 is sha1.
func (l *Loader) LoadROMByIdentity(name, sha1 string) error {
	rom, err := l.finder.Find(name, sha1)
	if err != nil {
		return err
	}
	l.logger.Info("loading matching ROM", "name", name, "path", rom.Path)
	return l.boot(rom)
}

// LoadROMFile boots the ROM at path, applying the IPS patch at patchPath
// when it is not empty.
func (l *Loader) LoadROMFile(path, patchPath string) error {
	rom, err := Load(path, l.finder.Extensions)
	if err != nil {
		return err
	}

	if patchPath != "" {
		patch, err := os.ReadFile(patchPath)
		if err != nil {
			return fmt.Errorf("failed to read patch: %w", err)
		}
		data, err := ApplyIPS(rom.Data, patch)
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", patchPath, err)
		}
		rom.Data = data
		rom.SHA1 = SHA1Hex(data)
	}

	l.logger.Info("loading ROM", "path", path, "patch", patchPath)
	return l.boot(rom)
}
