package savestate

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	emucore "github.com/user-none/savestates/api"
)

// Compatible reports whether a state written for the given hash and
// mapper ids can be replayed on the current machine. A differing hash is
// tolerated only when strict is off, no ROM is loaded and both mapper ids
// match.
func Compatible(current emucore.RomIdentity, sha1 string, mapperID, subMapperID int, strict bool) bool {
	if strings.EqualFold(current.SHA1, sha1) {
		return true
	}
	// With nothing loaded, matching mapper ids are enough
	return !strict &&
		!current.Loaded() &&
		current.MapperID == mapperID &&
		current.SubMapperID == subMapperID
}

// IdentityResolver matches save states to ROMs and loads the right ROM
// when they differ.
type IdentityResolver struct {
	loader emucore.ROMLoader
	logger hclog.Logger
}

// NewIdentityResolver creates a resolver backed by loader. A nil loader
// never finds anything.
func NewIdentityResolver(loader emucore.ROMLoader, logger hclog.Logger) *IdentityResolver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &IdentityResolver{
		loader: loader,
		logger: logger,
	}
}

// Compatible is the method form of the package-level Compatible.
func (r *IdentityResolver) Compatible(current emucore.RomIdentity, sha1 string, mapperID, subMapperID int, strict bool) bool {
	return Compatible(current, sha1, mapperID, subMapperID, strict)
}

// Resolve loads the ROM named romName whose SHA-1 is sha1.
func (r *IdentityResolver) Resolve(romName, sha1 string) error {
	if r.loader == nil {
		return fmt.Errorf("%w: %s", ErrROMNotFound, romName)
	}

	r.logger.Debug("resolving ROM for save state", "rom", romName, "sha1", sha1)
	if err := r.loader.LoadROMByIdentity(romName, sha1); err != nil {
		r.logger.Warn("ROM resolution failed", "rom", romName, "sha1", sha1, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrROMNotFound, romName, err)
	}
	return nil
}
