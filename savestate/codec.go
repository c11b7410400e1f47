package savestate

import (
	"fmt"
	"io"

	emucore "github.com/user-none/savestates/api"
)

// PayloadFunc appends the opaque machine state to w.
type PayloadFunc func(w io.Writer) error

// RestoreFunc replays the machine state read from r. formatVersion is the
// layout the state was written with.
type RestoreFunc func(r io.Reader, formatVersion uint32) error

// ResolveFunc finds and loads the ROM a state was written against.
type ResolveFunc func(romName, sha1 string) error

// Codec writes and reads versioned save states.
type Codec struct {
	version uint32
}

// NewCodec creates a codec for a release with the given writer version.
// Zero selects CurrentVersion.
func NewCodec(writerVersion uint32) *Codec {
	if writerVersion == 0 {
		writerVersion = CurrentVersion
	}
	return &Codec{version: writerVersion}
}

// WriterVersion returns the version stamped into written states.
func (c *Codec) WriterVersion() uint32 {
	return c.version
}

// Write emits a header in the newest format for id, then the payload.
func (c *Codec) Write(w io.Writer, id emucore.RomIdentity, payload PayloadFunc) error {
	if _, err := w.Write(encodeHeader(c.version, id)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := payload(w); err != nil {
		return fmt.Errorf("failed to write machine state: %w", err)
	}
	return nil
}

// Read validates a save state against the current ROM and replays its
// payload. When the state belongs to another ROM, resolve is asked to load
// it; hashCheckRequired disables the lenient identity match and rejects
// formats that carry no hash. restore only runs after every header check
// has passed. The decoded header is returned whenever it was readable.
func (c *Codec) Read(r io.Reader, current emucore.RomIdentity, hashCheckRequired bool, resolve ResolveFunc, restore RestoreFunc) (*Header, error) {
	h, err := DecodeHeader(r, c.version)
	if err != nil {
		return nil, err
	}

	if !h.HasIdentity {
		if hashCheckRequired {
			return h, fmt.Errorf("%w: format %d has no ROM hash", ErrIncompatibleVersion, h.FormatVersion)
		}
	} else if !Compatible(current, h.SHA1, h.MapperID, h.SubMapperID, hashCheckRequired) {
		if resolve == nil {
			return h, &MissingROMError{Name: h.RomName}
		}
		if err := resolve(h.RomName, h.SHA1); err != nil {
			return h, &MissingROMError{Name: h.RomName, Err: err}
		}
	}

	if err := restore(r, h.FormatVersion); err != nil {
		return h, fmt.Errorf("failed to restore machine state: %w", err)
	}
	return h, nil
}
