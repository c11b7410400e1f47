package savestate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	emucore "github.com/user-none/savestates/api"
)

// Save state format constants
const (
	// Magic opens every save state.
	Magic = "MST"

	// FormatVersion is the layout written by this release.
	FormatVersion uint32 = 10

	// MinFormatVersion is the oldest layout that can still be read.
	MinFormatVersion uint32 = 5

	hashLength       = 40
	maxRomNameLength = 4096

	// UnknownMapper as stored in the mapper fields. Real mapper numbers
	// stop at 4095 and sub-mappers at 15.
	unknownMapper16   uint16 = 0xFFFF
	unknownSubMapper8 uint8  = 0xFF
)

// Version packs a release number into the writer version field.
func Version(major, minor, patch uint8) uint32 {
	return uint32(major)<<16 | uint32(minor)<<8 | uint32(patch)
}

// CurrentVersion is the writer version of this release.
var CurrentVersion = Version(0, 9, 9)

// FormatWriterVersion renders a packed writer version as major.minor.patch.
func FormatWriterVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF)
}

// Header is the decoded fixed part of a save state. Fields a format
// version does not carry keep their zero value, except the mapper ids
// which are emucore.UnknownMapper.
type Header struct {
	WriterVersion uint32
	FormatVersion uint32
	MapperID      int
	SubMapperID   int
	SHA1          string
	RomName       string

	// HasIdentity is false for formats written without a ROM hash.
	HasIdentity bool
}

type headerFields uint8

const (
	fieldMapper headerFields = 1 << iota
	fieldIdentity
)

func (f headerFields) has(field headerFields) bool {
	return f&field != 0
}

// formatLadder lists the header fields carried by each format version,
// oldest first. Rows are only ever appended.
var formatLadder = []struct {
	since  uint32
	fields headerFields
}{
	{5, 0},
	{6, fieldIdentity},
	{8, fieldMapper | fieldIdentity},
}

// fieldDecoders run in stream order. A version skips the fields its
// ladder row does not name.
var fieldDecoders = []struct {
	field  headerFields
	decode func(r io.Reader, h *Header) error
}{
	{fieldMapper, decodeMapper},
	{fieldIdentity, decodeIdentity},
}

// fieldsFor returns the header layout of a format version. The bool is
// false for versions too old to read.
func fieldsFor(version uint32) (headerFields, bool) {
	for i := len(formatLadder) - 1; i >= 0; i-- {
		if version >= formatLadder[i].since {
			return formatLadder[i].fields, true
		}
	}
	return 0, false
}

// DecodeHeader reads and validates the header of a save state, leaving r
// positioned at the machine payload. States written by a release newer
// than maxWriterVersion are rejected.
func DecodeHeader(r io.Reader, maxWriterVersion uint32) (*Header, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if string(magic) != Magic {
		return nil, ErrInvalidFile
	}

	h := &Header{
		MapperID:    emucore.UnknownMapper,
		SubMapperID: emucore.UnknownMapper,
	}

	if err := binary.Read(r, binary.LittleEndian, &h.WriterVersion); err != nil {
		return nil, fmt.Errorf("%w: writer version: %v", ErrInvalidFile, err)
	}
	if h.WriterVersion > maxWriterVersion {
		return nil, fmt.Errorf("%w: written by %s", ErrNewerVersion, FormatWriterVersion(h.WriterVersion))
	}

	if err := binary.Read(r, binary.LittleEndian, &h.FormatVersion); err != nil {
		return nil, fmt.Errorf("%w: format version: %v", ErrInvalidFile, err)
	}
	fields, ok := fieldsFor(h.FormatVersion)
	if !ok {
		return nil, fmt.Errorf("%w: format %d", ErrIncompatibleVersion, h.FormatVersion)
	}

	for _, d := range fieldDecoders {
		if !fields.has(d.field) {
			continue
		}
		if err := d.decode(r, h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func decodeMapper(r io.Reader, h *Header) error {
	var ids struct {
		Mapper    uint16
		SubMapper uint8
	}
	if err := binary.Read(r, binary.LittleEndian, &ids); err != nil {
		return fmt.Errorf("%w: mapper: %v", ErrInvalidFile, err)
	}
	h.MapperID = int(ids.Mapper)
	h.SubMapperID = int(ids.SubMapper)
	if ids.Mapper == unknownMapper16 {
		h.MapperID = emucore.UnknownMapper
	}
	if ids.SubMapper == unknownSubMapper8 {
		h.SubMapperID = emucore.UnknownMapper
	}
	return nil
}

func decodeIdentity(r io.Reader, h *Header) error {
	hash := make([]byte, hashLength)
	if _, err := io.ReadFull(r, hash); err != nil {
		return fmt.Errorf("%w: hash: %v", ErrInvalidFile, err)
	}

	var nameLength uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLength); err != nil {
		return fmt.Errorf("%w: name length: %v", ErrInvalidFile, err)
	}
	if nameLength > maxRomNameLength {
		return fmt.Errorf("%w: name length %d", ErrInvalidFile, nameLength)
	}

	name := make([]byte, nameLength)
	if _, err := io.ReadFull(r, name); err != nil {
		return fmt.Errorf("%w: name: %v", ErrInvalidFile, err)
	}

	// Hashes shorter than 40 characters are NUL padded on write.
	h.SHA1 = strings.TrimRight(string(hash), "\x00")
	h.RomName = string(name)
	h.HasIdentity = true
	return nil
}

// encodeHeader renders the header of the current format for id.
func encodeHeader(writerVersion uint32, id emucore.RomIdentity) []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)

	le := binary.LittleEndian
	buf.Write(le.AppendUint32(nil, writerVersion))
	buf.Write(le.AppendUint32(nil, FormatVersion))
	mapper, subMapper := unknownMapper16, unknownSubMapper8
	if id.MapperID >= 0 {
		mapper = uint16(id.MapperID)
	}
	if id.SubMapperID >= 0 {
		subMapper = uint8(id.SubMapperID)
	}
	buf.Write(le.AppendUint16(nil, mapper))
	buf.WriteByte(subMapper)

	hash := make([]byte, hashLength)
	copy(hash, id.SHA1)
	buf.Write(hash)

	buf.Write(le.AppendUint32(nil, uint32(len(id.RomName))))
	buf.WriteString(id.RomName)
	return buf.Bytes()
}
