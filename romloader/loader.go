// Package romloader handles loading ROM files from various sources,
// including compressed archives (ZIP, 7z, gzip, tar.gz, RAR), and
// locating the ROM a save state was made with.
package romloader

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the file types the NES core can boot
var DefaultExtensions = []string{".nes", ".fds", ".unf", ".unif", ".nsf", ".nsfe"}

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
)

// Maximum ROM size (8MB safety limit)
const maxROMSize = 8 * 1024 * 1024

// ErrNoROMFile is returned when no ROM file is found in an archive
var ErrNoROMFile = errors.New("no ROM file found in archive")

// ErrUnsupportedFormat is returned for unrecognized file formats
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge is returned when extracted content exceeds size limit
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// errStopWalk ends an archive walk early without reporting an error
var errStopWalk = errors.New("stop walk")

// ROM is a ROM image read from disk or from inside an archive.
type ROM struct {
	Data []byte
	// Name is the basename of the ROM file itself, not of the archive
	Name string
	// Path is the file the ROM was read from
	Path string
	// SHA1 is the uppercase hex digest of Data
	SHA1 string
}

// SHA1Hex returns the uppercase hex SHA-1 digest of data, the form save
// states record.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// formatType represents the detected file format
type formatType int

const (
	formatUnknown formatType = iota
	formatRaw
	formatZIP
	format7z
	formatGzip
	formatRAR
)

// visitFunc receives one ROM entry of a file. name is the entry name
// inside the archive.
type visitFunc func(name string, r io.Reader) error

// walkFunc calls visit for each ROM entry of an archive.
type walkFunc func(path string, extensions []string, visit visitFunc) error

var walkers = map[formatType]walkFunc{
	formatZIP:  walkZIP,
	format7z:   walk7z,
	formatGzip: walkGzip,
	formatRAR:  walkRAR,
}

// Load reads a ROM from a file path. It auto-detects compressed archives
// via magic bytes and extracts the first file matching one of the given
// extensions. For raw (non-archive) files, the extension must match or
// the file is loaded as-is if no archive format is detected.
//
// A nil extensions list means DefaultExtensions.
func Load(path string, extensions []string) (*ROM, error) {
	var rom *ROM
	err := Each(path, extensions, func(r *ROM) error {
		rom = r
		return errStopWalk
	})
	if err != nil {
		return nil, err
	}
	return rom, nil
}

// Each calls fn for every ROM in the file at path: once for a plain ROM,
// once per matching entry for an archive. Returning an error from fn
// stops the walk and Each returns that error.
func Each(path string, extensions []string, fn func(*ROM) error) error {
	if extensions == nil {
		extensions = DefaultExtensions
	}

	format, err := sniff(path, extensions)
	if err != nil {
		return err
	}

	visit := func(name string, r io.Reader) error {
		data, err := limitedRead(r)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		return fn(&ROM{Data: data, Name: filepath.Base(name), Path: path, SHA1: SHA1Hex(data)})
	}

	if format == formatRaw {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return finishWalk(true, visit(filepath.Base(path), f))
	}

	walk, ok := walkers[format]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return walk(path, extensions, visit)
}

// sniff reads the file header and detects the format
func sniff(path string, extensions []string) (formatType, error) {
	f, err := os.Open(path)
	if err != nil {
		return formatUnknown, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return formatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	return detectFormat(header[:n], path, extensions), nil
}

// finishWalk maps the outcome of a walk to its result. visited reports
// whether any entry matched.
func finishWalk(visited bool, err error) error {
	if errors.Is(err, errStopWalk) {
		return nil
	}
	if err != nil {
		return err
	}
	if !visited {
		return ErrNoROMFile
	}
	return nil
}

// detectFormat determines the file format based on magic bytes and extension.
// The extensions parameter lists valid ROM file extensions (e.g. []string{".nes"}).
func detectFormat(header []byte, path string, extensions []string) formatType {
	ext := strings.ToLower(filepath.Ext(path))

	// Check magic bytes first (more reliable)
	if len(header) >= 4 {
		if bytes.HasPrefix(header, magicZIP) || bytes.HasPrefix(header, magicZIPEnd) {
			return formatZIP
		}
		if bytes.HasPrefix(header, magicRAR) {
			return formatRAR
		}
	}
	if len(header) >= 6 && bytes.HasPrefix(header, magic7z) {
		return format7z
	}
	if len(header) >= 2 && bytes.HasPrefix(header, magicGzip) {
		return formatGzip
	}

	// Fall back to extension for archive formats
	switch ext {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	}

	if strings.HasSuffix(strings.ToLower(path), ".tar.gz") {
		return formatGzip
	}

	for _, romExt := range extensions {
		if ext == strings.ToLower(romExt) {
			return formatRaw
		}
	}

	return formatUnknown
}

// isROMFile checks if a filename has one of the given ROM extensions (case-insensitive)
func isROMFile(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// limitedRead reads from r up to maxROMSize bytes, returning an error if exceeded
func limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, maxROMSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxROMSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
