package romloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// ErrROMNotFound is returned when no file in the search folders holds a
// ROM with the requested digest
var ErrROMNotFound = errors.New("no matching ROM found")

// archiveExtensions are searched in addition to the ROM extensions
var archiveExtensions = []string{".zip", ".7z", ".gz", ".tgz", ".rar"}

// Finder locates a ROM by name and SHA-1 across a set of folders,
// looking inside archives as well as at plain ROM files.
type Finder struct {
	Dirs       []string
	Extensions []string
	Recursive  bool
	Logger     hclog.Logger
}

// Find returns the ROM whose digest equals sha1. Files whose base name
// matches name are checked first; every other candidate is hashed only
// if that fails.
func (f *Finder) Find(name, sha1 string) (*ROM, error) {
	logger := f.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	files := f.candidates(logger)
	want := baseName(name)

	var named, others []string
	for _, p := range files {
		if want != "" && strings.EqualFold(baseName(p), want) {
			named = append(named, p)
		} else {
			others = append(others, p)
		}
	}

	for _, p := range append(named, others...) {
		rom, err := f.match(p, sha1)
		if err != nil {
			logger.Debug("skipping unreadable file", "path", p, "error", err)
			continue
		}
		if rom != nil {
			logger.Debug("matching ROM found", "path", p, "rom", rom.Name)
			return rom, nil
		}
	}

	return nil, fmt.Errorf("%w: %s (%s)", ErrROMNotFound, name, sha1)
}

// match returns the ROM in path whose digest equals sha1, or nil
func (f *Finder) match(path, sha1 string) (*ROM, error) {
	var found *ROM
	err := Each(path, f.Extensions, func(r *ROM) error {
		if strings.EqualFold(r.SHA1, sha1) {
			found = r
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrNoROMFile) {
		return nil, err
	}
	return found, nil
}

// candidates walks the search folders for ROM files and archives
func (f *Finder) candidates(logger hclog.Logger) []string {
	exts := f.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}

	var files []string
	for _, dir := range f.Dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.Mode()&os.ModeSymlink != 0 {
				return nil
			}
			if info.IsDir() {
				if path != dir && !f.Recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if isROMFile(path, exts) || isROMFile(path, archiveExtensions) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			logger.Warn("failed to scan ROM folder", "dir", dir, "error", err)
		}
	}
	return files
}

// baseName strips folders and the extension from a ROM or archive name.
// A .tar.gz archive loses both suffixes.
func baseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if strings.HasSuffix(strings.ToLower(base), ".tar.gz") {
		return base[:len(base)-len(".tar.gz")]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
