package romloader

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// walkGzip visits the ROM entries of a tar.gz archive, or the single
// decompressed payload of a plain .gz file
func walkGzip(path string, extensions []string, visit visitFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gzip: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	lowerPath := strings.ToLower(path)
	if strings.HasSuffix(lowerPath, ".tar.gz") || strings.HasSuffix(lowerPath, ".tgz") {
		return walkTar(gr, extensions, visit)
	}

	// Plain .gz, the payload is the ROM named after the file minus .gz
	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		name = name[:len(name)-3]
	}
	return finishWalk(true, visit(name, gr))
}

// walkTar visits the regular ROM files of a tar stream
func walkTar(r io.Reader, extensions []string, visit visitFunc) error {
	tr := tar.NewReader(r)

	visited := false
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !isROMFile(header.Name, extensions) {
			continue
		}
		visited = true

		if err := visit(header.Name, tr); err != nil {
			return finishWalk(true, err)
		}
	}

	return finishWalk(visited, nil)
}
