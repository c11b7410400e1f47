package romloader

import (
	"fmt"

	"github.com/klauspost/compress/zip"
)

// walkZIP visits the ROM entries of a ZIP archive in directory order
func walkZIP(path string, extensions []string, visit visitFunc) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	visited := false
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isROMFile(f.Name, extensions) {
			continue
		}
		visited = true

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		err = visit(f.Name, rc)
		rc.Close()
		if err != nil {
			return finishWalk(true, err)
		}
	}

	return finishWalk(visited, nil)
}
