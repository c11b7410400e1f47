package romloader

import (
	"fmt"

	"github.com/bodgit/sevenzip"
)

// walk7z visits the ROM entries of a 7z archive
func walk7z(path string, extensions []string, visit visitFunc) error {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open 7z: %w", err)
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
