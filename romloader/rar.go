package romloader

import (
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

// walkRAR visits the ROM entries of a RAR archive. RAR is a stream
// format, so each entry must be consumed before the next.
func walkRAR(path string, extensions []string, visit visitFunc) error {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	visited := false
	for {
		header, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read rar entry: %w", err)
		}
		if header.IsDir || !isROMFile(header.Name, extensions) {
			continue
		}
		visited = true

		if err := visit(header.Name, r); err != nil {
			return finishWalk(true, err)
		}
	}

	return finishWalk(visited, nil)
}
