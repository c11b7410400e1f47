package savestate

import (
	"errors"
	"fmt"
)

// Load failures. Every one of them leaves the running machine untouched.
var (
	// ErrInvalidFile is returned when the stream is not a save state or
	// its header is truncated.
	ErrInvalidFile = errors.New("not a valid save state")

	// ErrNewerVersion is returned when the state was written by a newer
	// emulator release than the one running.
	ErrNewerVersion = errors.New("save state was created by a newer version")

	// ErrIncompatibleVersion is returned for formats that can no longer be
	// read, or that cannot satisfy a required ROM hash check.
	ErrIncompatibleVersion = errors.New("save state format is incompatible")

	// ErrMissingROM is matched by *MissingROMError.
	ErrMissingROM = errors.New("ROM for save state not found")

	// ErrEmptySaveState is returned when the state file cannot be opened.
	ErrEmptySaveState = errors.New("save state slot is empty")

	// ErrROMNotFound is returned by IdentityResolver.Resolve.
	ErrROMNotFound = errors.New("no matching ROM found")
)

// MissingROMError reports that a state belongs to a ROM that is not loaded
// and could not be found.
type MissingROMError struct {
	Name string
	Err  error
}

func (e *MissingROMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ROM %q for save state not found: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("ROM %q for save state not found", e.Name)
}

// Is matches ErrMissingROM.
func (e *MissingROMError) Is(target error) bool {
	return target == ErrMissingROM
}

func (e *MissingROMError) Unwrap() error {
	return e.Err
}
