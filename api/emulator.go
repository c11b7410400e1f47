package emucore

import "io"

// StateMachine is the emulated machine as seen by the save state code.
// The payload written by SaveState is opaque to callers.
type StateMachine interface {
	// SaveState appends the complete machine state to w.
	SaveState(w io.Writer) error

	// LoadState restores machine state from r. formatVersion is the
	// snapshot format the payload was written with, so the machine can
	// decode older layouts.
	LoadState(r io.Reader, formatVersion uint32) error

	// Identity returns the identity of the currently loaded ROM. The
	// zero value means no ROM is loaded.
	Identity() RomIdentity
}

// Pauser brackets exclusive access to the machine. Pause blocks until the
// emulation thread has stopped between frames.
type Pauser interface {
	Pause()
	Resume()

	// Stop ends the emulation session.
	Stop()
}

// ROMLoader loads ROM images into the machine.
type ROMLoader interface {
	// LoadROMByIdentity finds and loads the ROM matching name and SHA-1.
	LoadROMByIdentity(name, sha1 string) error

	// LoadROMFile loads the ROM at path, applying the patch at patchPath
	// when it is not empty.
	LoadROMFile(path, patchPath string) error
}

// Screenshotter captures the current frame as a PNG image.
type Screenshotter interface {
	Screenshot(w io.Writer) error
}

// DebugEvent is an event forwarded to an attached debugger.
type DebugEvent int

const (
	DebugStateSaved DebugEvent = iota
	DebugStateLoaded
)

// String returns the display name of the event.
func (e DebugEvent) String() string {
	switch e {
	case DebugStateSaved:
		return "StateSaved"
	case DebugStateLoaded:
		return "StateLoaded"
	default:
		return "Unknown"
	}
}

// DebugHook receives machine lifecycle events when a debugger is attached.
type DebugHook interface {
	ProcessEvent(event DebugEvent)
}

// MovieStopper ends any movie recording or playback in progress.
type MovieStopper interface {
	Stop()
}
