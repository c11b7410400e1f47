package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	emucore "github.com/user-none/savestates/api"
	"github.com/user-none/savestates/romloader"
)

var (
	magicINES = []byte{'N', 'E', 'S', 0x1A}
	magicUNIF = []byte("UNIF")
	magicNSF  = []byte{'N', 'E', 'S', 'M', 0x1A}
	magicNSFE = []byte("NSFE")
	magicFDS  = []byte{'F', 'D', 'S', 0x1A}
	// Headerless FDS images start with the disk info block
	magicFDSRaw = []byte("\x01*NINTENDO-HVC*")
)

var errNoPayload = errors.New("no state has been loaded")

// fileMachine stands in for the emulator when states are handled outside
// a running session. The payload is kept as opaque bytes.
type fileMachine struct {
	mu      sync.Mutex
	id      emucore.RomIdentity
	payload []byte
	format  uint32
}

func (m *fileMachine) SaveState(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payload == nil {
		return errNoPayload
	}
	_, err := w.Write(m.payload)
	return err
}

func (m *fileMachine) LoadState(r io.Reader, formatVersion uint32) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = data
	m.format = formatVersion
	return nil
}

func (m *fileMachine) Identity() emucore.RomIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Payload returns the last restored payload and its format version.
func (m *fileMachine) Payload() ([]byte, uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload, m.format
}

// boot is the romloader.BootFunc of the stand-in machine. It only
// records the identity of rom.
func (m *fileMachine) boot(rom *romloader.ROM) error {
	id := identifyROM(rom)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

// identifyROM derives the identity a running core would report for rom.
// Mapper numbers are only known for iNES images.
func identifyROM(rom *romloader.ROM) emucore.RomIdentity {
	id := emucore.RomIdentity{
		SHA1:        rom.SHA1,
		MapperID:    emucore.UnknownMapper,
		SubMapperID: emucore.UnknownMapper,
		RomName:     rom.Name,
	}

	data := rom.Data
	switch {
	case len(data) >= 16 && bytes.HasPrefix(data, magicINES):
		id.Format = emucore.FormatINES
		id.MapperID = int(data[6]>>4) | int(data[7]&0xF0)
		id.SubMapperID = 0
		// NES 2.0 extends the mapper number and adds the sub-mapper
		if data[7]&0x0C == 0x08 {
			id.MapperID |= int(data[8]&0x0F) << 8
			id.SubMapperID = int(data[8] >> 4)
		}
	case bytes.HasPrefix(data, magicUNIF):
		id.Format = emucore.FormatUNIF
	case bytes.HasPrefix(data, magicNSF), bytes.HasPrefix(data, magicNSFE):
		id.Format = emucore.FormatNSF
	case bytes.HasPrefix(data, magicFDS), bytes.HasPrefix(data, magicFDSRaw):
		id.Format = emucore.FormatFDS
	default:
		id.Format = formatFromName(rom.Name)
	}
	return id
}

func formatFromName(name string) emucore.RomFormat {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".nes"):
		return emucore.FormatINES
	case strings.HasSuffix(lower, ".unf"), strings.HasSuffix(lower, ".unif"):
		return emucore.FormatUNIF
	case strings.HasSuffix(lower, ".fds"):
		return emucore.FormatFDS
	case strings.HasSuffix(lower, ".nsf"), strings.HasSuffix(lower, ".nsfe"):
		return emucore.FormatNSF
	}
	return emucore.FormatUnknown
}
