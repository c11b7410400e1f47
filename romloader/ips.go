package romloader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ipsHeader = []byte("PATCH")
	ipsEOF    = []byte("EOF")
)

// ErrInvalidPatch is returned for malformed IPS data
var ErrInvalidPatch = errors.New("invalid IPS patch")

// ApplyIPS returns a copy of rom with the IPS patch applied. Records may
// grow the image; an optional truncation length after the EOF marker
// shrinks it.
func ApplyIPS(rom, patch []byte) ([]byte, error) {
	if !bytes.HasPrefix(patch, ipsHeader) {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidPatch)
	}

	out := make([]byte, len(rom))
	copy(out, rom)

	p := patch[len(ipsHeader):]
	for {
		if len(p) < 3 {
			return nil, fmt.Errorf("%w: missing EOF marker", ErrInvalidPatch)
		}
		if bytes.Equal(p[:3], ipsEOF) {
			p = p[3:]
			break
		}
		if len(p) < 5 {
			return nil, fmt.Errorf("%w: truncated record", ErrInvalidPatch)
		}
		offset := int(p[0])<<16 | int(p[1])<<8 | int(p[2])
		size := int(binary.BigEndian.Uint16(p[3:5]))
		p = p[5:]

		if size > 0 {
			if len(p) < size {
				return nil, fmt.Errorf("%w: record at 0x%06X overruns patch", ErrInvalidPatch, offset)
			}
			out = grow(out, offset+size)
			copy(out[offset:], p[:size])
			p = p[size:]
			continue
		}

		// RLE record
		if len(p) < 3 {
			return nil, fmt.Errorf("%w: truncated RLE record", ErrInvalidPatch)
		}
		count := int(binary.BigEndian.Uint16(p[:2]))
		value := p[2]
		p = p[3:]
		out = grow(out, offset+count)
		for i := 0; i < count; i++ {
			out[offset+i] = value
		}
	}

	if len(p) >= 3 {
		size := int(p[0])<<16 | int(p[1])<<8 | int(p[2])
		if size < len(out) {
			out = out[:size]
		}
	}
	return out, nil
}

func grow(b []byte, n int) []byte {
	if n <= len(b) {
		return b
	}
	return append(b, make([]byte, n-len(b))...)
}
