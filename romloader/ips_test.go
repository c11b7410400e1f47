package romloader

import (
	"bytes"
	"errors"
	"testing"
)

// ipsRecord encodes a plain IPS record
func ipsRecord(offset int, data []byte) []byte {
	return append([]byte{byte(offset >> 16), byte(offset >> 8), byte(offset), byte(len(data) >> 8), byte(len(data))}, data...)
}

// ipsRLE encodes an RLE IPS record
func ipsRLE(offset, count int, value byte) []byte {
	return []byte{byte(offset >> 16), byte(offset >> 8), byte(offset), 0, 0, byte(count >> 8), byte(count), value}
}

func buildIPS(records ...[]byte) []byte {
	p := []byte("PATCH")
	for _, r := range records {
		p = append(p, r...)
	}
	return append(p, "EOF"...)
}

func TestApplyIPS(t *testing.T) {
	rom := []byte{0, 1, 2, 3, 4, 5}
	patch := buildIPS(ipsRecord(1, []byte{0xAA, 0xBB}), ipsRLE(4, 2, 0xFF))

	got, err := ApplyIPS(rom, patch)
	if err != nil {
		t.Fatalf("ApplyIPS failed: %v", err)
	}
	want := []byte{0, 0xAA, 0xBB, 3, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if rom[1] != 1 {
		t.Error("input ROM must not be modified")
	}
}

func TestApplyIPS_Grows(t *testing.T) {
	got, err := ApplyIPS([]byte{1, 2}, buildIPS(ipsRecord(4, []byte{9})))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 0, 0, 9}) {
		t.Errorf("got %v", got)
	}
}

func TestApplyIPS_Truncate(t *testing.T) {
	patch := append(buildIPS(), 0, 0, 3)
	got, err := ApplyIPS([]byte{1, 2, 3, 4, 5}, patch)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("got %v", got)
	}
}

func TestApplyIPS_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"no header":    []byte("PTCH"),
		"no eof":       []byte("PATCH"),
		"short record": append([]byte("PATCH"), 0, 0, 1, 0),
		"overrun":      append([]byte("PATCH"), 0, 0, 1, 0, 9, 1, 2),
		"short rle":    append([]byte("PATCH"), 0, 0, 1, 0, 0, 0),
	}
	for name, patch := range tests {
		if _, err := ApplyIPS([]byte{0}, patch); !errors.Is(err, ErrInvalidPatch) {
			t.Errorf("%s: expected ErrInvalidPatch, got %v", name, err)
		}
	}
}
