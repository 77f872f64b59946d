package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrROMTooShort = errors.New("rom too short for header")
	ErrSystemType  = errors.New("unrecognized system type")
	ErrROMChecksum = errors.New("rom checksum mismatch")
)

const romHeaderMinSize = 0x200

// ROMHeader is the cartridge header at 0x100-0x1FF.
type ROMHeader struct {
	SystemType string
	Title      string
	Regions    string
	Checksum   uint16
	// Computed is the word sum of everything from 0x200 to the end.
	Computed uint16
}

// ReadROMHeader decodes the header fields used for diagnostics.
func ReadROMHeader(rom []byte) (ROMHeader, error) {
	if len(rom) < romHeaderMinSize {
		return ROMHeader{}, fmt.Errorf("%w: %d bytes", ErrROMTooShort, len(rom))
	}
	return ROMHeader{
		SystemType: headerString(rom[0x100:0x110]),
		Title:      headerString(rom[0x150:0x180]),
		Regions:    headerString(rom[0x1F0:0x200]),
		Checksum:   binary.BigEndian.Uint16(rom[0x18E:0x190]),
		Computed:   romChecksum(rom[0x200:]),
	}, nil
}

// Check reports the first header inconsistency. A ROM that fails Check can
// still run; many homebrew and prototype images carry a stale checksum.
func (h ROMHeader) Check() error {
	switch h.SystemType {
	case "SEGA MEGA DRIVE", "SEGA GENESIS":
	default:
		return fmt.Errorf("%w: %q", ErrSystemType, h.SystemType)
	}
	if h.Checksum != h.Computed {
		return fmt.Errorf("%w: header=%04X computed=%04X", ErrROMChecksum, h.Checksum, h.Computed)
	}
	return nil
}

func headerString(b []byte) string {
	return strings.TrimRight(strings.TrimRight(string(b), "\x00"), " ")
}

// romChecksum sums big-endian words. An odd trailing byte counts as a high
// byte.
func romChecksum(data []byte) uint16 {
	var sum uint16
	for i := 0; i+1 < len(data); i += 2 {
		sum += binary.BigEndian.Uint16(data[i:])
	}
	if len(data)%2 != 0 {
		sum += uint16(data[len(data)-1]) << 8
	}
	return sum
}
