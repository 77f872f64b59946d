package emu

import (
	"fmt"
	"strings"

	emucore "github.com/user-none/eblitui/api"
)

// Region is an alias for emucore.Region (display timing: NTSC or PAL).
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds timing constants for a specific region.
// Both CPUs and the VDP dot clock are divided down from one master clock.
type RegionTiming struct {
	MasterClockHz int // MCLK
	M68KDivider   int // MCLK cycles per 68000 cycle
	Z80Divider    int // MCLK cycles per Z80 cycle
	LineMCLK      int // MCLK cycles per scanline
	Scanlines     int // Total scanlines per frame
	FPS           int // Frames per second
}

// M68KClockHz returns the 68000 clock frequency.
func (t RegionTiming) M68KClockHz() int {
	return t.MasterClockHz / t.M68KDivider
}

// Z80ClockHz returns the Z80 clock frequency.
func (t RegionTiming) Z80ClockHz() int {
	return t.MasterClockHz / t.Z80Divider
}

// NTSC timing: MCLK 53.693175 MHz, 262 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	MasterClockHz: 53693175,
	M68KDivider:   7,
	Z80Divider:    15,
	LineMCLK:      3420,
	Scanlines:     262,
	FPS:           60,
}

// PAL timing: MCLK 53.203424 MHz, 313 scanlines, 50 Hz
var PALTiming = RegionTiming{
	MasterClockHz: 53203424,
	M68KDivider:   7,
	Z80Divider:    15,
	LineMCLK:      3420,
	Scanlines:     313,
	FPS:           50,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// ConsoleRegion represents the hardware region identity of the console.
// It selects the video timing table (PAL vs NTSC) and is fixed for the
// lifetime of a VDP.
type ConsoleRegion int

const (
	ConsoleJapan  ConsoleRegion = iota // NTSC-J
	ConsoleUSA                         // NTSC-U
	ConsoleEurope                      // PAL
)

func (c ConsoleRegion) String() string {
	switch c {
	case ConsoleJapan:
		return "NTSC-J"
	case ConsoleUSA:
		return "NTSC-U"
	case ConsoleEurope:
		return "PAL"
	}
	return fmt.Sprintf("ConsoleRegion(%d)", int(c))
}

// Valid reports whether c is one of the three known console regions.
func (c ConsoleRegion) Valid() bool {
	return c >= ConsoleJapan && c <= ConsoleEurope
}

// DisplayRegion maps the console region to its display timing region.
func (c ConsoleRegion) DisplayRegion() Region {
	if c == ConsoleEurope {
		return RegionPAL
	}
	return RegionNTSC
}

// ParseConsoleRegion converts a user supplied name into a ConsoleRegion.
func ParseConsoleRegion(s string) (ConsoleRegion, error) {
	switch strings.ToLower(s) {
	case "ntsc-j", "ntscj", "jp", "japan":
		return ConsoleJapan, nil
	case "ntsc-u", "ntscu", "ntsc", "us", "usa":
		return ConsoleUSA, nil
	case "pal", "eu", "europe":
		return ConsoleEurope, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRegion, s)
}

// DetectConsoleRegion inspects the ROM header region field at offset $1F0-$1FF
// and returns the console region. For multi-region ROMs, priority is J > U > E.
// Returns ConsoleUSA for unknown or missing region data.
func DetectConsoleRegion(rom []byte) ConsoleRegion {
	if len(rom) < 0x200 {
		return ConsoleUSA
	}
	hasJ := false
	hasU := false
	hasE := false
	for _, b := range rom[0x1F0:0x200] {
		switch b {
		case 'J':
			hasJ = true
		case 'U':
			hasU = true
		case 'E':
			hasE = true
		}
	}
	if hasJ {
		return ConsoleJapan
	}
	if hasU {
		return ConsoleUSA
	}
	if hasE {
		return ConsoleEurope
	}
	return ConsoleUSA
}
