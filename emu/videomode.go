package emu

import "fmt"

// HMode is the horizontal resolution, selected by reg 12 bit 0.
type HMode uint8

const (
	H32 HMode = iota // 256 pixels
	H40              // 320 pixels
)

// VMode is the number of active lines, selected by reg 1 bit 3.
type VMode uint8

const (
	V28 VMode = iota // 224 lines
	V30              // 240 lines
)

// VideoMode is the combination of resolution, active lines and region.
// Region comes from construction; width and height come from registers.
type VideoMode struct {
	Width  HMode
	Height VMode
	Region ConsoleRegion
}

// IsH32 reports whether the mode is 256 pixels wide.
func (m VideoMode) IsH32() bool { return m.Width == H32 }

// IsV28 reports whether the mode has 224 active lines.
func (m VideoMode) IsV28() bool { return m.Height == V28 }

// IsPAL reports whether the mode uses PAL timing.
func (m VideoMode) IsPAL() bool { return m.Region == ConsoleEurope }

// Valid reports whether every component of m is a known value.
func (m VideoMode) Valid() bool {
	return m.Width <= H40 && m.Height <= V30 && m.Region.Valid()
}

// ActiveWidth returns the visible pixels per line.
func (m VideoMode) ActiveWidth() int {
	if m.Width == H40 {
		return 320
	}
	return 256
}

// ActiveHeight returns the visible lines per frame.
func (m VideoMode) ActiveHeight() int {
	if m.Height == V30 {
		return 240
	}
	return 224
}

func (m VideoMode) String() string {
	w := "H32"
	if m.Width == H40 {
		w = "H40"
	}
	h := "V28"
	if m.Height == V30 {
		h = "V30"
	}
	return fmt.Sprintf("%s_%s_%s", m.Region, w, h)
}

// AllVideoModes lists every valid mode.
func AllVideoModes() []VideoMode {
	var modes []VideoMode
	for _, r := range []ConsoleRegion{ConsoleJapan, ConsoleUSA, ConsoleEurope} {
		for _, w := range []HMode{H32, H40} {
			for _, h := range []VMode{V28, V30} {
				modes = append(modes, VideoMode{Width: w, Height: h, Region: r})
			}
		}
	}
	return modes
}
