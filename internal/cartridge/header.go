package cartridge

import "bytes"

// Type identifies the cartridge hardware, parsed from header byte 0x147;
// it selects the MBC variant a Header maps to.
type Type uint8

const (
	TypeROM               Type = 0x00
	TypeMBC1              Type = 0x01
	TypeMBC1RAM           Type = 0x02
	TypeMBC1RAMBattery    Type = 0x03
	TypeMBC2              Type = 0x05
	TypeMBC2Battery       Type = 0x06
	TypeMBC3TimerBattery  Type = 0x0F
	TypeMBC3TimerRAMBatt  Type = 0x10
	TypeMBC3              Type = 0x11
	TypeMBC3RAM           Type = 0x12
	TypeMBC3RAMBattery    Type = 0x13
	TypeMBC5              Type = 0x19
	TypeMBC5RAM           Type = 0x1A
	TypeMBC5RAMBattery    Type = 0x1B
	TypeMBC5Rumble        Type = 0x1C
	TypeMBC5RumbleRAM     Type = 0x1D
	TypeMBC5RumbleRAMBatt Type = 0x1E
)

// CGBFlag is header byte 0x143's compatibility mode.
type CGBFlag uint8

const (
	CGBFlagDMGOnly  CGBFlag = 0x00
	CGBFlagSupports CGBFlag = 0x80
	CGBFlagOnly     CGBFlag = 0xC0
)

var ramSizeTable = map[uint8]uint32{
	0x00: 0,
	0x01: 2 * 1024, // unofficial, some early dumps use this
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header is the parsed cartridge header at ROM offset 0x0100-0x014F
// (spec.md §6). Only fields the device model or save system actually
// consume are kept.
type Header struct {
	Title       string
	CGBFlag     CGBFlag
	Type        Type
	ROMSize     uint32
	RAMSize     uint32
	HeaderSum   uint8
	LogoValid   bool // supplemented per SPEC_FULL.md, not required to refuse boot
}

// ParseHeader reads the 0x50 bytes at ROM offset 0x0100.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < 0x150 {
		return Header{}, errROMTooShort
	}
	h := rom[0x100:0x150]

	var hdr Header
	hdr.CGBFlag = CGBFlag(h[0x43])

	titleEnd := 0x44
	if hdr.CGBFlag != CGBFlagDMGOnly {
		titleEnd = 0x43
	}
	hdr.Title = trimTitle(h[0x34:titleEnd])

	hdr.Type = Type(h[0x47])
	hdr.ROMSize = (32 * 1024) << h[0x48]
	hdr.RAMSize = ramSizeTable[h[0x49]]
	hdr.HeaderSum = h[0x4D]
	hdr.LogoValid = bytes.Equal(rom[0x104:0x134], nintendoLogo[:])

	return hdr, nil
}

func trimTitle(b []byte) string {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		n = len(b)
	}
	return string(bytes.TrimRight(b[:n], "\x00"))
}

// IsCGB reports whether the cartridge declares any CGB compatibility.
func (h Header) IsCGB() bool {
	return h.CGBFlag == CGBFlagSupports || h.CGBFlag == CGBFlagOnly
}

// HasBattery reports whether the cartridge type byte names a
// battery-backed variant - the only variants save persistence applies to.
func (h Header) HasBattery() bool {
	switch h.Type {
	case TypeMBC1RAMBattery, TypeMBC2Battery, TypeMBC3TimerBattery,
		TypeMBC3TimerRAMBatt, TypeMBC3RAMBattery, TypeMBC5RAMBattery,
		TypeMBC5RumbleRAMBatt:
		return true
	}
	return false
}
