// Package cartridge models the Game Boy cartridge as a narrow capability
// set rather than the bus-copy-on-bank-switch polymorphism the teacher
// repo uses - spec.md §9's Design Notes call for exactly this
// re-architecture ("model MBC0/1/2/3/5 ... as implementers of a narrow
// capability set"). Each variant is chosen once at construction
// (NewCartridge) and never changes identity afterward.
package cartridge

import "fmt"

// MemoryBankController is the uniform interface every MBC variant
// implements. ROM writes never mutate ROM bytes, only the controller's
// own bank-select registers - WriteROM is the bank-switch side channel
// spec.md §3 describes.
type MemoryBankController interface {
	ReadROM(address uint16) uint8
	WriteROM(address uint16, value uint8)
	ReadRAM(address uint16) uint8
	WriteRAM(address uint16, value uint8)

	DumpRAM() []byte
	LoadRAM(data []byte)

	// CheckAndResetRAMDirty reports whether cartridge RAM has been
	// written since the last call, and clears the flag. Only the save
	// system calls this (spec.md §3's "ram-dirty... cleared only by a
	// check-and-reset call from the save system").
	CheckAndResetRAMDirty() bool
}

// Cartridge wraps the selected MemoryBankController with the read-only
// header metadata every variant shares.
type Cartridge struct {
	MemoryBankController
	header Header
}

// Header returns the parsed cartridge header.
func (c *Cartridge) Header() Header { return c.header }

// Title returns the cartridge's ASCII title, as stamped into the
// boot-info record's ROM title field.
func (c *Cartridge) Title() string { return c.header.Title }

// HasBattery reports whether this cartridge's type byte names a
// battery-backed variant - the save system's gate on whether RAM is
// worth persisting at all (spec.md §3's cartridge capability set; the
// type byte, not RAM presence, is what real hardware keys this on, so
// this delegates to the header rather than asking the MBC variant).
func (c *Cartridge) HasBattery() bool { return c.header.HasBattery() }

// New parses rom's header and constructs the matching MBC variant. It is
// the one place in the device model allowed to fail (spec.md §7): an
// unsupported cartridge type or a too-small image returns an error
// rather than panicking, so a ROM browser can return to idle instead of
// crashing the kernel.
func New(rom []byte) (*Cartridge, error) {
	hdr, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	if int(hdr.ROMSize) > len(rom) {
		return nil, fmt.Errorf("%w: header claims %d bytes, image has %d", ErrROMImageInvalid, hdr.ROMSize, len(rom))
	}

	var mbc MemoryBankController
	switch hdr.Type {
	case TypeROM:
		mbc = newMBC0(rom)
	case TypeMBC1, TypeMBC1RAM, TypeMBC1RAMBattery:
		mbc = newMBC1(rom, hdr)
	case TypeMBC2, TypeMBC2Battery:
		mbc = newMBC2(rom, hdr)
	case TypeMBC3, TypeMBC3RAM, TypeMBC3RAMBattery, TypeMBC3TimerBattery, TypeMBC3TimerRAMBatt:
		mbc = newMBC3(rom, hdr)
	case TypeMBC5, TypeMBC5RAM, TypeMBC5RAMBattery, TypeMBC5Rumble, TypeMBC5RumbleRAM, TypeMBC5RumbleRAMBatt:
		mbc = newMBC5(rom, hdr)
	default:
		return nil, fmt.Errorf("%w: type byte %#02x", ErrUnsupportedMBC, hdr.Type)
	}

	return &Cartridge{MemoryBankController: mbc, header: hdr}, nil
}
