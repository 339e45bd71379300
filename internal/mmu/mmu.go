// Package mmu provides the memory management unit: the address router
// that dispatches every CPU-visible read and write across cartridge,
// VRAM/OAM, working RAM, high RAM, and the I/O register block. Grounded
// on the teacher's internal/mmu package (the IOBus interface and the
// shape of its Read/Write switch), rebuilt around this spec's narrower
// component set - no boot ROM (the x86 bootloader hands control
// straight to the device model at the cartridge entry point), no sound
// synthesis (0xFF10-0xFF3F is a faithful byte store only, per spec.md
// §9's audio Non-goal).
package mmu

import (
	"github.com/gbmetal/kernel/internal/cartridge"
	"github.com/gbmetal/kernel/internal/interrupts"
	"github.com/gbmetal/kernel/internal/joypad"
	"github.com/gbmetal/kernel/internal/ppu"
	"github.com/gbmetal/kernel/internal/timer"
)

// IOBus is the narrow interface HDMA and OAM-DMA use to read a transfer
// source without depending on the concrete MMU type.
type IOBus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// MMU is the device's memory management unit.
type MMU struct {
	Cart *cartridge.Cartridge

	video *ppu.PPU
	timer *timer.Controller
	pad   *joypad.Register
	irq   *interrupts.Service

	wram *WRAM
	hram [0x80]uint8

	hdma *HDMA

	// audioRegs is the faithful (non-synthesizing) store backing
	// 0xFF10-0xFF3F: games probe these bytes for hardware detection and
	// save/restore them across state changes even though this core never
	// produces sound from them (spec.md §9 Non-goals).
	audioRegs [0x30]uint8

	sb, sc uint8 // serial: stored faithfully, never actually transferred

	isCGB bool
	key0  uint8
	key1  uint8 // bit 0: armed: bit 7: current speed

	oamDMAInProgress bool
}

// New returns an MMU wired to the given components. AttachHDMA must be
// called once more afterward, since the HDMA unit's destination (the
// PPU's VRAM) and the MMU that owns it are mutually referential.
func New(cart *cartridge.Cartridge, video *ppu.PPU, tc *timer.Controller, pad *joypad.Register, irq *interrupts.Service, isCGB bool) *MMU {
	m := &MMU{
		Cart:  cart,
		video: video,
		timer: tc,
		pad:   pad,
		irq:   irq,
		wram:  NewWRAM(),
		isCGB: isCGB,
	}
	m.hdma = NewHDMA(m, video)
	return m
}

// IsCGB reports whether the device is running in CGB mode.
func (m *MMU) IsCGB() bool { return m.isCGB }

// HDMA returns the MMU's HDMA unit so the device façade can wire it into
// the PPU's HDMAPump interface at construction.
func (m *MMU) HDMA() *HDMA { return m.hdma }

// KeySpeedArmed reports whether KEY1's prepare-speed-switch bit is set;
// the CPU checks this when executing STOP.
func (m *MMU) KeySpeedArmed() bool { return m.key1&0x01 != 0 }

// DoubleSpeed reports the currently active CPU/timer clock speed.
func (m *MMU) DoubleSpeed() bool { return m.key1&0x80 != 0 }

// ToggleSpeed flips the active speed and clears the armed bit; called
// by the CPU when STOP executes with the switch armed (spec.md §4.2/
// supplemented KEY1 feature).
func (m *MMU) ToggleSpeed() {
	m.key1 ^= 0x80
	m.key1 &^= 0x01
	m.timer.SetDoubleSpeed(m.DoubleSpeed())
}

// Read returns the value at address as seen by the CPU.
func (m *MMU) Read(address uint16) uint8 {
	switch {
	case address <= 0x7FFF:
		return m.Cart.ReadROM(address)
	case address <= 0x9FFF:
		return m.video.ReadVRAM(address)
	case address <= 0xBFFF:
		return m.Cart.ReadRAM(address - 0xA000)
	case address <= 0xDFFF:
		return m.wram.Read(address)
	case address <= 0xFDFF:
		return m.wram.Read(address)
	case address <= 0xFE9F:
		if m.oamDMAInProgress {
			return 0xFF
		}
		return m.video.ReadOAM(address)
	case address <= 0xFEFF:
		return 0xFF // unusable region
	default:
		return m.readIO(address)
	}
}

// Write stores value at address as seen by the CPU.
func (m *MMU) Write(address uint16, value uint8) {
	switch {
	case address <= 0x7FFF:
		m.Cart.WriteROM(address, value)
	case address <= 0x9FFF:
		m.video.WriteVRAM(address, value)
	case address <= 0xBFFF:
		m.Cart.WriteRAM(address-0xA000, value)
	case address <= 0xDFFF:
		m.wram.Write(address, value)
	case address <= 0xFDFF:
		m.wram.Write(address, value)
	case address <= 0xFE9F:
		if !m.oamDMAInProgress {
			m.video.WriteOAM(address, value)
		}
	case address <= 0xFEFF:
		// unusable region, writes are discarded
	default:
		m.writeIO(address, value)
	}
}

func (m *MMU) readIO(address uint16) uint8 {
	switch {
	case address == 0xFF00:
		return m.pad.Read()
	case address == 0xFF01:
		return m.sb
	case address == 0xFF02:
		return m.sc | 0x7C
	case address == 0xFF04:
		return m.timer.ReadDIV()
	case address == 0xFF05:
		return m.timer.ReadTIMA()
	case address == 0xFF06:
		return m.timer.ReadTMA()
	case address == 0xFF07:
		return m.timer.ReadTAC()
	case address == interrupts.FlagRegister:
		return m.irq.Read(address)
	case address >= 0xFF10 && address <= 0xFF3F:
		return m.audioRegs[address-0xFF10]
	case address >= 0xFF40 && address <= 0xFF45:
		return m.video.Read(address)
	case address == 0xFF46:
		return 0xFF // OAM-DMA source is write-only
	case address >= 0xFF47 && address <= 0xFF4B:
		return m.video.Read(address)
	case address == 0xFF4D:
		if m.isCGB {
			return m.key1 | 0x7E
		}
		return 0xFF
	case address == 0xFF4F:
		return m.video.Read(address)
	case address == 0xFF51, address == 0xFF52, address == 0xFF53, address == 0xFF54, address == 0xFF55:
		return m.hdma.Read(address)
	case address == 0xFF68, address == 0xFF69, address == 0xFF6A, address == 0xFF6B:
		return m.video.Read(address)
	case address == 0xFF70:
		if m.isCGB {
			return m.wram.Bank() | 0xF8
		}
		return 0xFF
	case address == interrupts.EnableRegister:
		return m.irq.Read(address)
	case address >= 0xFF80 && address <= 0xFFFE:
		return m.hram[address-0xFF80]
	default:
		return 0xFF
	}
}

func (m *MMU) writeIO(address uint16, value uint8) {
	switch {
	case address == 0xFF00:
		m.pad.Write(value)
	case address == 0xFF01:
		m.sb = value
	case address == 0xFF02:
		m.sc = value & 0x83
	case address == 0xFF04:
		m.timer.WriteDIV(value)
	case address == 0xFF05:
		m.timer.WriteTIMA(value)
	case address == 0xFF06:
		m.timer.WriteTMA(value)
	case address == 0xFF07:
		m.timer.WriteTAC(value)
	case address == interrupts.FlagRegister:
		m.irq.Write(address, value)
	case address >= 0xFF10 && address <= 0xFF3F:
		m.audioRegs[address-0xFF10] = value
	case address >= 0xFF40 && address <= 0xFF45:
		m.video.Write(address, value)
	case address == 0xFF46:
		m.runOAMDMA(value)
	case address >= 0xFF47 && address <= 0xFF4B:
		m.video.Write(address, value)
	case address == 0xFF4D:
		if m.isCGB {
			m.key1 = (m.key1 & 0x80) | (value & 0x01)
		}
	case address == 0xFF4F:
		m.video.Write(address, value)
	case address == 0xFF51, address == 0xFF52, address == 0xFF53, address == 0xFF54, address == 0xFF55:
		m.hdma.Write(address, value)
	case address == 0xFF68, address == 0xFF69, address == 0xFF6A, address == 0xFF6B:
		m.video.Write(address, value)
	case address == 0xFF70:
		if m.isCGB {
			m.wram.SetBank(value)
		}
	case address == interrupts.EnableRegister:
		m.irq.Write(address, value)
	case address >= 0xFF80 && address <= 0xFFFE:
		m.hram[address-0xFF80] = value
	default:
		// unimplemented I/O register: ignored, matching the rest of the
		// unusable regions rather than panicking mid-frame.
	}
}

// runOAMDMA performs the instantaneous 160-byte OAM-DMA copy from
// (src<<8) to OAM (spec.md §4.3: "completes instantaneously from the
// CPU's perspective - no partial-transfer state").
func (m *MMU) runOAMDMA(src uint8) {
	m.oamDMAInProgress = true
	base := uint16(src) << 8
	for i := uint16(0); i < 0xA0; i++ {
		m.video.WriteOAMIndex(uint8(i), m.Read(base+i))
	}
	m.oamDMAInProgress = false
}
