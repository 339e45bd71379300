// Package ppu implements the scanline-based tile/sprite compositor
// described in spec.md §4.4: an 80/172/204/4560-clock mode state machine
// driving a 160x144 palette-indexed framebuffer, with DMG shade
// registers and CGB 5-bit-RGB palette RAM both mapping down to a single
// 256-entry index space the hardware DAC can drive directly.
//
// This is a rewrite rather than a port of the teacher's internal/ppu:
// the teacher renders straight to RGB ([3]uint8 per pixel) through a
// background/lcd/palette package split, which cannot produce the
// palette-indexed output this spec's blit needs to drive a VGA DAC. The
// mode-timing constants and register naming are kept from the teacher
// (ScreenWidth/ScreenHeight, OAM/Transfer/HBlank/VBlank) as grounding.
package ppu

import (
	"fmt"

	"github.com/gbmetal/kernel/internal/bits"
	"github.com/gbmetal/kernel/internal/interrupts"
)

const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Mode is one of the four PPU states, numbered per the STAT register's
// low two bits.
type Mode uint8

const (
	ModeHBlank Mode = 0
	ModeVBlank Mode = 1
	ModeOAM    Mode = 2
	ModeXfer   Mode = 3
)

// Mode clock lengths, in CPU clocks (spec.md §4.4).
const (
	cyclesOAM        = 80
	cyclesXfer       = 172
	cyclesPerLine    = 456
	vblankLines      = 10
	visibleLines     = ScreenHeight
	totalLines       = visibleLines + vblankLines
)

// LCDC bits.
const (
	lcdcBGWindowEnable = 0
	lcdcOBJEnable      = 1
	lcdcOBJSize        = 2
	lcdcBGTileMap      = 3
	lcdcTileData       = 4
	lcdcWindowEnable   = 5
	lcdcWindowTileMap  = 6
	lcdcLCDEnable      = 7
)

// STAT bits.
const (
	statLYCEqualLY   = 2
	statHBlankIRQ    = 3
	statVBlankIRQ    = 4
	statOAMIRQ       = 5
	statLYCIRQ       = 6
)

// HDMAPump is implemented by the MMU's HDMA unit; the PPU pumps one
// 16-byte block through it on every HBlank entry, per spec.md §4.3/§4.4.
type HDMAPump interface {
	PumpBlock()
}

// PPU is the device's pixel processing unit.
type PPU struct {
	lcdc uint8
	stat uint8
	scy  uint8
	scx  uint8
	ly   uint8
	lyc  uint8
	wy   uint8
	wx   uint8
	bgp  uint8
	obp0 uint8
	obp1 uint8

	mode      Mode
	modeclock uint16

	vram     [2][0x2000]uint8
	vramBank uint8
	oam      [0xA0]uint8

	bgPalette  cgbPalettes
	objPalette cgbPalettes

	// Framebuffer holds one DAC index per pixel; see palette.go for the
	// index layout (BG entries 0-31, sprite entries 64-95).
	Framebuffer [ScreenHeight][ScreenWidth]uint8

	frameReady bool
	windowLine uint8 // internal window-line counter, only advances on visible lines where the window was drawn

	isCGB bool
	irq   *interrupts.Service
	hdma  HDMAPump

	statLine bool // aggregate level for edge-triggered STAT IRQ
}

// New returns a PPU in its post-power-on state: LCD off, mode 0, LY 0.
func New(irq *interrupts.Service, isCGB bool) *PPU {
	return &PPU{irq: irq, isCGB: isCGB, mode: ModeHBlank}
}

// AttachHDMA wires the MMU's HDMA unit so the PPU can pump one block per
// HBlank. Called once by the device façade at construction.
func (p *PPU) AttachHDMA(h HDMAPump) { p.hdma = h }

// FrameReady reports whether a frame finished rendering, without
// clearing the flag.
func (p *PPU) FrameReady() bool { return p.frameReady }

// CheckAndResetFrameReady is the frame driver's poll-and-clear call
// (spec.md §4.4, "cleared by a check-and-reset call from the frame
// driver").
func (p *PPU) CheckAndResetFrameReady() bool {
	ready := p.frameReady
	p.frameReady = false
	return ready
}

func (p *PPU) enabled() bool { return bits.Test(p.lcdc, lcdcLCDEnable) }

// Tick advances the PPU by cycles CPU clocks, the count the CPU returned
// from its last step - delivered exactly once per step, never shared
// with the timer's own accumulator (spec.md §3's "Sum of time").
func (p *PPU) Tick(cycles uint16) {
	if !p.enabled() {
		return
	}
	for cycles > 0 {
		step := cycles
		if step > 1 {
			step = 1 // drive the state machine one clock at a time; keeps the mode-boundary logic exact without a second accumulator layer
		}
		p.tickOne()
		cycles -= step
	}
}

func (p *PPU) tickOne() {
	p.modeclock++

	switch p.mode {
	case ModeOAM:
		if p.modeclock >= cyclesOAM {
			p.modeclock = 0
			p.enterMode(ModeXfer)
		}
	case ModeXfer:
		if p.modeclock >= cyclesXfer {
			p.renderScanline()
			p.modeclock = 0
			p.enterMode(ModeHBlank)
		}
	case ModeHBlank:
		if p.modeclock >= cyclesPerLine-cyclesOAM-cyclesXfer {
			p.modeclock = 0
			p.advanceLine()
		}
	case ModeVBlank:
		if p.modeclock >= cyclesPerLine {
			p.modeclock = 0
			p.advanceLine()
		}
	}
}

func (p *PPU) advanceLine() {
	p.ly++
	if p.ly == visibleLines {
		p.enterMode(ModeVBlank)
		p.frameReady = true
		p.irq.Request(interrupts.VBlankFlag)
		return
	}
	if p.ly >= totalLines {
		p.ly = 0
		p.windowLine = 0
		p.enterMode(ModeOAM)
		return
	}
	if p.mode == ModeVBlank {
		return // still within the 10 VBlank lines
	}
	p.enterMode(ModeOAM)
}

func (p *PPU) enterMode(m Mode) {
	p.mode = m
	switch m {
	case ModeHBlank:
		if p.hdma != nil {
			p.hdma.PumpBlock()
		}
	}
	p.updateSTATLine()
}

// updateSTATLine recomputes the level-triggered STAT aggregate and
// raises the LCD IRQ only on its 0->1 transition - the Open Question
// resolution recorded in DESIGN.md.
func (p *PPU) updateSTATLine() {
	coincidence := p.ly == p.lyc
	line := (coincidence && bits.Test(p.stat, statLYCIRQ)) ||
		(p.mode == ModeHBlank && bits.Test(p.stat, statHBlankIRQ)) ||
		(p.mode == ModeVBlank && bits.Test(p.stat, statVBlankIRQ)) ||
		(p.mode == ModeOAM && bits.Test(p.stat, statOAMIRQ))

	if line && !p.statLine {
		p.irq.Request(interrupts.LCDFlag)
	}
	p.statLine = line
}

// Read returns the value of one of the PPU's memory-mapped registers.
func (p *PPU) Read(address uint16) uint8 {
	switch address {
	case 0xFF40:
		return p.lcdc
	case 0xFF41:
		stat := p.stat&0x78 | 0x80
		if p.ly == p.lyc {
			stat |= 1 << statLYCEqualLY
		}
		return stat | uint8(p.mode)
	case 0xFF42:
		return p.scy
	case 0xFF43:
		return p.scx
	case 0xFF44:
		return p.ly
	case 0xFF45:
		return p.lyc
	case 0xFF47:
		return p.bgp
	case 0xFF48:
		return p.obp0
	case 0xFF49:
		return p.obp1
	case 0xFF4A:
		return p.wy
	case 0xFF4B:
		return p.wx
	case 0xFF4F:
		return p.vramBank | 0xFE
	case 0xFF68, 0xFF69:
		return p.bgPalette.read(address)
	case 0xFF6A, 0xFF6B:
		return p.objPalette.read(address)
	}
	panic(fmt.Sprintf("ppu: illegal read from address %04X", address))
}

// Write stores a value to one of the PPU's memory-mapped registers.
func (p *PPU) Write(address uint16, value uint8) {
	switch address {
	case 0xFF40:
		wasEnabled := p.enabled()
		p.lcdc = value
		if wasEnabled && !p.enabled() {
			p.ly = 0
			p.modeclock = 0
			p.mode = ModeHBlank
		}
		if !wasEnabled && p.enabled() {
			// enabling the LCD resets modeclock and LY (spec.md §8 boundary case)
			p.ly = 0
			p.modeclock = 0
			p.enterMode(ModeOAM)
		}
	case 0xFF41:
		p.stat = value & 0x78
		p.updateSTATLine()
	case 0xFF42:
		p.scy = value
	case 0xFF43:
		p.scx = value
	case 0xFF44:
		// LY is read-only from the CPU's perspective
	case 0xFF45:
		p.lyc = value
		p.updateSTATLine()
	case 0xFF47:
		p.bgp = value
	case 0xFF48:
		p.obp0 = value
	case 0xFF49:
		p.obp1 = value
	case 0xFF4A:
		p.wy = value
	case 0xFF4B:
		p.wx = value
	case 0xFF4F:
		if p.isCGB {
			p.vramBank = value & 1
		}
	case 0xFF68, 0xFF69:
		p.bgPalette.write(address, value)
	case 0xFF6A, 0xFF6B:
		p.objPalette.write(address, value)
	default:
		panic(fmt.Sprintf("ppu: illegal write to address %04X", address))
	}
}

// ReadVRAM reads from the currently-banked VRAM (0x8000-0x9FFF window).
func (p *PPU) ReadVRAM(address uint16) uint8 {
	return p.vram[p.vramBank][address-0x8000]
}

// WriteVRAM writes to the currently-banked VRAM.
func (p *PPU) WriteVRAM(address uint16, value uint8) {
	p.vram[p.vramBank][address-0x8000] = value
}

// ReadVRAMBank reads from an explicit bank regardless of VBK; the
// scanline renderer uses it for tile maps, CGB tile attributes and tile
// data. The Mode-3 VRAM lock is not modeled.
func (p *PPU) ReadVRAMBank(bank uint8, address uint16) uint8 {
	return p.vram[bank&1][address-0x8000]
}

// WriteVRAMBank writes to an explicit bank.
func (p *PPU) WriteVRAMBank(bank uint8, address uint16, value uint8) {
	p.vram[bank&1][address-0x8000] = value
}

// ReadOAM reads one OAM byte (0xFE00-0xFE9F).
func (p *PPU) ReadOAM(address uint16) uint8 {
	return p.oam[address-0xFE00]
}

// WriteOAM writes one OAM byte, used both by the CPU and by OAM-DMA.
func (p *PPU) WriteOAM(address uint16, value uint8) {
	p.oam[address-0xFE00] = value
}

// WriteOAMIndex writes OAM byte i directly; OAM-DMA uses this to avoid
// recomputing the 0xFE00 offset 160 times per transfer.
func (p *PPU) WriteOAMIndex(i uint8, value uint8) {
	p.oam[i] = value
}

// IsCGB reports whether the PPU is rendering CGB palettes (for the
// palette-sync step: DMG games sync BGP/OBP0/OBP1 instead).
func (p *PPU) IsCGB() bool { return p.isCGB }

// BGP, OBP0, OBP1 expose the DMG shade registers for palette-sync.
func (p *PPU) BGP() uint8  { return p.bgp }
func (p *PPU) OBP0() uint8 { return p.obp0 }
func (p *PPU) OBP1() uint8 { return p.obp1 }

// BGColor5 returns the raw 5-5-5 CGB background color for palette p
// (0-7), slot (0-3), for palette-sync to convert into DAC 6-bit triples.
func (p *PPU) BGColor5(palette, slot uint8) uint16 { return p.bgPalette.color5(palette, slot) }

// ObjColor5 is BGColor5's sprite-palette counterpart.
func (p *PPU) ObjColor5(palette, slot uint8) uint16 { return p.objPalette.color5(palette, slot) }
