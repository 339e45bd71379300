// Package device composes the CPU, MMU, PPU, Timer, Joypad and
// Cartridge into the single synchronous step loop spec.md §4.7
// describes: "its step method runs one CPU instruction, then drives
// Timer and PPU with the returned cycle count". Grounded on the
// composition-root shape of the teacher's internal/gameboy package
// (aggregates the same five components, constructed once from ROM
// bytes), but without the teacher's save/cheat/accessory extras, which
// are out of this spec's scope - persistence lives in internal/save
// instead, driven by the frame driver rather than the device itself.
package device

import (
	"github.com/gbmetal/kernel/internal/cartridge"
	"github.com/gbmetal/kernel/internal/cpu"
	"github.com/gbmetal/kernel/internal/interrupts"
	"github.com/gbmetal/kernel/internal/joypad"
	"github.com/gbmetal/kernel/internal/mmu"
	"github.com/gbmetal/kernel/internal/palette"
	"github.com/gbmetal/kernel/internal/ppu"
	"github.com/gbmetal/kernel/internal/timer"
)

// Device is the fully wired Game Boy/Game Boy Color device model. It
// holds each component through a pointer; the components reach one
// another only through the links New wires (the MMU bus, the shared
// interrupt service, the PPU-HDMA pair).
type Device struct {
	CPU   *cpu.CPU
	MMU   *mmu.MMU
	PPU   *ppu.PPU
	Timer *timer.Controller
	Pad   *joypad.Register
	Cart  *cartridge.Cartridge

	irq *interrupts.Service
}

// New parses rom and constructs every component wired together; this is
// the one fallible operation in the device API (spec.md §7: "Device API
// returns a result type only at construction").
func New(rom []byte) (*Device, error) {
	cart, err := cartridge.New(rom)
	if err != nil {
		return nil, err
	}

	isCGB := cart.Header().CGBFlag != cartridge.CGBFlagDMGOnly

	irq := interrupts.NewService()
	video := ppu.New(irq, isCGB)
	tc := timer.New(irq)
	pad := joypad.New(irq)

	bus := mmu.New(cart, video, tc, pad, irq, isCGB)
	video.AttachHDMA(bus.HDMA())
	// LCDC as the boot ROM leaves it (LCD, background and 0x8000 tile
	// data on), since execution starts straight at the cartridge entry.
	bus.Write(0xFF40, 0x91)

	core := cpu.New(bus, irq, bus)

	return &Device{
		CPU:   core,
		MMU:   bus,
		PPU:   video,
		Timer: tc,
		Pad:   pad,
		Cart:  cart,
		irq:   irq,
	}, nil
}

// Step runs one CPU instruction and propagates the cycle count it
// returns to Timer and PPU, every instruction's cost delivered to both
// before the next begins (spec.md §5's first ordering guarantee).
// Keypad IRQs are raised synchronously by KeyDown, so there is nothing
// left for Step to propagate for the joypad.
func (d *Device) Step() uint32 {
	cycles := d.CPU.Step()
	d.Timer.Tick(uint16(cycles))
	d.PPU.Tick(uint16(cycles))
	return cycles
}

// CheckAndResetFrameReady is the frame driver's per-frame poll (spec.md
// §4.4/§4.7 phase 3).
func (d *Device) CheckAndResetFrameReady() bool {
	return d.PPU.CheckAndResetFrameReady()
}

// CheckAndResetRAMDirty is the save system's per-frame poll (spec.md §3/
// §4.7 phase 2).
func (d *Device) CheckAndResetRAMDirty() bool {
	return d.Cart.CheckAndResetRAMDirty()
}

// HasBattery reports whether the inserted cartridge's RAM is worth
// persisting at all; the frame driver's save-debounce phase gates on
// this before ever touching the save store.
func (d *Device) HasBattery() bool {
	return d.Cart.HasBattery()
}

// KeyDown/KeyUp deliver external input, per spec.md §4.6.
func (d *Device) KeyDown(k joypad.Button) { d.Pad.KeyDown(k) }
func (d *Device) KeyUp(k joypad.Button)   { d.Pad.KeyUp(k) }

// DoubleSpeed reports the current CGB clock speed, for the frame
// driver's tick-budget accounting (spec.md §4.7 phase 1).
func (d *Device) DoubleSpeed() bool { return d.MMU.DoubleSpeed() }

// Framebuffer returns the PPU's completed-frame palette-index buffer.
func (d *Device) Framebuffer() [144][160]uint8 { return d.PPU.Framebuffer }

// PaletteSource exposes the PPU as the frame driver's palette.Sync
// input.
func (d *Device) PaletteSource() palette.RGB6Source { return d.PPU }
