// Package joypad provides the Game Boy's P1 joypad register: two
// selectable button-row halves, read back inverted, with a falling-edge
// IRQ. This is close to a direct port of the teacher's internal/joypad
// package - of everything in the teacher tree this needed the least
// re-architecture to match spec.md §4.6.
package joypad

import (
	"github.com/gbmetal/kernel/internal/bits"
	"github.com/gbmetal/kernel/internal/interrupts"
)

// Button identifies one physical button.
type Button = uint8

const (
	ButtonA      Button = 0x01
	ButtonB      Button = 0x02
	ButtonSelect Button = 0x04
	ButtonStart  Button = 0x08
	ButtonRight  Button = 0x10
	ButtonLeft   Button = 0x20
	ButtonUp     Button = 0x40
	ButtonDown   Button = 0x80
)

// directionMask and actionMask split Button into the two selectable
// halves P1 multiplexes onto its low nibble.
const (
	directionMask = ButtonRight | ButtonLeft | ButtonUp | ButtonDown
	actionMask    = ButtonA | ButtonB | ButtonSelect | ButtonStart
)

// Register is 0xFF00: two selector bits (P14 directions, P15 actions)
// written by the game, and the inverted button state of whichever half
// is selected read back in the low nibble.
type Register struct {
	p1    uint8 // selector bits, bits 4-5
	state uint8 // 1 = pressed, one bit per Button constant

	irq *interrupts.Service
}

// New returns a Register with neither half selected and nothing pressed.
func New(irq *interrupts.Service) *Register {
	return &Register{p1: 0x30, irq: irq}
}

// Read returns the value the CPU sees at 0xFF00.
func (r *Register) Read() uint8 {
	out := r.p1 | 0x0F
	if !bits.Test(r.p1, 4) { // P14 low selects directions
		out &^= (r.state & directionMask) >> 4
	}
	if !bits.Test(r.p1, 5) { // P15 low selects actions
		out &^= r.state & actionMask
	}
	return out
}

// Write stores the selector bits written by the game; the low nibble is
// read-only from the CPU's perspective.
func (r *Register) Write(value uint8) {
	r.p1 = (r.p1 & 0xCF) | (value & 0x30)
}

// KeyDown marks key pressed, raising the Joypad IRQ if this is a
// released-to-pressed transition within the currently selected half.
func (r *Register) KeyDown(key Button) {
	wasPressed := r.state&key != 0
	r.state |= key

	if wasPressed {
		return
	}
	if key&directionMask != 0 && bits.Test(r.p1, 4) {
		return // direction half not selected
	}
	if key&actionMask != 0 && bits.Test(r.p1, 5) {
		return // action half not selected
	}
	r.irq.Request(interrupts.JoypadFlag)
}

// KeyUp marks key released. Releasing a button never raises an IRQ.
func (r *Register) KeyUp(key Button) {
	r.state &^= key
}
