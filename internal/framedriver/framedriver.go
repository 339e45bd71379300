// Package framedriver implements the 59.7 Hz forever loop described in
// spec.md §4.7: tick budget, save debounce, present, input pump. Every
// piece of real hardware it would otherwise touch directly - the VGA
// vertical-retrace status bit, the DAC ports, the framebuffer MMIO
// window, the PS/2 keyboard ring buffer - is hidden behind a small
// interface, the same way the teacher hides hardware-adjacent state
// behind mmu.IOBus, so this loop is unit-testable on a hosted Go runtime
// without any of that hardware present.
package framedriver

import (
	"context"

	"github.com/gbmetal/kernel/internal/diag"
	"github.com/gbmetal/kernel/internal/joypad"
	"github.com/gbmetal/kernel/internal/palette"
	"github.com/gbmetal/kernel/internal/save"
)

// FrameCycles is one Game Boy frame at DMG speed (spec.md §4.7 phase 1).
const FrameCycles = 70224

// Stepper is the device façade's per-instruction step, plus the
// frame/save observation points and the CGB double-speed flag the tick
// budget must account for.
type Stepper interface {
	Step() uint32
	DoubleSpeed() bool
	CheckAndResetFrameReady() bool
	CheckAndResetRAMDirty() bool
	HasBattery() bool
	Framebuffer() [144][160]uint8
	PaletteSource() palette.RGB6Source
	KeyDown(k joypad.Button)
	KeyUp(k joypad.Button)
}

// RetraceWaiter spins on the VGA input-status register's bit 3
// low-then-high transition (spec.md §4.7 phase 3).
type RetraceWaiter interface {
	WaitForRetrace()
}

// DAC is the hardware palette port pair: a start-index write followed by
// a stream of 6-bit R,G,B triples (spec.md §6).
type DAC interface {
	Program(table [256]palette.RGB6)
}

// Framebuffer is the MMIO window the back buffer is copied into,
// byte-per-pixel in row-major order, no bank switching (spec.md §6).
type Framebuffer interface {
	Present(back [palette.BackHeight][palette.BackWidth]uint8)
}

// KeyEvent is one keydown/keyup transition drained from the PS/2 ring
// buffer (spec.md §9's "interrupt-driven keyboard -> synchronous
// keypad").
type KeyEvent struct {
	Button  joypad.Button
	Pressed bool
}

// KeyEventSource drains pending keyboard events at phase 4.
type KeyEventSource interface {
	Poll() []KeyEvent
}

// SaveWriter persists cartridge RAM when the debounce window elapses.
type SaveWriter interface {
	Save(ram []byte) error
	RAMSnapshot() []byte
}

// Loop bundles everything one frame-driver iteration needs.
type Loop struct {
	Dev     Stepper
	Retrace RetraceWaiter
	DAC     DAC
	FB      Framebuffer
	Keys    KeyEventSource
	Saver   SaveWriter

	// Screen paints the diagnostic panic screen when a fatal condition
	// (any of the device model's "unreachable state" panics, such as the
	// CPU decoder's invalid register index) unwinds through RunFrame. Nil
	// is valid - the message is still logged, just not painted.
	Screen diag.PanicScreen

	debounce    save.Debounce
	accumCycles uint32 // DMG-equivalent cycles accumulated this frame
}

// Run executes the forever loop until ctx is cancelled. Frame pacing is
// implicit (the retrace wait caps the rate); there is no explicit sleep
// (spec.md §4.7).
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		l.RunFrame()
	}
}

// RunFrame performs exactly one iteration of the four phases, exposed
// separately from Run so it can be driven deterministically in tests.
// Any panic raised while stepping the device - an unreachable CPU state,
// a decoder bug - unwinds through this deferred recover rather than
// reaching Run's caller (spec.md §7: fatal paths paint a diagnostic
// screen and halt, never silently reset).
func (l *Loop) RunFrame() {
	defer diag.Recover(l.Screen)
	l.tickBudget()
	l.saveDebounce()
	l.present()
	l.inputPump()
}

// tickBudget runs Step in a tight loop until the accumulated
// DMG-equivalent cycle count reaches one frame. In CGB double-speed
// windows the CPU returns roughly twice as many raw cycles per unit of
// wall time, so those are halved before accumulating - this is what
// makes the same FrameCycles threshold correct at both clock rates
// (spec.md §4.7 phase 1: "140,448 for the brief windows... handled
// transparently").
func (l *Loop) tickBudget() {
	l.accumCycles = 0
	for l.accumCycles < FrameCycles {
		cycles := l.Dev.Step()
		if l.Dev.DoubleSpeed() {
			cycles /= 2
		}
		l.accumCycles += cycles
	}
}

// saveDebounce is phase 2: spec.md §4.7/§4.8's debounce state machine,
// delegated to save.Debounce so the frame driver and the save package
// share one definition of "idle long enough to persist". Cartridges with
// no battery have nothing worth persisting, so the dirty flag is still
// cleared (it would otherwise pin the debounce timer) but never reaches
// the store.
func (l *Loop) saveDebounce() {
	dirty := l.Dev.CheckAndResetRAMDirty()
	if l.debounce.Tick(dirty) && l.Dev.HasBattery() {
		_ = l.Saver.Save(l.Saver.RAMSnapshot()) // logged-and-swallowed by the caller's SaveWriter, spec.md §7
	}
}

// present is phase 3: sync the DAC, blit, wait for retrace, present.
func (l *Loop) present() {
	if !l.Dev.CheckAndResetFrameReady() {
		return
	}
	l.DAC.Program(palette.Sync(l.Dev.PaletteSource()))

	var back [palette.BackHeight][palette.BackWidth]uint8
	palette.Blit(l.Dev.Framebuffer(), &back)

	l.Retrace.WaitForRetrace()
	l.FB.Present(back)
}

// inputPump is phase 4: drain pending keyboard events and deliver each
// to the device's joypad register.
func (l *Loop) inputPump() {
	for _, ev := range l.Keys.Poll() {
		if ev.Pressed {
			l.Dev.KeyDown(ev.Button)
		} else {
			l.Dev.KeyUp(ev.Button)
		}
	}
}
