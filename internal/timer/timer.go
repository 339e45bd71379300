// Package timer provides the Game Boy's DIV and TIMA/TMA/TAC timer,
// driven by the cycle count the CPU returns from each step - a
// tick-accumulator design per spec.md §4.5 and §9, not the teacher's
// global-scheduler model (internal/timer/timer.go's
// scheduler.Scheduler.ScheduleEvent calls), since the device façade this
// spec describes is a synchronous parent-owns-children Step() with no
// shared scheduler between components.
package timer

import "github.com/gbmetal/kernel/internal/interrupts"

// tacDivisor maps the 2-bit TAC clock-select field to the CPU-cycle
// period between TIMA increments: 1024/16/64/256 clocks for
// 4096/262144/65536/16384 Hz respectively.
var tacDivisor = [4]uint16{1024, 16, 64, 256}

const divDivisor = 256 // DIV increments every 256 CPU clocks (16384 Hz)

// Controller holds the DIV/TIMA accumulators and the TMA/TAC registers.
type Controller struct {
	divAccum  uint16
	timaAccum uint16

	div  uint8
	tima uint8
	tma  uint8
	tac  uint8 // bit 2 = enable, bits 0-1 = clock select

	// doubleSpeed scales the tick-rate input per the CGB double-speed
	// Open Question resolved in DESIGN.md: DIV/TIMA stay referenced to
	// the single-speed clock, so every other double-speed cycle is
	// folded into the accumulator.
	doubleSpeed  bool
	carriedCycle bool

	irq *interrupts.Service
}

// New returns a Controller with DIV seeded the way real hardware leaves
// it post-boot-ROM (a nonzero value; the exact seed is not
// spec-significant so 0xAB is kept from the teacher's internal/timer).
func New(irq *interrupts.Service) *Controller {
	return &Controller{irq: irq, div: 0xAB}
}

// SetDoubleSpeed is called by the CPU when KEY1's speed-switch bit 7
// flips.
func (c *Controller) SetDoubleSpeed(on bool) {
	c.doubleSpeed = on
}

func (c *Controller) enabled() bool { return c.tac&0x04 != 0 }

// Tick advances DIV and TIMA by cycles CPU clocks, raising the Timer IRQ
// on TIMA overflow. cycles is always delivered exactly once per CPU step
// (spec.md §3's "Sum of time" invariant).
func (c *Controller) Tick(cycles uint16) {
	effective := cycles
	if c.doubleSpeed {
		// fold pairs of double-speed cycles into one single-speed tick
		if c.carriedCycle {
			effective++
			c.carriedCycle = false
		}
		if effective%2 != 0 {
			c.carriedCycle = true
		}
		effective /= 2
	}

	c.tickDIV(effective)
	c.tickTIMA(effective)
}

func (c *Controller) tickDIV(cycles uint16) {
	c.divAccum += cycles
	for c.divAccum >= divDivisor {
		c.divAccum -= divDivisor
		c.div++
	}
}

func (c *Controller) tickTIMA(cycles uint16) {
	if !c.enabled() {
		return
	}
	period := tacDivisor[c.tac&0x03]
	c.timaAccum += cycles
	for c.timaAccum >= period {
		c.timaAccum -= period
		c.tima++
		if c.tima == 0 {
			c.tima = c.tma
			c.irq.Request(interrupts.TimerFlag)
		}
	}
}

// ReadDIV returns the DIV register (0xFF04).
func (c *Controller) ReadDIV() uint8 { return c.div }

// WriteDIV resets DIV to 0 regardless of the value written - spec.md §4.5
// and testable property 7.
func (c *Controller) WriteDIV(uint8) {
	c.div = 0
	c.divAccum = 0
}

// ReadTIMA returns TIMA (0xFF05).
func (c *Controller) ReadTIMA() uint8 { return c.tima }

// WriteTIMA sets TIMA (0xFF05).
func (c *Controller) WriteTIMA(v uint8) { c.tima = v }

// ReadTMA returns TMA (0xFF06).
func (c *Controller) ReadTMA() uint8 { return c.tma }

// WriteTMA sets TMA (0xFF06).
func (c *Controller) WriteTMA(v uint8) { c.tma = v }

// ReadTAC returns TAC (0xFF07); unused bits read back as 1.
func (c *Controller) ReadTAC() uint8 { return c.tac | 0xF8 }

// WriteTAC sets TAC (0xFF07).
func (c *Controller) WriteTAC(v uint8) { c.tac = v & 0x07 }
