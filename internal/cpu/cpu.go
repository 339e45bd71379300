// Package cpu implements the LR35902 instruction interpreter: fetch,
// decode and execute one instruction per Step call, returning the
// number of CPU clocks it took. Grounded on the teacher's
// internal/cpu package for the mode enum (halt/stop/halt-bug/
// enable-IME) and pointer-pair register wiring, but restructured
// around bit-decoded dispatch for the regular LD/ALU opcode blocks.
// Per spec.md §9's device façade design, Step() no longer ticks the
// other components itself the way the teacher's CPU does (dma/timer/
// ppu/sound.Tick calls inline) - it only returns a cycle count, and
// the device façade drives every other component with it afterward.
package cpu

import (
	"fmt"

	"github.com/gbmetal/kernel/internal/interrupts"
	"github.com/gbmetal/kernel/internal/registers"
)

// Bus is the memory interface the CPU executes against. Satisfied by
// *mmu.MMU; kept local so cpu can be unit tested against a bare RAM
// array without importing mmu.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// SpeedSwitcher lets the CPU ask whether a CGB speed switch is armed,
// and flip it, when STOP executes.
type SpeedSwitcher interface {
	KeySpeedArmed() bool
	ToggleSpeed()
}

type mode uint8

const (
	modeNormal mode = iota
	modeHalt
	modeStop
	modeHaltBug
	modeHaltDI
	modeEnableIME
)

// CPU is the LR35902 interpreter.
type CPU struct {
	PC uint16
	SP uint16
	*registers.File

	bus   Bus
	irq   *interrupts.Service
	speed SpeedSwitcher

	mode   mode
	cycles uint32
}

// New returns a CPU with PC at the cartridge entry point, 0x0100 - this
// core runs no Nintendo boot ROM first (spec.md §4.1: the x86
// bootloader hands control straight to the device model).
func New(bus Bus, irq *interrupts.Service, speed SpeedSwitcher) *CPU {
	return &CPU{
		PC:    0x0100,
		SP:    0xFFFE,
		File:  registers.New(),
		bus:   bus,
		irq:   irq,
		speed: speed,
	}
}

// Step executes exactly one instruction (or one halted/stopped clock,
// or one interrupt dispatch) and returns the number of CPU clocks it
// took - always a positive multiple of 4 (spec.md testable property 1).
func (c *CPU) Step() uint32 {
	c.cycles = 0

	switch c.mode {
	case modeHalt, modeStop:
		c.delay(4)
		if c.hasPending() {
			c.mode = modeNormal
		}
		return c.cycles
	case modeHaltDI:
		c.delay(4)
		if c.hasPending() {
			c.mode = modeNormal
		}
		return c.cycles
	case modeEnableIME:
		c.irq.IME = true
		c.mode = modeNormal
		c.execute(c.fetch8())
		if c.irq.IME && c.hasPending() {
			c.serviceInterrupt()
		}
		return c.cycles
	case modeHaltBug:
		opcode := c.fetch8()
		c.PC-- // the fetched opcode is executed again next Step - the HALT bug
		c.mode = modeNormal
		c.execute(opcode)
		if c.irq.IME && c.hasPending() {
			c.serviceInterrupt()
		}
		return c.cycles
	}

	c.execute(c.fetch8())
	if c.irq.IME && c.hasPending() {
		c.serviceInterrupt()
	}
	return c.cycles
}

func (c *CPU) hasPending() bool {
	_, _, ok := c.irq.Lowest()
	return ok
}

// serviceInterrupt dispatches the lowest-numbered pending, enabled
// interrupt: two internal delay cycles, a push of PC, then PC is set
// to the vector (spec.md §4.2).
func (c *CPU) serviceInterrupt() {
	flag, vector, ok := c.irq.Lowest()
	if !ok {
		return
	}
	c.irq.IME = false
	c.irq.Clear(flag)

	c.delay(4)
	c.delay(4)
	c.push16(c.PC)
	c.PC = vector
	c.delay(4)
}

// delay accounts for an internal (non-memory-access) machine cycle.
func (c *CPU) delay(t uint32) { c.cycles += t }

func (c *CPU) fetch8() uint8 {
	v := c.bus.Read(c.PC)
	c.PC++
	c.cycles += 4
	return v
}

func (c *CPU) fetchSigned8() int8 { return int8(c.fetch8()) }

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) read8(addr uint16) uint8 {
	c.cycles += 4
	return c.bus.Read(addr)
}

func (c *CPU) write8(addr uint16, v uint8) {
	c.cycles += 4
	c.bus.Write(addr, v)
}

func (c *CPU) push16(v uint16) {
	c.SP--
	c.write8(c.SP, uint8(v>>8))
	c.SP--
	c.write8(c.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := c.read8(c.SP)
	c.SP++
	hi := c.read8(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// getReg8/setReg8 index order matches the LR35902 opcode encoding:
// B,C,D,E,H,L,(HL),A.
func (c *CPU) getReg8(index uint8) uint8 {
	switch index {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.HL.Uint16())
	case 7:
		return c.A
	}
	panic(fmt.Sprintf("cpu: invalid register index %d", index))
}

func (c *CPU) setReg8(index uint8, v uint8) {
	switch index {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.HL.Uint16(), v)
	case 7:
		c.A = v
	default:
		panic(fmt.Sprintf("cpu: invalid register index %d", index))
	}
}

// pair16 resolves one of the four opcode-encoded 16-bit pairs. useAF
// selects whether index 3 means SP (PUSH/POP-unrelated contexts) or AF
// (PUSH/POP contexts) - the two places the Game Boy's opcode encoding
// overloads that slot.
func (c *CPU) pair16(index uint8, useAF bool) uint16 {
	switch index {
	case 0:
		return c.BC.Uint16()
	case 1:
		return c.DE.Uint16()
	case 2:
		return c.HL.Uint16()
	case 3:
		if useAF {
			return c.AF.Uint16() & 0xFFF0
		}
		return c.SP
	}
	panic(fmt.Sprintf("cpu: invalid pair index %d", index))
}

func (c *CPU) setPair16(index uint8, useAF bool, v uint16) {
	switch index {
	case 0:
		c.BC.SetUint16(v)
	case 1:
		c.DE.SetUint16(v)
	case 2:
		c.HL.SetUint16(v)
	case 3:
		if useAF {
			c.AF.SetUint16(v & 0xFFF0)
		} else {
			c.SP = v
		}
	default:
		panic(fmt.Sprintf("cpu: invalid pair index %d", index))
	}
}
