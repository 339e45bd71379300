package cpu

import (
	"testing"

	"github.com/gbmetal/kernel/internal/interrupts"
	"github.com/stretchr/testify/require"
)

// ramBus is a bare 64KiB array implementing Bus, used to unit test the
// CPU without pulling in the full mmu package.
type ramBus struct {
	mem [0x10000]uint8
}

func (r *ramBus) Read(addr uint16) uint8     { return r.mem[addr] }
func (r *ramBus) Write(addr uint16, v uint8) { r.mem[addr] = v }

func newTestCPU(t *testing.T) (*CPU, *ramBus) {
	t.Helper()
	bus := &ramBus{}
	irq := interrupts.NewService()
	c := New(bus, irq, nil)
	return c, bus
}

func (r *ramBus) load(addr uint16, program ...uint8) {
	for i, b := range program {
		r.mem[addr+uint16(i)] = b
	}
}

func TestEveryStepReturnsAPositiveMultipleOfFour(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100,
		0x00,       // NOP
		0x3E, 0x01, // LD A,1
		0xC3, 0x00, 0x01, // JP 0x0100
	)
	for i := 0; i < 10; i++ {
		cycles := c.Step()
		require.Greater(t, cycles, uint32(0))
		require.Zero(t, cycles%4)
	}
}

func TestIncBOverflowSetsZeroAndHalfCarry(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x04) // INC B
	c.B = 0xFF
	c.Step()
	require.Equal(t, uint8(0x00), c.B)
	require.True(t, c.HasFlag(flagZreg))
	require.True(t, c.HasFlag(flagH))
}

func TestDecBUnderflowSetsHalfCarryNotZero(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x05) // DEC B
	c.B = 0x00
	c.Step()
	require.Equal(t, uint8(0xFF), c.B)
	require.False(t, c.HasFlag(flagZreg))
	require.True(t, c.HasFlag(flagH))
}

func TestDAAAfterBCDAddition(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x27) // DAA
	c.A = 0x9A
	c.SetFlag(flagN, false)
	c.SetFlag(flagH, false)
	c.SetFlag(flagCreg, false)
	c.Step()
	require.Equal(t, uint8(0x00), c.A)
	require.True(t, c.HasFlag(flagCreg))
	require.True(t, c.HasFlag(flagZreg))
}

func TestLDRegisterToRegister(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x41) // LD B,C
	c.C = 0x77
	cycles := c.Step()
	require.Equal(t, uint8(0x77), c.B)
	require.Equal(t, uint32(4), cycles)
}

func TestLDFromMemoryCostsEightCycles(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x46) // LD B,(HL)
	c.HL.SetUint16(0x9000)
	bus.mem[0x9000] = 0x55
	cycles := c.Step()
	require.Equal(t, uint8(0x55), c.B)
	require.Equal(t, uint32(8), cycles)
}

func TestPushPopRoundTrip(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0xC5, 0xD1) // PUSH BC; POP DE
	c.BC.SetUint16(0x1234)
	c.SP = 0xFFFE
	cycles := c.Step()
	require.Equal(t, uint32(16), cycles)
	cycles = c.Step()
	require.Equal(t, uint32(12), cycles)
	require.Equal(t, uint16(0x1234), c.DE.Uint16())
}

func TestConditionalJumpTakenVsNotTaken(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0xC2, 0x00, 0x02) // JP NZ,0x0200
	c.SetFlag(flagZreg, true)          // not taken
	cycles := c.Step()
	require.Equal(t, uint32(12), cycles)
	require.Equal(t, uint16(0x0103), c.PC)

	c, bus = newTestCPU(t)
	bus.load(0x0100, 0xC2, 0x00, 0x02)
	c.SetFlag(flagZreg, false) // taken
	cycles = c.Step()
	require.Equal(t, uint32(16), cycles)
	require.Equal(t, uint16(0x0200), c.PC)
}

func TestHaltWithIMESetWaitsForInterrupt(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x76) // HALT
	c.irq.IME = true
	c.Step()
	require.Equal(t, modeHalt, c.mode)

	cycles := c.Step()
	require.Equal(t, uint32(4), cycles)
	require.Equal(t, modeHalt, c.mode)

	c.irq.Write(0xFFFF, 0x01)
	c.irq.Request(interrupts.VBlankFlag)
	cycles = c.Step()
	require.Equal(t, modeNormal, c.mode)
	_ = cycles
}

func TestHaltBugReexecutesNextByte(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x76, 0x3C) // HALT; INC A
	c.irq.IME = false
	c.irq.Write(0xFFFF, 0x01)
	c.irq.Request(interrupts.VBlankFlag)

	c.Step() // HALT: IME clear, interrupt pending -> halt-bug mode
	require.Equal(t, modeHaltBug, c.mode)

	c.Step() // INC A executes
	require.Equal(t, uint8(1), c.A)
	c.Step() // INC A executes again - the bug
	require.Equal(t, uint8(2), c.A)
}

func TestInterruptDispatchPushesPCAndSetsVector(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0x00) // NOP
	c.irq.IME = true
	c.irq.Write(0xFFFF, 0x01)
	c.irq.Request(interrupts.VBlankFlag)
	c.SP = 0xFFFE

	cycles := c.Step()
	require.Equal(t, uint16(0x0040), c.PC)
	require.False(t, c.irq.IME)
	require.Equal(t, uint32(4+20), cycles)

	pc := c.pop16()
	require.Equal(t, uint16(0x0101), pc)
}

func TestEIDelaysEnableByOneInstruction(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x0100, 0xFB, 0x00) // EI; NOP
	c.Step()
	require.False(t, c.irq.IME)
	c.Step()
	require.True(t, c.irq.IME)
}
