package cpu

import "github.com/gbmetal/kernel/internal/registers"

// 8-bit and 16-bit arithmetic/logic, grounded on the teacher's
// arithmetic.go/logic.go flag formulas (half-carry via the low-nibble
// overflow check, full-carry via the widened-integer comparison).

const (
	flagZreg = registers.FlagZ
	flagN    = registers.FlagN
	flagH    = registers.FlagH
	flagCreg = registers.FlagC
)

func (c *CPU) add8(a, b uint8) uint8 {
	result := uint16(a) + uint16(b)
	c.setFlags(uint8(result) == 0, false, (a&0xF)+(b&0xF) > 0xF, result > 0xFF)
	return uint8(result)
}

func (c *CPU) adc8(a, b uint8) uint8 {
	carry := uint16(0)
	if c.HasFlag(flagCreg) {
		carry = 1
	}
	result := uint16(a) + uint16(b) + carry
	c.setFlags(uint8(result) == 0, false, (a&0xF)+(b&0xF)+uint8(carry) > 0xF, result > 0xFF)
	return uint8(result)
}

func (c *CPU) sub8(a, b uint8) uint8 {
	result := int16(a) - int16(b)
	c.setFlags(uint8(result) == 0, true, int16(a&0xF)-int16(b&0xF) < 0, result < 0)
	return uint8(result)
}

func (c *CPU) sbc8(a, b uint8) uint8 {
	carry := int16(0)
	if c.HasFlag(flagCreg) {
		carry = 1
	}
	result := int16(a) - int16(b) - carry
	c.setFlags(uint8(result) == 0, true, int16(a&0xF)-int16(b&0xF)-carry < 0, result < 0)
	return uint8(result)
}

func (c *CPU) and8(a, b uint8) uint8 {
	result := a & b
	c.setFlags(result == 0, false, true, false)
	return result
}

func (c *CPU) or8(a, b uint8) uint8 {
	result := a | b
	c.setFlags(result == 0, false, false, false)
	return result
}

func (c *CPU) xor8(a, b uint8) uint8 {
	result := a ^ b
	c.setFlags(result == 0, false, false, false)
	return result
}

func (c *CPU) cp8(a, b uint8) {
	c.sub8(a, b)
}

func (c *CPU) inc8(v uint8) uint8 {
	result := v + 1
	c.SetFlag(flagZreg, result == 0)
	c.SetFlag(flagN, false)
	c.SetFlag(flagH, v&0xF == 0xF)
	return result
}

func (c *CPU) dec8(v uint8) uint8 {
	result := v - 1
	c.SetFlag(flagZreg, result == 0)
	c.SetFlag(flagN, true)
	c.SetFlag(flagH, v&0xF == 0)
	return result
}

// setFlags is the common ALU epilogue: Z/N/H/C all set together, which
// keeps every 8-bit op above a one-liner instead of four.
func (c *CPU) setFlags(zero, subtract, halfCarry, carry bool) {
	c.SetFlag(flagZreg, zero)
	c.SetFlag(flagN, subtract)
	c.SetFlag(flagH, halfCarry)
	c.SetFlag(flagCreg, carry)
}

// addHL16 implements ADD HL,rr: half-carry/carry derived from the
// 12-bit/16-bit boundary, zero flag left untouched (spec.md §8's ADD
// HL,rr boundary test asserts exactly this).
func (c *CPU) addHL16(b uint16) {
	a := c.HL.Uint16()
	result := uint32(a) + uint32(b)
	c.SetFlag(flagN, false)
	c.SetFlag(flagH, (a&0xFFF)+(b&0xFFF) > 0xFFF)
	c.SetFlag(flagCreg, result > 0xFFFF)
	c.HL.SetUint16(uint16(result))
}

// addSPSigned implements both ADD SP,r8 and LD HL,SP+r8: the operand is
// a signed byte but half-carry/carry are computed against its unsigned
// byte pattern added to SP's low byte, per real hardware behaviour.
func (c *CPU) addSPSigned(sp uint16, operand int8) uint16 {
	b := uint16(uint8(operand))
	c.setFlags(false, false, (sp&0xF)+(b&0xF) > 0xF, (sp&0xFF)+(b&0xFF) > 0xFF)
	return sp + uint16(operand)
}

func (c *CPU) daa() {
	a := uint16(c.A)
	if !c.HasFlag(flagN) {
		if c.HasFlag(flagCreg) || a > 0x99 {
			a += 0x60
			c.SetFlag(flagCreg, true)
		}
		if c.HasFlag(flagH) || a&0xF > 0x9 {
			a += 0x06
		}
	} else {
		if c.HasFlag(flagCreg) {
			a -= 0x60
		}
		if c.HasFlag(flagH) {
			a -= 0x06
		}
	}
	c.A = uint8(a)
	c.SetFlag(flagZreg, c.A == 0)
	c.SetFlag(flagH, false)
}

func (c *CPU) cpl() {
	c.A = ^c.A
	c.SetFlag(flagN, true)
	c.SetFlag(flagH, true)
}
