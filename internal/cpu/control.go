package cpu

// Branches, stack ops, accumulator rotates and the misc single-byte
// instructions (DI/EI/HALT/STOP/NOP/CPL/CCF/SCF). Cycle counts fall out
// naturally from the fetch8/fetch16/read8/write8/delay helpers each
// contributing 4 T-cycles, matching real per-opcode timings without a
// separate lookup table (verified by hand against the documented 4/8/
// 12/16/20/24-cycle opcode groups).

func (c *CPU) jp(taken bool) {
	addr := c.fetch16()
	if taken {
		c.PC = addr
		c.delay(4)
	}
}

func (c *CPU) jpHL() {
	c.PC = c.HL.Uint16()
}

func (c *CPU) jr(taken bool) {
	offset := c.fetchSigned8()
	if taken {
		c.PC = uint16(int32(c.PC) + int32(offset))
		c.delay(4)
	}
}

func (c *CPU) call(taken bool) {
	addr := c.fetch16()
	if taken {
		c.delay(4)
		c.push16(c.PC)
		c.PC = addr
	}
}

func (c *CPU) ret(taken bool) {
	if taken {
		c.PC = c.pop16()
		c.delay(4)
	}
}

// retCond is RET cc: the condition check itself costs one internal
// delay cycle even when the branch isn't taken, unlike JP/CALL cc.
func (c *CPU) retCond(taken bool) {
	c.delay(4)
	c.ret(taken)
}

func (c *CPU) reti() {
	c.PC = c.pop16()
	c.delay(4)
	c.irq.IME = true
}

func (c *CPU) rst(addr uint16) {
	c.delay(4)
	c.push16(c.PC)
	c.PC = addr
}

func (c *CPU) pushPair(index uint8) {
	c.delay(4)
	c.push16(c.pair16(index, true))
}

func (c *CPU) popPair(index uint8) {
	c.setPair16(index, true, c.pop16())
}

// rlca/rla/rrca/rra are the plain accumulator rotates: they always
// clear Z, unlike their CB-prefixed RLC/RL/RRC/RR counterparts which
// set Z from the result (grounded on the teacher's rotate.go split
// between the two families).
func (c *CPU) rlca() {
	carry := c.A&0x80 != 0
	c.A = c.A<<1 | b2u8(carry)
	c.setFlags(false, false, false, carry)
}

func (c *CPU) rla() {
	carry := c.A&0x80 != 0
	c.A = c.A<<1 | b2u8(c.HasFlag(flagCreg))
	c.setFlags(false, false, false, carry)
}

func (c *CPU) rrca() {
	carry := c.A&0x01 != 0
	c.A = c.A>>1 | (b2u8(carry) << 7)
	c.setFlags(false, false, false, carry)
}

func (c *CPU) rra() {
	carry := c.A&0x01 != 0
	c.A = c.A>>1 | (b2u8(c.HasFlag(flagCreg)) << 7)
	c.setFlags(false, false, false, carry)
}

func (c *CPU) ccf() {
	c.SetFlag(flagN, false)
	c.SetFlag(flagH, false)
	c.SetFlag(flagCreg, !c.HasFlag(flagCreg))
}

func (c *CPU) scf() {
	c.SetFlag(flagN, false)
	c.SetFlag(flagH, false)
	c.SetFlag(flagCreg, true)
}

// halt enters the halted mode, or - if IME is clear - either the
// halt-bug mode (an interrupt is already pending, so the next opcode
// byte is fetched twice) or a plain wait-for-interrupt mode with no
// bug, matching the teacher's glitches.go doHALTBug condition.
func (c *CPU) halt() {
	switch {
	case c.irq.IME:
		c.mode = modeHalt
	case c.hasPending():
		c.mode = modeHaltBug
	default:
		c.mode = modeHaltDI
	}
}

// stop consumes STOP's padding byte, then either performs an armed CGB
// speed switch (completing immediately) or enters the stopped mode,
// which Step leaves, as it does HALT, once any enabled interrupt is
// pending.
func (c *CPU) stop() {
	c.fetch8()
	if c.speed != nil && c.speed.KeySpeedArmed() {
		c.speed.ToggleSpeed()
		return
	}
	c.mode = modeStop
}

func (c *CPU) ei() {
	c.mode = modeEnableIME
}

func (c *CPU) di() {
	c.irq.IME = false
}
