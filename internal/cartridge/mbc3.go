package cartridge

// mbc3 has a 7-bit ROM bank (0 coerces to 1), a 2-bit RAM bank, and an
// optional real-time clock whose day/hour/minute/second registers live
// at 0x4000-0x5FFF range 0x08-0x0C when the RAM-bank register selects
// them. Grounded on the teacher's internal/cartridge/mbc3.go register
// layout, but with the latch edge corrected per spec.md §8: the sequence
// is a literal 0x00 write followed by a 0x01 write to 0x6000-0x7FFF: any
// other value observed before the 0x01 invalidates the pending latch.
type mbc3 struct {
	rom []byte
	ram []byte

	ramg       bool
	romBank    uint8 // 7-bit, 0 coerces to 1
	ramOrRTC   uint8 // 0-3 selects RAM bank; 0x08-0x0C selects an RTC register

	rtc        [5]uint8 // seconds, minutes, hours, day-low, day-high(carry/halt)
	latchedRTC [5]uint8
	latchArmed bool // true right after a 0x00 write, awaiting 0x01

	ramDirty bool
}

// RTC register indices within the 0x08-0x0C window.
const (
	rtcSeconds = 0x08
	rtcMinutes = 0x09
	rtcHours   = 0x0A
	rtcDayLow  = 0x0B
	rtcDayHigh = 0x0C // bit 0 = day counter bit 8, bit 6 = halt, bit 7 = day carry
)

func newMBC3(rom []byte, hdr Header) *mbc3 {
	return &mbc3{
		rom:     rom,
		ram:     make([]byte, hdr.RAMSize),
		romBank: 1,
	}
}

func (m *mbc3) ReadROM(address uint16) uint8 {
	if address < 0x4000 {
		return m.rom[address]
	}
	bank := uint32(m.romBank)
	if n := uint32(len(m.rom) / 0x4000); n > 0 {
		bank %= n
	}
	return m.rom[bank*0x4000+uint32(address-0x4000)]
}

func (m *mbc3) WriteROM(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramg = value&0x0F == 0x0A
	case address < 0x4000:
		value &= 0x7F
		if value == 0 {
			value = 1
		}
		m.romBank = value
	case address < 0x6000:
		m.ramOrRTC = value
	default:
		m.handleLatchWrite(value)
	}
}

func (m *mbc3) handleLatchWrite(value uint8) {
	switch {
	case value == 0x00:
		m.latchArmed = true
	case value == 0x01 && m.latchArmed:
		m.latchedRTC = m.rtc
		m.latchArmed = false
	default:
		m.latchArmed = false
	}
}

func (m *mbc3) selectsRTC() bool {
	return m.ramOrRTC >= rtcSeconds && m.ramOrRTC <= rtcDayHigh
}

func (m *mbc3) ReadRAM(address uint16) uint8 {
	if !m.ramg {
		return 0xFF
	}
	if m.selectsRTC() {
		return m.latchedRTC[m.ramOrRTC-rtcSeconds]
	}
	if len(m.ram) == 0 {
		return 0xFF
	}
	idx := int(m.ramOrRTC&0x03)*0x2000 + int(address)
	if idx >= len(m.ram) {
		return 0xFF
	}
	return m.ram[idx]
}

func (m *mbc3) WriteRAM(address uint16, value uint8) {
	if !m.ramg {
		return
	}
	if m.selectsRTC() {
		m.rtc[m.ramOrRTC-rtcSeconds] = value
		m.ramDirty = true
		return
	}
	if len(m.ram) == 0 {
		return
	}
	idx := int(m.ramOrRTC&0x03)*0x2000 + int(address)
	if idx >= len(m.ram) {
		return
	}
	if m.ram[idx] != value {
		m.ram[idx] = value
		m.ramDirty = true
	}
}

// TickSecond advances the live (unlatched) RTC by one second, carrying
// into minutes/hours/days and setting the day-carry bit (bit 7 of
// rtcDayHigh) on 9-bit day-counter overflow. The frame driver does not
// call this directly - it exists for host tooling/tests that want to
// exercise RTC carry without a 24h wall-clock wait.
func (m *mbc3) TickSecond() {
	if m.rtc[rtcDayHigh-rtcSeconds]&0x40 != 0 {
		return // halted
	}
	m.rtc[rtcSeconds-rtcSeconds]++
	if m.rtc[0] < 60 {
		return
	}
	m.rtc[0] = 0
	m.rtc[1]++
	if m.rtc[1] < 60 {
		return
	}
	m.rtc[1] = 0
	m.rtc[2]++
	if m.rtc[2] < 24 {
		return
	}
	m.rtc[2] = 0

	day := uint16(m.rtc[3]) | uint16(m.rtc[4]&1)<<8
	day++
	if day > 0x1FF {
		day = 0
		m.rtc[4] |= 0x80 // day carry
	}
	m.rtc[3] = uint8(day & 0xFF)
	m.rtc[4] = (m.rtc[4] &^ 0x01) | uint8((day>>8)&1)
}

func (m *mbc3) DumpRAM() []byte { return append([]byte(nil), m.ram...) }

func (m *mbc3) LoadRAM(data []byte) { copy(m.ram, data) }

func (m *mbc3) CheckAndResetRAMDirty() bool {
	dirty := m.ramDirty
	m.ramDirty = false
	return dirty
}
