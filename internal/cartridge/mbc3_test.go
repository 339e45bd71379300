package cartridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMBC3RTCLatchSequence covers spec.md S8/§8: the latch sequence is a
// literal 0x00 write followed by 0x01 to 0x6000-0x7FFF.
func TestMBC3RTCLatchSequence(t *testing.T) {
	rom := makeROM(4, TypeMBC3TimerRAMBatt)
	hdr, err := ParseHeader(rom)
	require.NoError(t, err)
	m := newMBC3(rom, hdr)

	m.rtc[rtcHours-rtcSeconds] = 5
	m.WriteROM(0x6000, 0x00)
	m.WriteROM(0x6000, 0x01)

	m.WriteROM(0x4000, rtcHours) // select RTC hours register
	m.WriteROM(0x0000, 0x0A)     // enable RAM/RTC access
	require.Equal(t, uint8(5), m.ReadRAM(0))

	// live register keeps ticking after latch; latched copy stays frozen.
	m.rtc[rtcHours-rtcSeconds] = 9
	require.Equal(t, uint8(5), m.ReadRAM(0), "latched register must stay frozen")
}

// TestMBC3RTCLatchInvalidatedByOtherWrite covers spec.md's "a subsequent
// write of anything else before 0x00 invalidates the latch."
func TestMBC3RTCLatchInvalidatedByOtherWrite(t *testing.T) {
	rom := makeROM(4, TypeMBC3TimerRAMBatt)
	hdr, err := ParseHeader(rom)
	require.NoError(t, err)
	m := newMBC3(rom, hdr)

	m.rtc[rtcSeconds-rtcSeconds] = 30
	m.WriteROM(0x6000, 0x00)
	m.WriteROM(0x6000, 0x42) // invalidates the pending latch
	m.WriteROM(0x6000, 0x01) // must NOT latch: armed flag was cleared

	m.WriteROM(0x4000, rtcSeconds)
	m.WriteROM(0x0000, 0x0A)
	require.Equal(t, uint8(0), m.ReadRAM(0), "latch should not have fired")
}

func TestMBC3RomBankZeroCoercedToOne(t *testing.T) {
	rom := makeROM(4, TypeMBC3)
	hdr, err := ParseHeader(rom)
	require.NoError(t, err)
	m := newMBC3(rom, hdr)

	m.WriteROM(0x2000, 0x00)
	require.Equal(t, uint8(1), m.ReadROM(0x4000))
}
