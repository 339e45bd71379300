package device

import (
	"testing"

	"github.com/gbmetal/kernel/internal/joypad"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	rom := make([]byte, 0x8000)
	rom[0x147] = 0x00 // ROM only
	rom[0x148] = 0x00
	rom[0x149] = 0x00
	d, err := New(rom)
	require.NoError(t, err)
	return d
}

func TestNewRejectsUnsupportedCartridgeType(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x147] = 0xFF // not a recognized MBC type byte
	_, err := New(rom)
	require.Error(t, err)
}

func TestStepDrivesTimerAndPPUWithReturnedCycles(t *testing.T) {
	d := newTestDevice(t)
	for i := 0; i < 100000; i++ {
		d.Step()
	}
	// 100,000 steps of at least 4 cycles each is well over one full frame
	// (70,224 cycles); a frame must have become ready at least once.
	require.True(t, d.PPU.FrameReady() || d.CheckAndResetFrameReady())
}

func TestKeyDownRaisesJoypadIRQThroughTheRegister(t *testing.T) {
	d := newTestDevice(t)
	d.MMU.Write(0xFF00, 0x10) // select action half (P15=0), deselect direction (P14=1)
	d.KeyDown(joypad.ButtonA)
	require.Equal(t, uint8(0x10), d.MMU.Read(0xFF0F)&0x10)
}

func TestCheckAndResetFrameReadyClearsAfterObservation(t *testing.T) {
	d := newTestDevice(t)
	for !d.PPU.FrameReady() {
		d.Step()
	}
	require.True(t, d.CheckAndResetFrameReady())
	require.False(t, d.CheckAndResetFrameReady())
}
