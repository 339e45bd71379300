package mmu

import (
	"testing"

	"github.com/gbmetal/kernel/internal/cartridge"
	"github.com/gbmetal/kernel/internal/interrupts"
	"github.com/gbmetal/kernel/internal/joypad"
	"github.com/gbmetal/kernel/internal/ppu"
	"github.com/gbmetal/kernel/internal/timer"
	"github.com/stretchr/testify/require"
)

func newTestMMU(t *testing.T) *MMU {
	t.Helper()
	rom := make([]byte, 0x8000)
	rom[0x147] = 0x00 // ROM only
	rom[0x148] = 0x00
	cart, err := cartridge.New(rom)
	require.NoError(t, err)

	irq := interrupts.NewService()
	video := ppu.New(irq, false)
	tc := timer.New(irq)
	pad := joypad.New(irq)

	return New(cart, video, tc, pad, irq, false)
}

func TestHRAMReadWrite(t *testing.T) {
	m := newTestMMU(t)
	m.Write(0xFF80, 0x42)
	require.Equal(t, uint8(0x42), m.Read(0xFF80))
}

func TestOAMDMACopiesInstantaneously(t *testing.T) {
	m := newTestMMU(t)
	// stamp WRAM with a recognizable pattern at 0xC000
	for i := uint16(0); i < 0xA0; i++ {
		m.Write(0xC000+i, uint8(i))
	}
	m.Write(0xFF46, 0xC0) // source page 0xC000

	for i := uint16(0); i < 0xA0; i++ {
		require.Equal(t, uint8(i), m.video.ReadOAM(0xFE00+i))
	}
}

func TestWRAMEchoRegion(t *testing.T) {
	m := newTestMMU(t)
	m.Write(0xC010, 0x55)
	require.Equal(t, uint8(0x55), m.Read(0xE010))
}

func TestUnusableRegionReadsFF(t *testing.T) {
	m := newTestMMU(t)
	require.Equal(t, uint8(0xFF), m.Read(0xFEA0))
}

func TestAudioRegistersStoreFaithfullyWithoutSynthesis(t *testing.T) {
	m := newTestMMU(t)
	m.Write(0xFF11, 0x80)
	require.Equal(t, uint8(0x80), m.Read(0xFF11))
}

func TestGDMATransfersImmediately(t *testing.T) {
	m := newTestMMU(t)
	for i := uint16(0); i < 16; i++ {
		m.Write(0xC000+i, uint8(0xA0+i))
	}
	m.Write(0xFF51, 0xC0) // source high
	m.Write(0xFF52, 0x00) // source low
	m.Write(0xFF53, 0x00) // dest high (VRAM offset 0x0000)
	m.Write(0xFF54, 0x00) // dest low
	m.Write(0xFF55, 0x00) // GDMA, 1 block

	for i := uint16(0); i < 16; i++ {
		require.Equal(t, uint8(0xA0+i), m.video.ReadVRAM(0x8000+i))
	}
	require.Equal(t, uint8(0xFF), m.Read(0xFF55))
}
