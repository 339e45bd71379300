// Package palette resolves the PPU's palette-indexed framebuffer (see
// internal/ppu's index layout doc comment) into the VGA DAC's 256
// 6-bit-per-channel entries, and blits the 160x144 indexed frame into
// the centered window of a 320x200 indexed back buffer. Grounded on
// spec.md §4.7/§6 and the teacher's internal/ppu/palette.Palettes
// (grayscale/green/red/yellow DMG shade tables) for the default DMG
// shade-to-color mapping - this core keeps only the grayscale table,
// since the other three are a player preference this spec doesn't ask
// for.
package palette

// RGB6 is one DAC entry: three 6-bit channels (0-63), per spec.md §6's
// "the conversion from CGB 5-bit channels to DAC 6-bit is a left-shift
// by one".
type RGB6 struct {
	R, G, B uint8
}

// dmgShades is the default grayscale DMG shade table, lifted from the
// teacher's Greyscale palette (0xFF/0xCC/0x77/0x00 per channel) and
// reduced from 8-bit to 6-bit (>>2) to match the DAC's native width.
var dmgShades = [4]RGB6{
	{0x3F, 0x3F, 0x3F},
	{0x33, 0x33, 0x33},
	{0x1D, 0x1D, 0x1D},
	{0x00, 0x00, 0x00},
}

// RGB6Source is the subset of *ppu.PPU palette-sync needs; kept as a
// narrow interface so this package doesn't import ppu's full surface,
// and exported so the device façade can name it as its PaletteSource
// return type.
type RGB6Source interface {
	IsCGB() bool
	BGP() uint8
	OBP0() uint8
	OBP1() uint8
	BGColor5(palette, slot uint8) uint16
	ObjColor5(palette, slot uint8) uint16
}

// cgb6 converts a raw 5-5-5 little-endian color word into three 6-bit
// DAC channels.
func cgb6(color5 uint16) RGB6 {
	return RGB6{
		R: uint8(color5&0x1F) << 1,
		G: uint8((color5>>5)&0x1F) << 1,
		B: uint8((color5>>10)&0x1F) << 1,
	}
}

func dmgShade(reg uint8, colorID uint8) RGB6 {
	return dmgShades[(reg>>(colorID*2))&0x03]
}

// Sync rebuilds the full 256-entry DAC table from the PPU's current
// palette state: CGB background/sprite palette RAM when running in CGB
// mode, or the DMG BGP/OBP0/OBP1 shade registers otherwise (spec.md
// §4.7 phase 3, "sync the palette DAC from PPU palette state").
func Sync(p RGB6Source) [256]RGB6 {
	var dac [256]RGB6

	if p.IsCGB() {
		for pal := uint8(0); pal < 8; pal++ {
			for slot := uint8(0); slot < 4; slot++ {
				dac[pal*4+slot] = cgb6(p.BGColor5(pal, slot))
				dac[64+pal*4+slot] = cgb6(p.ObjColor5(pal, slot))
			}
		}
		return dac
	}

	for colorID := uint8(0); colorID < 4; colorID++ {
		dac[colorID] = dmgShade(p.BGP(), colorID)
		dac[64+colorID] = dmgShade(p.OBP0(), colorID)
		dac[68+colorID] = dmgShade(p.OBP1(), colorID)
	}
	return dac
}

// Back buffer dimensions and the fixed centering offset (spec.md §4.7).
const (
	BackWidth  = 320
	BackHeight = 200
	offsetX    = 80
	offsetY    = 28
)

// Blit copies the 160x144 palette-indexed frame into back, centered at
// (offsetX, offsetY). back holds raw DAC indices, not RGB - the DAC
// itself is programmed separately by Sync's output, once, before the
// blit (spec.md §5's "VGA DAC is written only by palette-sync, strictly
// before the blit").
func Blit(frame [144][160]uint8, back *[BackHeight][BackWidth]uint8) {
	for y := 0; y < 144; y++ {
		row := &back[y+offsetY]
		for x := 0; x < 160; x++ {
			row[x+offsetX] = frame[y][x]
		}
	}
}
