package ppu

import (
	"sort"

	"github.com/gbmetal/kernel/internal/bits"
)

// tileAttr decodes a CGB background-map attribute byte, stored in VRAM
// bank 1 at the same offset as the tile index in bank 0.
type tileAttr struct {
	palette  uint8
	bank     uint8
	xFlip    bool
	yFlip    bool
	priority bool // CGB "BG has priority over OBJ" bit
}

func decodeTileAttr(b uint8) tileAttr {
	return tileAttr{
		palette:  b & 0x07,
		bank:     (b >> 3) & 1,
		xFlip:    bits.Test(b, 5),
		yFlip:    bits.Test(b, 6),
		priority: bits.Test(b, 7),
	}
}

// bgLine tracks, per output pixel, the source BG/window colour ID (0-3)
// and CGB priority bit, so the sprite pass can apply the OBJ-behind-BG
// priority rule correctly.
type bgLine struct {
	colorID  [ScreenWidth]uint8
	priority [ScreenWidth]bool
}

// renderScanline composites one visible line (p.ly) into Framebuffer,
// called once per Mode-3-to-HBlank transition (spec.md §4.4: "the
// scanline is rendered in a single step at the Mode 3 -> Mode 0
// transition, not pixel-by-pixel").
func (p *PPU) renderScanline() {
	if p.ly >= ScreenHeight {
		return
	}

	var line bgLine
	if bits.Test(p.lcdc, lcdcBGWindowEnable) || p.isCGB {
		p.renderBackground(&line)
	} else {
		for x := 0; x < ScreenWidth; x++ {
			p.Framebuffer[p.ly][x] = bgColorIndex(0, 0)
		}
	}

	windowDrawn := false
	if bits.Test(p.lcdc, lcdcWindowEnable) && p.wy <= p.ly {
		windowDrawn = p.renderWindow(&line)
	}

	if bits.Test(p.lcdc, lcdcOBJEnable) {
		p.renderSprites(&line)
	}

	if windowDrawn {
		p.windowLine++
	}
}

func (p *PPU) bgTileMapBase() uint16 {
	if bits.Test(p.lcdc, lcdcBGTileMap) {
		return 0x9C00
	}
	return 0x9800
}

func (p *PPU) windowTileMapBase() uint16 {
	if bits.Test(p.lcdc, lcdcWindowTileMap) {
		return 0x9C00
	}
	return 0x9800
}

// tilePixels returns the two bitplane bytes for row `row` (0-7) of the
// tile identified by tileID, resolved through LCDC bit 4's addressing
// mode (unsigned at 0x8000, signed at 0x8800/0x9000).
func (p *PPU) tilePixels(tileID uint8, row uint8, bank uint8) (lo, hi uint8) {
	var addr uint16
	if bits.Test(p.lcdc, lcdcTileData) {
		addr = 0x8000 + uint16(tileID)*16
	} else {
		addr = uint16(0x9000 + int32(int8(tileID))*16)
	}
	addr += uint16(row) * 2
	lo = p.ReadVRAMBank(bank, addr)
	hi = p.ReadVRAMBank(bank, addr+1)
	return
}

func pixelColorID(lo, hi uint8, bit uint8) uint8 {
	l := (lo >> bit) & 1
	h := (hi >> bit) & 1
	return h<<1 | l
}

func (p *PPU) renderBackground(line *bgLine) {
	mapBase := p.bgTileMapBase()
	y := p.ly + p.scy
	tileRow := y / 8
	rowInTile := y % 8

	for x := 0; x < ScreenWidth; x++ {
		scx := uint8(x) + p.scx
		tileCol := scx / 8
		colInTile := scx % 8

		mapAddr := mapBase + uint16(tileRow)*32 + uint16(tileCol)
		tileID := p.ReadVRAMBank(0, mapAddr)

		var attr tileAttr
		if p.isCGB {
			attr = decodeTileAttr(p.ReadVRAMBank(1, mapAddr))
		}

		row := rowInTile
		col := colInTile
		if attr.yFlip {
			row = 7 - row
		}
		if attr.xFlip {
			col = 7 - col
		}

		lo, hi := p.tilePixels(tileID, row, attr.bank)
		colorID := pixelColorID(lo, hi, 7-col)

		line.colorID[x] = colorID
		line.priority[x] = attr.priority

		if p.isCGB {
			p.Framebuffer[p.ly][x] = bgColorIndex(attr.palette, colorID)
		} else {
			// Raw colorID only: BGP is applied once, by palette.Sync, not
			// here (spec.md §4.4's "shade-to-color conversion is delegated
			// to the blit").
			p.Framebuffer[p.ly][x] = bgColorIndex(0, colorID)
		}
	}
}

func (p *PPU) renderWindow(line *bgLine) bool {
	wx := int16(p.wx) - 7
	if wx >= ScreenWidth {
		return false
	}
	mapBase := p.windowTileMapBase()
	tileRow := p.windowLine / 8
	rowInTile := p.windowLine % 8

	drawn := false
	for x := int16(0); x < ScreenWidth; x++ {
		if x < wx {
			continue
		}
		drawn = true
		wxLocal := uint8(x - wx)
		tileCol := wxLocal / 8
		colInTile := wxLocal % 8

		mapAddr := mapBase + uint16(tileRow)*32 + uint16(tileCol)
		tileID := p.ReadVRAMBank(0, mapAddr)

		var attr tileAttr
		if p.isCGB {
			attr = decodeTileAttr(p.ReadVRAMBank(1, mapAddr))
		}

		row := rowInTile
		col := colInTile
		if attr.yFlip {
			row = 7 - row
		}
		if attr.xFlip {
			col = 7 - col
		}

		lo, hi := p.tilePixels(tileID, row, attr.bank)
		colorID := pixelColorID(lo, hi, 7-col)

		line.colorID[x] = colorID
		line.priority[x] = attr.priority

		if p.isCGB {
			p.Framebuffer[p.ly][x] = bgColorIndex(attr.palette, colorID)
		} else {
			p.Framebuffer[p.ly][x] = bgColorIndex(0, colorID)
		}
	}
	return drawn
}

type spriteAttr struct {
	y, x    uint8
	tile    uint8
	palette uint8 // CGB OBP 0-7, or DMG OBP0/OBP1 selector (0/1)
	bank    uint8
	xFlip   bool
	yFlip   bool
	behind  bool
}

func decodeSpriteAttr(b uint8) (xFlip, yFlip, behind bool, dmgPalette uint8) {
	return bits.Test(b, 5), bits.Test(b, 6), bits.Test(b, 7), (b >> 4) & 1
}

// renderSprites overlays up to 10 sprites intersecting p.ly onto the
// line already composited by renderBackground/renderWindow, honouring
// per-sprite x/y flip, DMG/CGB palette selection, and the
// OBJ-behind-BG-color-1-3 priority bit.
func (p *PPU) renderSprites(line *bgLine) {
	height := uint8(8)
	if bits.Test(p.lcdc, lcdcOBJSize) {
		height = 16
	}

	type candidate struct {
		oamIndex int
		x        uint8
	}
	var visible []candidate
	for i := 0; i < 40 && len(visible) < 10; i++ {
		y := p.oam[i*4+0] - 16
		if p.ly < y || p.ly >= y+height {
			continue
		}
		visible = append(visible, candidate{oamIndex: i, x: p.oam[i*4+1] - 8})
	}

	// On DMG, priority is by x (lower x wins), OAM index only breaking
	// ties; on CGB, priority is OAM index alone. Sorting ascending by x
	// - stably, so equal-x sprites keep their OAM order - then drawing
	// last-to-first (so index 0 is painted last and wins) reproduces
	// both rules with the one draw loop below.
	if !p.isCGB {
		sort.SliceStable(visible, func(i, j int) bool {
			return visible[i].x < visible[j].x
		})
	}
	for i := len(visible) - 1; i >= 0; i-- {
		c := visible[i]
		base := c.oamIndex * 4
		spriteY := p.oam[base+0] - 16
		tileID := p.oam[base+2]
		attrByte := p.oam[base+3]
		xFlip, yFlip, behind, dmgPal := decodeSpriteAttr(attrByte)

		row := p.ly - spriteY
		if yFlip {
			row = height - 1 - row
		}
		if height == 16 {
			tileID &^= 0x01
		}
		tile := tileID
		if height == 16 && row >= 8 {
			tile++
			row -= 8
		}

		bank := uint8(0)
		cgbPalette := attrByte & 0x07
		if p.isCGB {
			bank = (attrByte >> 3) & 1
		}

		// OBJ tiles always use the unsigned 0x8000 addressing mode,
		// whatever LCDC bit 4 selects for the background and window.
		addr := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo, hi := p.ReadVRAMBank(bank, addr), p.ReadVRAMBank(bank, addr+1)

		for col := uint8(0); col < 8; col++ {
			screenX := int16(c.x) + int16(col)
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}
			srcCol := col
			if xFlip {
				srcCol = 7 - col
			}
			colorID := pixelColorID(lo, hi, 7-srcCol)
			if colorID == 0 {
				continue // transparent
			}
			if behind && line.colorID[screenX] != 0 {
				continue // OBJ-behind-BG: hidden by any non-zero BG/window color
			}
			if p.isCGB && bits.Test(p.lcdc, lcdcBGWindowEnable) && line.priority[screenX] && line.colorID[screenX] != 0 {
				continue // CGB master BG-priority bit wins over OBJ
			}

			if p.isCGB {
				p.Framebuffer[p.ly][screenX] = objColorIndex(cgbPalette, colorID)
			} else if dmgPal == 0 {
				// Raw colorID again: OBP0/OBP1 are applied once, by
				// palette.Sync.
				p.Framebuffer[p.ly][screenX] = objColorIndex(0, colorID)
			} else {
				p.Framebuffer[p.ly][screenX] = objColorIndex(1, colorID)
			}
		}
	}
}
