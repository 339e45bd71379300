package bootinfo

import (
	"encoding/binary"
	"fmt"
)

// EmbeddedROMHeaderSize is the size of the sector-aligned header stage-2
// looks for at a well-known relative LBA when no ROM offset was baked
// into the boot-info record directly (spec.md §6).
const EmbeddedROMHeaderSize = 512

// EmbeddedROMMagic is the four ASCII bytes identifying an embedded-ROM
// sector, distinct from the boot-info Magic.
var EmbeddedROMMagic = [4]byte{'G', 'B', 'O', 'Y'}

// EmbeddedROMHeader is the 512-byte on-disk header preceding an embedded
// ROM image: bytes 0..3 magic, 4..7 little-endian size, 8..39 NUL-padded
// title, remainder reserved zero. ROM data follows at the next sector.
type EmbeddedROMHeader struct {
	Size  uint32
	Title [32]byte
}

// DecodeEmbeddedROMHeader parses the 512-byte sector. It does not
// validate the magic silently - callers use ok to decide whether a ROM
// was actually found at this LBA, per the stage-2 scan semantics.
func DecodeEmbeddedROMHeader(sector []byte) (hdr EmbeddedROMHeader, ok bool, err error) {
	if len(sector) < EmbeddedROMHeaderSize {
		return hdr, false, fmt.Errorf("bootinfo: embedded rom header sector too short: %d bytes", len(sector))
	}
	var magic [4]byte
	copy(magic[:], sector[0:4])
	if magic != EmbeddedROMMagic {
		return hdr, false, nil
	}
	hdr.Size = binary.LittleEndian.Uint32(sector[4:8])
	copy(hdr.Title[:], sector[8:40])
	return hdr, true, nil
}

// EncodeEmbeddedROMHeader serializes the header into its 512-byte sector
// form, the inverse of DecodeEmbeddedROMHeader. cmd/gbrom does not call
// it: its images carry the ROM at offset 0 with no header sector.
func EncodeEmbeddedROMHeader(hdr EmbeddedROMHeader) []byte {
	buf := make([]byte, EmbeddedROMHeaderSize)
	copy(buf[0:4], EmbeddedROMMagic[:])
	binary.LittleEndian.PutUint32(buf[4:8], hdr.Size)
	copy(buf[8:40], hdr.Title[:])
	return buf
}
