// Package save implements the fixed-slot save store described in
// spec.md §4.8/§6: an array of fixed-size slots on the boot block
// device, each headed by a magic/version/title/length/hash record,
// looked up by linear scan. Grounded on the teacher's
// pkg/emulator/saves.go Save type (Bytes/SetBytes, title-keyed lookup,
// create-if-missing), translated from a per-ROM .sav file on a hosted
// filesystem into a fixed on-device slot array addressed through a
// BlockDevice the ATA driver implements (an external collaborator per
// spec.md §1, out of this package's scope).
package save

import (
	"encoding/binary"
	"hash/fnv"
)

const (
	magic         = "GBSV"
	formatVersion = 1

	titleFieldLen = 16
	headerLen     = 4 + 1 + titleFieldLen + 4 + 4 // magic+version+title+ramLen+hash

	// SlotSize is large enough to hold the header plus the largest
	// cartridge RAM this core supports (MBC3/5's 128 KiB), per
	// spec.md §3's RAM size table.
	SlotSize = headerLen + 128*1024
)

// BlockDevice is the narrow abstraction over the boot device's reserved
// save region; the real implementation is an ATA PIO driver (spec.md §1,
// an external collaborator this package never models directly).
type BlockDevice interface {
	ReadBlock(offset int64, buf []byte) error
	WriteBlock(offset int64, buf []byte) error
}

// Store is the save region: slotCount fixed-size slots starting at
// baseOffset on dev.
type Store struct {
	dev        BlockDevice
	baseOffset int64
	slotCount  int
}

// NewStore returns a Store addressing slotCount slots of SlotSize bytes
// each, starting at baseOffset on dev.
func NewStore(dev BlockDevice, baseOffset int64, slotCount int) *Store {
	return &Store{dev: dev, baseOffset: baseOffset, slotCount: slotCount}
}

type header struct {
	magic     [4]byte
	version   uint8
	title     [titleFieldLen]byte
	ramLength uint32
	titleHash uint32
}

func titleHash(title string) uint32 {
	h := fnv.New32a() // offset basis 0x811C9DC5, prime 0x01000193 - spec.md §6 exactly
	h.Write([]byte(title))
	return h.Sum32()
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerLen)
	copy(buf[0:4], h.magic[:])
	buf[4] = h.version
	copy(buf[5:5+titleFieldLen], h.title[:])
	binary.LittleEndian.PutUint32(buf[5+titleFieldLen:], h.ramLength)
	binary.LittleEndian.PutUint32(buf[5+titleFieldLen+4:], h.titleHash)
	return buf
}

func decodeHeader(buf []byte) header {
	var h header
	copy(h.magic[:], buf[0:4])
	h.version = buf[4]
	copy(h.title[:], buf[5:5+titleFieldLen])
	h.ramLength = binary.LittleEndian.Uint32(buf[5+titleFieldLen:])
	h.titleHash = binary.LittleEndian.Uint32(buf[5+titleFieldLen+4:])
	return h
}

func fieldTitle(title string) [titleFieldLen]byte {
	var f [titleFieldLen]byte
	copy(f[:], title)
	return f
}

func (h header) hasMagic() bool {
	return string(h.magic[:]) == magic
}

func (h header) matches(title string) bool {
	return h.hasMagic() && h.title == fieldTitle(title) && h.titleHash == titleHash(title)
}

// slotOffset returns the on-device byte offset of slot i.
func (s *Store) slotOffset(i int) int64 {
	return s.baseOffset + int64(i)*SlotSize
}

func (s *Store) readHeader(i int) (header, error) {
	buf := make([]byte, headerLen)
	if err := s.dev.ReadBlock(s.slotOffset(i), buf); err != nil {
		return header{}, err
	}
	return decodeHeader(buf), nil
}

// findSlot scans for a slot matching title, returning its index and
// true if found; otherwise it returns the first free (zero-magic) slot,
// or slot 0 with found=false if every slot is occupied - spec.md §4.8's
// documented overwrite policy.
func (s *Store) findSlot(title string) (index int, found bool, err error) {
	firstFree := -1
	for i := 0; i < s.slotCount; i++ {
		h, err := s.readHeader(i)
		if err != nil {
			return 0, false, err
		}
		if h.matches(title) {
			return i, true, nil
		}
		if firstFree < 0 && !h.hasMagic() {
			firstFree = i
		}
	}
	if firstFree >= 0 {
		return firstFree, false, nil
	}
	return 0, false, nil // every slot occupied: overwrite slot 0, per policy
}

// Save writes ram as the full cartridge RAM snapshot for title, reusing
// a matching slot, claiming a free one, or overwriting slot 0 if the
// store is full.
func (s *Store) Save(title string, ram []byte) error {
	index, _, err := s.findSlot(title)
	if err != nil {
		return err
	}

	h := header{
		magic:     [4]byte{'G', 'B', 'S', 'V'},
		version:   formatVersion,
		title:     fieldTitle(title),
		ramLength: uint32(len(ram)),
		titleHash: titleHash(title),
	}

	buf := make([]byte, headerLen+len(ram))
	copy(buf, encodeHeader(h))
	copy(buf[headerLen:], ram)
	return s.dev.WriteBlock(s.slotOffset(index), buf)
}

// Load returns the RAM snapshot stored for title, and whether a matching
// slot was found at all.
func (s *Store) Load(title string) ([]byte, bool, error) {
	index, found, err := s.findSlot(title)
	if err != nil || !found {
		return nil, false, err
	}
	h, err := s.readHeader(index)
	if err != nil {
		return nil, false, err
	}
	buf := make([]byte, h.ramLength)
	if err := s.dev.ReadBlock(s.slotOffset(index)+headerLen, buf); err != nil {
		return nil, false, err
	}
	return buf, true, nil
}

// DebounceFrames is the target debounce window: roughly 2 seconds at
// 59.7 Hz (spec.md §4.7 phase 2).
const DebounceFrames = 120

// Debounce tracks the save-pending/idle-frame-count state machine the
// frame driver's phase 2 runs every frame.
type Debounce struct {
	pending bool
	idle    int
}

// Tick reports whether a save should be written this frame. dirty is
// the cartridge's ram-dirty flag for the frame just completed.
func (d *Debounce) Tick(dirty bool) bool {
	if dirty {
		d.idle = 0
		d.pending = true
		return false
	}
	if !d.pending {
		return false
	}
	d.idle++
	if d.idle < DebounceFrames {
		return false
	}
	d.pending = false
	d.idle = 0
	return true
}
