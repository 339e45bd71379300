package cartridge

import "errors"

// Construction-time errors, per spec.md §7: these are the only errors the
// cartridge/device layer ever returns - everything past construction is
// total.
var (
	errROMTooShort     = errors.New("cartridge: rom image too short to contain a header")
	ErrUnsupportedMBC  = errors.New("cartridge: unsupported memory bank controller type")
	ErrROMImageInvalid = errors.New("cartridge: rom image malformed")
)
