package kernel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gbmetal/kernel/internal/bootinfo"
	"github.com/gbmetal/kernel/internal/diag"
	"github.com/gbmetal/kernel/internal/framedriver"
	"github.com/gbmetal/kernel/internal/kernel"
	"github.com/gbmetal/kernel/internal/palette"
	"github.com/stretchr/testify/require"
)

type nullRetrace struct{}

func (nullRetrace) WaitForRetrace() {}

type nullDAC struct{}

func (nullDAC) Program([256]palette.RGB6) {}

type nullFramebuffer struct{}

func (nullFramebuffer) Present([palette.BackHeight][palette.BackWidth]uint8) {}

type nullKeys struct{}

func (nullKeys) Poll() []framedriver.KeyEvent { return nil }

type nullSaver struct{}

func (nullSaver) Save(ram []byte) error { return nil }
func (nullSaver) RAMSnapshot() []byte   { return nil }

type recordingScreen struct{ message string }

func (s *recordingScreen) PaintPanic(message string) { s.message = message }

func testPorts(screen *recordingScreen) kernel.Ports {
	return kernel.Ports{
		Retrace: nullRetrace{},
		DAC:     nullDAC{},
		FB:      nullFramebuffer{},
		Keys:    nullKeys{},
		Saver:   nullSaver{},
		Screen:  screen,
	}
}

func mbc0ROM() []byte {
	rom := make([]byte, 0x8000)
	rom[0x147] = 0x00
	return rom
}

func validBootInfo(romPhysBase uint32) []byte {
	return bootinfo.Encode(bootinfo.Record{
		VideoModeID:     bootinfo.VideoModeMode13h,
		FramebufferBase: 0xA0000,
		Width:           320,
		Height:          200,
		BitsPerPixel:    8,
		Pitch:           320,
		ROMPhysBase:     romPhysBase,
		ROMLength:       0x8000,
	})
}

// TestBootPanicsOnBadMagic covers spec.md §7's one fatal boot-info
// condition: a record that does not begin with GBOY must panic, not
// return an error, so it is distinguishable from the recoverable
// construction errors (unsupported MBC, malformed ROM).
func TestBootPanicsOnBadMagic(t *testing.T) {
	bad := make([]byte, bootinfo.Size)
	copy(bad, "XXXX")

	defer func() {
		r := recover()
		require.NotNil(t, r, "Boot must panic on a bad boot-info magic")
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, bootinfo.ErrBadMagic))
	}()

	_, _ = kernel.Boot(bad, mbc0ROM(), testPorts(nil))
	t.Fatal("unreachable: Boot should have panicked")
}

// TestBootConstructsALoopWhenARomIsEmbedded covers the ordinary path: a
// conforming boot-info record naming an embedded ROM produces a Loop
// ready to Run, with no error and no panic.
func TestBootConstructsALoopWhenARomIsEmbedded(t *testing.T) {
	loop, err := kernel.Boot(validBootInfo(0x300000), mbc0ROM(), testPorts(nil))
	require.NoError(t, err)
	require.NotNil(t, loop)
}

// TestBootReturnsErrNoROMWhenNoneIsEmbedded covers spec.md's S1 scenario:
// a boot-info record with ROMPhysBase == 0 means stage2 found no ROM on
// the media, and the kernel must enter its idle/ROM-browser mode rather
// than attempt to construct a Device from nothing.
func TestBootReturnsErrNoROMWhenNoneIsEmbedded(t *testing.T) {
	loop, err := kernel.Boot(validBootInfo(0), nil, testPorts(nil))
	require.Nil(t, loop)
	require.True(t, errors.Is(err, kernel.ErrNoROM))
}

// TestRunRecoversABadMagicIntoTheDiagnosticScreen exercises the full
// fatal path spec.md §7 describes end to end: Run's deferred
// diag.Recover paints the screen and returns normally instead of
// letting the panic escape to Run's caller. diag.Halt is swapped out
// for the duration of the test so the process does not exit.
func TestRunRecoversABadMagicIntoTheDiagnosticScreen(t *testing.T) {
	prevHalt := diag.Halt
	diag.Halt = func() {}
	defer func() { diag.Halt = prevHalt }()

	bad := make([]byte, bootinfo.Size)
	copy(bad, "XXXX")

	screen := &recordingScreen{}
	_ = kernel.Run(context.Background(), bad, mbc0ROM(), testPorts(screen))

	require.Contains(t, screen.message, "bad magic")
}
