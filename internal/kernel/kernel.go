// Package kernel is the composition root the stage-2 bootloader's far
// jump lands in: it decodes the boot-info record stage2 left at 0x500,
// constructs the device model from whatever ROM stage2 located, and
// assembles the frame driver loop wired to the real hardware ports
// (VGA retrace, DAC, framebuffer MMIO, PS/2 keyboard, the save store).
// Grounded on the teacher's composition-root shape (internal/gameboy
// constructs once from ROM bytes, spec.md §9's device façade), extended
// here with the one piece no hosted emulator needs: turning "kernel was
// not launched by a conforming bootloader" into the spec's §7 fatal
// path instead of a silently-ignored construction error.
package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/gbmetal/kernel/internal/bootinfo"
	"github.com/gbmetal/kernel/internal/device"
	"github.com/gbmetal/kernel/internal/diag"
	"github.com/gbmetal/kernel/internal/framedriver"
)

// Ports bundles the hardware-facing collaborators the frame driver needs,
// plus the diagnostic screen fatal paths paint into before halting.
type Ports struct {
	Retrace framedriver.RetraceWaiter
	DAC     framedriver.DAC
	FB      framedriver.Framebuffer
	Keys    framedriver.KeyEventSource
	Saver   framedriver.SaveWriter
	Screen  diag.PanicScreen
}

// ErrNoROM is returned by Boot when the boot-info record carries no
// embedded ROM (ROMPhysBase == 0). This is spec.md's S1 scenario: the
// kernel enters ROM-browser idle mode rather than constructing a Device,
// which has nothing to build from.
var ErrNoROM = errors.New("kernel: no embedded ROM, enter idle/ROM-browser mode")

// Boot decodes bootInfoRaw and constructs a Loop ready to Run against
// romImage. A bad magic means stage2 never ran, or ran against a kernel
// build it wasn't paired with - unlike an unsupported MBC or a malformed
// ROM image (ordinary construction errors a ROM browser recovers from),
// this is the one boot-info condition spec.md §7 names fatal, so it
// panics rather than returning an error: the caller's deferred
// diag.Recover (see Run) is what turns it into a diagnostic screen.
func Boot(bootInfoRaw []byte, romImage []byte, ports Ports) (*framedriver.Loop, error) {
	rec, err := bootinfo.Decode(bootInfoRaw)
	if err != nil {
		if errors.Is(err, bootinfo.ErrBadMagic) {
			panic(err)
		}
		return nil, err
	}
	if rec.VideoModeID != bootinfo.VideoModeMode13h {
		panic(fmt.Errorf("kernel: unsupported video mode %#x, stage2 and kernel disagree on the mode set", rec.VideoModeID))
	}
	if !rec.HasEmbeddedROM() {
		return nil, ErrNoROM
	}

	dev, err := device.New(romImage)
	if err != nil {
		return nil, err
	}

	return &framedriver.Loop{
		Dev:     dev,
		Retrace: ports.Retrace,
		DAC:     ports.DAC,
		FB:      ports.FB,
		Keys:    ports.Keys,
		Saver:   ports.Saver,
		Screen:  ports.Screen,
	}, nil
}

// Run boots and runs the frame driver loop until ctx is cancelled. Any
// panic raised either by Boot's own fatal checks or by the frame driver
// underneath it (an unreachable CPU state, a decoder bug) unwinds
// through this deferred recover, which paints the diagnostic screen and
// halts - spec.md §7's fatal paths never silently reset.
func Run(ctx context.Context, bootInfoRaw []byte, romImage []byte, ports Ports) error {
	defer diag.Recover(ports.Screen)

	loop, err := Boot(bootInfoRaw, romImage, ports)
	if err != nil {
		return err
	}
	loop.Run(ctx)
	return nil
}
