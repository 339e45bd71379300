// Command gbbench runs a ROM through the device model and frame driver
// on the host for a fixed number of frames, recording the wall-clock
// time of each frame, then charts that series with gonum.org/v1/plot.
// Save-debounce timing is not recorded. Grounded on the teacher's
// pkg/display/fyne/views/performance.go (plotter.NewLine fed from a
// slice of time.Duration samples), swapped from a live Fyne canvas to a
// PNG file since this tool runs headless.
package main

import (
	"flag"
	"image/color"
	"os"
	"time"

	"github.com/gbmetal/kernel/internal/device"
	"github.com/gbmetal/kernel/internal/framedriver"
	"github.com/gbmetal/kernel/internal/palette"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var log = logrus.New()

// nullRetrace/nullDAC/nullFramebuffer/nullKeys/nullSaver are the fastest
// possible implementations of the frame driver's hardware ports: no
// wait, no I/O, so the measured per-frame time is the device model's own
// cost rather than anything this harness adds.
type nullRetrace struct{}

func (nullRetrace) WaitForRetrace() {}

type nullDAC struct{}

func (nullDAC) Program([256]palette.RGB6) {}

type nullFramebuffer struct{}

func (nullFramebuffer) Present([palette.BackHeight][palette.BackWidth]uint8) {}

type nullKeys struct{}

func (nullKeys) Poll() []framedriver.KeyEvent { return nil }

type nullSaver struct{ ram []byte }

func (s *nullSaver) Save(ram []byte) error { return nil }
func (s *nullSaver) RAMSnapshot() []byte   { return s.ram }

func main() {
	romFile := flag.String("rom", "", "ROM file to benchmark")
	frames := flag.Int("frames", 600, "number of frames to run")
	out := flag.String("out", "frametime.png", "output chart path")
	flag.Parse()

	if *romFile == "" {
		log.Fatal("-rom is required")
	}

	rom, err := os.ReadFile(*romFile)
	if err != nil {
		log.Fatalf("unable to read %s: %s", *romFile, err)
	}

	dev, err := device.New(rom)
	if err != nil {
		log.Fatalf("unable to start device: %s", err)
	}

	loop := &framedriver.Loop{
		Dev:     dev,
		Retrace: nullRetrace{},
		DAC:     nullDAC{},
		FB:      nullFramebuffer{},
		Keys:    nullKeys{},
		Saver:   &nullSaver{},
	}

	samples := make(plotter.XYs, *frames)
	for i := 0; i < *frames; i++ {
		start := time.Now()
		loop.RunFrame()
		samples[i].X = float64(i)
		samples[i].Y = float64(time.Since(start)) / float64(time.Microsecond)
	}

	if err := chart(samples, *out); err != nil {
		log.Fatalf("unable to write chart: %s", err)
	}
	log.Printf("wrote %s", *out)
}

// chart draws samples as a line plot and saves it as a PNG.
func chart(samples plotter.XYs, path string) error {
	p := plot.New()
	p.Title.Text = "frame time"
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "microseconds"

	line, err := plotter.NewLine(samples)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 0x20, G: 0x80, B: 0xE0, A: 255}
	p.Add(line)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
