// Command gbmonitor is a headless development harness: it drives the
// device model against a ROM file on the host, and streams completed
// frames to connected websocket clients for remote debugging - there is
// no display hardware on a development host, so this stands in for one.
// Grounded on the teacher's pkg/display/web package (hub/client
// broadcast loop, xxhash frame-cache dedup) but single-player and
// without the patch-cache/compression protocol, since this tool's only
// job is "watch the kernel run a ROM", not multiplayer spectating.
package main

import (
	"flag"
	"image"
	"image/color"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	"github.com/gbmetal/kernel/internal/device"
	"github.com/gbmetal/kernel/internal/palette"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

var log = logrus.New()

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 64,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hub fans out encoded frames to every connected client, dropping a
// frame for any client whose send buffer is still full rather than
// blocking the broadcast loop - the same back-pressure policy as the
// teacher's hub.run broadcast case.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub { return &hub{clients: make(map[*websocket.Conn]chan []byte)} }

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 4)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- frame:
		default: // client too slow: drop this frame for it
		}
	}
}

func (h *hub) serveClient(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := h.register(conn)
	defer h.unregister(conn)

	for frame := range ch {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
	}
}

// rgbaFrame converts the DAC-indexed back buffer into an RGBA image a
// browser canvas can draw directly, looking each pixel's index up in the
// DAC table and widening its 6-bit channels to 8 bits.
func rgbaFrame(back [palette.BackHeight][palette.BackWidth]uint8, dac [256]palette.RGB6) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, palette.BackWidth, palette.BackHeight))
	for y := 0; y < palette.BackHeight; y++ {
		for x := 0; x < palette.BackWidth; x++ {
			c := dac[back[y][x]]
			img.Set(x, y, color.RGBA{R: c.R << 2, G: c.G << 2, B: c.B << 2, A: 255})
		}
	}
	return img
}

// downscaled halves the frame for bandwidth, using x/image/draw's
// bilinear scaler rather than a hand-rolled box filter.
func downscaled(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx()/2, src.Bounds().Dy()/2))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func main() {
	romFile := flag.String("rom", "", "ROM file to run")
	listen := flag.String("listen", ":8090", "http listen address")
	fps := flag.Int("fps", 60, "target frames broadcast per second")
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

	h := newHub()
	http.HandleFunc("/", h.serveClient)
	go func() {
		log.Fatal(http.ListenAndServe(*listen, nil))
	}()

	log.Printf("gbmonitor listening on %s, running %s", *listen, *romFile)
	runLoop(dev, h, *fps)
}

// runLoop steps the device continuously, broadcasting every completed
// frame (deduplicated via xxhash against the previous one, since an
// idle title repeats many identical frames in a row and there is no
// point re-sending them to a remote viewer).
func runLoop(dev *device.Device, h *hub, fps int) {
	throttle := time.NewTicker(time.Second / time.Duration(fps))
	defer throttle.Stop()

	var lastHash uint64
	var dac [256]palette.RGB6

	for {
		dev.Step()
		if !dev.CheckAndResetFrameReady() {
			continue
		}

		dac = palette.Sync(dev.PPU)
		var back [palette.BackHeight][palette.BackWidth]uint8
		frame := dev.Framebuffer()
		palette.Blit(frame, &back)

		flat := make([]byte, 0, palette.BackHeight*palette.BackWidth)
		for _, row := range back {
			flat = append(flat, row[:]...)
		}

		hash := xxhash.Sum64(flat)
		if hash == lastHash {
			continue
		}
		lastHash = hash

		<-throttle.C
		img := downscaled(rgbaFrame(back, dac))
		h.broadcast(img.Pix)
	}
}
