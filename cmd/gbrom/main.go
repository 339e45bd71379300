// Command gbrom prepares a boot disk image for the kernel: it unpacks a
// (possibly archived) ROM file, validates its header against the same
// internal/cartridge parser the kernel itself uses, and writes a flat
// image containing the ROM followed by the reserved save-slot region
// internal/save expects at a fixed offset. Grounded on the teacher's
// pkg/utils.LoadFile (archive-extension dispatch, .7z via
// github.com/bodgit/sevenzip) and internal/cartridge.ParseHeader.
package main

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/sevenzip"
	"github.com/gbmetal/kernel/internal/cartridge"
	"github.com/gbmetal/kernel/internal/save"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// saveSlotCount is the number of empty save slots gbrom reserves after
// the ROM. internal/save fixes no slot count of its own (NewStore takes
// it from its caller), so a Store over this image is built with this
// same count.
const saveSlotCount = 4

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    false,
		DisableTimestamp: true,
		DisableSorting:   true,
	})
	return l
}

func main() {
	romFile := flag.String("rom", "", "the ROM file to package (.gb, .gbc, .zip, .gz or .7z)")
	out := flag.String("out", "", "the output image path, or a block device to write directly")
	flag.Parse()

	if *romFile == "" || *out == "" {
		log.Fatal("both -rom and -out are required")
	}

	rom, err := loadFile(*romFile)
	if err != nil {
		log.Fatalf("unable to load %s: %s", *romFile, err)
	}

	hdr, err := cartridge.ParseHeader(rom)
	if err != nil {
		log.Fatalf("invalid ROM header: %s", err)
	}
	if !hdr.LogoValid {
		log.Warn("Nintendo logo checksum does not match; the kernel will still boot it")
	}
	log.Infof("%s: type=%#02x rom=%dKiB ram=%dKiB cgb=%v", hdr.Title, hdr.Type, hdr.ROMSize/1024, hdr.RAMSize/1024, hdr.IsCGB())

	if err := writeImage(*out, rom); err != nil {
		log.Fatalf("unable to write image: %s", err)
	}
	log.Infof("wrote %s", *out)
}

// writeImage lays out rom at offset 0 followed by saveSlotCount empty
// save.SlotSize slots, refusing to overflow a block device's reported
// size when out names one.
func writeImage(out string, rom []byte) error {
	total := int64(len(rom)) + saveSlotCount*save.SlotSize

	if size, err := blockDeviceSize(out); err == nil && size > 0 && total > size {
		return fmt.Errorf("image is %d bytes, %s is only %d bytes", total, out, size)
	}

	f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(rom); err != nil {
		return err
	}
	// truncate/extend to the full image length so the save region reads
	// back as zeroed (no-magic) slots rather than EOF.
	return f.Truncate(total)
}

// blockDeviceSize queries a raw block device's size via BLKGETSIZE64;
// for a regular output file this simply fails and the caller skips the
// size check.
func blockDeviceSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if fi.Mode()&os.ModeDevice == 0 {
		return 0, fmt.Errorf("not a block device")
	}

	size, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKGETSIZE64)
	return int64(size), err
}

// loadFile mirrors the teacher's decompression-by-extension dispatch,
// adding .7z support via sevenzip.
func loadFile(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(filename) {
	case ".gb", ".gbc":
		return data, nil
	case ".gz":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case ".zip":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, err
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	case ".7z":
		zr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, err
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	default:
		return data, nil
	}
}
