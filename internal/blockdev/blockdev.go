// Package blockdev implements the raw 512-byte BlockDevice collaborator
// described in spec.md §6: no filesystem knowledge, just LBA-addressed
// sector I/O. internal/fat32 is built entirely on top of this interface.
//
// Grounded on the teacher's cmd/gbemu/main.go save-RAM handling
// (os.ReadFile/os.WriteFile around a flat .sav file next to the ROM),
// generalized here from whole-file reads to fixed-size block granularity.
package blockdev

import (
	"errors"
	"io"
	"os"
)

// SectorSize is the fixed block size every BlockDevice operates on.
const SectorSize = 512

// ErrShortRead/ErrShortWrite report a device that returned fewer bytes
// than a full sector without an underlying error — treated the same as
// a hardware fault.
var (
	ErrShortRead  = errors.New("blockdev: short read")
	ErrShortWrite = errors.New("blockdev: short write")
)

// Device is a flat-file-backed block device: card images are ordinary
// files on the host filesystem, addressed by LBA*SectorSize byte
// offset, exactly the way a raw SD card would be addressed by the
// firmware's SPI driver.
type Device struct {
	f *os.File
}

// Open opens (without creating) the file at path as a block device.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Device{f: f}, nil
}

// Create creates a new card image of size lbaCount*SectorSize bytes,
// zero-filled, and opens it as a block device.
func Create(path string, lbaCount uint32) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(lbaCount) * SectorSize); err != nil {
		f.Close()
		return nil, err
	}
	return &Device{f: f}, nil
}

// Init is a no-op for a flat file: there is no SPI bus or card
// handshake to perform, but the method exists to satisfy the same
// contract a real SD-card driver would.
func (d *Device) Init() error {
	return nil
}

// ReadBlock reads exactly SectorSize bytes at lba into buf.
func (d *Device) ReadBlock(lba uint32, buf *[SectorSize]byte) error {
	n, err := d.f.ReadAt(buf[:], int64(lba)*SectorSize)
	if err != nil && err != io.EOF {
		return err
	}
	if n != SectorSize {
		return ErrShortRead
	}
	return nil
}

// WriteBlock writes exactly SectorSize bytes from buf at lba.
func (d *Device) WriteBlock(lba uint32, buf *[SectorSize]byte) error {
	n, err := d.f.WriteAt(buf[:], int64(lba)*SectorSize)
	if err != nil {
		return err
	}
	if n != SectorSize {
		return ErrShortWrite
	}
	return nil
}

// Close releases the underlying file handle.
func (d *Device) Close() error {
	return d.f.Close()
}
