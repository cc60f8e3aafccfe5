// Package fat32 implements the Persistence collaborator (C6): enough of
// FAT32 to boot from an optional MBR, scan directories, and read/write
// single-sector files for the drumkit and pattern slot namespaces.
//
// Grounded on original_source/fat32.c: the MBR/BPB offsets, the
// cluster_to_sector formula, and the directory-scan rules (0x00 end,
// 0xE5 deleted, long-name/volume-id skip, 8.3 unpacking) all mirror
// FAT32_Init/FAT32_ListRootFiles line for line. original_source/
// pattern_manager.c (which calls FAT32_WriteFile/FAT32_FindDir/
// FAT32_GetFileSector, not themselves present in the retrieved source)
// grounds the write path's shape: find-or-allocate, write directory
// entry, write exactly one data sector.
package fat32

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// SectorSize is the fixed block size this filesystem is built on.
const SectorSize = 512

const dirEntrySize = 32

const (
	attrReadOnly = 0x01
	attrHidden   = 0x02
	attrSystem   = 0x04
	attrVolumeID = 0x08
	attrDir      = 0x10
	attrArchive  = 0x20
	attrLongName = attrReadOnly | attrHidden | attrSystem | attrVolumeID
)

// eocMarker is the 28-bit end-of-chain value written into a FAT entry
// for a file or directory that occupies exactly one cluster.
const eocMarker = 0x0FFFFFFF

// Kind classifies a persistence failure per spec.md §7.
type Kind int

const (
	Io Kind = iota
	FormatError
	NotFound
	Capacity
	NoFreeCluster
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case FormatError:
		return "format_error"
	case NotFound:
		return "not_found"
	case Capacity:
		return "capacity"
	case NoFreeCluster:
		return "no_free_cluster"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with the operation that failed and an optional
// underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fat32: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("fat32: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// BlockDevice is the raw sector I/O collaborator this package is built
// on (spec.md §6); internal/blockdev.Device satisfies it.
type BlockDevice interface {
	Init() error
	ReadBlock(lba uint32, buf *[SectorSize]byte) error
	WriteBlock(lba uint32, buf *[SectorSize]byte) error
}

// Entry is a decoded 8.3 directory entry.
type Entry struct {
	Name         string // "NAME.EXT", uppercase, no padding
	FirstCluster uint32
	Size         uint32
	IsDir        bool
}

// FS is a mounted FAT32 volume bound to one BlockDevice.
type FS struct {
	dev BlockDevice

	partitionStart    uint32
	bytesPerSector    uint16
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	fatSize32         uint32
	rootCluster       uint32
	firstDataSector   uint32
}

// RootCluster returns the volume's root directory cluster, the starting
// point for FindDir/ListDir calls against top-level directories.
func (f *FS) RootCluster() uint32 { return f.rootCluster }

// Mount runs the boot sequence from spec.md §4.6: read the MBR (if
// present) to find the partition start, then parse the BPB at that
// sector to learn the volume geometry.
func Mount(dev BlockDevice) (*FS, error) {
	if err := dev.Init(); err != nil {
		return nil, newErr("mount", Io, err)
	}

	var sector [SectorSize]byte
	if err := dev.ReadBlock(0, &sector); err != nil {
		return nil, newErr("mount", Io, err)
	}

	var partitionStart uint32
	if sector[510] == 0x55 && sector[511] == 0xAA {
		partType := sector[450]
		switch partType {
		case 0x04, 0x06, 0x0B, 0x0C:
			partitionStart = binary.LittleEndian.Uint32(sector[454:458])
		}
	}

	if partitionStart != 0 {
		if err := dev.ReadBlock(partitionStart, &sector); err != nil {
			return nil, newErr("mount", Io, err)
		}
	}

	bytesPerSector := binary.LittleEndian.Uint16(sector[11:13])
	sectorsPerCluster := sector[13]
	reservedSectors := binary.LittleEndian.Uint16(sector[14:16])
	numFATs := sector[16]
	fatSize32 := binary.LittleEndian.Uint32(sector[36:40])
	rootCluster := binary.LittleEndian.Uint32(sector[44:48])

	if bytesPerSector != SectorSize || sectorsPerCluster == 0 || numFATs == 0 {
		return nil, newErr("mount", FormatError, nil)
	}

	firstDataSector := partitionStart + uint32(reservedSectors) + uint32(numFATs)*fatSize32

	return &FS{
		dev:               dev,
		partitionStart:    partitionStart,
		bytesPerSector:    bytesPerSector,
		sectorsPerCluster: sectorsPerCluster,
		reservedSectors:   reservedSectors,
		numFATs:           numFATs,
		fatSize32:         fatSize32,
		rootCluster:       rootCluster,
		firstDataSector:   firstDataSector,
	}, nil
}

func (f *FS) clusterToSector(cluster uint32) uint32 {
	return f.firstDataSector + (cluster-2)*uint32(f.sectorsPerCluster)
}

func (f *FS) fatSector(entryIndex uint32) (sector uint32, offsetInSector uint32) {
	fatStart := f.partitionStart + uint32(f.reservedSectors)
	byteOffset := entryIndex * 4
	return fatStart + byteOffset/SectorSize, byteOffset % SectorSize
}

func (f *FS) readFATEntry(cluster uint32) (uint32, error) {
	sec, off := f.fatSector(cluster)
	var buf [SectorSize]byte
	if err := f.dev.ReadBlock(sec, &buf); err != nil {
		return 0, newErr("read_fat", Io, err)
	}
	return binary.LittleEndian.Uint32(buf[off:off+4]) & 0x0FFFFFFF, nil
}

func (f *FS) writeFATEntry(cluster, value uint32) error {
	sec, off := f.fatSector(cluster)
	var buf [SectorSize]byte
	if err := f.dev.ReadBlock(sec, &buf); err != nil {
		return newErr("write_fat", Io, err)
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], value&0x0FFFFFFF)
	if err := f.dev.WriteBlock(sec, &buf); err != nil {
		return newErr("write_fat", Io, err)
	}
	return nil
}

// allocFreeCluster scans FAT entries starting at 2 for the first entry
// whose masked value is 0 (free), marks it end-of-chain, and returns it.
func (f *FS) allocFreeCluster() (uint32, error) {
	maxEntries := f.fatSize32 * (SectorSize / 4)
	for c := uint32(2); c < maxEntries; c++ {
		v, err := f.readFATEntry(c)
		if err != nil {
			return 0, err
		}
		if v == 0 {
			if err := f.writeFATEntry(c, eocMarker); err != nil {
				return 0, err
			}
			return c, nil
		}
	}
	return 0, newErr("alloc_cluster", NoFreeCluster, nil)
}

// allocContiguousClusters scans for n back-to-back free FAT entries
// (so the resulting sectors can be read with a plain ++ loop, as
// ReadFileSpan does) and marks each used.
func (f *FS) allocContiguousClusters(n uint32) (uint32, error) {
	maxEntries := f.fatSize32 * (SectorSize / 4)
	for start := uint32(2); start+n <= maxEntries; start++ {
		free := true
		for c := start; c < start+n; c++ {
			v, err := f.readFATEntry(c)
			if err != nil {
				return 0, err
			}
			if v != 0 {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for c := start; c < start+n; c++ {
			if err := f.writeFATEntry(c, eocMarker); err != nil {
				return 0, err
			}
		}
		return start, nil
	}
	return 0, newErr("alloc_cluster", NoFreeCluster, nil)
}

// WriteFileSpan writes data across as many consecutive sectors as
// needed, for payloads too large for WriteFile's single-sector limit
// (e.g. WAV sample files). It always claims the first free directory
// entry and a fresh run of contiguous clusters; unlike WriteFile, an
// existing entry with the same name is neither reused nor replaced.
func (f *FS) WriteFileSpan(parentCluster uint32, name string, data []byte) error {
	sectorsNeeded := uint32(len(data)+SectorSize-1) / SectorSize
	if sectorsNeeded == 0 {
		sectorsNeeded = 1
	}

	dirSector := f.clusterToSector(parentCluster)
	var freeSector uint32
	freeOffset := -1
	foundFree := false

outer:
	for s := uint32(0); s < uint32(f.sectorsPerCluster); s++ {
		var buf [SectorSize]byte
		if err := f.dev.ReadBlock(dirSector+s, &buf); err != nil {
			return newErr("write_file_span", Io, err)
		}
		for off := 0; off+dirEntrySize <= SectorSize; off += dirEntrySize {
			raw := buf[off : off+dirEntrySize]
			if raw[0] == 0x00 || raw[0] == 0xE5 {
				freeSector = dirSector + s
				freeOffset = off
				foundFree = true
				break outer
			}
		}
	}
	if !foundFree {
		return newErr("write_file_span", Capacity, nil)
	}

	cluster, err := f.allocContiguousClusters(sectorsNeeded)
	if err != nil {
		return err
	}

	var dirBuf [SectorSize]byte
	if err := f.dev.ReadBlock(freeSector, &dirBuf); err != nil {
		return newErr("write_file_span", Io, err)
	}
	raw := dirBuf[freeOffset : freeOffset+dirEntrySize]
	packed := pack83(name)
	copy(raw[0:11], packed[:])
	raw[11] = attrArchive
	for i := 12; i < 20; i++ {
		raw[i] = 0
	}
	binary.LittleEndian.PutUint16(raw[20:22], uint16(cluster>>16))
	for i := 22; i < 26; i++ {
		raw[i] = 0
	}
	binary.LittleEndian.PutUint16(raw[26:28], uint16(cluster&0xFFFF))
	binary.LittleEndian.PutUint32(raw[28:32], uint32(len(data)))
	if err := f.dev.WriteBlock(freeSector, &dirBuf); err != nil {
		return newErr("write_file_span", Io, err)
	}

	sector := f.clusterToSector(cluster)
	for written := 0; written < len(data); written += SectorSize {
		var buf [SectorSize]byte
		end := written + SectorSize
		if end > len(data) {
			end = len(data)
		}
		copy(buf[:], data[written:end])
		if err := f.dev.WriteBlock(sector, &buf); err != nil {
			return newErr("write_file_span", Io, err)
		}
		sector++
	}
	return nil
}

func unpack83(raw []byte) string {
	var b strings.Builder
	for i := 0; i < 8 && raw[i] != ' '; i++ {
		b.WriteByte(raw[i])
	}
	if raw[8] != ' ' {
		b.WriteByte('.')
		for i := 8; i < 11 && raw[i] != ' '; i++ {
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

// pack83 renders an ASCII "NAME.EXT" (name <=8, ext <=3) into the fixed
// 11-byte 8.3 field, space-padded.
func pack83(name string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	base := name
	ext := ""
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		base = name[:idx]
		ext = name[idx+1:]
	}
	base = strings.ToUpper(base)
	ext = strings.ToUpper(ext)
	for i := 0; i < len(base) && i < 8; i++ {
		out[i] = base[i]
	}
	for i := 0; i < len(ext) && i < 3; i++ {
		out[8+i] = ext[i]
	}
	return out
}

// ListDir reads every 32-byte entry across the directory's cluster
// (following the chain if it spans more than one — our writer only ever
// allocates one, but Mount-time directories built elsewhere may not),
// applying the end/deleted/long-name/volume-id rules from spec.md §4.6.
func (f *FS) ListDir(cluster uint32) ([]Entry, error) {
	var entries []Entry

	for cluster != 0 && cluster < 0x0FFFFFF8 {
		sector := f.clusterToSector(cluster)
		done := false
		for s := uint32(0); s < uint32(f.sectorsPerCluster); s++ {
			var buf [SectorSize]byte
			if err := f.dev.ReadBlock(sector+s, &buf); err != nil {
				return nil, newErr("list_dir", Io, err)
			}
			for off := 0; off+dirEntrySize <= SectorSize; off += dirEntrySize {
				raw := buf[off : off+dirEntrySize]
				if raw[0] == 0x00 {
					done = true
					break
				}
				if raw[0] == 0xE5 {
					continue
				}
				attr := raw[11]
				if attr&attrLongName == attrLongName {
					continue
				}
				if attr&attrVolumeID != 0 {
					continue
				}
				hi := uint32(binary.LittleEndian.Uint16(raw[20:22]))
				lo := uint32(binary.LittleEndian.Uint16(raw[26:28]))
				entries = append(entries, Entry{
					Name:         unpack83(raw[0:11]),
					FirstCluster: hi<<16 | lo,
					Size:         binary.LittleEndian.Uint32(raw[28:32]),
					IsDir:        attr&attrDir != 0,
				})
			}
			if done {
				break
			}
		}
		if done {
			break
		}
		next, err := f.readFATEntry(cluster)
		if err != nil {
			return nil, err
		}
		cluster = next
	}
	return entries, nil
}

func findEntry(entries []Entry, name string, wantDir bool) (Entry, bool) {
	for _, e := range entries {
		if e.IsDir == wantDir && strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// FindDir looks up a subdirectory of parentCluster by case-insensitive
// name and returns its first cluster.
func (f *FS) FindDir(parentCluster uint32, name string) (uint32, error) {
	entries, err := f.ListDir(parentCluster)
	if err != nil {
		return 0, err
	}
	e, ok := findEntry(entries, name, true)
	if !ok {
		return 0, newErr("find_dir", NotFound, nil)
	}
	return e.FirstCluster, nil
}

// ResolvePath walks a relative path (e.g. "PACK1/CLAP.WAV") segment by
// segment from startCluster, using FindDir for every segment but the
// last. It returns the final segment's parent cluster and bare
// filename, ready for ReadFileSpan/WriteFileSpan.
func ResolvePath(f *FS, startCluster uint32, path string) (parent uint32, filename string, err error) {
	segments := strings.Split(path, "/")
	cluster := startCluster
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if i == len(segments)-1 {
			return cluster, seg, nil
		}
		next, err := f.FindDir(cluster, seg)
		if err != nil {
			return 0, "", err
		}
		cluster = next
	}
	return 0, "", newErr("resolve_path", NotFound, nil)
}

// FileExists reports whether a (non-directory) entry by that name is
// present in parentCluster.
func (f *FS) FileExists(parentCluster uint32, name string) (bool, error) {
	entries, err := f.ListDir(parentCluster)
	if err != nil {
		return false, err
	}
	_, ok := findEntry(entries, name, false)
	return ok, nil
}

// ReadFile reads a single-sector file's data, trimmed to its recorded
// size.
func (f *FS) ReadFile(parentCluster uint32, name string) ([]byte, error) {
	entries, err := f.ListDir(parentCluster)
	if err != nil {
		return nil, err
	}
	e, ok := findEntry(entries, name, false)
	if !ok {
		return nil, newErr("read_file", NotFound, nil)
	}
	if e.Size > SectorSize {
		return nil, newErr("read_file", Capacity, nil)
	}
	var buf [SectorSize]byte
	if err := f.dev.ReadBlock(f.clusterToSector(e.FirstCluster), &buf); err != nil {
		return nil, newErr("read_file", Io, err)
	}
	out := make([]byte, e.Size)
	copy(out, buf[:e.Size])
	return out, nil
}

// ReadFileSpan reads a file's data across consecutive sectors starting
// at its first cluster's sector, without following the FAT chain.
// Grounded on original_source/wav_loader.c's load_wav_to_buffer, which
// takes the same shortcut (`sector++` rather than walking the chain) —
// correct only because this module's own WriteFile/mkcard never
// fragments a file across non-contiguous clusters. Used for WAV sample
// loading, where a single sector is too small to hold the payload.
func (f *FS) ReadFileSpan(parentCluster uint32, name string) ([]byte, error) {
	entries, err := f.ListDir(parentCluster)
	if err != nil {
		return nil, err
	}
	e, ok := findEntry(entries, name, false)
	if !ok {
		return nil, newErr("read_file_span", NotFound, nil)
	}

	out := make([]byte, 0, e.Size)
	sector := f.clusterToSector(e.FirstCluster)
	for uint32(len(out)) < e.Size {
		var buf [SectorSize]byte
		if err := f.dev.ReadBlock(sector, &buf); err != nil {
			return nil, newErr("read_file_span", Io, err)
		}
		remaining := e.Size - uint32(len(out))
		n := uint32(SectorSize)
		if remaining < n {
			n = remaining
		}
		out = append(out, buf[:n]...)
		sector++
	}
	return out, nil
}

// WriteFile writes data (which must fit in one sector) to name under
// parentCluster, reusing the existing directory entry and cluster if
// one exists, or allocating a fresh free slot and cluster otherwise.
func (f *FS) WriteFile(parentCluster uint32, name string, data []byte) error {
	if len(data) > SectorSize {
		return newErr("write_file", Capacity, nil)
	}

	sector := f.clusterToSector(parentCluster)
	var cluster uint32
	entrySector := sector
	entryOffset := -1

	var freeSector uint32
	freeOffset := -1
	foundFree := false

outer:
	for s := uint32(0); s < uint32(f.sectorsPerCluster); s++ {
		var buf [SectorSize]byte
		if err := f.dev.ReadBlock(sector+s, &buf); err != nil {
			return newErr("write_file", Io, err)
		}
		for off := 0; off+dirEntrySize <= SectorSize; off += dirEntrySize {
			raw := buf[off : off+dirEntrySize]
			if raw[0] == 0x00 || raw[0] == 0xE5 {
				if !foundFree {
					freeSector = sector + s
					freeOffset = off
					foundFree = true
				}
				if raw[0] == 0x00 {
					break outer
				}
				continue
			}
			attr := raw[11]
			if attr&attrLongName == attrLongName || attr&attrVolumeID != 0 {
				continue
			}
			if strings.EqualFold(unpack83(raw[0:11]), name) {
				hi := uint32(binary.LittleEndian.Uint16(raw[20:22]))
				lo := uint32(binary.LittleEndian.Uint16(raw[26:28]))
				cluster = hi<<16 | lo
				entrySector = sector + s
				entryOffset = off
				break outer
			}
		}
	}

	if cluster == 0 {
		// No existing entry: allocate a cluster and claim the first
		// free directory slot found during the scan above.
		if !foundFree {
			return newErr("write_file", Capacity, nil)
		}
		c, err := f.allocFreeCluster()
		if err != nil {
			return err
		}
		cluster = c
		entrySector = freeSector
		entryOffset = freeOffset
	}

	var dirBuf [SectorSize]byte
	if err := f.dev.ReadBlock(entrySector, &dirBuf); err != nil {
		return newErr("write_file", Io, err)
	}
	raw := dirBuf[entryOffset : entryOffset+dirEntrySize]
	packed := pack83(name)
	copy(raw[0:11], packed[:])
	raw[11] = attrArchive
	for i := 12; i < 20; i++ {
		raw[i] = 0
	}
	binary.LittleEndian.PutUint16(raw[20:22], uint16(cluster>>16))
	for i := 22; i < 26; i++ {
		raw[i] = 0
	}
	binary.LittleEndian.PutUint16(raw[26:28], uint16(cluster&0xFFFF))
	binary.LittleEndian.PutUint32(raw[28:32], uint32(len(data)))
	if err := f.dev.WriteBlock(entrySector, &dirBuf); err != nil {
		return newErr("write_file", Io, err)
	}

	var dataBuf [SectorSize]byte
	copy(dataBuf[:], data)
	if err := f.dev.WriteBlock(f.clusterToSector(cluster), &dataBuf); err != nil {
		return newErr("write_file", Io, err)
	}
	return nil
}

// OccupiedSlots lists directory entries under parentCluster whose name
// matches "PREFIXNNN.EXT" with NNN in [1,100], returning the slot
// numbers in raw directory-scan order (not sorted), matching
// original_source/pattern_manager.c's Pattern_GetOccupiedSlots, which
// appends matches to its output array in the order FAT32_ListDir
// returns them.
func OccupiedSlots(entries []Entry, prefix string) []int {
	var slots []int
	for _, e := range entries {
		if !strings.HasPrefix(strings.ToUpper(e.Name), strings.ToUpper(prefix)) {
			continue
		}
		rest := e.Name[len(prefix):]
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			continue
		}
		n, err := strconv.Atoi(rest[:dot])
		if err != nil {
			continue
		}
		if n >= 1 && n <= 100 {
			slots = append(slots, n)
		}
	}
	return slots
}

// SlotFilename renders a slot number into "PREFIX-NNN.EXT" (e.g.
// "KIT-007.DRM"), the fixed naming scheme from spec.md §4.6.
func SlotFilename(prefix string, slot int, ext string) string {
	return fmt.Sprintf("%s-%03d.%s", prefix, slot, ext)
}
