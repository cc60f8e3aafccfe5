package fat32

import (
	"encoding/binary"
)

// Format lays down a minimal FAT32 volume with one reserved (boot)
// sector, one FAT, one sector per cluster, and a root directory
// containing empty PATTERNS and DRUMSETS subdirectories — just enough
// structure for cmd/mkcard to then populate with kit/pattern slots via
// WriteFile. Not a general-purpose mkfs: no MBR is written (a
// superfloppy layout, partition_start=0), matching the boot-sequence
// fallback in Mount.
func Format(dev BlockDevice, totalSectors uint32) (*FS, error) {
	if err := dev.Init(); err != nil {
		return nil, newErr("format", Io, err)
	}

	const reservedSectors = 1
	if totalSectors < reservedSectors+4 {
		return nil, newErr("format", Capacity, nil)
	}

	// One cluster per sector keeps cluster_to_sector trivial. Size the
	// FAT so every remaining sector can be addressed as a data cluster:
	// fatSectors*128 entries-per-sector >= dataSectors, where
	// dataSectors = totalSectors - reserved - fatSectors.
	fatSectors := uint32(1)
	for {
		dataSectors := totalSectors - reservedSectors - fatSectors
		if fatSectors*(SectorSize/4) >= dataSectors {
			break
		}
		fatSectors++
	}

	f := &FS{
		dev:               dev,
		partitionStart:    0,
		bytesPerSector:    SectorSize,
		sectorsPerCluster: 1,
		reservedSectors:   reservedSectors,
		numFATs:           1,
		fatSize32:         fatSectors,
		rootCluster:       2,
	}
	f.firstDataSector = f.partitionStart + uint32(f.reservedSectors) + uint32(f.numFATs)*f.fatSize32

	var boot [SectorSize]byte
	binary.LittleEndian.PutUint16(boot[11:13], f.bytesPerSector)
	boot[13] = f.sectorsPerCluster
	binary.LittleEndian.PutUint16(boot[14:16], f.reservedSectors)
	boot[16] = f.numFATs
	binary.LittleEndian.PutUint32(boot[36:40], f.fatSize32)
	binary.LittleEndian.PutUint32(boot[44:48], f.rootCluster)
	boot[510] = 0x55
	boot[511] = 0xAA
	if err := dev.WriteBlock(0, &boot); err != nil {
		return nil, newErr("format", Io, err)
	}

	// Zero every FAT sector, then mark cluster 2 (root) in use.
	var zero [SectorSize]byte
	for s := uint32(0); s < fatSectors; s++ {
		if err := dev.WriteBlock(uint32(f.reservedSectors)+s, &zero); err != nil {
			return nil, newErr("format", Io, err)
		}
	}
	if err := f.writeFATEntry(f.rootCluster, eocMarker); err != nil {
		return nil, err
	}

	// Zero the root directory's cluster.
	if err := dev.WriteBlock(f.clusterToSector(f.rootCluster), &zero); err != nil {
		return nil, newErr("format", Io, err)
	}

	if _, err := f.mkdir(f.rootCluster, "PATTERNS"); err != nil {
		return nil, err
	}
	if _, err := f.mkdir(f.rootCluster, "DRUMSETS"); err != nil {
		return nil, err
	}

	return f, nil
}

// Mkdir allocates a fresh, empty single-cluster subdirectory under
// parentCluster and links it in with a directory entry. Exported for
// card-building tools (cmd/mkcard) that need to lay out sample packs in
// subdirectories beyond the fixed PATTERNS/DRUMSETS pair Format creates.
func (f *FS) Mkdir(parentCluster uint32, name string) (uint32, error) {
	return f.mkdir(parentCluster, name)
}

// mkdir allocates a fresh, empty single-cluster subdirectory under
// parentCluster and links it in with a directory entry.
func (f *FS) mkdir(parentCluster uint32, name string) (uint32, error) {
	cluster, err := f.allocFreeCluster()
	if err != nil {
		return 0, err
	}

	var zero [SectorSize]byte
	if err := f.dev.WriteBlock(f.clusterToSector(cluster), &zero); err != nil {
		return 0, newErr("mkdir", Io, err)
	}

	sector := f.clusterToSector(parentCluster)
	var buf [SectorSize]byte
	if err := f.dev.ReadBlock(sector, &buf); err != nil {
		return 0, newErr("mkdir", Io, err)
	}
	for off := 0; off+dirEntrySize <= SectorSize; off += dirEntrySize {
		raw := buf[off : off+dirEntrySize]
		if raw[0] != 0x00 && raw[0] != 0xE5 {
			continue
		}
		packed := pack83(name)
		copy(raw[0:11], packed[:])
		raw[11] = attrDir
		binary.LittleEndian.PutUint16(raw[20:22], uint16(cluster>>16))
		binary.LittleEndian.PutUint16(raw[26:28], uint16(cluster&0xFFFF))
		binary.LittleEndian.PutUint32(raw[28:32], 0)
		if err := f.dev.WriteBlock(sector, &buf); err != nil {
			return 0, newErr("mkdir", Io, err)
		}
		return cluster, nil
	}
	return 0, newErr("mkdir", Capacity, nil)
}
