// Package patternio codes sequencer.Pattern to and from its fixed
// on-disk image and persists it under the PAT-NNN.PAT slot namespace.
//
// Grounded on spec.md §4.6's fixed layout (NUM_CHANNELS*MAX_STEPS
// velocity bytes, 1-byte step_count, 2-byte LE bpm, 16-byte name) and,
// for the field-by-field assembly style, on the teacher's
// internal/cart header-parsing functions (manual
// encoding/binary.LittleEndian reads/writes at fixed offsets) rather
// than a generic encoding like gob — this image's byte layout is a
// contract with the card, not an implementation detail Go gets to pick.
package patternio

import (
	"encoding/binary"
	"fmt"

	"github.com/ardaeden/DrumModule/internal/fat32"
	"github.com/ardaeden/DrumModule/internal/sequencer"
)

// ImageSize is the exact byte length of an encoded pattern:
// NumChannels*MaxSteps + 1 (step_count) + 2 (bpm) + 16 (name).
const ImageSize = sequencer.NumChannels*sequencer.MaxSteps + 1 + 2 + 16

// Encode renders p into its fixed on-disk byte image.
func Encode(p sequencer.Pattern) []byte {
	out := make([]byte, ImageSize)
	i := 0
	for ch := 0; ch < sequencer.NumChannels; ch++ {
		for step := 0; step < sequencer.MaxSteps; step++ {
			out[i] = p.Steps[ch][step]
			i++
		}
	}
	out[i] = p.StepCount
	i++
	binary.LittleEndian.PutUint16(out[i:i+2], p.BPM)
	i += 2
	copy(out[i:i+16], p.Name[:])
	return out
}

// Decode parses a pattern image produced by Encode. data shorter than
// ImageSize is a format error; data longer is accepted and the excess
// ignored (mirrors pattern_manager.c's "file is larger than expected,
// but we only need sizeof(Pattern)" tolerance).
func Decode(data []byte) (sequencer.Pattern, error) {
	var p sequencer.Pattern
	if len(data) < ImageSize {
		return p, fmt.Errorf("patternio: image too short: got %d want %d", len(data), ImageSize)
	}
	i := 0
	for ch := 0; ch < sequencer.NumChannels; ch++ {
		for step := 0; step < sequencer.MaxSteps; step++ {
			p.Steps[ch][step] = data[i]
			i++
		}
	}
	p.StepCount = data[i]
	i++
	p.BPM = binary.LittleEndian.Uint16(data[i : i+2])
	i += 2
	copy(p.Name[:], data[i:i+16])
	return p, nil
}

// Filename renders the fixed slot naming scheme for a pattern slot
// ([1,100]).
func Filename(slot int) string {
	return fat32.SlotFilename("PAT", slot, "PAT")
}

// Save writes a pattern to its slot file under patternsCluster.
func Save(fs *fat32.FS, patternsCluster uint32, slot int, p sequencer.Pattern) error {
	return fs.WriteFile(patternsCluster, Filename(slot), Encode(p))
}

// Load reads and decodes a pattern from its slot file under
// patternsCluster.
func Load(fs *fat32.FS, patternsCluster uint32, slot int) (sequencer.Pattern, error) {
	data, err := fs.ReadFile(patternsCluster, Filename(slot))
	if err != nil {
		return sequencer.Pattern{}, err
	}
	return Decode(data)
}

// OccupiedSlots lists the pattern slot numbers currently saved under
// patternsCluster, in directory-scan order.
func OccupiedSlots(fs *fat32.FS, patternsCluster uint32) ([]int, error) {
	entries, err := fs.ListDir(patternsCluster)
	if err != nil {
		return nil, err
	}
	return fat32.OccupiedSlots(entries, "PAT-"), nil
}
