package sequencer

// NumChannels mirrors mixer.NumChannels; kept independent so this package
// has no dependency on internal/mixer (it only needs a Trigger capability,
// see Sequencer.mixer).
const NumChannels = 6

// MaxSteps is the largest step count a Pattern can hold.
const MaxSteps = 32

// Pattern is the persistable step grid, tempo, and step count (spec.md
// §3). Steps is laid out [channel][step] to match the on-disk image in
// internal/patternio.
type Pattern struct {
	Steps     [NumChannels][MaxSteps]uint8
	StepCount uint8
	BPM       uint16
	Name      [16]byte
}

// NewDefaultPattern returns the firmware's boot-time fallback pattern:
// 16 steps, 120 BPM, silent, named "PATTERN 001" (spec.md §8, "Boot
// fallback").
func NewDefaultPattern() Pattern {
	var p Pattern
	p.StepCount = 16
	p.BPM = 120
	copy(p.Name[:], "PATTERN 001")
	return p
}

// nextCycleValue steps the five-value velocity tier cycle used by CycleStep:
// 0 -> 255 -> 128 -> 64 -> 32 -> 0 (spec.md §4.5, §8 property 10).
func nextCycleValue(v uint8) uint8 {
	switch v {
	case 0:
		return 255
	case 255:
		return 128
	case 128:
		return 64
	case 64:
		return 32
	default: // 32, or any other stray value
		return 0
	}
}
