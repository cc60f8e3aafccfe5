// Package kit codes a Drumset to and from its ASCII slot file and
// applies a loaded Drumset to the sample store and mixer, including the
// fallback-to-silence behavior the original firmware uses when a WAV
// load fails mid-kit.
//
// Grounded on spec.md §4.6/§6.3 and original_source/pattern_manager.c
// for the slot-file shape, and original_source/wav_loader.c's
// Drumset_Load for the per-channel load-and-fallback sequence (it
// falls back to a keyword-derived silent buffer on failure; this spec
// resolves the "WAV load fails mid-kit" open question to "silence and
// reset to vol=255, pan=128", recorded in DESIGN.md).
package kit

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ardaeden/DrumModule/internal/fat32"
	"github.com/ardaeden/DrumModule/internal/mixer"
	"github.com/ardaeden/DrumModule/internal/sample"
)

// EmptyPath is the sentinel written for an unbound channel.
const EmptyPath = "EMPTY"

// ChannelConfig is one channel's persisted configuration.
type ChannelConfig struct {
	Path   string // EmptyPath or a path relative to the card root
	Volume uint8
	Pan    uint8
	Name   string // derived display label, not persisted — see displayName
}

// displayName derives the label shown for a channel's assignment from its
// resolved path: the base filename with its extension stripped. Grounded
// on original_source/wav_loader.c's Drumset_Load, which truncates
// sample_names[i] at the first '.' once a sample has been resolved to an
// actual filename (its keyword-fallback branch uses the bare keyword
// instead, which already has no extension to strip).
func displayName(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	return base
}

// Drumset is the persistable six-channel kit (spec.md §3's "Drumset"
// entity). Name is metadata only, not written to the slot file's fixed
// per-line schema.
type Drumset struct {
	Name     string
	Channels [mixer.NumChannels]ChannelConfig
}

// NewDrumset returns a kit with every channel empty, centered, full
// volume — the same defaults a fresh Mixer starts with.
func NewDrumset() Drumset {
	var d Drumset
	for i := range d.Channels {
		d.Channels[i] = ChannelConfig{Path: EmptyPath, Volume: 255, Pan: 128, Name: displayName(EmptyPath)}
	}
	return d
}

// Filename renders the fixed slot naming scheme for a kit slot
// ([1,100]).
func Filename(slot int) string {
	return fat32.SlotFilename("KIT", slot, "DRM")
}

// Encode renders d as NUM_CHANNELS lines of "c,PATH,VOL,PAN\n".
func Encode(d Drumset) []byte {
	var b strings.Builder
	for ch, c := range d.Channels {
		fmt.Fprintf(&b, "%d,%s,%d,%d\n", ch, c.Path, c.Volume, c.Pan)
	}
	return []byte(b.String())
}

// Decode parses the four-field-per-line schema back into a Drumset.
// Lines referencing an out-of-range channel are ignored; malformed
// lines are skipped (spec.md §7: most out-of-range inputs are silently
// ignored, not surfaced as errors).
func Decode(data []byte) Drumset {
	d := NewDrumset()
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			continue
		}
		ch, err := strconv.Atoi(fields[0])
		if err != nil || ch < 0 || ch >= mixer.NumChannels {
			continue
		}
		vol, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		pan, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}
		d.Channels[ch] = ChannelConfig{
			Path:   fields[1],
			Volume: uint8(clamp(vol)),
			Pan:    uint8(clamp(pan)),
			Name:   displayName(fields[1]),
		}
	}
	return d
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Save writes d to its slot file under drumsetsCluster.
func Save(fs *fat32.FS, drumsetsCluster uint32, slot int, d Drumset) error {
	return fs.WriteFile(drumsetsCluster, Filename(slot), Encode(d))
}

// Load reads and decodes a kit from its slot file under
// drumsetsCluster.
func Load(fs *fat32.FS, drumsetsCluster uint32, slot int) (Drumset, error) {
	data, err := fs.ReadFile(drumsetsCluster, Filename(slot))
	if err != nil {
		return Drumset{}, err
	}
	return Decode(data), nil
}

// OccupiedSlots lists the kit slot numbers currently saved under
// drumsetsCluster, in directory-scan order.
func OccupiedSlots(fs *fat32.FS, drumsetsCluster uint32) ([]int, error) {
	entries, err := fs.ListDir(drumsetsCluster)
	if err != nil {
		return nil, err
	}
	return fat32.OccupiedSlots(entries, "KIT-"), nil
}

// Apply loads d's samples onto store and configures mix onto mx,
// channel by channel. For a channel whose path is not EmptyPath, it
// resolves the path from rootCluster, loads the WAV, and binds it; on
// any failure along that path the channel is unloaded and reset to
// volume=255, pan=128 (the "silence and reset" branch spec.md chooses
// for the ambiguous mid-kit WAV-load-failure behavior).
func Apply(fs *fat32.FS, rootCluster uint32, d Drumset, store *sample.Store, mx *mixer.Mixer) {
	for ch, c := range d.Channels {
		if c.Path == "" || c.Path == EmptyPath {
			store.Unload(ch)
			mx.Bind(ch, nil)
			mx.SetVolume(ch, c.Volume)
			mx.SetPan(ch, c.Pan)
			continue
		}

		if !loadChannel(fs, rootCluster, ch, c.Path, store) {
			store.Unload(ch)
			mx.Stop(ch)
			mx.Bind(ch, nil)
			mx.SetVolume(ch, 255)
			mx.SetPan(ch, 128)
			continue
		}

		mx.Stop(ch)
		mx.Bind(ch, store.View(ch))
		mx.SetVolume(ch, c.Volume)
		mx.SetPan(ch, c.Pan)
	}
}

func loadChannel(fs *fat32.FS, rootCluster uint32, ch int, path string, store *sample.Store) bool {
	parent, filename, err := fat32.ResolvePath(fs, rootCluster, path)
	if err != nil {
		return false
	}
	data, err := fs.ReadFileSpan(parent, filename)
	if err != nil {
		return false
	}
	_, loadErr := store.Load(ch, bytes.NewReader(data))
	return loadErr == nil
}
