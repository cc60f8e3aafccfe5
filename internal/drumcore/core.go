// Package drumcore is the SeqCore control surface (spec.md §6): it
// wires together the tempo clock, sequencer, mixer, sample store, audio
// pipeline, and FAT32 persistence, and exposes the single façade the UI
// and CLI collaborators call through. Nothing outside this package
// starts a goroutine or mutates more than one of those components at a
// time.
//
// Grounded on the teacher's internal/bus.Bus (wires cart.Cartridge +
// ppu.PPU behind Tick, hiding the subsystem wiring from cmd/gbemu) and
// internal/emu.Machine (the thin New/LoadCartridge/StepFrame façade
// cmd/gbemu/main.go actually calls) — generalized from "one frame of
// CPU+PPU" to "one boot sequence wiring six real-time subsystems".
package drumcore

import (
	"bytes"
	"sync"

	"github.com/ardaeden/DrumModule/internal/audiopipe"
	"github.com/ardaeden/DrumModule/internal/drumlog"
	"github.com/ardaeden/DrumModule/internal/fat32"
	"github.com/ardaeden/DrumModule/internal/kit"
	"github.com/ardaeden/DrumModule/internal/mixer"
	"github.com/ardaeden/DrumModule/internal/patternio"
	"github.com/ardaeden/DrumModule/internal/sample"
	"github.com/ardaeden/DrumModule/internal/sequencer"
	"github.com/ardaeden/DrumModule/internal/tempo"
)

// BlockDevice is the raw sector I/O collaborator (spec.md §6); an alias
// of fat32.BlockDevice so callers need not import fat32 just to satisfy
// Core's constructor.
type BlockDevice = fat32.BlockDevice

// FrameSink is the DMA collaborator Core's audio pipeline drives;
// audiopipe.Ring satisfies it.
type FrameSink interface {
	Buffer() []int16
	OnHalf(fill func([]int16))
	OnFull(fill func([]int16))
}

// BootPatternSlot is the slot Core loads at startup, per spec.md §8's
// boot-fallback scenario.
const BootPatternSlot = 1

// Core is the SeqCore control surface. All exported methods are safe
// for concurrent use; the audio and tempo goroutines only ever call
// into mixer/sequencer, never into Core's persistence methods, matching
// spec.md §5's foreground/interrupt split.
type Core struct {
	fs *fat32.FS

	patternsCluster uint32
	drumsetsCluster uint32

	mx       *mixer.Mixer
	store    *sample.Store
	seq      *sequencer.Sequencer
	clock    *tempo.Clock
	pipeline *audiopipe.Pipeline

	log *drumlog.Logger

	mu            sync.Mutex
	coarseEncoder bool
	lastKit       kit.Drumset
}

// New mounts dev as a FAT32 card, wires every component, and loads the
// boot pattern slot (falling back to a fresh default pattern if the
// card has none — spec.md §8's "Boot fallback" scenario). It does not
// start the audio or tempo goroutines; call Start for that.
func New(dev BlockDevice, sampleRate int, log *drumlog.Logger) (*Core, error) {
	if log == nil {
		log = drumlog.Default()
	}

	fs, err := fat32.Mount(dev)
	if err != nil {
		return nil, wrapFAT32("new", err)
	}

	patternsCluster, err := fs.FindDir(fs.RootCluster(), "PATTERNS")
	if err != nil {
		return nil, wrapFAT32("new", err)
	}
	drumsetsCluster, err := fs.FindDir(fs.RootCluster(), "DRUMSETS")
	if err != nil {
		return nil, wrapFAT32("new", err)
	}

	mx := mixer.New()
	store := sample.NewStore()
	seq := sequencer.New(mx)
	clock := tempo.New()
	pipeline := audiopipe.NewPipeline(sampleRate)

	c := &Core{
		fs:              fs,
		patternsCluster: patternsCluster,
		drumsetsCluster: drumsetsCluster,
		mx:              mx,
		store:           store,
		seq:             seq,
		clock:           clock,
		pipeline:        pipeline,
		log:             log,
		coarseEncoder:   false,
		lastKit:         kit.NewDrumset(),
	}

	clock.SetCallback(seq.OnPulse)

	p, err := patternio.Load(fs, patternsCluster, BootPatternSlot)
	if err != nil {
		log.Info("boot pattern slot absent, using default pattern", "slot", BootPatternSlot)
		p = sequencer.NewDefaultPattern()
	} else {
		log.Info("loaded boot pattern", "slot", BootPatternSlot, "bpm", p.BPM)
	}
	seq.LoadPattern(p)
	clock.SetBPM(p.BPM)

	return c, nil
}

// Start begins the tempo and audio goroutines. Sequencer step 0 fires
// immediately (spec.md §8 invariant 6).
func (c *Core) Start() {
	c.seq.Start()
	c.clock.Start()
	c.pipeline.Start(c.mx.Render)
}

// Stop halts both goroutines. The mixer is left exactly as it was (no
// implicit StopAll), matching spec.md's silence-is-explicit model.
func (c *Core) Stop() {
	c.clock.Stop()
	c.pipeline.Stop()
	c.seq.Stop()
}

// IsPlaying reports whether the sequencer is advancing.
func (c *Core) IsPlaying() bool { return c.seq.IsPlaying() }

// CurrentStep reports the sequencer's current step index.
func (c *Core) CurrentStep() int { return c.seq.CurrentStep() }

// StepCount reports the active pattern's step count.
func (c *Core) StepCount() int { return c.seq.StepCount() }

// SetBPM forwards a BPM change to both the tempo clock (which staged-
// latches it at the next pulse boundary) and the sequencer (which only
// caches it for the next persisted pattern) — the split described in
// sequencer.Sequencer.SetBPM's doc comment, completed here since Core
// is the only thing that owns both.
func (c *Core) SetBPM(bpm uint16) {
	c.clock.SetBPM(bpm)
	c.seq.SetBPM(bpm)
}

// GetBPM reports the tempo clock's live BPM.
func (c *Core) GetBPM() uint16 { return c.clock.GetBPM() }

// SetStep sets one step's velocity in the live pattern.
func (c *Core) SetStep(ch, step int, velocity uint8) { c.seq.SetStep(ch, step, velocity) }

// GetStep reads one step's velocity from the live pattern.
func (c *Core) GetStep(ch, step int) uint8 { return c.seq.GetStep(ch, step) }

// ToggleStep flips a step between silent and full velocity (0<->255).
func (c *Core) ToggleStep(ch, step int) { c.seq.ToggleStep(ch, step) }

// CycleStep advances a step through the five-value velocity tier.
func (c *Core) CycleStep(ch, step int) { c.seq.CycleStep(ch, step) }

// ClearPattern silences every step of the live pattern.
func (c *Core) ClearPattern() { c.seq.ClearPattern() }

// SetStepCount resizes the live pattern's active step range.
func (c *Core) SetStepCount(count int) { c.seq.SetStepCount(count) }

// QueuePattern stages p to take effect at the next bar rollover.
func (c *Core) QueuePattern(p sequencer.Pattern, slot uint8) { c.seq.QueuePattern(p, slot) }

// IsPatternQueued reports whether a queued swap is pending.
func (c *Core) IsPatternQueued() bool { return c.seq.IsPatternQueued() }

// QueuedSlot reports the slot number of the queued pattern, if any.
func (c *Core) QueuedSlot() uint8 { return c.seq.QueuedSlot() }

// Trigger fires a voice directly, bypassing the sequencer — used by the
// UI collaborator for manual pad hits.
func (c *Core) Trigger(ch int, velocity uint8) { c.mx.Trigger(ch, velocity) }

// StopVoice silences one channel immediately.
func (c *Core) StopVoice(ch int) { c.mx.Stop(ch) }

// StopAllVoices silences every channel immediately.
func (c *Core) StopAllVoices() { c.mx.StopAll() }

// SetVolume sets a channel's mix volume.
func (c *Core) SetVolume(ch int, v uint8) { c.mx.SetVolume(ch, v) }

// SetPan sets a channel's stereo placement.
func (c *Core) SetPan(ch int, p uint8) { c.mx.SetPan(ch, p) }

// PatternSave writes the live pattern to a pattern slot.
func (c *Core) PatternSave(slot int) error {
	err := patternio.Save(c.fs, c.patternsCluster, slot, c.seq.Pattern())
	if err != nil {
		c.log.Error("pattern save failed", "slot", slot, "err", err)
		return wrapFAT32("pattern_save", err)
	}
	c.log.Info("pattern saved", "slot", slot)
	return nil
}

// PatternLoad reads a pattern slot and makes it the live pattern
// immediately (not queued — callers wanting a bar-aligned swap should
// use QueuePattern instead).
func (c *Core) PatternLoad(slot int) error {
	p, err := patternio.Load(c.fs, c.patternsCluster, slot)
	if err != nil {
		c.log.Error("pattern load failed", "slot", slot, "err", err)
		return wrapFAT32("pattern_load", err)
	}
	c.seq.LoadPattern(p)
	c.clock.SetBPM(p.BPM)
	c.log.Info("pattern loaded", "slot", slot, "bpm", p.BPM)
	return nil
}

// KitSave writes d to a kit slot.
func (c *Core) KitSave(slot int, d kit.Drumset) error {
	if err := kit.Save(c.fs, c.drumsetsCluster, slot, d); err != nil {
		c.log.Error("kit save failed", "slot", slot, "err", err)
		return wrapFAT32("kit_save", err)
	}
	c.log.Info("kit saved", "slot", slot)
	return nil
}

// KitLoad reads a kit slot and applies it to the sample store and
// mixer, channel by channel, falling back to silence on any per-channel
// load failure (internal/kit.Apply's contract).
func (c *Core) KitLoad(slot int) (kit.Drumset, error) {
	d, err := kit.Load(c.fs, c.drumsetsCluster, slot)
	if err != nil {
		c.log.Error("kit load failed", "slot", slot, "err", err)
		return kit.Drumset{}, wrapFAT32("kit_load", err)
	}
	kit.Apply(c.fs, c.fs.RootCluster(), d, c.store, c.mx)
	c.mu.Lock()
	c.lastKit = d
	c.mu.Unlock()
	c.log.Info("kit loaded", "slot", slot)
	return d, nil
}

// CurrentKit reconstructs the live kit from the last loaded Drumset's
// per-channel paths, overlaid with the mixer's current volume and pan —
// the state a "save-kit" command should actually persist, since SetVolume
// and SetPan can diverge from whatever was last loaded from a slot.
func (c *Core) CurrentKit() kit.Drumset {
	c.mu.Lock()
	d := c.lastKit
	c.mu.Unlock()

	for ch := range d.Channels {
		d.Channels[ch].Volume = c.mx.Volume(ch)
		d.Channels[ch].Pan = c.mx.Pan(ch)
	}
	return d
}

// SlotKind distinguishes pattern and kit slot listings for OccupiedSlots.
type SlotKind int

const (
	PatternSlots SlotKind = iota
	KitSlots
)

// OccupiedSlots lists the slot numbers currently saved for the given
// slot kind.
func (c *Core) OccupiedSlots(sk SlotKind) ([]int, error) {
	switch sk {
	case KitSlots:
		slots, err := kit.OccupiedSlots(c.fs, c.drumsetsCluster)
		if err != nil {
			return nil, wrapFAT32("occupied_slots", err)
		}
		return slots, nil
	default:
		slots, err := patternio.OccupiedSlots(c.fs, c.patternsCluster)
		if err != nil {
			return nil, wrapFAT32("occupied_slots", err)
		}
		return slots, nil
	}
}

// Underruns is not tracked by Core itself — the audio backend
// (internal/audiobackend.Stream) counts those, since only the concrete
// io.Reader pulling from the ring can observe them (spec.md §7: "under-
// runs manifest as audible glitches and are not recovered").

// Ring exposes the underlying audio ring (a FrameSink) for wiring into
// an audio backend. Concrete rather than the FrameSink interface since
// internal/audiobackend needs to hand it to ebiten's audio.Context,
// which wants a known type, not an interface value.
func (c *Core) Ring() *audiopipe.Ring { return c.pipeline.Ring() }

// LoadSample loads raw WAV data directly into a channel's buffer and
// binds it to the mixer, bypassing kit persistence — for manual pad
// auditioning and ad hoc testing.
func (c *Core) LoadSample(ch int, data []byte) error {
	if _, err := c.store.Load(ch, bytes.NewReader(data)); err != nil {
		return wrapSample("load_sample", err)
	}
	c.mx.Bind(ch, c.store.View(ch))
	return nil
}
