package main

// Config holds cmd/drumctl's session defaults. Flags always take
// precedence over a loaded config file; the config file never touches
// the persisted kit/pattern slot formats themselves, only which slot to
// boot from and output latency (SPEC_FULL.md §4.7).
//
// Grounded on the teacher's internal/ui.Config plus internal/emu.Config
// split between "window/runtime" and "machine" settings, collapsed here
// into one struct since cmd/drumctl has only one runtime surface.
type Config struct {
	CardPath    string `yaml:"card_path"`
	KitSlot     int    `yaml:"kit_slot"`
	PatternSlot int    `yaml:"pattern_slot"`
	BPM         int    `yaml:"bpm"`
	SampleRate  int    `yaml:"sample_rate"`
	LowLatency  bool   `yaml:"low_latency"`
}

// Defaults fills zero-valued fields with the values the teacher's
// internal/ui.Config.Defaults uses as its model: sensible, low-friction
// startup behavior rather than erroring on an empty config.
func (c *Config) Defaults() {
	if c.CardPath == "" {
		c.CardPath = "card.img"
	}
	if c.KitSlot <= 0 {
		c.KitSlot = 1
	}
	if c.PatternSlot <= 0 {
		c.PatternSlot = 1
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
}
