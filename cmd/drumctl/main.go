// Command drumctl is a terminal demo for the drum-machine core: it
// mounts a card image, boots internal/drumcore.Core, plays audio
// through the host speakers via internal/audiobackend, and accepts a
// small set of line-buffered commands as a stand-in for the UI
// collaborator's debounced button/encoder events.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ardaeden/DrumModule/internal/audiobackend"
	"github.com/ardaeden/DrumModule/internal/blockdev"
	"github.com/ardaeden/DrumModule/internal/drumcore"
	"github.com/ardaeden/DrumModule/internal/drumlog"
)

// CLIFlags mirrors the teacher's cmd/gbemu/main.go CLIFlags struct: one
// flat struct filled by flag.Parse-equivalent, then handed to the rest
// of main.
type CLIFlags struct {
	Card        string
	KitSlot     int
	PatternSlot int
	BPM         int
	SampleRate  int
	LowLatency  bool
	ConfigPath  string
}

func parseFlags() CLIFlags {
	var f CLIFlags
	pflag.StringVar(&f.Card, "card", "", "path to a FAT32 card image")
	pflag.IntVar(&f.KitSlot, "kit", 0, "kit slot to load at boot")
	pflag.IntVar(&f.PatternSlot, "pattern", 0, "pattern slot to load at boot")
	pflag.IntVar(&f.BPM, "bpm", 0, "override BPM after boot")
	pflag.IntVar(&f.SampleRate, "sample-rate", 0, "audio output sample rate")
	pflag.BoolVar(&f.LowLatency, "low-latency", false, "use a smaller audio buffer")
	pflag.StringVar(&f.ConfigPath, "config", "", "optional YAML config file")
	pflag.Parse()
	return f
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	f := parseFlags()
	log := drumlog.Default()

	cfg, err := loadConfig(f.ConfigPath)
	if err != nil {
		log.Fatal("config", "err", err)
	}
	cfg.Defaults()

	if f.Card != "" {
		cfg.CardPath = f.Card
	}
	if f.KitSlot > 0 {
		cfg.KitSlot = f.KitSlot
	}
	if f.PatternSlot > 0 {
		cfg.PatternSlot = f.PatternSlot
	}
	if f.BPM > 0 {
		cfg.BPM = f.BPM
	}
	if f.SampleRate > 0 {
		cfg.SampleRate = f.SampleRate
	}
	if f.LowLatency {
		cfg.LowLatency = true
	}

	dev, err := blockdev.Open(cfg.CardPath)
	if err != nil {
		log.Fatal("open card", "path", cfg.CardPath, "err", err)
	}
	defer dev.Close()

	core, err := drumcore.New(dev, cfg.SampleRate, log)
	if err != nil {
		log.Fatal("boot", "err", err)
	}

	if _, err := core.KitLoad(cfg.KitSlot); err != nil {
		log.Warn("kit load", "slot", cfg.KitSlot, "err", err)
	}
	if err := core.PatternLoad(cfg.PatternSlot); err != nil {
		log.Warn("pattern load", "slot", cfg.PatternSlot, "err", err)
	}
	if cfg.BPM > 0 {
		core.SetBPM(uint16(cfg.BPM))
	}

	audioCtx := audio.NewContext(cfg.SampleRate)
	player, err := audiobackend.NewPlayer(audioCtx, core.Ring(), cfg.LowLatency)
	if err != nil {
		log.Fatal("audio player", "err", err)
	}
	player.Play()

	core.Start()
	defer core.Stop()

	log.Info("drumctl ready", "card", cfg.CardPath, "bpm", core.GetBPM(), "steps", core.StepCount())
	runCommandLoop(core)
}

func runCommandLoop(core *drumcore.Core) {
	fmt.Println("commands: start, stop, bpm <n>, save-pattern <slot>, load-pattern <slot>, save-kit <slot>, load-kit <slot>, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "start":
			core.HandleEvent(drumcore.StartPressed{})
		case "stop":
			core.Stop()
		case "bpm":
			if len(fields) < 2 {
				continue
			}
			if n, err := strconv.Atoi(fields[1]); err == nil {
				core.SetBPM(uint16(n))
			}
		case "save-pattern":
			runSlotCommand(fields, core.PatternSave)
		case "load-pattern":
			runSlotCommand(fields, core.PatternLoad)
		case "save-kit":
			runSlotCommand(fields, func(slot int) error {
				return core.KitSave(slot, core.CurrentKit())
			})
		case "load-kit":
			runSlotCommand(fields, func(slot int) error {
				_, err := core.KitLoad(slot)
				return err
			})
		case "quit", "exit":
			return
		}
	}
}

func runSlotCommand(fields []string, fn func(slot int) error) {
	if len(fields) < 2 {
		return
	}
	slot, err := strconv.Atoi(fields[1])
	if err != nil {
		return
	}
	if err := fn(slot); err != nil {
		fmt.Println("ERR", err)
		return
	}
	fmt.Println("OK")
}
