// Command mkcard builds a flat-file FAT32 card image from a directory
// of WAV samples, laying down a starter kit (slot 1) that binds the
// first few samples it finds to channels 0..N, and a starter pattern
// (slot 1) with a simple four-on-the-floor kick — enough for
// cmd/drumctl to boot against without a hand-authored card.
//
// Grounded on the pack's RetroCodeRamen-Nitro-Core-DX cmd/rombuilder: a
// small headered-binary-file builder invoked with positional/flag
// arguments, erroring to stderr and exiting 1 on failure.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ardaeden/DrumModule/internal/blockdev"
	"github.com/ardaeden/DrumModule/internal/fat32"
	"github.com/ardaeden/DrumModule/internal/kit"
	"github.com/ardaeden/DrumModule/internal/mixer"
	"github.com/ardaeden/DrumModule/internal/patternio"
	"github.com/ardaeden/DrumModule/internal/sequencer"
)

func main() {
	out := flag.String("out", "card.img", "output card image path")
	sectors := flag.Uint("sectors", 4096, "total sectors in the image")
	samplesDir := flag.String("samples", "", "directory of .wav samples to embed under /SAMPLES")
	flag.Parse()

	if err := build(*out, uint32(*sectors), *samplesDir); err != nil {
		fmt.Fprintf(os.Stderr, "mkcard: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

func build(outPath string, sectors uint32, samplesDir string) error {
	dev, err := blockdev.Create(outPath, sectors)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer dev.Close()

	fs, err := fat32.Format(dev, sectors)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}

	drumsets, err := fs.FindDir(fs.RootCluster(), "DRUMSETS")
	if err != nil {
		return fmt.Errorf("find DRUMSETS: %w", err)
	}
	patterns, err := fs.FindDir(fs.RootCluster(), "PATTERNS")
	if err != nil {
		return fmt.Errorf("find PATTERNS: %w", err)
	}

	d := kit.NewDrumset()
	if samplesDir != "" {
		paths, err := embedSamples(fs, samplesDir)
		if err != nil {
			return fmt.Errorf("embed samples: %w", err)
		}
		for ch := 0; ch < mixer.NumChannels && ch < len(paths); ch++ {
			d.Channels[ch] = kit.ChannelConfig{Path: paths[ch], Volume: 255, Pan: 128}
		}
	}
	if err := kit.Save(fs, drumsets, 1, d); err != nil {
		return fmt.Errorf("save starter kit: %w", err)
	}

	p := sequencer.NewDefaultPattern()
	for _, step := range []int{0, 4, 8, 12} {
		p.Steps[0][step] = 200
	}
	if err := patternio.Save(fs, patterns, 1, p); err != nil {
		return fmt.Errorf("save starter pattern: %w", err)
	}

	return nil
}

// embedSamples copies every *.wav file directly under dir into a fresh
// /SAMPLES directory on the card, returning their card-relative paths
// in a stable (sorted) order. Each sample is written with WriteFileSpan
// since WAV data routinely exceeds the single-sector limit WriteFile
// enforces (fat32.WriteFileSpan's doc comment).
func embedSamples(fs *fat32.FS, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, nil
	}

	samplesCluster, err := fs.Mkdir(fs.RootCluster(), "SAMPLES")
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		cardName := strings.ToUpper(name)
		if err := fs.WriteFileSpan(samplesCluster, cardName, data); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, "SAMPLES/"+cardName)
	}
	return paths, nil
}
