package patternio

import (
	"path/filepath"
	"testing"

	"github.com/ardaeden/DrumModule/internal/blockdev"
	"github.com/ardaeden/DrumModule/internal/fat32"
	"github.com/ardaeden/DrumModule/internal/sequencer"
	"github.com/stretchr/testify/require"
)

func newTestVolume(t *testing.T) (*fat32.FS, uint32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.img")
	dev, err := blockdev.Create(path, 256)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	fs, err := fat32.Format(dev, 256)
	require.NoError(t, err)
	patterns, err := fs.FindDir(fs.RootCluster(), "PATTERNS")
	require.NoError(t, err)
	return fs, patterns
}

func samplePattern() sequencer.Pattern {
	p := sequencer.NewDefaultPattern()
	p.Steps[0][0] = 255
	p.Steps[0][4] = 200
	p.Steps[5][15] = 32
	p.BPM = 174
	p.StepCount = 16
	copy(p.Name[:], "MY BEAT")
	return p
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	p := samplePattern()
	data := Encode(p)
	require.Len(t, data, ImageSize)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestEncodeFieldOrder(t *testing.T) {
	p := samplePattern()
	data := Encode(p)

	stepBytes := sequencer.NumChannels * sequencer.MaxSteps
	require.Equal(t, p.StepCount, data[stepBytes])
	require.Equal(t, uint16(174), uint16(data[stepBytes+1])|uint16(data[stepBytes+2])<<8)
}

func TestDecodeRejectsShortImage(t *testing.T) {
	_, err := Decode(make([]byte, ImageSize-1))
	require.Error(t, err)
}

func TestDecodeToleratesLongerImage(t *testing.T) {
	data := Encode(samplePattern())
	data = append(data, 0xFF, 0xFF, 0xFF)
	_, err := Decode(data)
	require.NoError(t, err)
}

func TestSaveThenLoadRoundTripsThroughCard(t *testing.T) {
	fs, patterns := newTestVolume(t)
	p := samplePattern()

	require.NoError(t, Save(fs, patterns, 7, p))

	got, err := Load(fs, patterns, 7)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestOccupiedSlotsReflectsSavedPatterns(t *testing.T) {
	fs, patterns := newTestVolume(t)
	require.NoError(t, Save(fs, patterns, 1, samplePattern()))
	require.NoError(t, Save(fs, patterns, 50, samplePattern()))

	slots, err := OccupiedSlots(fs, patterns)
	require.NoError(t, err)
	require.Equal(t, []int{1, 50}, slots)
}

func TestFilenameFormat(t *testing.T) {
	require.Equal(t, "PAT-001.PAT", Filename(1))
	require.Equal(t, "PAT-100.PAT", Filename(100))
}
