package kit

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/ardaeden/DrumModule/internal/blockdev"
	"github.com/ardaeden/DrumModule/internal/fat32"
	"github.com/ardaeden/DrumModule/internal/mixer"
	"github.com/ardaeden/DrumModule/internal/sample"
	"github.com/stretchr/testify/require"
)

func buildWAV(t *testing.T, data []int16) []byte {
	t.Helper()
	var buf bytes.Buffer
	dataBytes := make([]byte, len(data)*2)
	for i, s := range data {
		binary.LittleEndian.PutUint16(dataBytes[i*2:], uint16(s))
	}
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(dataBytes)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(44100))
	binary.Write(&buf, binary.LittleEndian, uint32(44100*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(dataBytes)))
	buf.Write(dataBytes)
	return buf.Bytes()
}

func newTestVolume(t *testing.T) (*fat32.FS, uint32, uint32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.img")
	dev, err := blockdev.Create(path, 256)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	fs, err := fat32.Format(dev, 256)
	require.NoError(t, err)
	drumsets, err := fs.FindDir(fs.RootCluster(), "DRUMSETS")
	require.NoError(t, err)
	return fs, fs.RootCluster(), drumsets
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	d := NewDrumset()
	d.Channels[3] = ChannelConfig{Path: "PACK1/CLAP.WAV", Volume: 180, Pan: 64, Name: "CLAP"}

	data := Encode(d)
	got := Decode(data)
	require.Equal(t, d.Channels, got.Channels)
}

func TestDisplayNameStripsDirectoryAndExtension(t *testing.T) {
	require.Equal(t, "CLAP", displayName("PACK1/CLAP.WAV"))
	require.Equal(t, "KICK", displayName("KICK.WAV"))
	require.Equal(t, "EMPTY", displayName(EmptyPath))
}

func TestDecodeIgnoresMalformedLines(t *testing.T) {
	d := Decode([]byte("not,a,valid\n0,SAMPLES/KICK.WAV,200,100\ngarbage\n"))
	require.Equal(t, "SAMPLES/KICK.WAV", d.Channels[0].Path)
	require.Equal(t, uint8(200), d.Channels[0].Volume)
	require.Equal(t, uint8(100), d.Channels[0].Pan)
	require.Equal(t, "KICK", d.Channels[0].Name)
	// Channels not mentioned stay at defaults.
	require.Equal(t, EmptyPath, d.Channels[1].Path)
}

func TestDecodeIgnoresOutOfRangeChannel(t *testing.T) {
	d := Decode([]byte("99,SAMPLES/X.WAV,1,1\n"))
	for _, c := range d.Channels {
		require.Equal(t, EmptyPath, c.Path)
	}
}

func TestSaveThenLoadRoundTripsThroughCard(t *testing.T) {
	fs, _, drumsets := newTestVolume(t)
	d := NewDrumset()
	d.Channels[3] = ChannelConfig{Path: "PACK1/CLAP.WAV", Volume: 180, Pan: 64, Name: "CLAP"}

	require.NoError(t, Save(fs, drumsets, 7, d))
	got, err := Load(fs, drumsets, 7)
	require.NoError(t, err)
	require.Equal(t, d.Channels, got.Channels)
}

func TestKitRoundTripWithPath(t *testing.T) {
	fs, root, drumsets := newTestVolume(t)

	pack1, err := fs.Mkdir(root, "PACK1")
	require.NoError(t, err)
	require.NoError(t, fs.WriteFileSpan(pack1, "CLAP.WAV", buildWAV(t, []int16{1, 2, 3, 4, 5})))

	d := NewDrumset()
	d.Channels[3] = ChannelConfig{Path: "PACK1/CLAP.WAV", Volume: 180, Pan: 64}
	require.NoError(t, Save(fs, drumsets, 7, d))

	// Zero the drumset in memory, then load slot 7 back.
	d = Drumset{}
	d, err = Load(fs, drumsets, 7)
	require.NoError(t, err)
	require.Equal(t, "PACK1/CLAP.WAV", d.Channels[3].Path)
	require.Equal(t, uint8(180), d.Channels[3].Volume)
	require.Equal(t, uint8(64), d.Channels[3].Pan)
	require.Equal(t, "CLAP", d.Channels[3].Name)

	store := sample.NewStore()
	mx := mixer.New()
	Apply(fs, root, d, store, mx)

	require.Equal(t, 5, store.Len(3))
	require.NotEmpty(t, store.View(3))
	mx.Trigger(3, 255)
	require.True(t, mx.Active(3))
}

func TestApplyFallsBackToSilenceOnLoadFailure(t *testing.T) {
	fs, root, _ := newTestVolume(t)
	store := sample.NewStore()
	mx := mixer.New()
	mx.SetVolume(2, 10)
	mx.SetPan(2, 10)

	d := NewDrumset()
	d.Channels[2] = ChannelConfig{Path: "NOSUCHPATH/MISSING.WAV", Volume: 10, Pan: 10}
	Apply(fs, root, d, store, mx)

	require.Equal(t, 0, store.Len(2))
	require.False(t, mx.Active(2))
}

func TestOccupiedSlotsReflectsSavedKits(t *testing.T) {
	fs, _, drumsets := newTestVolume(t)
	require.NoError(t, Save(fs, drumsets, 3, NewDrumset()))
	require.NoError(t, Save(fs, drumsets, 9, NewDrumset()))

	slots, err := OccupiedSlots(fs, drumsets)
	require.NoError(t, err)
	require.Equal(t, []int{3, 9}, slots)
}

func TestFilenameFormat(t *testing.T) {
	require.Equal(t, "KIT-007.DRM", Filename(7))
}
