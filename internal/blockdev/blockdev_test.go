package blockdev

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateZeroFillsImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.img")
	d, err := Create(path, 16)
	require.NoError(t, err)
	defer d.Close()

	var buf [SectorSize]byte
	require.NoError(t, d.ReadBlock(0, &buf))
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestWriteThenReadBackRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.img")
	d, err := Create(path, 4)
	require.NoError(t, err)
	defer d.Close()

	var want [SectorSize]byte
	for i := range want {
		want[i] = byte(i % 251)
	}
	require.NoError(t, d.WriteBlock(2, &want))

	var got [SectorSize]byte
	require.NoError(t, d.ReadBlock(2, &got))
	require.Equal(t, want, got)
}

func TestWritesToOneLBADoNotTouchNeighbors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.img")
	d, err := Create(path, 4)
	require.NoError(t, err)
	defer d.Close()

	var filled [SectorSize]byte
	for i := range filled {
		filled[i] = 0xAA
	}
	require.NoError(t, d.WriteBlock(1, &filled))

	var neighbor [SectorSize]byte
	require.NoError(t, d.ReadBlock(0, &neighbor))
	for _, b := range neighbor {
		require.Zero(t, b)
	}
	require.NoError(t, d.ReadBlock(2, &neighbor))
	for _, b := range neighbor {
		require.Zero(t, b)
	}
}

func TestOpenExistingImagePreservesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.img")
	d, err := Create(path, 2)
	require.NoError(t, err)

	var want [SectorSize]byte
	want[0] = 0x42
	require.NoError(t, d.WriteBlock(0, &want))
	require.NoError(t, d.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var got [SectorSize]byte
	require.NoError(t, reopened.ReadBlock(0, &got))
	require.Equal(t, want, got)
}

func TestInitIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.img")
	d, err := Create(path, 1)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.Init())
}
