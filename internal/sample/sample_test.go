package sample

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildWAV(t *testing.T, numChannels, sampleRate uint32, bits uint16, data []int16) []byte {
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
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * numChannels * uint32(bits/8)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels*uint32(bits/8)))
	binary.Write(&buf, binary.LittleEndian, bits)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(dataBytes)))
	buf.Write(dataBytes)
	return buf.Bytes()
}

func TestLoadValidWAV(t *testing.T) {
	s := NewStore()
	data := []int16{1, 2, 3, -4, 32767, -32768}
	wav := buildWAV(t, 1, 44100, 16, data)

	n, err := s.Load(0, bytes.NewReader(wav))
	require.Nil(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, s.View(0))
}

func TestLoadRejectsNonMono(t *testing.T) {
	s := NewStore()
	wav := buildWAV(t, 2, 44100, 16, []int16{1, 2})
	_, err := s.Load(0, bytes.NewReader(wav))
	require.NotNil(t, err)
	require.Equal(t, NotMono, err.Kind)
}

func TestLoadRejectsBadRate(t *testing.T) {
	s := NewStore()
	wav := buildWAV(t, 1, 22050, 16, []int16{1, 2})
	_, err := s.Load(0, bytes.NewReader(wav))
	require.NotNil(t, err)
	require.Equal(t, BadRate, err.Kind)
}

func TestLoadRejectsBadBits(t *testing.T) {
	s := NewStore()
	wav := buildWAV(t, 1, 44100, 8, []int16{1, 2})
	_, err := s.Load(0, bytes.NewReader(wav))
	require.NotNil(t, err)
	require.Equal(t, BadBits, err.Kind)
}

func TestLoadRejectsBadRiff(t *testing.T) {
	s := NewStore()
	junk := make([]byte, 64)
	_, err := s.Load(0, bytes.NewReader(junk))
	require.NotNil(t, err)
	require.Equal(t, BadRiff, err.Kind)
}

func TestLoadTruncatesToMax(t *testing.T) {
	s := NewStore()
	data := make([]int16, MaxSampleFrames+500)
	for i := range data {
		data[i] = int16(i)
	}
	wav := buildWAV(t, 1, 44100, 16, data)

	n, err := s.Load(0, bytes.NewReader(wav))
	require.Nil(t, err)
	require.Equal(t, MaxSampleFrames, n)
	require.Len(t, s.View(0), MaxSampleFrames)
}

func TestUnloadClearsLength(t *testing.T) {
	s := NewStore()
	wav := buildWAV(t, 1, 44100, 16, []int16{1, 2, 3})
	_, err := s.Load(0, bytes.NewReader(wav))
	require.Nil(t, err)
	require.Equal(t, 3, s.Len(0))

	s.Unload(0)
	require.Equal(t, 0, s.Len(0))
	require.Empty(t, s.View(0))
}

func TestReloadReplacesAtomically(t *testing.T) {
	s := NewStore()
	wav1 := buildWAV(t, 1, 44100, 16, []int16{1, 2, 3})
	wav2 := buildWAV(t, 1, 44100, 16, []int16{9, 8})

	_, err := s.Load(0, bytes.NewReader(wav1))
	require.Nil(t, err)
	_, err = s.Load(0, bytes.NewReader(wav2))
	require.Nil(t, err)
	require.Equal(t, []int16{9, 8}, s.View(0))
}

func TestInvalidChannel(t *testing.T) {
	s := NewStore()
	_, err := s.Load(-1, bytes.NewReader(nil))
	require.NotNil(t, err)
	require.Equal(t, Io, err.Kind)
	require.Nil(t, s.View(100))
	require.Equal(t, 0, s.Len(100))
}
