// Package sample implements the Sample Store (C2): fixed per-channel PCM
// buffers loaded from a canonical WAV stream and lent as read-only views
// to the mixer.
package sample

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxSampleFrames is the canonical per-channel buffer size: 16 KiB of
// mono 16-bit samples, i.e. 8192 frames.
const MaxSampleFrames = 8192

// NumChannels mirrors mixer.NumChannels; duplicated here to keep this
// package free of a dependency on internal/mixer.
const NumChannels = 6

// LoadErrorKind classifies why a WAV stream was rejected.
type LoadErrorKind int

const (
	BadRiff LoadErrorKind = iota
	NotPcm
	BadRate
	BadBits
	NotMono
	Io
)

func (k LoadErrorKind) String() string {
	switch k {
	case BadRiff:
		return "BadRiff"
	case NotPcm:
		return "NotPcm"
	case BadRate:
		return "BadRate"
	case BadBits:
		return "BadBits"
	case NotMono:
		return "NotMono"
	case Io:
		return "Io"
	default:
		return "Unknown"
	}
}

// LoadError reports why Load rejected a stream.
type LoadError struct {
	Kind LoadErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return "sample: " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "sample: " + e.Kind.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

func newLoadError(kind LoadErrorKind, err error) *LoadError {
	return &LoadError{Kind: kind, Err: err}
}

// Store owns NumChannels statically sized PCM buffers and exposes
// read-only views to them.
type Store struct {
	buffers [NumChannels][MaxSampleFrames]int16
	lengths [NumChannels]int
}

// NewStore returns an empty Store (every channel unloaded).
func NewStore() *Store {
	return &Store{}
}

// riffHeader is the canonical 44-byte WAV header this firmware accepts.
// Fields after the fixed "fmt " chunk assume no extra chunks precede
// "data", matching the original firmware's single-pass parser.
type riffHeader struct {
	RIFF          [4]byte
	FileSize      uint32
	WAVE          [4]byte
	FmtID         [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataID        [4]byte
	DataSize      uint32
}

const headerSize = 44

// Load validates and copies up to MaxSampleFrames of PCM data from r into
// channel ch's buffer, replacing any previous content. It returns the
// number of frames written.
func (s *Store) Load(ch int, r io.Reader) (int, *LoadError) {
	if !validChannel(ch) {
		return 0, newLoadError(Io, errors.New("channel out of range"))
	}

	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return 0, newLoadError(Io, err)
	}

	var h riffHeader
	h.RIFF = [4]byte{raw[0], raw[1], raw[2], raw[3]}
	h.FileSize = binary.LittleEndian.Uint32(raw[4:8])
	h.WAVE = [4]byte{raw[8], raw[9], raw[10], raw[11]}
	h.FmtID = [4]byte{raw[12], raw[13], raw[14], raw[15]}
	h.FmtSize = binary.LittleEndian.Uint32(raw[16:20])
	h.AudioFormat = binary.LittleEndian.Uint16(raw[20:22])
	h.NumChannels = binary.LittleEndian.Uint16(raw[22:24])
	h.SampleRate = binary.LittleEndian.Uint32(raw[24:28])
	h.ByteRate = binary.LittleEndian.Uint32(raw[28:32])
	h.BlockAlign = binary.LittleEndian.Uint16(raw[32:34])
	h.BitsPerSample = binary.LittleEndian.Uint16(raw[34:36])
	h.DataID = [4]byte{raw[36], raw[37], raw[38], raw[39]}
	h.DataSize = binary.LittleEndian.Uint32(raw[40:44])

	if string(h.RIFF[:]) != "RIFF" || string(h.WAVE[:]) != "WAVE" || string(h.FmtID[:]) != "fmt " || string(h.DataID[:]) != "data" {
		return 0, newLoadError(BadRiff, nil)
	}
	if h.AudioFormat != 1 {
		return 0, newLoadError(NotPcm, nil)
	}
	if h.NumChannels != 1 {
		return 0, newLoadError(NotMono, nil)
	}
	if h.SampleRate != 44100 {
		return 0, newLoadError(BadRate, nil)
	}
	if h.BitsPerSample != 16 {
		return 0, newLoadError(BadBits, nil)
	}

	wantFrames := int(h.DataSize / 2)
	if wantFrames > MaxSampleFrames {
		wantFrames = MaxSampleFrames
	}

	dst := s.buffers[ch][:wantFrames]
	var buf [2]byte
	written := 0
	for written < wantFrames {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			break
		}
		dst[written] = int16(binary.LittleEndian.Uint16(buf[:]))
		written++
	}

	s.lengths[ch] = written
	return written, nil
}

// Unload clears a channel's length so View returns an empty slice.
func (s *Store) Unload(ch int) {
	if !validChannel(ch) {
		return
	}
	s.lengths[ch] = 0
}

// View returns a read-only slice over the currently loaded frames of ch.
func (s *Store) View(ch int) []int16 {
	if !validChannel(ch) {
		return nil
	}
	return s.buffers[ch][:s.lengths[ch]]
}

// Len reports the currently loaded frame count for ch.
func (s *Store) Len(ch int) int {
	if !validChannel(ch) {
		return 0
	}
	return s.lengths[ch]
}

func validChannel(ch int) bool {
	return ch >= 0 && ch < NumChannels
}
