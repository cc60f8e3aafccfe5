// Package audiobackend wires internal/audiopipe.Ring to a real output
// device via github.com/hajimehoshi/ebiten/v2/audio. It is the one
// place real audio I/O happens; the DMA half/full interrupt model
// itself lives entirely in internal/audiopipe and is exercised the same
// way regardless of which io.Reader pulls from it.
//
// Adapted directly from the teacher's internal/ui/audio.go apuStream:
// the pull-with-short-wait, bounded-silence-on-underrun shape is kept,
// generalized from the GameBoy APU's variable-rate ring to audiopipe's
// fixed-size circular buffer.
package audiobackend

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/ardaeden/DrumModule/internal/audiopipe"
)

// Stream implements io.Reader by walking audiopipe.Ring as a circular
// buffer, exactly as the I2S DMA peripheral would: it never resets its
// position, only wraps at the ring's frame count, so it stays behind
// whichever half the pipeline is currently refilling.
type Stream struct {
	ring *audiopipe.Ring

	mu        sync.Mutex
	cursor    int // next unread frame index, in [0, audiopipe.Size/2)
	underruns int
}

// NewStream returns a Stream positioned at the start of ring.
func NewStream(ring *audiopipe.Ring) *Stream {
	return &Stream{ring: ring}
}

// Underruns reports how many times Read had to pad with silence because
// it was handed a buffer shorter than one frame (4 bytes).
func (s *Stream) Underruns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.underruns
}

// Read fills p with little-endian stereo int16 frames pulled from the
// ring. A p shorter than one frame is zeroed whole and counted as an
// underrun. Otherwise only whole frames are written and counted in the
// returned n; trailing bytes past the last whole frame are left
// untouched.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < 4 {
		for i := range p {
			p[i] = 0
		}
		s.mu.Lock()
		s.underruns++
		s.mu.Unlock()
		return len(p), nil
	}

	buf := s.ring.Buffer()
	totalFrames := len(buf) / 2

	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()

	framesWanted := len(p) / 4
	i := 0
	for n := 0; n < framesWanted; n++ {
		if cursor >= totalFrames {
			cursor = 0
		}
		l := buf[cursor*2]
		r := buf[cursor*2+1]
		binary.LittleEndian.PutUint16(p[i:], uint16(l))
		binary.LittleEndian.PutUint16(p[i+2:], uint16(r))
		i += 4
		cursor++
	}

	s.mu.Lock()
	s.cursor = cursor
	s.mu.Unlock()

	return i, nil
}

// NewPlayer creates an ebiten audio.Player streaming from ring through
// ctx, with a small buffer for low latency or a larger one otherwise —
// the same 20ms/40ms split the teacher's applyPlayerBufferSize uses.
func NewPlayer(ctx *audio.Context, ring *audiopipe.Ring, lowLatency bool) (*audio.Player, error) {
	player, err := ctx.NewPlayer(NewStream(ring))
	if err != nil {
		return nil, err
	}
	bufMs := 40
	if lowLatency {
		bufMs = 20
	}
	player.SetBufferSize(time.Duration(bufMs) * time.Millisecond)
	return player, nil
}
