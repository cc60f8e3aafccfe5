// Package audiopipe implements the Audio Pipeline (C3): a fixed-size
// stereo ring buffer filled in two halves, standing in for the DMA
// circular-buffer / I2S peripheral described in spec.md §4.3.
//
// On real hardware a half-transfer interrupt fires when the DMA pointer
// reaches the midpoint of the ring and a full-transfer (transfer
// complete) interrupt fires when it wraps; each handler refills the half
// the DMA just finished reading. Grounded directly on
// original_source/dma.c's DMA1_Stream4_IRQHandler and dma.h's
// AUDIO_BUFFER_SIZE=4096. Pipeline.run stands in for the two interrupt
// handlers with a ticker sized to the real half-transfer period, so a
// fill callback always completes well inside the real-time budget
// (BUF/4/sample_rate) the spec calls out.
package audiopipe

import (
	"sync"
	"time"
)

// Size is the ring's total sample count (stereo interleaved int16
// words), matching original_source/dma.h's AUDIO_BUFFER_SIZE.
const Size = 4096

// HalfFrames is the number of stereo frames filled by a single
// half-transfer or full-transfer interrupt (BUF/4 in spec.md §4.3).
const HalfFrames = Size / 4

// FillFunc renders exactly len(out)/2 stereo frames into out. It must
// return within the real-time budget for one half-fill.
type FillFunc func(out []int16)

// Ring is the DMA-equivalent circular buffer. It satisfies the FrameSink
// contract (Buffer/OnHalf/OnFull) described in spec.md §6.
type Ring struct {
	mu     sync.Mutex
	buf    [Size]int16
	onHalf FillFunc
	onFull FillFunc
}

// NewRing returns a zeroed ring with no fill callbacks registered.
func NewRing() *Ring {
	return &Ring{}
}

// Buffer returns a snapshot copy of the full ring. Real hardware lets
// the DMA read the live buffer directly; here a copy avoids a data race
// against the fill goroutine while keeping the same read-only contract.
func (r *Ring) Buffer() []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int16, Size)
	copy(out, r.buf[:])
	return out
}

// OnHalf registers the callback invoked to fill frames [0, Size/4) —
// the half-transfer interrupt's job.
func (r *Ring) OnHalf(fill func([]int16)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onHalf = fill
}

// OnFull registers the callback invoked to fill frames [Size/4, Size/2)
// — the full-transfer (transfer-complete) interrupt's job.
func (r *Ring) OnFull(fill func([]int16)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFull = fill
}

func (r *Ring) zero() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.buf {
		r.buf[i] = 0
	}
}

func (r *Ring) fillHalf() {
	r.mu.Lock()
	fn := r.onHalf
	defer r.mu.Unlock()
	if fn != nil {
		fn(r.buf[0 : Size/2])
	}
}

func (r *Ring) fillFull() {
	r.mu.Lock()
	fn := r.onFull
	defer r.mu.Unlock()
	if fn != nil {
		fn(r.buf[Size/2 : Size])
	}
}

// Pipeline drives a Ring's half/full fills at the cadence the real I2S
// DMA interrupts would, given a sample rate.
type Pipeline struct {
	ring       *Ring
	sampleRate int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPipeline returns a stopped Pipeline over a fresh Ring.
func NewPipeline(sampleRate int) *Pipeline {
	return &Pipeline{
		ring:       NewRing(),
		sampleRate: sampleRate,
	}
}

// Ring returns the underlying FrameSink so the audio backend can pull
// rendered frames from it.
func (p *Pipeline) Ring() *Ring {
	return p.ring
}

// Start zeros the ring, arms it with render as both the half- and
// full-transfer fill callback, and begins the interrupt-equivalent
// scheduler (spec.md §4.3 "Startup: zero the entire ring, arm DMA, then
// enable the I2S peripheral").
func (p *Pipeline) Start(render FillFunc) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.ring.zero()
	p.ring.OnHalf(render)
	p.ring.OnFull(render)
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	p.stopCh = stopCh
	p.doneCh = doneCh
	p.running = true
	p.mu.Unlock()

	go p.run(stopCh, doneCh)
}

// Stop halts the scheduler. The ring retains its last contents (real
// hardware would leave the DMA pointer parked too).
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh := p.stopCh
	doneCh := p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Running reports whether the scheduler is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	interval := time.Duration(float64(time.Second) * float64(HalfFrames) / float64(p.sampleRate))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fillFull := false
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if fillFull {
				p.ring.fillFull()
			} else {
				p.ring.fillHalf()
			}
			fillFull = !fillFull
		}
	}
}
