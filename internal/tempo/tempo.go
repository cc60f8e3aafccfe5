// Package tempo implements the Tempo Clock (C4): a free-running pulse
// generator at 24 pulses per quarter note whose BPM can be retuned while
// running without missing or doubling a tick.
//
// On real hardware this is a timer peripheral reprogrammed with
// auto-reload preload (spec.md §4.4, modeled after
// original_source/sequencer_clock.c's TIM2 ARPE configuration): writing a
// new period takes effect only at the next update event, so the
// in-flight period always completes at the old rate. This package models
// the same staging discipline over a plain field instead of a hardware
// register, driven by a goroutine standing in for the timer interrupt.
package tempo

import (
	"sync"
	"time"
)

const (
	// PPQN is pulses per quarter note.
	PPQN = 24

	MinBPM = 40
	MaxBPM = 300

	DefaultBPM = 120
)

// PulseFunc is invoked once per tick with the pulse index in [0, PPQN).
// It must do O(1) work — on real hardware it runs at timer-interrupt
// priority and has at most one tick period to return.
type PulseFunc func(pulse int)

// Clock is a software stand-in for the tempo timer. Start/Stop/SetBPM
// are safe to call from any goroutine; the callback is invoked from the
// Clock's own internal goroutine once Start has been called.
type Clock struct {
	mu      sync.Mutex
	bpm     uint16
	running bool
	pulse   int
	cb      PulseFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

// New returns a stopped Clock at DefaultBPM with no callback registered.
func New() *Clock {
	return &Clock{bpm: DefaultBPM}
}

// SetCallback registers the pulse handler. Must be called before Start
// for the callback to be used by that run.
func (c *Clock) SetCallback(cb PulseFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = cb
}

func clampBPM(b uint16) uint16 {
	if b < MinBPM {
		return MinBPM
	}
	if b > MaxBPM {
		return MaxBPM
	}
	return b
}

func period(bpm uint16) time.Duration {
	// T = 60 / (BPM * 24) seconds
	return time.Duration(float64(time.Second) * 60.0 / (float64(bpm) * PPQN))
}

// SetBPM clamps b to [MinBPM, MaxBPM] and, if running, stages the new
// period to take effect at the next tick boundary rather than
// interrupting the one in flight.
func (c *Clock) SetBPM(b uint16) {
	c.mu.Lock()
	c.bpm = clampBPM(b)
	c.mu.Unlock()
}

// GetBPM returns the currently configured BPM.
func (c *Clock) GetBPM() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// Pulse returns the current pulse index in [0, PPQN).
func (c *Clock) Pulse() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pulse
}

// Running reports whether the clock is currently ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start resets the pulse counter to 0 and begins ticking.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.pulse = 0
	c.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	c.stopCh = stopCh
	c.doneCh = doneCh
	c.mu.Unlock()

	go c.run(stopCh, doneCh)
}

// Stop halts the timer and zeroes the pulse counter.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stopCh := c.stopCh
	doneCh := c.doneCh
	c.pulse = 0
	c.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (c *Clock) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	c.mu.Lock()
	next := period(c.bpm)
	c.mu.Unlock()

	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			c.mu.Lock()
			p := c.pulse
			cb := c.cb
			c.mu.Unlock()

			if cb != nil {
				cb(p)
			}

			c.mu.Lock()
			c.pulse = (c.pulse + 1) % PPQN
			// The new period (if SetBPM staged one) is only read now,
			// at the boundary, so the period that just elapsed is
			// never retroactively changed.
			next = period(c.bpm)
			c.mu.Unlock()

			timer.Reset(next)
		}
	}
}
