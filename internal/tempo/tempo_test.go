package tempo

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBPMClamped(t *testing.T) {
	c := New()
	c.SetBPM(10)
	require.Equal(t, uint16(MinBPM), c.GetBPM())
	c.SetBPM(1000)
	require.Equal(t, uint16(MaxBPM), c.GetBPM())
	c.SetBPM(140)
	require.Equal(t, uint16(140), c.GetBPM())
}

func TestStartResetsPulseAndFires(t *testing.T) {
	c := New()
	c.SetBPM(MaxBPM) // fastest period for a quick test
	var ticks int32
	c.SetCallback(func(p int) {
		atomic.AddInt32(&ticks, 1)
	})
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ticks) >= 3
	}, 200*time.Millisecond, time.Millisecond)

	require.True(t, c.Running())
	require.GreaterOrEqual(t, c.Pulse(), 0)
	require.Less(t, c.Pulse(), PPQN)
}

func TestStopZeroesPulse(t *testing.T) {
	c := New()
	c.SetBPM(MaxBPM)
	c.SetCallback(func(p int) {})
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Stop()
	require.False(t, c.Running())
	require.Equal(t, 0, c.Pulse())
}

func TestPulseWrapsAt24(t *testing.T) {
	c := New()
	c.SetBPM(MaxBPM)
	seen := make(map[int]bool)
	done := make(chan struct{})
	c.SetCallback(func(p int) {
		seen[p] = true
		if len(seen) == PPQN {
			close(done)
		}
	})
	c.Start()
	defer c.Stop()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("did not observe a full pulse cycle in time")
	}
	for i := 0; i < PPQN; i++ {
		require.True(t, seen[i], "pulse %d never observed", i)
	}
}
