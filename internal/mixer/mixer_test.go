package mixer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rampBuffer(n int) []int16 {
	buf := make([]int16, n)
	for i := range buf {
		// linear ramp from -32768 to +32767 inclusive
		buf[i] = int16(-32768 + (65535*int64(i))/int64(n-1))
	}
	return buf
}

func TestTriggerNoOpWithoutBuffer(t *testing.T) {
	m := New()
	m.Trigger(0, 255)
	require.False(t, m.Active(0))
}

func TestUnityGainAtCenter(t *testing.T) {
	m := New()
	buf := rampBuffer(8)
	m.Bind(0, buf)
	m.SetVolume(0, 255)
	m.SetPan(0, 128)
	m.Trigger(0, 255)

	out := make([]int16, 2*len(buf))
	m.Render(out)

	for i, want := range buf {
		require.Equal(t, want, out[2*i], "left frame %d", i)
		require.Equal(t, want, out[2*i+1], "right frame %d", i)
	}
	require.False(t, m.Active(0))
}

func TestVoiceDisarmsExactlyAtExhaustion(t *testing.T) {
	m := New()
	buf := []int16{100, 200, 300}
	m.Bind(0, buf)
	m.SetPan(0, 128)
	m.SetVolume(0, 255)
	m.Trigger(0, 255)

	out := make([]int16, 2*4) // one extra frame past the buffer
	m.Render(out)

	require.False(t, m.Active(0))
	require.Equal(t, int16(0), out[6])
	require.Equal(t, int16(0), out[7])
}

func TestPanExtremes(t *testing.T) {
	m := New()
	buf := []int16{32767}
	m.Bind(0, buf)
	m.SetVolume(0, 255)

	m.SetPan(0, 0) // full left
	m.Trigger(0, 255)
	out := make([]int16, 2)
	m.Render(out)
	require.NotZero(t, out[0])
	require.Zero(t, out[1])

	m.Bind(0, buf)
	m.SetPan(0, 255) // full right
	m.Trigger(0, 255)
	out2 := make([]int16, 2)
	m.Render(out2)
	require.Zero(t, out2[0])
	require.NotZero(t, out2[1])
}

func TestSaturationClampsNotWraps(t *testing.T) {
	m := New()
	buf := []int16{32767}
	for ch := 0; ch < NumChannels; ch++ {
		m.Bind(ch, buf)
		m.SetVolume(ch, 255)
		m.SetPan(ch, 128)
		m.Trigger(ch, 255)
	}
	out := make([]int16, 2)
	m.Render(out)
	require.Equal(t, int16(32767), out[0])
	require.Equal(t, int16(32767), out[1])
}

func TestRetriggerRestartsFromZero(t *testing.T) {
	m := New()
	buf := []int16{1, 2, 3, 4, 5}
	m.Bind(0, buf)
	m.SetVolume(0, 255)
	m.SetPan(0, 128)
	m.Trigger(0, 255)

	out := make([]int16, 2*2)
	m.Render(out) // consumes positions 0,1

	m.Trigger(0, 255) // retrigger mid-playback
	out2 := make([]int16, 2)
	m.Render(out2)
	require.Equal(t, int16(1), out2[0])
}

func TestVolumeAndPanReportLiveState(t *testing.T) {
	m := New()
	require.Equal(t, uint8(255), m.Volume(0))
	require.Equal(t, uint8(128), m.Pan(0))

	m.SetVolume(0, 40)
	m.SetPan(0, 200)
	require.Equal(t, uint8(40), m.Volume(0))
	require.Equal(t, uint8(200), m.Pan(0))

	require.Zero(t, m.Volume(-1))
	require.Zero(t, m.Pan(NumChannels))
}

func TestInvalidChannelIgnored(t *testing.T) {
	m := New()
	m.Trigger(-1, 200)
	m.Trigger(NumChannels, 200)
	m.SetVolume(100, 10)
	m.SetPan(-5, 10)
	m.Stop(999)
	require.False(t, m.Active(0))
}

func TestRenderOutputLengthAndBounds(t *testing.T) {
	m := New()
	buf := rampBuffer(100)
	m.Bind(0, buf)
	m.SetVolume(0, 255)
	m.Trigger(0, 255)

	const frames = 50
	out := make([]int16, 2*frames)
	m.Render(out)
	require.Len(t, out, 2*frames)
	for _, s := range out {
		require.GreaterOrEqual(t, int32(s), int32(-32768))
		require.LessOrEqual(t, int32(s), int32(32767))
	}
}
