package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.7, 0.5)
	r.Process(1, 1)
	var maxL, maxR float32
	for i := 0; i < 10000; i++ {
		l, rt := r.Process(0, 0)
		maxL = max(maxL, abs(l))
		maxR = max(maxR, abs(rt))
	}
	assert.Greater(t, maxL, float32(0.001))
	assert.Greater(t, maxR, float32(0.001))

	r.Reset()
	l, rt := r.Process(0, 0)
	assert.Zero(t, l)
	assert.Zero(t, rt)
}

func TestReverbChannelsDiffer(t *testing.T) {
	r := NewReverb(8000, 0.5, 0.7, 1)
	r.Process(1, 1)
	differ := false
	for i := 0; i < 2000; i++ {
		l, rt := r.Process(0, 0)
		if l != rt {
			differ = true
			break
		}
	}
	assert.True(t, differ, "expected decorrelated channels")
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	var l, r float32
	for i := 0; i < 1000; i++ {
		l, r = c.Process(1, -0.2)
	}
	assert.Less(t, l, float32(1))
	// linked detection scales both channels alike
	assert.InDelta(t, -0.2*float64(l), float64(r), 1e-6)
}

func TestCompressorPassesQuiet(t *testing.T) {
	c := NewCompressor(44100, -6, 4, 1, 50, 0)
	var l float32
	for i := 0; i < 1000; i++ {
		l, _ = c.Process(0.1, 0.1)
	}
	assert.InDelta(t, 0.1, float64(l), 1e-6)
}

func TestBusPresets(t *testing.T) {
	for _, tc := range []struct {
		in   string
		room Room
		n    int
	}{
		{"", RoomDry, 0},
		{"dry", RoomDry, 0},
		{"Room", RoomSmall, 2},
		{" hall ", RoomHall, 2},
	} {
		room, ok := ParseRoom(tc.in)
		assert.True(t, ok, tc.in)
		assert.Equal(t, tc.room, room)
		assert.Equal(t, tc.n, NewBus(8000, room).Len())
	}
	_, ok := ParseRoom("cathedral")
	assert.False(t, ok)
}

func TestDryBusLeavesBufferAlone(t *testing.T) {
	buf := []float32{0.5, -0.5, 0.25, -0.25}
	NewBus(8000, RoomDry).ProcessBuffer(buf)
	assert.Equal(t, []float32{0.5, -0.5, 0.25, -0.25}, buf)

	wet := []float32{1, 1, 0, 0, 0, 0}
	NewBus(8000, RoomHall).ProcessBuffer(wet)
	assert.False(t, math.IsNaN(float64(wet[0])))
	assert.Less(t, wet[0], float32(1))
}
