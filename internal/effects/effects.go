// Package effects is the master bus run over the mixed synth output.
package effects

import "strings"

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

// ProcessBuffer runs interleaved stereo frames through the chain in place.
func (c *Chain) ProcessBuffer(buf []float32) {
	if len(c.effects) == 0 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = c.Process(buf[i], buf[i+1])
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Len() int { return len(c.effects) }

// Room names a master bus preset.
type Room string

const (
	RoomDry   Room = "dry"
	RoomSmall Room = "room"
	RoomHall  Room = "hall"
)

// ParseRoom accepts a preset name; empty means dry.
func ParseRoom(s string) (Room, bool) {
	switch Room(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoomDry:
		return RoomDry, true
	case RoomSmall:
		return RoomSmall, true
	case RoomHall:
		return RoomHall, true
	}
	return "", false
}

// NewBus builds the chain for a room. Wet rooms end in a compressor since
// the reverb tail stacks on top of sustained chords.
func NewBus(sampleRate int, room Room) *Chain {
	switch room {
	case RoomSmall:
		return NewChain(
			NewReverb(sampleRate, 0.4, 0.7, 0.18),
			NewCompressor(sampleRate, -6, 3, 5, 120, 0),
		)
	case RoomHall:
		return NewChain(
			NewReverb(sampleRate, 0.9, 0.84, 0.3),
			NewCompressor(sampleRate, -6, 3, 5, 200, 0),
		)
	}
	return NewChain()
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
