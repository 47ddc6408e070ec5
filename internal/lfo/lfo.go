// Package lfo is a low-frequency oscillator for per-sample modulation.
package lfo

import "math"

type Shape int

const (
	Sine Shape = iota
	Triangle
	Square
)

// LFO is shared by all voices of an engine.
type LFO struct {
	depth  float64
	rateHz float64
	shape  Shape
	phase  float64 // [0, 1)
}

func New(depth, rateHz float64, shape Shape) *LFO {
	l := &LFO{}
	l.Set(depth, rateHz, shape)
	return l
}

func (l *LFO) Set(depth, rateHz float64, shape Shape) {
	if shape < Sine || shape > Square {
		shape = Sine
	}
	l.depth, l.rateHz, l.shape = depth, rateHz, shape
}

// Sample returns the value at the current phase, in [-depth, depth], and
// advances one sample.
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate <= 0 {
		return 0
	}
	var v float64
	switch l.shape {
	case Triangle:
		// -1 at phase 0, +1 at 0.5
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	case Square:
		v = 1
		if l.phase >= 0.5 {
			v = -1
		}
	default:
		v = math.Sin(2 * math.Pi * l.phase)
	}
	l.phase += l.rateHz / sampleRate
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}

// Unipolar maps Sample into [0, depth].
func (l *LFO) Unipolar(sampleRate float64) float64 {
	if !l.Active() {
		return 0
	}
	return 0.5 * (l.Sample(sampleRate) + l.depth)
}

func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

func (l *LFO) Reset() { l.phase = 0 }
