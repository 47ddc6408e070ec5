package lfo

import (
	"math"
	"testing"
)

func TestSineShape(t *testing.T) {
	l := New(1, 1, Sine)
	sr := 100.0
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = l.Sample(sr)
	}
	if math.Abs(samples[0]) > 1e-9 {
		t.Errorf("sine at phase 0: got %f, want 0", samples[0])
	}
	if math.Abs(samples[25]-1) > 1e-6 {
		t.Errorf("sine at phase 0.25: got %f, want 1", samples[25])
	}
	if math.Abs(samples[75]+1) > 1e-6 {
		t.Errorf("sine at phase 0.75: got %f, want -1", samples[75])
	}
}

func TestTriangleShape(t *testing.T) {
	l := New(1, 1, Triangle)
	sr := 100.0
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = l.Sample(sr)
	}
	if math.Abs(samples[0]+1) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want -1", samples[0])
	}
	if math.Abs(samples[25]) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	if math.Abs(samples[50]-1) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want 1", samples[50])
	}
}

func TestSquareShape(t *testing.T) {
	l := New(2, 1, Square)
	sr := 64.0
	if v := l.Sample(sr); v != 2 {
		t.Errorf("square first half: got %f, want 2", v)
	}
	for i := 1; i < 32; i++ {
		l.Sample(sr)
	}
	if v := l.Sample(sr); v != -2 {
		t.Errorf("square second half: got %f, want -2", v)
	}
}

func TestUnipolarRange(t *testing.T) {
	l := New(0.25, 3, Sine)
	for i := 0; i < 1000; i++ {
		v := l.Unipolar(1000)
		if v < 0 || v > 0.25+1e-12 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
}

func TestInactive(t *testing.T) {
	for _, l := range []*LFO{New(0, 5, Sine), New(1, 0, Sine), {}} {
		if l.Active() {
			t.Errorf("expected inactive LFO")
		}
		if v := l.Sample(48000); v != 0 {
			t.Errorf("expected 0, got %f", v)
		}
	}
	if l := New(1, 1, Shape(9)); l.shape != Sine {
		t.Errorf("unknown shape should fall back to sine")
	}
}

func TestReset(t *testing.T) {
	l := New(1, 1, Square)
	for i := 0; i < 60; i++ {
		l.Sample(100)
	}
	l.Reset()
	if v := l.Sample(100); v != 1 {
		t.Errorf("expected phase 0 after reset, got %f", v)
	}
}
