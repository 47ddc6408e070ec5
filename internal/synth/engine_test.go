package synth

import (
	"math"
	"testing"
)

func render(e *Engine, frames int) (energy float64) {
	for i := 0; i < frames; i++ {
		l, r := e.RenderFrame()
		energy += math.Abs(float64(l)) + math.Abs(float64(r))
	}
	return energy
}

func TestNoteOnProducesSound(t *testing.T) {
	for _, prog := range []Program{ProgramKeys, ProgramPad} {
		e := New(48000, DefaultParams())
		e.NoteOn(60, 100, 0, int(prog))
		if energy := render(e, 4800); energy == 0 {
			t.Fatalf("program %d: expected non-zero energy", prog)
		}
	}
}

func TestNoteOffReleasesVoice(t *testing.T) {
	e := New(48000, DefaultParams())
	id := e.NoteOn(64, 100, 0, int(ProgramKeys))
	render(e, 2400)
	if got := e.ActiveVoiceCount(); got != 1 {
		t.Fatalf("expected 1 active voice, got %d", got)
	}
	e.NoteOff(id)
	render(e, 48000)
	if got := e.ActiveVoiceCount(); got != 0 {
		t.Fatalf("expected voice to finish its release, got %d active", got)
	}
}

func TestVoiceStealing(t *testing.T) {
	params := DefaultParams()
	params.Polyphony = 2
	e := New(48000, params)
	e.NoteOn(60, 100, 0, 0)
	e.NoteOn(64, 100, 0, 0)
	e.NoteOn(67, 100, 0, 0)
	if got := e.ActiveVoiceCount(); got != 2 {
		t.Fatalf("expected polyphony to cap voices at 2, got %d", got)
	}
}

func TestMasterGainZeroIsSilent(t *testing.T) {
	params := DefaultParams()
	params.LPFCutoff = 0
	e := New(48000, params)
	e.SetMasterGain(-1)
	e.NoteOn(60, 127, 0, 0)
	if energy := render(e, 4800); energy != 0 {
		t.Fatalf("expected silence at zero gain, got %v", energy)
	}
}

func TestPanning(t *testing.T) {
	params := DefaultParams()
	params.LPFCutoff = 0
	e := New(48000, params)
	e.NoteOn(69, 100, -64, 0)
	var left, right float64
	for i := 0; i < 4800; i++ {
		l, r := e.RenderFrame()
		left += math.Abs(float64(l))
		right += math.Abs(float64(r))
	}
	if left == 0 || right > left*1e-6 {
		t.Fatalf("expected hard left, got left=%v right=%v", left, right)
	}
}

func TestUnknownProgramFallsBack(t *testing.T) {
	e := New(48000, DefaultParams())
	e.NoteOn(60, 100, 0, 99)
	if e.voices[0].program != ProgramKeys {
		t.Fatalf("expected keys program, got %d", e.voices[0].program)
	}
}
