// Package synth is a small polyphonic wavetable synthesizer used to preview
// playback schedules.
package synth

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/gen-go/internal/lfo"
)

const twoPi = math.Pi * 2

const (
	tableSize = 256
	maxVoices = 32
)

// Program selects a timbre.
type Program int

const (
	// ProgramKeys is a bright, decaying tone for melody notes.
	ProgramKeys Program = iota
	// ProgramPad is a soft sustained tone with tremolo for chords.
	ProgramPad
	programCount
)

// Envelope is an ADSR in seconds, sustain as a 0-1 level.
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

type Params struct {
	Polyphony   int
	MasterGain  float64
	VelocityAmp float64
	LPFCutoff   float64 // Hz, 0 disables
	Keys        Envelope
	Pad         Envelope
	// TremoloDepth and TremoloHz modulate pad voices.
	TremoloDepth float64
	TremoloHz    float64
}

func DefaultParams() Params {
	return Params{
		Polyphony:    maxVoices,
		MasterGain:   0.35,
		VelocityAmp:  0.8,
		LPFCutoff:    9000,
		Keys:         Envelope{Attack: 0.004, Decay: 0.35, Sustain: 0.45, Release: 0.25},
		Pad:          Envelope{Attack: 0.08, Decay: 0.3, Sustain: 0.8, Release: 0.4},
		TremoloDepth: 0.12,
		TremoloHz:    4.5,
	}
}

type envStage int

const (
	stageAttack envStage = iota
	stageDecay
	stageSustain
	stageRelease
	stageOff
)

type voice struct {
	active   bool
	id       int
	program  Program
	velocity float64
	step     float64 // table positions per sample
	phase    float64
	env      float64
	stage    envStage
	panL     float64
	panR     float64
}

// Engine renders stereo frames. NoteOn, NoteOff and RenderFrame must be
// called from one goroutine; SetMasterGain is safe from any.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	tables     [programCount][]float64
	nextID     int
	masterGain uint64
	lpfAlpha   float64
	lpfL, lpfR float64
	tremolo    *lfo.LFO
}

func New(sampleRate int, params Params) *Engine {
	if params.Polyphony <= 0 || params.Polyphony > maxVoices {
		params.Polyphony = maxVoices
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Polyphony),
		masterGain: math.Float64bits(params.MasterGain),
		tremolo:    lfo.New(params.TremoloDepth, params.TremoloHz, lfo.Sine),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	e.tables[ProgramKeys] = harmonicTable(1, 0.5, 0.25, 0.12, 0.06)
	e.tables[ProgramPad] = harmonicTable(1, 0.3, 0, 0.08)
	return e
}

// harmonicTable sums sine partials with the given amplitudes and normalizes
// the peak to 1.
func harmonicTable(amps ...float64) []float64 {
	t := make([]float64, tableSize)
	var peak float64
	for i := range t {
		x := twoPi * float64(i) / tableSize
		for h, a := range amps {
			t[i] += a * math.Sin(float64(h+1)*x)
		}
		peak = math.Max(peak, math.Abs(t[i]))
	}
	if peak > 0 {
		for i := range t {
			t[i] /= peak
		}
	}
	return t
}

// NoteOn starts a voice and returns its id. pan is -64 (left) to 64 (right).
func (e *Engine) NoteOn(note int, velocity int, pan int, program int) int {
	prog := Program(program)
	if prog < 0 || prog >= programCount {
		prog = ProgramKeys
	}
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++

	angle := ((clamp(float64(pan), -64, 64) + 64) / 128) * (math.Pi / 2)
	e.voices[slot] = voice{
		active:   true,
		id:       id,
		program:  prog,
		velocity: clamp(float64(velocity)/127, 0, 1),
		step:     midiToFreq(note) * tableSize / e.sampleRate,
		stage:    stageAttack,
		panL:     math.Cos(angle),
		panR:     math.Sin(angle),
	}
	return id
}

// NoteOff moves the voice with id into its release stage.
func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id && v.stage != stageRelease {
			v.stage = stageRelease
		}
	}
}

func (e *Engine) RenderFrame() (float32, float32) {
	tremolo := 1 - e.tremolo.Unipolar(e.sampleRate)
	gain := e.masterGainValue()

	var l, r float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		table := e.tables[v.program]
		idx := int(v.phase)
		frac := v.phase - float64(idx)
		sig := table[idx%tableSize]*(1-frac) + table[(idx+1)%tableSize]*frac
		sig *= env * gain * (0.2 + v.velocity*e.params.VelocityAmp)
		if v.program == ProgramPad {
			sig *= tremolo
		}
		l += sig * v.panL
		r += sig * v.panR

		v.phase += v.step
		for v.phase >= tableSize {
			v.phase -= tableSize
		}
	}

	if e.lpfAlpha > 0 {
		e.lpfL += e.lpfAlpha * (l - e.lpfL)
		e.lpfR += e.lpfAlpha * (r - e.lpfR)
		l, r = e.lpfL, e.lpfR
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

// ActiveVoiceCount reports voices still sounding, release tails included.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// stealVoice returns a free slot, or the quietest one.
func (e *Engine) stealVoice() int {
	quiet := 0
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
		if e.voices[i].env < e.voices[quiet].env {
			quiet = i
		}
	}
	return quiet
}

func (e *Engine) envelope(p Program) Envelope {
	if p == ProgramPad {
		return e.params.Pad
	}
	return e.params.Keys
}

func (e *Engine) advanceEnv(v *voice) float64 {
	env := e.envelope(v.program)
	perSample := func(span, seconds float64) float64 {
		if seconds <= 0 {
			return 1
		}
		return span / (seconds * e.sampleRate)
	}
	switch v.stage {
	case stageAttack:
		v.env += perSample(1, env.Attack)
		if v.env >= 1 {
			v.env = 1
			v.stage = stageDecay
		}
	case stageDecay:
		v.env -= perSample(1-env.Sustain, env.Decay)
		if v.env <= env.Sustain {
			v.env = env.Sustain
			v.stage = stageSustain
		}
	case stageRelease:
		v.env -= perSample(math.Max(env.Sustain, 0.05), env.Release)
		if v.env <= 0.0001 {
			v.env = 0
			v.stage = stageOff
			v.active = false
		}
	case stageOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
