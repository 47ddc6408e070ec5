package sequencer

import (
	"sync"
)

type layer struct {
	engine VoiceEngine
	level  float64
}

// Mixer routes notes to one VoiceEngine per program and sums their output.
// Each layer has its own level on top of the master gain.
type Mixer struct {
	mu     sync.Mutex
	layers []layer
	master float64
}

func NewMixer() *Mixer {
	return &Mixer{master: 1}
}

// AddLayer registers engine for program, replacing any previous one.
func (m *Mixer) AddLayer(program int, engine VoiceEngine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.layers) <= program {
		m.layers = append(m.layers, layer{level: 1})
	}
	m.layers[program].engine = engine
	engine.SetMasterGain(m.master * m.layers[program].level)
}

// SetLevel scales one layer, e.g. to balance chords against the melody.
func (m *Mixer) SetLevel(program int, level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if program < 0 || program >= len(m.layers) {
		return
	}
	if level < 0 {
		level = 0
	}
	m.layers[program].level = level
	if e := m.layers[program].engine; e != nil {
		e.SetMasterGain(m.master * level)
	}
}

func (m *Mixer) Level(program int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if program < 0 || program >= len(m.layers) {
		return 0
	}
	return m.layers[program].level
}

func (m *Mixer) engine(program int) VoiceEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if program >= 0 && program < len(m.layers) && m.layers[program].engine != nil {
		return m.layers[program].engine
	}
	for _, l := range m.layers {
		if l.engine != nil {
			return l.engine
		}
	}
	return nil
}

func (m *Mixer) engines() []VoiceEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VoiceEngine, 0, len(m.layers))
	for _, l := range m.layers {
		if l.engine != nil {
			out = append(out, l.engine)
		}
	}
	return out
}

// encodeVoiceID packs the program and local voice id into a single int.
func encodeVoiceID(program int, localID int) int {
	return (program << 24) | (localID & 0xFFFFFF)
}

func decodeVoiceID(id int) (program int, localID int) {
	return (id >> 24) & 0xFF, id & 0xFFFFFF
}

func (m *Mixer) NoteOn(note int, velocity int, pan int, program int) int {
	e := m.engine(program)
	if e == nil {
		return -1
	}
	return encodeVoiceID(program, e.NoteOn(note, velocity, pan, program))
}

func (m *Mixer) NoteOff(id int) {
	if id < 0 {
		return
	}
	program, localID := decodeVoiceID(id)
	if e := m.engine(program); e != nil {
		e.NoteOff(localID)
	}
}

func (m *Mixer) RenderFrame() (float32, float32) {
	var l, r float32
	for _, e := range m.engines() {
		el, er := e.RenderFrame()
		l += el
		r += er
	}
	return l, r
}

func (m *Mixer) SetMasterGain(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gain < 0 {
		gain = 0
	}
	m.master = gain
	for _, l := range m.layers {
		if l.engine != nil {
			l.engine.SetMasterGain(gain * l.level)
		}
	}
}

func (m *Mixer) ActiveVoiceCount() int {
	n := 0
	for _, e := range m.engines() {
		n += e.ActiveVoiceCount()
	}
	return n
}
