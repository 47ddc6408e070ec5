// Package musicxml renders a parsed score as a MusicXML 4.0 partwise document.
package musicxml

import (
	"strconv"

	"github.com/cbegin/gen-go/internal/gen"
)

const (
	xmlDecl = `<?xml version="1.0" encoding="UTF-8"?>`
	doctype = `<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 4.0 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">`

	// MediaType is the registered content type for uncompressed MusicXML.
	MediaType = "application/vnd.recordare.musicxml+xml"
)

// Encode renders score. The output depends only on score and opts.
func Encode(score *gen.Score, opts Options) string {
	w := &xmlWriter{}
	w.raw(xmlDecl)
	w.raw(doctype)

	w.open("score-partwise", "version", "4.0")

	md := score.Metadata
	if md.Title != "" {
		w.open("work")
		w.text("work-title", md.Title)
		w.close("work")
	}
	if md.Composer != "" {
		w.open("identification")
		w.text("creator", md.Composer, "type", "composer")
		w.close("identification")
	}

	w.open("part-list")
	w.open("score-part", "id", "P1")
	w.open("part-name", "print-object", "no")
	w.close("part-name")
	w.close("score-part")
	w.close("part-list")

	w.open("part", "id", "P1")
	enc := &encoder{w: w, score: score, opts: opts, key: md.KeySignature}
	for i := range score.Measures {
		enc.measure(i)
	}
	w.close("part")
	w.close("score-partwise")
	return w.String()
}

type encoder struct {
	w     *xmlWriter
	score *gen.Score
	opts  Options
	key   gen.KeySignature
}

func (e *encoder) endingStarts(i int) bool {
	m := e.score.Measures[i]
	if m.Ending == gen.EndingNone {
		return false
	}
	return i == 0 || e.score.Measures[i-1].Ending != m.Ending
}

func (e *encoder) endingStops(i int) bool {
	m := e.score.Measures[i]
	if m.Ending == gen.EndingNone {
		return false
	}
	return i+1 >= len(e.score.Measures) || e.score.Measures[i+1].Ending != m.Ending
}

func (e *encoder) transposedFifths() int {
	f := e.key.Fifths
	if e.opts.Transposition == nil {
		return f
	}
	f += e.opts.Transposition.Fifths
	switch {
	case f > 7:
		f -= 12
	case f < -7:
		f += 12
	}
	return f
}

func (e *encoder) measure(i int) {
	w := e.w
	m := &e.score.Measures[i]
	if m.KeyChange != nil {
		e.key = *m.KeyChange
	}
	octaveShift := e.opts.OctaveShift + e.score.ModShift(i, e.opts.Group)

	w.open("measure", "number", strconv.Itoa(i+1))

	startEnding := e.endingStarts(i)
	if m.RepeatStart || startEnding {
		ending := gen.EndingNone
		if startEnding {
			ending = m.Ending
		}
		e.leftBarline(m.RepeatStart, ending)
	}

	switch {
	case i == 0:
		e.firstAttributes()
	case m.KeyChange != nil:
		w.open("attributes")
		e.keyElement()
		w.close("attributes")
	}

	beams := beamStates(m.Elements, e.score.Metadata.TimeSignature)
	for j, el := range m.Elements {
		switch v := el.(type) {
		case *gen.Note:
			e.note(v, beams[j], octaveShift)
		case *gen.Rest:
			if v.Chord != nil {
				w.harmony(v.Chord.Symbol, e.opts.Transposition)
			}
			e.rest(v)
		}
	}

	stopEnding := e.endingStops(i)
	if m.RepeatEnd || stopEnding {
		ending := gen.EndingNone
		if stopEnding {
			ending = m.Ending
		}
		e.rightBarline(m.RepeatEnd, ending)
	}
	w.close("measure")
}

func (e *encoder) keyElement() {
	w := e.w
	w.open("key")
	w.int("fifths", e.transposedFifths())
	w.text("mode", e.key.Mode.String())
	w.close("key")
}

func (e *encoder) firstAttributes() {
	w := e.w
	ts := e.score.Metadata.TimeSignature

	w.open("attributes")
	w.int("divisions", Divisions)
	e.keyElement()
	w.open("time")
	w.int("beats", ts.Beats)
	w.int("beat-type", ts.BeatType)
	w.close("time")
	w.open("clef")
	if e.opts.Clef == ClefBass {
		w.text("sign", "F")
		w.text("line", "4")
	} else {
		w.text("sign", "G")
		w.text("line", "2")
	}
	w.close("clef")
	if t := e.opts.Transposition; t != nil {
		w.open("transpose")
		w.int("diatonic", t.Diatonic)
		w.int("chromatic", t.Chromatic)
		w.close("transpose")
	}
	w.close("attributes")

	if tempo := e.score.Metadata.Tempo; tempo != nil {
		e.tempoDirection(*tempo)
	}
}

func (e *encoder) tempoDirection(t gen.Tempo) {
	w := e.w
	w.open("direction")
	w.open("direction-type")
	w.open("metronome")
	w.text("beat-unit", t.Duration.MusicXMLType())
	if t.Dotted {
		w.empty("beat-unit-dot")
	}
	w.int("per-minute", t.BPM)
	w.close("metronome")
	w.close("direction-type")
	w.empty("sound", "tempo", strconv.FormatFloat(t.QuarterNoteBPM(), 'f', -1, 64))
	w.close("direction")
}

func (e *encoder) leftBarline(repeat bool, ending gen.Ending) {
	w := e.w
	defer w.close(w.open("barline", "location", "left"))
	if repeat {
		w.text("bar-style", "heavy-light")
	}
	if ending != gen.EndingNone {
		n := strconv.Itoa(ending.Number())
		w.text("ending", n+".", "number", n, "type", "start")
	}
	if repeat {
		w.empty("repeat", "direction", "forward")
	}
}

func (e *encoder) rightBarline(repeat bool, ending gen.Ending) {
	w := e.w
	defer w.close(w.open("barline", "location", "right"))
	if repeat {
		w.text("bar-style", "light-heavy")
	}
	if ending != gen.EndingNone {
		w.empty("ending", "number", strconv.Itoa(ending.Number()), "type", "stop")
	}
	if repeat {
		w.empty("repeat", "direction", "backward")
	}
}

// writtenPitch returns step, alter and the octave adjustment for n after
// the key signature and any transposition are applied.
func (e *encoder) writtenPitch(n *gen.Note) (gen.NoteName, int, int) {
	acc := n.Accidental
	switch acc {
	case gen.Natural:
		acc = e.key.AccidentalFor(n.Name)
	case gen.ForceNatural:
		acc = gen.Natural
	}
	t := e.opts.Transposition
	if t == nil {
		return n.Name, acc.Offset(), 0
	}
	idx := int(n.Name) + t.Diatonic
	name := gen.NoteName(mod(idx, 7))
	semitone := mod(n.Name.Semitone()+acc.Offset()+t.Chromatic, 12)
	return name, semitone - name.Semitone(), idx / 7
}

func (e *encoder) note(n *gen.Note, beam beamState, octaveShift int) {
	w := e.w
	if n.Chord != nil {
		w.harmony(n.Chord.Symbol, e.opts.Transposition)
	}
	defer w.close(w.open("note"))

	step, alter, octaveAdj := e.writtenPitch(n)
	octave := 4 + int(n.Octave) + octaveShift + octaveAdj
	if octave < 0 {
		octave = 0
	}
	if octave > 9 {
		octave = 9
	}
	w.open("pitch")
	w.text("step", step.String())
	if alter != 0 {
		w.int("alter", alter)
	}
	w.int("octave", octave)
	w.close("pitch")

	w.int("duration", DurationDivisions(n.Rhythm))
	if n.TieStart {
		w.empty("tie", "type", "start")
	}
	if n.TieStop {
		w.empty("tie", "type", "stop")
	}
	e.typeDotTuplet(n.Rhythm)
	if beam != beamNone {
		w.text("beam", beam.String(), "number", "1")
	}

	tupletMark := n.Tuplet != nil && (n.Tuplet.IsStart || n.Tuplet.IsStop)
	if tupletMark || n.TieStart || n.TieStop || n.SlurStart || n.SlurStop {
		w.open("notations")
		if n.TieStart {
			w.empty("tied", "type", "start")
		}
		if n.TieStop {
			w.empty("tied", "type", "stop")
		}
		if n.SlurStart {
			w.empty("slur", "type", "start", "number", "1")
		}
		if n.SlurStop {
			w.empty("slur", "type", "stop", "number", "1")
		}
		e.tupletMarks(n.Tuplet)
		w.close("notations")
	}

	switch n.Accidental {
	case gen.Sharp:
		w.text("accidental", "sharp")
	case gen.Flat:
		w.text("accidental", "flat")
	case gen.ForceNatural:
		w.text("accidental", "natural")
	}
}

func (e *encoder) rest(r *gen.Rest) {
	w := e.w
	defer w.close(w.open("note"))
	w.empty("rest")
	w.int("duration", DurationDivisions(r.Rhythm))
	e.typeDotTuplet(r.Rhythm)
	if r.Tuplet != nil && (r.Tuplet.IsStart || r.Tuplet.IsStop) {
		w.open("notations")
		e.tupletMarks(r.Tuplet)
		w.close("notations")
	}
}

func (e *encoder) typeDotTuplet(r gen.Rhythm) {
	w := e.w
	w.text("type", r.Duration.MusicXMLType())
	if r.Dotted {
		w.empty("dot")
	}
	if r.Tuplet != nil {
		w.open("time-modification")
		w.int("actual-notes", r.Tuplet.ActualNotes)
		w.int("normal-notes", r.Tuplet.NormalNotes)
		w.close("time-modification")
	}
}

func (e *encoder) tupletMarks(t *gen.TupletInfo) {
	if t == nil {
		return
	}
	if t.IsStart {
		e.w.empty("tuplet", "type", "start", "bracket", "yes")
	}
	if t.IsStop {
		e.w.empty("tuplet", "type", "stop")
	}
}
