package gen

import "strings"

type viewedKey struct {
	semitones int
	fifths    int
}

// Written-key views for transposing instruments: the interval a concert
// pitch is raised by, and the matching move on the circle of fifths.
var viewedKeys = map[string]viewedKey{
	"C":  {0, 0},
	"F":  {5, -1},
	"Bb": {2, -2},
	"Eb": {9, -3},
}

var sharpSpelling = [12]struct {
	name NoteName
	acc  Accidental
}{
	{NoteC, Natural}, {NoteC, Sharp}, {NoteD, Natural}, {NoteD, Sharp}, {NoteE, Natural}, {NoteF, Natural},
	{NoteF, Sharp}, {NoteG, Natural}, {NoteG, Sharp}, {NoteA, Natural}, {NoteA, Sharp}, {NoteB, Natural},
}

var flatSpelling = [12]struct {
	name NoteName
	acc  Accidental
}{
	{NoteC, Natural}, {NoteD, Flat}, {NoteD, Natural}, {NoteE, Flat}, {NoteE, Natural}, {NoteF, Natural},
	{NoteG, Flat}, {NoteG, Natural}, {NoteA, Flat}, {NoteA, Natural}, {NoteB, Flat}, {NoteB, Natural},
}

// Transpose returns a copy of score written for the viewed key ("C", "F",
// "Bb", "Eb"). It reports false for an unknown key.
func Transpose(score *Score, key string) (*Score, bool) {
	vk, ok := viewedKeys[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	out := CloneScore(score)
	if vk.semitones == 0 {
		return out, true
	}
	oldKey := score.Metadata.KeySignature
	newKey := transposeKeySignature(oldKey, vk.fifths)
	out.Metadata.KeySignature = newKey
	for mi := range out.Measures {
		m := &out.Measures[mi]
		if m.KeyChange != nil {
			oldKey = *m.KeyChange
			newKey = transposeKeySignature(oldKey, vk.fifths)
			kc := newKey
			m.KeyChange = &kc
		}
		for _, el := range m.Elements {
			if n, ok := el.(*Note); ok {
				transposeNote(n, vk.semitones, oldKey, newKey)
			}
		}
	}
	return out, true
}

func transposeKeySignature(k KeySignature, fifths int) KeySignature {
	f := k.Fifths - fifths
	if f > 7 {
		f = 7
	}
	if f < -7 {
		f = -7
	}
	return KeySignature{Fifths: f, Mode: k.Mode}
}

// transposeNote respells n in the target key, using flats on the flat side.
func transposeNote(n *Note, semitones int, from, to KeySignature) {
	pc := n.Name.Semitone() + n.EffectiveAccidental(from).Offset()
	abs := pc + semitones
	target := ((abs % 12) + 12) % 12
	octave := int(n.Octave) + (abs-target)/12

	spell := sharpSpelling[target]
	if to.Fifths < 0 {
		spell = flatSpelling[target]
	}
	n.Name = spell.name
	n.Octave = ClampOctave(octave)
	switch implied := to.AccidentalFor(spell.name); {
	case implied == spell.acc:
		n.Accidental = Natural
	case spell.acc == Natural:
		n.Accidental = ForceNatural
	default:
		n.Accidental = spell.acc
	}
}

// CloneScore returns a deep copy of score.
func CloneScore(score *Score) *Score {
	out := &Score{
		Metadata:      score.Metadata,
		Measures:      make([]Measure, len(score.Measures)),
		ModPoints:     ModPoints{},
		LineToMeasure: make(map[int]int, len(score.LineToMeasure)),
	}
	if score.Metadata.Tempo != nil {
		t := *score.Metadata.Tempo
		out.Metadata.Tempo = &t
	}
	for line, groups := range score.ModPoints {
		for g, shift := range groups {
			out.ModPoints.Set(line, g, shift)
		}
	}
	for line, m := range score.LineToMeasure {
		out.LineToMeasure[line] = m
	}
	if score.MeasureLines != nil {
		out.MeasureLines = make(map[int]int, len(score.MeasureLines))
		for m, line := range score.MeasureLines {
			out.MeasureLines[m] = line
		}
	}
	for i, m := range score.Measures {
		cm := m
		if m.KeyChange != nil {
			k := *m.KeyChange
			cm.KeyChange = &k
		}
		cm.Elements = make([]Element, len(m.Elements))
		for j, el := range m.Elements {
			cm.Elements[j] = cloneElement(el)
		}
		out.Measures[i] = cm
	}
	return out
}

func cloneElement(el Element) Element {
	switch e := el.(type) {
	case *Note:
		n := *e
		n.Rhythm = cloneRhythm(e.Rhythm)
		n.Chord = cloneChord(e.Chord)
		return &n
	case *Rest:
		r := *e
		r.Rhythm = cloneRhythm(e.Rhythm)
		r.Chord = cloneChord(e.Chord)
		return &r
	}
	return el
}

func cloneRhythm(r Rhythm) Rhythm {
	if r.Tuplet != nil {
		t := *r.Tuplet
		r.Tuplet = &t
	}
	return r
}

func cloneChord(c *ChordAnnotation) *ChordAnnotation {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}
