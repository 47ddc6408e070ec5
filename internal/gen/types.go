package gen

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type NoteName int

const (
	NoteC NoteName = iota
	NoteD
	NoteE
	NoteF
	NoteG
	NoteA
	NoteB
)

var noteNameLetters = [...]string{"C", "D", "E", "F", "G", "A", "B"}
var noteNameSemitones = [...]int{0, 2, 4, 5, 7, 9, 11}

func (n NoteName) String() string { return noteNameLetters[n] }

// Semitone is the pitch class of the natural note, C = 0.
func (n NoteName) Semitone() int { return noteNameSemitones[n] }

func noteNameFromByte(c byte) (NoteName, bool) {
	switch c {
	case 'C':
		return NoteC, true
	case 'D':
		return NoteD, true
	case 'E':
		return NoteE, true
	case 'F':
		return NoteF, true
	case 'G':
		return NoteG, true
	case 'A':
		return NoteA, true
	case 'B':
		return NoteB, true
	}
	return 0, false
}

type Accidental int

const (
	Natural Accidental = iota
	Sharp
	Flat
	ForceNatural
)

// Offset returns the semitone alteration written on the note itself.
func (a Accidental) Offset() int {
	switch a {
	case Sharp:
		return 1
	case Flat:
		return -1
	}
	return 0
}

// Octave is a signed offset from the middle octave (C4..B4), clamped to two
// octaves either way.
type Octave int

const (
	OctaveDoubleLow  Octave = -2
	OctaveLow        Octave = -1
	OctaveMiddle     Octave = 0
	OctaveHigh       Octave = 1
	OctaveDoubleHigh Octave = 2
)

func ClampOctave(offset int) Octave {
	if offset < int(OctaveDoubleLow) {
		return OctaveDoubleLow
	}
	if offset > int(OctaveDoubleHigh) {
		return OctaveDoubleHigh
	}
	return Octave(offset)
}

// Shift returns the octave moved by offset, clamped.
func (o Octave) Shift(offset int) Octave { return ClampOctave(int(o) + offset) }

type Duration int

const (
	Whole Duration = iota
	Half
	Quarter
	Eighth
	Sixteenth
	ThirtySecond
)

var durationFractions = [...]float64{1, 0.5, 0.25, 0.125, 0.0625, 0.03125}
var durationTypes = [...]string{"whole", "half", "quarter", "eighth", "16th", "32nd"}

// Fraction returns the duration as a fraction of a whole note.
func (d Duration) Fraction() float64 { return durationFractions[d] }

// Beats returns the duration counted in beats of ts.
func (d Duration) Beats(ts TimeSignature) float64 {
	return d.Fraction() * float64(ts.BeatType)
}

func (d Duration) MusicXMLType() string { return durationTypes[d] }

func (d Duration) String() string { return durationTypes[d] }

// Beamable reports whether notes of this length carry beams.
func (d Duration) Beamable() bool { return d >= Eighth }

type TimeSignature struct {
	Beats    int
	BeatType int
}

func DefaultTimeSignature() TimeSignature { return TimeSignature{Beats: 4, BeatType: 4} }

// MeasureFraction is the expected length of a full measure in whole notes.
func (ts TimeSignature) MeasureFraction() float64 {
	return float64(ts.Beats) / float64(ts.BeatType)
}

type Mode int

const (
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	if m == Minor {
		return "minor"
	}
	return "major"
}

type KeySignature struct {
	Fifths int
	Mode   Mode
}

var majorKeyFifths = map[string]int{
	"C": 0, "G": 1, "D": 2, "A": 3, "E": 4, "B": 5, "F#": 6, "Fs": 6, "C#": 7, "Cs": 7,
	"F": -1, "Bb": -2, "Bf": -2, "Eb": -3, "Ef": -3, "Ab": -4, "Af": -4,
	"Db": -5, "Df": -5, "Gb": -6, "Gf": -6, "Cb": -7, "Cf": -7,
}

var minorKeyFifths = map[string]int{
	"A": 0, "E": 1, "B": 2, "F#": 3, "Fs": 3, "C#": 4, "Cs": 4, "G#": 5, "Gs": 5,
	"D#": 6, "Ds": 6, "A#": 7, "As": 7,
	"D": -1, "G": -2, "C": -3, "F": -4, "Bb": -5, "Bf": -5, "Eb": -6, "Ef": -6, "Ab": -7, "Af": -7,
}

// ParseKeySignature accepts named keys ("G", "Bb", "F#m"), sharp counts
// ("#".."#######") and flat counts ("bb".."bbbbbbb").
func ParseKeySignature(s string) (KeySignature, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KeySignature{}, false
	}
	if strings.Trim(s, "#") == "" {
		if len(s) > 7 {
			return KeySignature{}, false
		}
		return KeySignature{Fifths: len(s)}, true
	}
	if len(s) >= 2 && strings.Trim(s, "b") == "" {
		if len(s) > 7 {
			return KeySignature{}, false
		}
		return KeySignature{Fifths: -len(s)}, true
	}
	if len(s) > 1 && strings.HasSuffix(s, "m") {
		fifths, ok := minorKeyFifths[s[:len(s)-1]]
		if !ok {
			return KeySignature{}, false
		}
		return KeySignature{Fifths: fifths, Mode: Minor}, true
	}
	fifths, ok := majorKeyFifths[s]
	if !ok {
		return KeySignature{}, false
	}
	return KeySignature{Fifths: fifths}, true
}

const (
	sharpOrder = "FCGDAEB"
	flatOrder  = "BEADGCF"
)

// AccidentalFor returns the accidental the key signature implies for name.
func (k KeySignature) AccidentalFor(name NoteName) Accidental {
	letter := name.String()
	switch {
	case k.Fifths > 0 && k.Fifths <= 7:
		if strings.Contains(sharpOrder[:k.Fifths], letter) {
			return Sharp
		}
	case k.Fifths < 0 && k.Fifths >= -7:
		if strings.Contains(flatOrder[:-k.Fifths], letter) {
			return Flat
		}
	}
	return Natural
}

// Pitch is the written-pitch reference from the metadata block.
type Pitch struct {
	Note         NoteName
	OctaveOffset int
}

type Tempo struct {
	BPM      int
	Duration Duration
	Dotted   bool
}

var quarterMultipliers = [...]float64{4, 2, 1, 0.5, 0.25, 0.125}

// QuarterNoteBPM converts the tempo to quarter notes per minute.
func (t Tempo) QuarterNoteBPM() float64 {
	m := quarterMultipliers[t.Duration]
	if t.Dotted {
		m *= 1.5
	}
	return float64(t.BPM) * m
}

type Swing int

const (
	SwingNone Swing = iota
	SwingEighth
	SwingSixteenth
)

func (s Swing) String() string {
	switch s {
	case SwingEighth:
		return "eighth"
	case SwingSixteenth:
		return "sixteenth"
	}
	return ""
}

type Metadata struct {
	Title         string
	Composer      string
	TimeSignature TimeSignature
	KeySignature  KeySignature
	WrittenPitch  Pitch
	Tempo         *Tempo
	Swing         Swing
}

func DefaultMetadata() Metadata {
	return Metadata{TimeSignature: DefaultTimeSignature()}
}

type TupletInfo struct {
	ActualNotes int
	NormalNotes int
	IsStart     bool
	IsStop      bool
}

// NewTupletInfo returns the conventional ratio for n notes: n in the time of
// n-1 up to quadruplets, otherwise n in the time of 4.
func NewTupletInfo(n int) TupletInfo {
	normal := 4
	if n <= 4 {
		normal = n - 1
	}
	return TupletInfo{ActualNotes: n, NormalNotes: normal}
}

// Ratio is normal/actual, the factor applied to the written length.
func (t TupletInfo) Ratio() float64 {
	return float64(t.NormalNotes) / float64(t.ActualNotes)
}

type ChordAnnotation struct {
	Symbol   string
	Duration Duration
	Dotted   bool
}

func (c ChordAnnotation) DurationBeats(ts TimeSignature) float64 {
	b := c.Duration.Beats(ts)
	if c.Dotted {
		b *= 1.5
	}
	return b
}

// Rhythm is the timing shared by notes and rests.
type Rhythm struct {
	Duration Duration
	Dotted   bool
	Tuplet   *TupletInfo
}

// Beats returns the sounding length in beats of ts, with dot and tuplet ratio.
func (r Rhythm) Beats(ts TimeSignature) float64 {
	b := r.Duration.Beats(ts)
	if r.Dotted {
		b *= 1.5
	}
	if r.Tuplet != nil {
		b *= r.Tuplet.Ratio()
	}
	return b
}

// Element is a note or a rest. The set is closed.
type Element interface {
	Timing() Rhythm
	ChordAnnotation() *ChordAnnotation
	isElement()
}

type Note struct {
	Name       NoteName
	Accidental Accidental
	Octave     Octave
	Rhythm
	TieStart  bool
	TieStop   bool
	SlurStart bool
	SlurStop  bool
	Chord     *ChordAnnotation
}

func (n *Note) Timing() Rhythm                    { return n.Rhythm }
func (n *Note) ChordAnnotation() *ChordAnnotation { return n.Chord }
func (*Note) isElement()                          {}

// EffectiveAccidental resolves a plain natural through the key signature.
func (n *Note) EffectiveAccidental(key KeySignature) Accidental {
	if n.Accidental == Natural {
		return key.AccidentalFor(n.Name)
	}
	return n.Accidental
}

// MIDI returns the note number for n in key, moved by octaveOffset octaves
// and clamped to 0..127.
func (n *Note) MIDI(key KeySignature, octaveOffset int) int {
	v := 60 + n.Name.Semitone() + n.EffectiveAccidental(key).Offset() + int(n.Octave)*12 + octaveOffset*12
	return clampMIDI(v)
}

type Rest struct {
	Rhythm
	Chord *ChordAnnotation
}

func (r *Rest) Timing() Rhythm                    { return r.Rhythm }
func (r *Rest) ChordAnnotation() *ChordAnnotation { return r.Chord }
func (*Rest) isElement()                          {}

func clampMIDI(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}

type Ending int

const (
	EndingNone Ending = iota
	EndingFirst
	EndingSecond
)

// Number is the volta number printed on the bracket, 0 when absent.
func (e Ending) Number() int { return int(e) }

type Measure struct {
	Elements    []Element
	RepeatStart bool
	RepeatEnd   bool
	Ending      Ending
	KeyChange   *KeySignature
	Pickup      bool
}

// TotalBeats sums the element lengths in beats of ts.
func (m *Measure) TotalBeats(ts TimeSignature) float64 {
	var total float64
	for _, el := range m.Elements {
		total += el.Timing().Beats(ts)
	}
	return total
}

type InstrumentGroup int

const (
	GroupNone InstrumentGroup = iota
	GroupEb
	GroupBb
)

func ParseInstrumentGroup(s string) (InstrumentGroup, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eb":
		return GroupEb, true
	case "bb":
		return GroupBb, true
	}
	return GroupNone, false
}

func (g InstrumentGroup) String() string {
	switch g {
	case GroupEb:
		return "Eb"
	case GroupBb:
		return "Bb"
	}
	return ""
}

// ModPoints maps a 1-indexed source line to per-group octave shifts.
type ModPoints map[int]map[InstrumentGroup]int

func (m ModPoints) Shift(line int, g InstrumentGroup) (int, bool) {
	groups, ok := m[line]
	if !ok {
		return 0, false
	}
	s, ok := groups[g]
	return s, ok
}

func (m ModPoints) Set(line int, g InstrumentGroup, shift int) {
	groups, ok := m[line]
	if !ok {
		groups = make(map[InstrumentGroup]int)
		m[line] = groups
	}
	groups[g] = shift
}

func (m ModPoints) Remove(line int, g InstrumentGroup) {
	groups, ok := m[line]
	if !ok {
		return
	}
	delete(groups, g)
	if len(groups) == 0 {
		delete(m, line)
	}
}

// Lines returns the annotated lines in ascending order.
func (m ModPoints) Lines() []int {
	lines := maps.Keys(m)
	slices.Sort(lines)
	return lines
}

type Score struct {
	Metadata      Metadata
	Measures      []Measure
	ModPoints     ModPoints
	LineToMeasure map[int]int
	MeasureLines  map[int]int
}

// MeasureLine returns the source line a measure index was read from.
func (s *Score) MeasureLine(measure int) (int, bool) {
	if s.MeasureLines != nil {
		line, ok := s.MeasureLines[measure]
		return line, ok
	}
	found, best := false, 0
	for line, m := range s.LineToMeasure {
		if m == measure && (!found || line < best) {
			found, best = true, line
		}
	}
	return best, found
}

// ModShift returns the mod-point octave shift for group at the given measure.
func (s *Score) ModShift(measure int, g InstrumentGroup) int {
	if g == GroupNone {
		return 0
	}
	line, ok := s.MeasureLine(measure)
	if !ok {
		return 0
	}
	shift, _ := s.ModPoints.Shift(line, g)
	return shift
}
