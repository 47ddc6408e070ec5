package gen

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, src string) *Score {
	t.Helper()
	score, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return score
}

func notesOf(t *testing.T, m Measure) []*Note {
	t.Helper()
	var notes []*Note
	for _, el := range m.Elements {
		if n, ok := el.(*Note); ok {
			notes = append(notes, n)
		}
	}
	return notes
}

func TestParseSimpleMeasure(t *testing.T) {
	score := mustParse(t, "C D E F")
	if len(score.Measures) != 1 {
		t.Fatalf("expected 1 measure, got %d", len(score.Measures))
	}
	notes := notesOf(t, score.Measures[0])
	if len(notes) != 4 {
		t.Fatalf("expected 4 notes, got %d", len(notes))
	}
	for i, want := range []NoteName{NoteC, NoteD, NoteE, NoteF} {
		if notes[i].Name != want || notes[i].Duration != Quarter || notes[i].Octave != OctaveMiddle {
			t.Fatalf("note %d: expected middle quarter %v, got %+v", i, want, notes[i])
		}
	}
	if score.Metadata.TimeSignature != (TimeSignature{Beats: 4, BeatType: 4}) {
		t.Fatalf("expected default 4/4, got %+v", score.Metadata.TimeSignature)
	}
}

func TestParseRhythmSuffixes(t *testing.T) {
	score := mustParse(t, "C/ D// E/// Fp Go $* G/*")
	got := []Rhythm{}
	for _, el := range score.Measures[0].Elements {
		got = append(got, el.Timing())
	}
	want := []Rhythm{
		{Duration: Eighth},
		{Duration: Sixteenth},
		{Duration: ThirtySecond},
		{Duration: Half},
		{Duration: Whole},
		{Duration: Quarter, Dotted: true},
		{Duration: Eighth, Dotted: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rhythm mismatch (-want +got):\n%s", diff)
	}
	if _, ok := score.Measures[0].Elements[5].(*Rest); !ok {
		t.Fatalf("expected a rest at index 5")
	}
}

func TestParseConflictingRhythmFallsBackToQuarter(t *testing.T) {
	score := mustParse(t, "Cpo D/p")
	for i, el := range score.Measures[0].Elements {
		if el.Timing().Duration != Quarter {
			t.Fatalf("element %d: expected quarter fallback, got %v", i, el.Timing().Duration)
		}
	}
}

func TestParseAccidentalsAndOctaves(t *testing.T) {
	score := mustParse(t, "^C# _Bb __E% ^^^G")
	notes := notesOf(t, score.Measures[0])
	if notes[0].Accidental != Sharp || notes[0].Octave != OctaveHigh {
		t.Fatalf("expected ^C#, got %+v", notes[0])
	}
	if notes[1].Accidental != Flat || notes[1].Octave != OctaveLow {
		t.Fatalf("expected _Bb, got %+v", notes[1])
	}
	if notes[2].Accidental != ForceNatural || notes[2].Octave != OctaveDoubleLow {
		t.Fatalf("expected __E%%, got %+v", notes[2])
	}
	if notes[3].Octave != OctaveDoubleHigh {
		t.Fatalf("expected octave clamp to double high, got %v", notes[3].Octave)
	}
}

func TestParseSimpleTie(t *testing.T) {
	notes := notesOf(t, mustParse(t, "C-D").Measures[0])
	if !notes[0].TieStart || notes[0].TieStop {
		t.Fatalf("expected tie start on first note, got %+v", notes[0])
	}
	if notes[1].TieStart || !notes[1].TieStop {
		t.Fatalf("expected tie stop on second note, got %+v", notes[1])
	}
}

func TestParseChainedTies(t *testing.T) {
	notes := notesOf(t, mustParse(t, "C-D-E").Measures[0])
	if !notes[1].TieStart || !notes[1].TieStop {
		t.Fatalf("expected middle note to both start and stop a tie, got %+v", notes[1])
	}
	if !notes[2].TieStop || notes[2].TieStart {
		t.Fatalf("expected last note to stop the tie, got %+v", notes[2])
	}
}

func TestParseTieAcrossMeasures(t *testing.T) {
	score := mustParse(t, "C D E F-\nF G A B")
	if len(score.Measures) != 2 {
		t.Fatalf("expected 2 measures, got %d", len(score.Measures))
	}
	last := notesOf(t, score.Measures[0])[3]
	first := notesOf(t, score.Measures[1])[0]
	if !last.TieStart || !first.TieStop {
		t.Fatalf("expected tie across the barline, got %+v / %+v", last, first)
	}
}

func TestParseRestEndsTie(t *testing.T) {
	for _, src := range []string{"C- $ D E", "C- [$ D]/ E F", "[C- $]/ D E F"} {
		notes := notesOf(t, mustParse(t, src).Measures[0])
		for i, n := range notes[1:] {
			if n.TieStop {
				t.Fatalf("%q: note %d after the rest should not take a tie stop, got %+v", src, i+1, n)
			}
		}
		if !notes[0].TieStart {
			t.Fatalf("%q: expected the first note to keep its tie start", src)
		}
	}
}

func TestParseTriplet(t *testing.T) {
	elements := mustParse(t, "[C D E]3 F G").Measures[0].Elements
	for i := 0; i < 3; i++ {
		tu := elements[i].Timing().Tuplet
		if tu == nil || tu.ActualNotes != 3 || tu.NormalNotes != 2 {
			t.Fatalf("element %d: expected 3:2 tuplet, got %+v", i, tu)
		}
		if tu.IsStart != (i == 0) || tu.IsStop != (i == 2) {
			t.Fatalf("element %d: wrong start/stop markers %+v", i, tu)
		}
		if elements[i].Timing().Duration != Quarter {
			t.Fatalf("element %d: expected quarter, got %v", i, elements[i].Timing().Duration)
		}
	}
	if elements[3].Timing().Tuplet != nil {
		t.Fatalf("expected no tuplet after the group")
	}
}

func TestParseEighthTripletAndQuintuplet(t *testing.T) {
	score := mustParse(t, "[C D E]3/ [C D E F G]5// F")
	els := score.Measures[0].Elements
	if els[0].Timing().Duration != Eighth {
		t.Fatalf("expected eighth triplet, got %v", els[0].Timing().Duration)
	}
	q := els[3].Timing()
	if q.Duration != Sixteenth || q.Tuplet.ActualNotes != 5 || q.Tuplet.NormalNotes != 4 {
		t.Fatalf("expected sixteenth quintuplet 5:4, got %+v %+v", q, q.Tuplet)
	}
}

func TestParseRhythmGrouping(t *testing.T) {
	els := mustParse(t, "[C D/ E $]//* F").Measures[0].Elements
	want := []Rhythm{
		{Duration: Sixteenth, Dotted: true},
		{Duration: Eighth},
		{Duration: Sixteenth, Dotted: true},
		{Duration: Sixteenth, Dotted: true},
		{Duration: Quarter},
	}
	got := make([]Rhythm, len(els))
	for i, el := range els {
		got[i] = el.Timing()
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rhythm mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGroupOctavePrefix(t *testing.T) {
	notes := notesOf(t, mustParse(t, "^[C _D] ^E").Measures[0])
	if notes[0].Octave != OctaveHigh || notes[1].Octave != OctaveMiddle || notes[2].Octave != OctaveHigh {
		t.Fatalf("unexpected octaves %v %v %v", notes[0].Octave, notes[1].Octave, notes[2].Octave)
	}
}

func TestParseSlurAcrossMeasures(t *testing.T) {
	score := mustParse(t, "(C D E F\nG A B) C")
	first := notesOf(t, score.Measures[0])
	second := notesOf(t, score.Measures[1])
	if !first[0].SlurStart || first[1].SlurStart {
		t.Fatalf("expected slur start on the first note only")
	}
	if !second[2].SlurStop || second[3].SlurStop || second[0].SlurStart {
		t.Fatalf("expected slur stop on B only, got %+v", second)
	}
}

func TestParseSlurInsideGroup(t *testing.T) {
	notes := notesOf(t, mustParse(t, "[(C D E)]3 F G").Measures[0])
	if !notes[0].SlurStart || !notes[2].SlurStop {
		t.Fatalf("expected slur on triplet, got %+v %+v", notes[0], notes[2])
	}
}

func TestParseRepeatsAndEndings(t *testing.T) {
	score := mustParse(t, "||: C D E F\n1. G G G G :||\n2. C C C C")
	ms := score.Measures
	if len(ms) != 3 {
		t.Fatalf("expected 3 measures, got %d", len(ms))
	}
	if !ms[0].RepeatStart || ms[0].RepeatEnd {
		t.Fatalf("expected repeat start on measure 1")
	}
	if ms[1].Ending != EndingFirst || !ms[1].RepeatEnd {
		t.Fatalf("expected first ending with repeat end, got %+v", ms[1])
	}
	if ms[2].Ending != EndingSecond || ms[2].RepeatEnd {
		t.Fatalf("expected second ending, got %+v", ms[2])
	}
}

func TestParseRepeatOnlyLine(t *testing.T) {
	score := mustParse(t, "||:\nC D E F :||")
	if len(score.Measures) != 2 || !score.Measures[0].RepeatStart || len(score.Measures[0].Elements) != 0 {
		t.Fatalf("expected an empty repeat-start measure, got %+v", score.Measures)
	}
}

func TestParseChordAnnotations(t *testing.T) {
	score := mustParse(t, "{Am}:C/ D/ {G7}p E {F}:[F G]3 $")
	els := score.Measures[0].Elements
	c := els[0].ChordAnnotation()
	if c == nil || c.Symbol != "Am" || c.Duration != Eighth {
		t.Fatalf("expected attached Am eighth, got %+v", c)
	}
	g := els[2].ChordAnnotation()
	if g == nil || g.Symbol != "G7" || g.Duration != Half {
		t.Fatalf("expected standalone G7 half, got %+v", g)
	}
	f := els[3].ChordAnnotation()
	if f == nil || f.Symbol != "F" || f.Duration != Quarter {
		t.Fatalf("expected attached F on the triplet, got %+v", f)
	}
	if els[1].ChordAnnotation() != nil || els[4].ChordAnnotation() != nil {
		t.Fatalf("expected no chord on D or G")
	}
}

func TestParseChordOnRest(t *testing.T) {
	score := mustParse(t, "@pickup {C}p $\nC D E F")
	c := score.Measures[0].Elements[0].ChordAnnotation()
	if c == nil || c.Symbol != "C" || c.Duration != Half {
		t.Fatalf("expected C chord on pickup rest, got %+v", c)
	}
	if !score.Measures[0].Pickup || score.Measures[1].Pickup {
		t.Fatalf("expected only the first measure to be a pickup")
	}
}

func TestParseEndingAfterPickupAnnotation(t *testing.T) {
	score := mustParse(t, "||: C D E F\n@pickup 1. G A B ^C :||\n2. ^C B A G")
	if len(score.Measures) != 3 {
		t.Fatalf("expected 3 measures, got %d", len(score.Measures))
	}
	m := score.Measures[1]
	if m.Ending != EndingFirst || !m.Pickup || !m.RepeatEnd {
		t.Fatalf("expected a pickup first ending closing the repeat, got %+v", m)
	}
}

func TestParseMeasureOctaveModifier(t *testing.T) {
	score := mustParse(t, "C D @:^\n^E [F G]")
	if notesOf(t, score.Measures[0])[0].Octave != OctaveHigh {
		t.Fatalf("expected measure modifier to raise C")
	}
	second := notesOf(t, score.Measures[1])
	if second[0].Octave != OctaveHigh || second[1].Octave != OctaveMiddle {
		t.Fatalf("expected modifier to stay in its measure, got %v %v", second[0].Octave, second[1].Octave)
	}
}

func TestParseKeyChange(t *testing.T) {
	score := mustParse(t, "C D E F\n@key:Eb\nG A B C\nC C C C @key:bogus")
	if score.Measures[0].KeyChange != nil {
		t.Fatalf("expected no key change on measure 1")
	}
	if k := score.Measures[1].KeyChange; k == nil || k.Fifths != -3 {
		t.Fatalf("expected Eb key change on measure 2, got %+v", k)
	}
	if score.Measures[2].KeyChange != nil {
		t.Fatalf("expected invalid key to be ignored")
	}
}

func TestParseChordAfterMidLineRepeatEnd(t *testing.T) {
	score := mustParse(t, "||: C D :|| E F\n{G7}G A B C @Eb:^")
	if len(score.Measures) != 3 {
		t.Fatalf("expected 3 measures, got %d", len(score.Measures))
	}
	g := score.Measures[2].Elements[0].(*Note)
	if g.Chord == nil || g.Chord.Symbol != "G7" {
		t.Fatalf("expected G7 on G, got %+v", g.Chord)
	}
	if e := score.Measures[1].Elements[0].(*Note); e.Chord != nil {
		t.Fatalf("expected no chord on E, got %+v", e.Chord)
	}
	if line, ok := score.MeasureLine(1); !ok || line != 1 {
		t.Fatalf("expected the split measure on line 1, got %d %v", line, ok)
	}
	if s := score.ModShift(2, GroupEb); s != 1 {
		t.Fatalf("expected Eb shift on measure 2, got %d", s)
	}
}

func TestMeasureLineWithoutInverseTable(t *testing.T) {
	score := &Score{LineToMeasure: map[int]int{3: 0, 5: 1, 9: 2}}
	if line, ok := score.MeasureLine(1); !ok || line != 5 {
		t.Fatalf("expected measure 1 on line 5, got %d %v", line, ok)
	}
	if _, ok := score.MeasureLine(7); ok {
		t.Fatalf("expected no line for an unknown measure")
	}
	parsed := mustParse(t, "C D E F\n\nG A B C")
	if diff := cmp.Diff(map[int]int{0: 1, 1: 3}, parsed.MeasureLines); diff != "" {
		t.Fatalf("measure lines mismatch (-want +got):\n%s", diff)
	}
}

func TestParseModPointsAndLineMap(t *testing.T) {
	score := mustParse(t, "---\ntitle: T\n---\nC D E F @Eb:^\n\nG A B C @Bb:_")
	if line, ok := score.MeasureLine(1); !ok || line != 6 {
		t.Fatalf("expected measure 1 on line 6, got %d %v", line, ok)
	}
	if s := score.ModShift(0, GroupEb); s != 1 {
		t.Fatalf("expected Eb shift on measure 0, got %d", s)
	}
	if s := score.ModShift(1, GroupBb); s != -1 {
		t.Fatalf("expected Bb shift on measure 1, got %d", s)
	}
	if s := score.ModShift(1, GroupEb); s != 0 {
		t.Fatalf("expected no Eb shift on measure 1, got %d", s)
	}
}

func TestParseMetadataAtBottom(t *testing.T) {
	score := mustParse(t, "C D E F\n---\ntitle: Bottom\ncomposer: Me\ntime-signature: 3/4\nkey-signature: D\ntempo: 90\n---\n")
	md := score.Metadata
	if md.Title != "Bottom" || md.Composer != "Me" {
		t.Fatalf("unexpected title/composer %q %q", md.Title, md.Composer)
	}
	if md.TimeSignature != (TimeSignature{Beats: 3, BeatType: 4}) || md.KeySignature.Fifths != 2 {
		t.Fatalf("unexpected signatures %+v %+v", md.TimeSignature, md.KeySignature)
	}
	if md.Tempo == nil || md.Tempo.BPM != 90 {
		t.Fatalf("expected tempo 90, got %+v", md.Tempo)
	}
	if len(score.Measures) != 1 {
		t.Fatalf("expected 1 measure, got %d", len(score.Measures))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src     string
		message string
		line    int
		column  int
	}{
		{"[C D", "Expected closing bracket ]", 1, 1},
		{"C [] D", "Bracket group cannot be empty", 1, 3},
		{"[C\nD]", "Unexpected newline inside bracket group", 1, 1},
		{"[C D]1", "Tuplet count must be at least 2", 1, 6},
		{"C $# D", "Rest cannot have an accidental", 1, 4},
		{"C ]", "Expected note or rest, found ']'", 1, 3},
		{"C 3", "Expected note or rest, found number 3", 1, 3},
	}
	for _, tc := range cases {
		_, err := Parse(tc.src)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%q: expected ParseError, got %v", tc.src, err)
		}
		if pe.Message != tc.message || pe.Line != tc.line || pe.Column != tc.column {
			t.Fatalf("%q: expected %q at %d:%d, got %q at %d:%d", tc.src, tc.message, tc.line, tc.column, pe.Message, pe.Line, pe.Column)
		}
	}
}

func TestParseMetadataErrors(t *testing.T) {
	_, err := Parse("---\ntime-signature: 4-4\n---\nC")
	var me *MetadataError
	if !errors.As(err, &me) || me.Message != "Invalid time signature: 4-4" {
		t.Fatalf("expected invalid time signature, got %v", err)
	}
	if err.Error() != "Invalid metadata: Invalid time signature: 4-4" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}
