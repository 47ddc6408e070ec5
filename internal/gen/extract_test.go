package gen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractMetadataAnywhere(t *testing.T) {
	content, ok := ExtractMetadata("C D E F\n---\ntitle: Bottom\n---\n")
	if !ok {
		t.Fatalf("expected metadata block")
	}
	if content != "title: Bottom" {
		t.Fatalf("expected metadata content, got %q", content)
	}
	if _, ok := ExtractMetadata("C D E F"); ok {
		t.Fatalf("expected no metadata block")
	}
}

func TestExtractLineToMeasureSkipsMetadataAndBlankLines(t *testing.T) {
	src := "---\ntitle: x\n---\nC D E F\n\nG A B C\n@key:G\nD D D D\n"
	ann := Extract(src)
	want := map[int]int{4: 0, 6: 1, 8: 2}
	if diff := cmp.Diff(want, ann.LineToMeasure); diff != "" {
		t.Fatalf("line map mismatch (-want +got):\n%s", diff)
	}
	ks, ok := ann.KeyChanges[2]
	if !ok || ks.Fifths != 1 {
		t.Fatalf("expected key change to G at measure 2, got %v %v", ks, ok)
	}
}

func TestExtractModPoints(t *testing.T) {
	ann := Extract("C D E F @Eb:^ @bb:__\nG A B C\nC C C C @EB:_")
	if s, ok := ann.ModPoints.Shift(1, GroupEb); !ok || s != 1 {
		t.Fatalf("expected Eb +1 on line 1, got %d %v", s, ok)
	}
	if s, ok := ann.ModPoints.Shift(1, GroupBb); !ok || s != -2 {
		t.Fatalf("expected Bb -2 on line 1, got %d %v", s, ok)
	}
	if _, ok := ann.ModPoints.Shift(2, GroupEb); ok {
		t.Fatalf("expected no mod point on line 2")
	}
	if s, _ := ann.ModPoints.Shift(3, GroupEb); s != -1 {
		t.Fatalf("expected Eb -1 on line 3, got %d", s)
	}
	if diff := cmp.Diff([]int{1, 3}, ann.ModPoints.Lines()); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	// the mod-point annotation itself does not make a measure
	if len(ann.LineToMeasure) != 3 {
		t.Fatalf("expected 3 measures, got %d", len(ann.LineToMeasure))
	}
}

func TestExtractChords(t *testing.T) {
	ann := Extract("{C}:C D {G7}p E [F {Am}:G A]/\n{Dm}/* $ C C C")
	want := map[ElementRef]ChordMark{
		{Measure: 0, Element: 0}: {Symbol: "C", Duration: Whole, Attached: true},
		{Measure: 0, Element: 2}: {Symbol: "G7", Duration: Half},
		{Measure: 0, Element: 4}: {Symbol: "Am", Duration: Whole, Attached: true},
		{Measure: 1, Element: 0}: {Symbol: "Dm", Duration: Eighth, Dotted: true},
	}
	if diff := cmp.Diff(want, ann.Chords); diff != "" {
		t.Fatalf("chords mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractChordPlaceholder(t *testing.T) {
	ann := Extract("@ch:Cp C D @ch:F E F")
	want := map[ElementRef]ChordMark{
		{Measure: 0, Element: 0}: {Symbol: "C", Duration: Half},
		{Measure: 0, Element: 2}: {Symbol: "F", Duration: Whole},
	}
	if diff := cmp.Diff(want, ann.Chords); diff != "" {
		t.Fatalf("chords mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractAnnotationOnlyLineAppliesToNextMeasure(t *testing.T) {
	ann := Extract("C C C C\n@pickup @:^\n$ C\n")
	if !ann.Pickups[1] {
		t.Fatalf("expected pickup on measure 1, got %v", ann.Pickups)
	}
	if ann.MeasureOctaves[1] != 1 {
		t.Fatalf("expected octave modifier on measure 1, got %v", ann.MeasureOctaves)
	}
	if m, ok := ann.LineToMeasure[3]; !ok || m != 1 {
		t.Fatalf("expected line 3 to be measure 1, got %d %v", m, ok)
	}
}

func TestExtractSplitsMeasureAtRepeatEnd(t *testing.T) {
	ann := Extract("||: C D :|| E F\n{G7}G A B C\nC D :||")
	if _, ok := ann.Chords[ElementRef{Measure: 2, Element: 0}]; !ok {
		t.Fatalf("expected G7 on measure 2, got %v", ann.Chords)
	}
	if diff := cmp.Diff(map[int]int{0: 1, 1: 1, 2: 2, 3: 3}, ann.MeasureLines); diff != "" {
		t.Fatalf("measure lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int]int{1: 0, 2: 2, 3: 3}, ann.LineToMeasure); diff != "" {
		t.Fatalf("line map mismatch (-want +got):\n%s", diff)
	}
}

func TestLineHasMeasureContent(t *testing.T) {
	cases := map[string]bool{
		"C D E F":       true,
		"   ":           false,
		"@Eb:^":         false,
		"@key:G":        false,
		"{C}":           false,
		"||:":           true,
		"  :||":         true,
		"2. ":           true,
		"( )":           false,
		"[E] @ch:G":     true,
		"@pickup $/ C/": true,
	}
	for line, want := range cases {
		if got := lineHasMeasureContent(line); got != want {
			t.Fatalf("%q: expected %v, got %v", line, want, got)
		}
	}
}
