package gen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	intmidi "github.com/cbegin/gen-go/internal/midifile"
	intxml "github.com/cbegin/gen-go/internal/musicxml"
)

const odeToJoy = `---
title: Ode to Joy
composer: Beethoven
key-signature: D
time-signature: 4/4
tempo: 120
---
{D}F F G A
{A}A G F E
{D}D D E F
{A}F* E/ Ep
`

func TestConformance_CompileFullScore(t *testing.T) {
	xml, err := Compile(odeToJoy)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	doc, err := intxml.Decode(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if doc.Title != "Ode to Joy" || doc.Composer != "Beethoven" {
		t.Fatalf("unexpected header %q / %q", doc.Title, doc.Composer)
	}
	measures := doc.Parts[0].Measures
	if len(measures) != 4 {
		t.Fatalf("expected 4 measures, got %d", len(measures))
	}
	if fifths := measures[0].Attributes[0].Key.Fifths; fifths != 2 {
		t.Fatalf("expected D major (2 sharps), got %d", fifths)
	}
	harmonies := 0
	for _, m := range measures {
		harmonies += len(m.Harmonies)
	}
	if harmonies != 4 {
		t.Fatalf("expected 4 chord symbols, got %d", harmonies)
	}
}

func TestConformance_CheckedAndUnchecked(t *testing.T) {
	_, err := Compile("C D E")
	var se *SemanticError
	if !errors.As(err, &se) || se.Measure != 1 {
		t.Fatalf("expected a semantic error in measure 1, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Semantic error at measure 1: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if _, err := CompileUnchecked("C D E"); err != nil {
		t.Fatalf("expected unchecked compile to accept a short measure, got %v", err)
	}
	if _, err := CompileWithOptions("C D E", CompileOptions{Checked: true}); err == nil {
		t.Fatalf("expected checked options to validate")
	}
}

func TestConformance_ErrorKinds(t *testing.T) {
	_, err := CompileUnchecked("C [D E")
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 1 {
		t.Fatalf("expected a parse error on line 1, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Parse error at line 1, column ") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	_, err = CompileUnchecked("---\ntime-signature: 4\n---\nC D E F")
	var me *MetadataError
	if !errors.As(err, &me) || !strings.HasPrefix(err.Error(), "Invalid metadata: ") {
		t.Fatalf("expected a metadata error, got %v", err)
	}
}

func TestConformance_CompileWithOptions(t *testing.T) {
	xml, err := CompileWithOptions("C D E F", CompileOptions{Clef: "bass"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !strings.Contains(xml, "<sign>F</sign>") {
		t.Fatalf("expected a bass clef")
	}

	xml, err = CompileWithOptions("C D E F", CompileOptions{TransposeKey: "Bb"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !strings.Contains(xml, "<transpose>") || !strings.Contains(xml, "<chromatic>2</chromatic>") {
		t.Fatalf("expected a Bb transpose element")
	}

	score, err := Parse("C D E F @Eb:^")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	plain := ToMusicXML(score, CompileOptions{})
	shifted := ToMusicXML(score, CompileOptions{InstrumentGroup: "Eb"})
	if plain == shifted || !strings.Contains(shifted, "<octave>5</octave>") {
		t.Fatalf("expected the Eb mod point to raise the written octave")
	}
}

func TestConformance_PlaybackData(t *testing.T) {
	data, err := GeneratePlaybackData(odeToJoy, CompileOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if data.Tempo != 120 || len(data.Notes) != 15 || len(data.Chords) != 4 {
		t.Fatalf("unexpected schedule: tempo %d, %d notes, %d chords", data.Tempo, len(data.Notes), len(data.Chords))
	}
	// F is sharp in D major
	if data.Notes[0].MIDINote != 66 {
		t.Fatalf("expected F#4, got %d", data.Notes[0].MIDINote)
	}
	if _, err := GeneratePlaybackData("C D E", CompileOptions{Checked: true}); err == nil {
		t.Fatalf("expected checked playback to validate")
	}
}

func TestConformance_ChordSymbols(t *testing.T) {
	got := ParseChordSymbol("Cmaj7")
	want := []int{48, 52, 55, 59}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(ParseChordSymbol("nope")) != 0 {
		t.Fatalf("expected no notes for an unknown symbol")
	}
}

func TestConformance_Transpose(t *testing.T) {
	score, err := Parse("C D E F")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out, ok := Transpose(score, "Bb")
	if !ok {
		t.Fatalf("expected Bb to be a known key")
	}
	if out == score {
		t.Fatalf("expected a copy")
	}
	if _, ok := Transpose(score, "G"); ok {
		t.Fatalf("expected G to be rejected")
	}
}

func TestConformance_WriteMIDI(t *testing.T) {
	data, err := GeneratePlaybackData(odeToJoy, CompileOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteMIDI(&buf, data, MIDIOptions{Title: "Ode to Joy", NoChords: true}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	notes, err := intmidi.ReadNotes(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(notes) != 15 || notes[0].Key != 66 {
		t.Fatalf("expected 15 melody notes starting on F#4, got %d", len(notes))
	}
}
