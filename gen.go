// Package gen compiles Gen music notation into MusicXML and into timed
// playback schedules.
//
// A Gen score is an optional YAML metadata block between "---" lines
// followed by one measure per line:
//
//	---
//	title: Ode
//	key-signature: G
//	tempo: 120
//	---
//	{G}B B ^C ^D
//	{D7}^D ^C B A
//
// Compile validates measure durations, repeats and endings; CompileUnchecked
// accepts partial scores as an editor would type them.
package gen

import (
	"io"

	intgen "github.com/cbegin/gen-go/internal/gen"
	intmidi "github.com/cbegin/gen-go/internal/midifile"
	intxml "github.com/cbegin/gen-go/internal/musicxml"
	intpb "github.com/cbegin/gen-go/internal/playback"
)

type (
	Score         = intgen.Score
	ParseError    = intgen.ParseError
	MetadataError = intgen.MetadataError
	SemanticError = intgen.SemanticError
	PlaybackData  = intpb.Data
	PlaybackNote  = intpb.Note
	PlaybackChord = intpb.Chord
	MIDIOptions   = intmidi.Options
	Metadata      = intgen.Metadata
)

// MediaType is the content type of compiled output.
const MediaType = intxml.MediaType

// CompileOptions selects how a score is engraved and scheduled.
type CompileOptions struct {
	// Clef is "treble" (default) or "bass".
	Clef        string
	OctaveShift int
	// InstrumentGroup is "Eb", "Bb" or empty; it selects which mod points apply.
	InstrumentGroup string
	// TransposeKey is the viewed key of a transposing instrument: "Bb",
	// "Eb", "F", or empty/"C" for concert pitch.
	TransposeKey string
	// Checked validates the score before encoding.
	Checked bool
}

func (o CompileOptions) musicXML() intxml.Options {
	group, _ := intgen.ParseInstrumentGroup(o.InstrumentGroup)
	opts := intxml.Options{
		Clef:        intxml.ParseClef(o.Clef),
		OctaveShift: o.OctaveShift,
		Group:       group,
	}
	if t, ok := intxml.TranspositionForKey(o.TransposeKey); ok {
		opts.Transposition = &t
	}
	return opts
}

func (o CompileOptions) playback() intpb.Options {
	group, _ := intgen.ParseInstrumentGroup(o.InstrumentGroup)
	return intpb.Options{
		Clef:         intxml.ParseClef(o.Clef),
		OctaveShift:  o.OctaveShift,
		Group:        group,
		TransposeKey: o.TransposeKey,
	}
}

// Parse builds a score without validating it.
func Parse(src string) (*Score, error) {
	return intgen.Parse(src)
}

// Validate checks measure durations and repeat structure.
func Validate(score *Score) error {
	return intgen.Validate(score)
}

// Compile parses, validates and encodes src as MusicXML.
func Compile(src string) (string, error) {
	return CompileWithOptions(src, CompileOptions{Checked: true})
}

// CompileUnchecked encodes src without validating measure durations.
func CompileUnchecked(src string) (string, error) {
	return CompileWithOptions(src, CompileOptions{})
}

func CompileWithOptions(src string, opts CompileOptions) (string, error) {
	parse := intgen.Parse
	if opts.Checked {
		parse = intgen.ParseChecked
	}
	score, err := parse(src)
	if err != nil {
		return "", err
	}
	return ToMusicXML(score, opts), nil
}

// ToMusicXML encodes an already parsed score. opts.Checked is ignored.
func ToMusicXML(score *Score, opts CompileOptions) string {
	return intxml.Encode(score, opts.musicXML())
}

// GeneratePlaybackData parses src without validation and schedules it.
func GeneratePlaybackData(src string, opts CompileOptions) (*PlaybackData, error) {
	score, err := intgen.Parse(src)
	if err != nil {
		return nil, err
	}
	if opts.Checked {
		if err := intgen.Validate(score); err != nil {
			return nil, err
		}
	}
	return intpb.Generate(score, opts.playback()), nil
}

// ParseChordSymbol voices a chord symbol as MIDI notes in the C3 register.
// Unknown symbols yield an empty slice.
func ParseChordSymbol(symbol string) []int {
	return intpb.ParseChordSymbol(symbol)
}

// Transpose returns a copy of score with pitches moved to the viewed key of
// a transposing instrument ("C", "F", "Bb", "Eb"). It reports false for an
// unknown key.
func Transpose(score *Score, key string) (*Score, bool) {
	return intgen.Transpose(score, key)
}

// WriteMIDI writes data as a Standard MIDI File.
func WriteMIDI(w io.Writer, data *PlaybackData, opts MIDIOptions) error {
	return intmidi.Write(w, data, opts)
}

// ReadMetadata decodes the metadata block of src. A score without one gets
// the defaults.
func ReadMetadata(src string) (Metadata, error) {
	block, ok := intgen.ExtractMetadata(src)
	if !ok {
		return intgen.DefaultMetadata(), nil
	}
	return intgen.DecodeMetadata(block)
}

// MIDIOptionsFor titles a MIDI file and sets its meter from md.
func MIDIOptionsFor(md Metadata) MIDIOptions {
	return MIDIOptions{
		Title:       md.Title,
		Numerator:   uint8(md.TimeSignature.Beats),
		Denominator: uint8(md.TimeSignature.BeatType),
	}
}
