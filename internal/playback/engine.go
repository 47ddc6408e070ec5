// Package playback turns a parsed score into a timed note schedule for audio
// playback and for highlighting notes in a rendered MusicXML view.
package playback

import (
	"fmt"
	"math"

	"github.com/cbegin/gen-go/internal/gen"
	"github.com/cbegin/gen-go/internal/musicxml"
)

const (
	defaultTempo = 120
	// bass clef staff positions sit two octaves below treble
	bassClefOctaves = -2
)

type Options struct {
	Clef        musicxml.Clef
	OctaveShift int
	// Group selects mod points for the display pitch. GroupNone ignores them.
	Group gen.InstrumentGroup
	// TransposeKey is the viewed key of a transposing instrument ("Bb",
	// "Eb", "F"). Empty or "C" means concert pitch.
	TransposeKey string
}

// GenerateFromSource parses src without validation and schedules it.
func GenerateFromSource(src string, opts Options) (*Data, error) {
	score, err := gen.Parse(src)
	if err != nil {
		return nil, err
	}
	return Generate(score, opts), nil
}

// osmdBeats is the drawn length of r in time-signature beats: tuplets are
// truncated to whole MusicXML divisions the way a renderer lays them out.
func osmdBeats(r gen.Rhythm, ts gen.TimeSignature) float64 {
	b := r.Duration.Beats(ts)
	if r.Dotted {
		b *= 1.5
	}
	if r.Tuplet == nil {
		return b
	}
	const divisions = musicxml.Divisions
	return math.Floor(float64(r.Tuplet.NormalNotes)*b*divisions/float64(r.Tuplet.ActualNotes)) / divisions
}

// MatchKey joins a display pitch and a quarter-note timestamp into the key a
// renderer uses to find the drawn note.
func MatchKey(displayMIDI int, osmdTimestamp float64) string {
	return fmt.Sprintf("%d_%.3f", displayMIDI, osmdTimestamp)
}

type tieSlot struct {
	note        int
	accumulated float64
}

type engine struct {
	score      *gen.Score
	opts       Options
	ts         gen.TimeSignature
	chromatic  int
	toQuarters float64
	measureAt  []float64 // linear drawn start of each measure

	now     float64
	key     gen.KeySignature
	tie     *tieSlot
	notes   []Note
	chords  []Chord
	counter int
}

// Generate schedules score. It does not validate and never fails.
func Generate(score *gen.Score, opts Options) *Data {
	e := &engine{
		score:  score,
		opts:   opts,
		ts:     score.Metadata.TimeSignature,
		key:    score.Metadata.KeySignature,
		notes:  make([]Note, 0),
		chords: make([]Chord, 0),
	}
	if t, ok := musicxml.TranspositionForKey(opts.TransposeKey); ok {
		e.chromatic = t.Chromatic
	}
	e.toQuarters = 4 / float64(e.ts.BeatType)

	var drawn float64
	e.measureAt = make([]float64, len(score.Measures))
	for i := range score.Measures {
		e.measureAt[i] = drawn
		for _, el := range score.Measures[i].Elements {
			drawn += osmdBeats(el.Timing(), e.ts)
		}
	}

	for _, idx := range Sequence(score.Measures) {
		e.measure(idx)
	}
	return e.finish()
}

func (e *engine) measure(idx int) {
	m := &e.score.Measures[idx]
	if m.KeyChange != nil {
		e.key = *m.KeyChange
	}
	start := e.now
	drawn := e.measureAt[idx]
	displayShift := e.opts.OctaveShift + e.score.ModShift(idx, e.opts.Group)
	if e.opts.Clef == musicxml.ClefBass {
		displayShift += bassClefOctaves
	}

	for _, el := range m.Elements {
		length := el.Timing().Beats(e.ts)
		stamp := drawn * e.toQuarters

		if c := el.ChordAnnotation(); c != nil {
			if pitches := ParseChordSymbol(c.Symbol); len(pitches) > 0 {
				e.chords = append(e.chords, Chord{
					MIDINotes:     pitches,
					StartTime:     e.now,
					Duration:      c.DurationBeats(e.ts),
					OSMDTimestamp: stamp,
				})
			}
		}

		switch v := el.(type) {
		case *gen.Note:
			switch {
			case v.TieStop && e.tie != nil:
				e.tie.accumulated += length
				e.notes[e.tie.note].Duration = e.tie.accumulated
				if !v.TieStart {
					e.tie = nil
				}
			default:
				// a tie stop without an open head sounds as a fresh note
				display := clampMIDI(v.MIDI(e.key, displayShift) + e.chromatic)
				e.notes = append(e.notes, Note{
					MIDINote:        v.MIDI(e.key, e.opts.OctaveShift),
					DisplayMIDINote: display,
					StartTime:       e.now,
					Duration:        length,
					NoteIndex:       e.counter,
					MeasureNumber:   idx + 1,
					BeatInMeasure:   e.now - start,
					OSMDTimestamp:   stamp,
					OSMDMatchKey:    MatchKey(display, stamp),
				})
				e.counter++
				e.tie = nil
				if v.TieStart {
					e.tie = &tieSlot{note: len(e.notes) - 1, accumulated: length}
				}
			}
		case *gen.Rest:
			e.tie = nil
		}

		e.now += length
		drawn += osmdBeats(el.Timing(), e.ts)
	}
}

func (e *engine) finish() *Data {
	md := e.score.Metadata
	data := &Data{
		Tempo:   defaultTempo,
		Notes:   e.notes,
		Chords:  e.chords,
		Swing:   md.Swing.String(),
		UnitBPM: defaultTempo,
	}
	unit := gen.Quarter.Beats(e.ts)
	if t := md.Tempo; t != nil {
		unit = t.Duration.Beats(e.ts)
		if t.Dotted {
			unit *= 1.5
		}
		data.Tempo = int(t.QuarterNoteBPM())
		data.UnitBPM = float64(t.BPM)
	}
	for i := range data.Notes {
		data.Notes[i].StartTime /= unit
		data.Notes[i].Duration /= unit
	}
	for i := range data.Chords {
		data.Chords[i].StartTime /= unit
		data.Chords[i].Duration /= unit
	}
	return data
}

func clampMIDI(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
