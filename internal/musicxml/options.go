package musicxml

import (
	"strings"

	"github.com/cbegin/gen-go/internal/gen"
)

type Clef int

const (
	ClefTreble Clef = iota
	ClefBass
)

// ParseClef accepts "treble" and "bass". Anything else is treble.
func ParseClef(s string) Clef {
	if strings.EqualFold(strings.TrimSpace(s), "bass") {
		return ClefBass
	}
	return ClefTreble
}

func (c Clef) String() string {
	if c == ClefBass {
		return "bass"
	}
	return "treble"
}

// Transposition is the written interval of a transposing instrument.
type Transposition struct {
	Diatonic  int // letter-name steps
	Chromatic int // half steps
	Fifths    int // key signature move on the circle of fifths
}

var transpositions = map[string]Transposition{
	"Bb": {Diatonic: 1, Chromatic: 2, Fifths: 2},
	"Eb": {Diatonic: 5, Chromatic: 9, Fifths: 3},
	"F":  {Diatonic: 3, Chromatic: 5, Fifths: -1},
}

// TranspositionForKey returns the transposition for a viewed key. Concert
// pitch ("C") and unknown keys report false.
func TranspositionForKey(key string) (Transposition, bool) {
	t, ok := transpositions[strings.TrimSpace(key)]
	return t, ok
}

type Options struct {
	Clef        Clef
	OctaveShift int
	// Group selects which mod points apply. GroupNone ignores them.
	Group         gen.InstrumentGroup
	Transposition *Transposition
}
