package playback

// Note is one sounding melody note.
//
// MIDINote is the pitch to play. DisplayMIDINote is the pitch as drawn on
// the staff (clef, mod points and written transposition applied) and is
// what OSMDMatchKey is built from.
//
// StartTime and Duration are in beats of the tempo unit and follow the
// exact tuplet ratio. OSMDTimestamp is in quarter notes and follows the
// truncated MusicXML durations.
type Note struct {
	MIDINote        int     `json:"midiNote"`
	DisplayMIDINote int     `json:"displayMidiNote"`
	StartTime       float64 `json:"startTime"`
	Duration        float64 `json:"duration"`
	NoteIndex       int     `json:"noteIndex"`
	MeasureNumber   int     `json:"measureNumber"`
	BeatInMeasure   float64 `json:"beatInMeasure"`
	OSMDTimestamp   float64 `json:"osmdTimestamp"`
	OSMDMatchKey    string  `json:"osmdMatchKey"`
}

// Chord is an accompaniment chord from a chord annotation.
type Chord struct {
	MIDINotes     []int   `json:"midiNotes"`
	StartTime     float64 `json:"startTime"`
	Duration      float64 `json:"duration"`
	OSMDTimestamp float64 `json:"osmdTimestamp"`
}

// Data is the full playback schedule of a score.
type Data struct {
	// Tempo is quarter notes per minute.
	Tempo  int     `json:"tempo"`
	Notes  []Note  `json:"notes"`
	Chords []Chord `json:"chords"`
	// Swing is "eighth" or "sixteenth". Consumers apply it; times are straight.
	Swing string `json:"swing,omitempty"`
	// UnitBPM is the declared tempo in its own beat unit, the unit of every
	// StartTime and Duration.
	UnitBPM float64 `json:"-"`
}

// End returns the time the last note or chord stops sounding.
func (d *Data) End() float64 {
	var end float64
	for _, n := range d.Notes {
		if t := n.StartTime + n.Duration; t > end {
			end = t
		}
	}
	for _, c := range d.Chords {
		if t := c.StartTime + c.Duration; t > end {
			end = t
		}
	}
	return end
}

// Seconds converts a schedule time to seconds.
func (d *Data) Seconds(beats float64) float64 {
	bpm := d.UnitBPM
	if bpm <= 0 {
		bpm = float64(d.Tempo)
	}
	if bpm <= 0 {
		return 0
	}
	return beats * 60 / bpm
}
