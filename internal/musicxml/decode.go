package musicxml

import (
	"encoding/xml"
	"io"

	"golang.org/x/net/html/charset"
)

// Document is the subset of a partwise score this package reads back.
type Document struct {
	XMLName  xml.Name `xml:"score-partwise"`
	Version  string   `xml:"version,attr"`
	Title    string   `xml:"work>work-title"`
	Composer string   `xml:"identification>creator"`
	Parts    []Part   `xml:"part"`
}

type Part struct {
	ID       string    `xml:"id,attr"`
	Measures []Measure `xml:"measure"`
}

type Measure struct {
	Number     int          `xml:"number,attr"`
	Attributes []Attributes `xml:"attributes"`
	Direction  *Direction   `xml:"direction"`
	Barlines   []Barline    `xml:"barline"`
	Harmonies  []Harmony    `xml:"harmony"`
	Notes      []Note       `xml:"note"`
}

type Attributes struct {
	Divisions int        `xml:"divisions"`
	Key       *Key       `xml:"key"`
	Time      *Time      `xml:"time"`
	Clef      *ClefSign  `xml:"clef"`
	Transpose *Transpose `xml:"transpose"`
}

type Key struct {
	Fifths int    `xml:"fifths"`
	Mode   string `xml:"mode"`
}

type Time struct {
	Beats    int `xml:"beats"`
	BeatType int `xml:"beat-type"`
}

type ClefSign struct {
	Sign string `xml:"sign"`
	Line int    `xml:"line"`
}

type Transpose struct {
	Diatonic  int `xml:"diatonic"`
	Chromatic int `xml:"chromatic"`
}

type Direction struct {
	BeatUnit    string    `xml:"direction-type>metronome>beat-unit"`
	BeatUnitDot *struct{} `xml:"direction-type>metronome>beat-unit-dot"`
	PerMinute   int       `xml:"direction-type>metronome>per-minute"`
	Sound       struct {
		Tempo float64 `xml:"tempo,attr"`
	} `xml:"sound"`
}

type Barline struct {
	Location string `xml:"location,attr"`
	BarStyle string `xml:"bar-style"`
	Ending   *struct {
		Number string `xml:"number,attr"`
		Type   string `xml:"type,attr"`
		Text   string `xml:",chardata"`
	} `xml:"ending"`
	Repeat *struct {
		Direction string `xml:"direction,attr"`
	} `xml:"repeat"`
}

type Harmony struct {
	RootStep  string `xml:"root>root-step"`
	RootAlter int    `xml:"root>root-alter"`
	Kind      struct {
		Text  string `xml:"text,attr"`
		Value string `xml:",chardata"`
	} `xml:"kind"`
	Bass *struct {
		Step  string `xml:"bass-step"`
		Alter int    `xml:"bass-alter"`
	} `xml:"bass"`
}

type Note struct {
	Rest  *struct{} `xml:"rest"`
	Pitch *struct {
		Step   string `xml:"step"`
		Alter  int    `xml:"alter"`
		Octave int    `xml:"octave"`
	} `xml:"pitch"`
	Duration int `xml:"duration"`
	Ties     []struct {
		Type string `xml:"type,attr"`
	} `xml:"tie"`
	Type             string    `xml:"type"`
	Dot              *struct{} `xml:"dot"`
	TimeModification *struct {
		ActualNotes int `xml:"actual-notes"`
		NormalNotes int `xml:"normal-notes"`
	} `xml:"time-modification"`
	Beam       string     `xml:"beam"`
	Notations  *Notations `xml:"notations"`
	Accidental string     `xml:"accidental"`
}

type Notations struct {
	Tied []struct {
		Type string `xml:"type,attr"`
	} `xml:"tied"`
	Slurs []struct {
		Type string `xml:"type,attr"`
	} `xml:"slur"`
	Tuplets []struct {
		Type string `xml:"type,attr"`
	} `xml:"tuplet"`
}

// MIDI returns the written note number of a pitched note, middle C = 60.
func (n Note) MIDI() int {
	if n.Pitch == nil {
		return -1
	}
	semitones := map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}
	return semitones[n.Pitch.Step] + n.Pitch.Alter + (n.Pitch.Octave+1)*12
}

// Decode reads a partwise document. Non UTF-8 encodings declared in the
// prolog are converted.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
