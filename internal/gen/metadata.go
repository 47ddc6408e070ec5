package gen

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// scalar accepts any YAML scalar as text, so `tempo: 120` and
// `tempo: "120p"` decode the same way.
type scalar struct {
	value string
	set   bool
}

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a single value", node.Line)
	}
	s.value = node.Value
	s.set = true
	return nil
}

type rawMetadata struct {
	Title         scalar `yaml:"title"`
	Composer      scalar `yaml:"composer"`
	TimeSignature scalar `yaml:"time-signature"`
	KeySignature  scalar `yaml:"key-signature"`
	WrittenPitch  scalar `yaml:"written-pitch"`
	Tempo         scalar `yaml:"tempo"`
	Swing         scalar `yaml:"swing"`
}

// DecodeMetadata parses the content of a metadata block.
func DecodeMetadata(content string) (Metadata, error) {
	var raw rawMetadata
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return Metadata{}, &MetadataError{Message: err.Error()}
	}

	md := DefaultMetadata()
	md.Title = raw.Title.value
	md.Composer = raw.Composer.value

	if raw.TimeSignature.set {
		ts, err := parseTimeSignature(raw.TimeSignature.value)
		if err != nil {
			return Metadata{}, err
		}
		md.TimeSignature = ts
	}
	if raw.KeySignature.set {
		ks, ok := ParseKeySignature(raw.KeySignature.value)
		if !ok {
			return Metadata{}, metadataErrorf("Invalid key signature: %s", raw.KeySignature.value)
		}
		md.KeySignature = ks
	}
	if raw.WrittenPitch.set {
		p, err := parsePitch(raw.WrittenPitch.value)
		if err != nil {
			return Metadata{}, err
		}
		md.WrittenPitch = p
	}
	if raw.Tempo.set {
		t, err := ParseTempo(raw.Tempo.value)
		if err != nil {
			return Metadata{}, err
		}
		md.Tempo = &t
	}
	if raw.Swing.set {
		sw, err := parseSwing(raw.Swing.value)
		if err != nil {
			return Metadata{}, err
		}
		md.Swing = sw
	}
	return md, nil
}

func parseTimeSignature(s string) (TimeSignature, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return TimeSignature{}, metadataErrorf("Invalid time signature: %s", s)
	}
	beats, err := strconv.Atoi(parts[0])
	if err != nil || beats <= 0 {
		return TimeSignature{}, metadataErrorf("Invalid time signature beats: %s", s)
	}
	beatType, err := strconv.Atoi(parts[1])
	if err != nil || beatType <= 0 {
		return TimeSignature{}, metadataErrorf("Invalid time signature beat type: %s", s)
	}
	return TimeSignature{Beats: beats, BeatType: beatType}, nil
}

func parsePitch(s string) (Pitch, error) {
	if s == "" {
		return Pitch{}, metadataErrorf("Invalid pitch: %s", s)
	}
	name, ok := noteNameFromByte(s[0])
	if !ok {
		return Pitch{}, metadataErrorf("Invalid pitch: %s", s)
	}
	p := Pitch{Note: name}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '^':
			p.OctaveOffset++
		case '_':
			p.OctaveOffset--
		}
	}
	return p, nil
}

// ParseTempo reads "BPM[rhythm]" such as "120", "160p*" or "90/".
func ParseTempo(s string) (Tempo, error) {
	s = strings.TrimSpace(s)
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return Tempo{}, metadataErrorf("Tempo must start with BPM number: %s", s)
	}
	bpm, err := strconv.ParseUint(s[:digits], 10, 16)
	if err != nil {
		return Tempo{}, metadataErrorf("Invalid tempo BPM: %s", s[:digits])
	}
	if bpm == 0 {
		return Tempo{}, metadataErrorf("Tempo BPM must be greater than 0")
	}

	t := Tempo{BPM: int(bpm), Duration: Quarter}
	suffix := s[digits:]
	for i := 0; i < len(suffix); {
		switch suffix[i] {
		case 'o':
			t.Duration = Whole
			i++
		case 'p':
			t.Duration = Half
			i++
		case '*':
			t.Dotted = true
			i++
		case '/':
			n := 0
			for i < len(suffix) && suffix[i] == '/' {
				n++
				i++
			}
			switch n {
			case 1:
				t.Duration = Eighth
			case 2:
				t.Duration = Sixteenth
			case 3:
				t.Duration = ThirtySecond
			default:
				return Tempo{}, metadataErrorf("Invalid tempo rhythm: too many slashes (%d)", n)
			}
		default:
			return t, nil
		}
	}
	return t, nil
}

func parseSwing(s string) (Swing, error) {
	switch strings.TrimSpace(s) {
	case "/":
		return SwingEighth, nil
	case "//":
		return SwingSixteenth, nil
	}
	return SwingNone, metadataErrorf("Invalid swing value: '%s'. Use '/' for eighth note swing or '//' for sixteenth note swing", strings.TrimSpace(s))
}
