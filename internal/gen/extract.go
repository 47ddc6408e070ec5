package gen

import "strings"

// ChordMark is a chord symbol read from the raw source before it is bound to
// an element. Attached marks take the duration of the element they sit on.
type ChordMark struct {
	Symbol   string
	Duration Duration
	Dotted   bool
	Attached bool
}

// ElementRef addresses the n-th note or rest of a measure.
type ElementRef struct {
	Measure int
	Element int
}

// Annotations are the side tables computed from the raw source.
type Annotations struct {
	ModPoints     ModPoints
	LineToMeasure map[int]int
	// MeasureLines maps each measure index back to its source line. A line
	// split by a mid-line ":||" yields several measures on the same line.
	MeasureLines   map[int]int
	Chords         map[ElementRef]ChordMark
	KeyChanges     map[int]KeySignature
	MeasureOctaves map[int]int
	Pickups        map[int]bool
}

// parseChordMark splits a trailing rhythm suffix (o p / *) off a chord
// symbol. Without a suffix the chord lasts a whole note.
func parseChordMark(text string, attached bool) (ChordMark, bool) {
	end := len(text)
	for end > 0 && isChordRhythmChar(text[end-1]) {
		end--
	}
	mark := ChordMark{Symbol: strings.TrimSpace(text[:end]), Duration: Whole, Attached: attached}
	if mark.Symbol == "" {
		return ChordMark{}, false
	}
	suffix := text[end:]
	slashes := strings.Count(suffix, "/")
	for i := 0; i < len(suffix); i++ {
		switch suffix[i] {
		case 'o':
			mark.Duration = Whole
		case 'p':
			mark.Duration = Half
		case '/':
			switch slashes {
			case 2:
				mark.Duration = Sixteenth
			case 3:
				mark.Duration = ThirtySecond
			default:
				mark.Duration = Eighth
			}
		case '*':
			mark.Dotted = true
		}
	}
	return mark, true
}

// Extract scans the raw source, metadata included, and builds the
// annotation tables. Line numbers are 1-indexed source lines; measure
// indices count lines that produce a measure. Malformed annotations are
// left for the lexer to report.
func Extract(src string) *Annotations {
	ann := &Annotations{
		ModPoints:      ModPoints{},
		LineToMeasure:  map[int]int{},
		MeasureLines:   map[int]int{},
		Chords:         map[ElementRef]ChordMark{},
		KeyChanges:     map[int]KeySignature{},
		MeasureOctaves: map[int]int{},
		Pickups:        map[int]bool{},
	}

	lines := splitLines(src)
	start, end, found := metadataSpan(lines)
	inMetadata := func(i int) bool {
		return start >= 0 && i >= start && (!found || i <= end)
	}

	measure := 0
	var pending *ChordMark
	for i, raw := range lines {
		if inMetadata(i) {
			continue
		}
		lineNo := i + 1
		line := strings.TrimSuffix(raw, "\r")
		element := 0
		octaveSet := false
		segment := 0
		closeMeasure := func() {
			if _, ok := ann.LineToMeasure[lineNo]; !ok {
				ann.LineToMeasure[lineNo] = measure
			}
			ann.MeasureLines[measure] = lineNo
			measure++
			// a chord written after the last element of a measure has nothing to bind to
			pending = nil
		}

		for j := 0; j < len(line); {
			c := line[j]
			switch {
			case strings.HasPrefix(line[j:], ":||"):
				j += 3
				// the parser ends the measure at ":||" and reads the rest of the line as the next one
				if lineHasMeasureContent(line[j:]) {
					closeMeasure()
					segment = j
					element = 0
					octaveSet = false
				}
			case c == '@':
				a, next, aerr := scanAnnotation(line, j)
				j = max(next, j+1)
				if aerr != nil {
					continue
				}
				switch a.kind {
				case annotationModPoint:
					ann.ModPoints.Set(lineNo, a.group, a.shift)
				case annotationMeasureOctave:
					if !octaveSet {
						ann.MeasureOctaves[measure] = a.shift
						octaveSet = true
					}
				case annotationChord:
					if mark, ok := parseChordMark(a.symbol, false); ok {
						pending = &mark
					}
				case annotationKey:
					if ks, ok := ParseKeySignature(a.key); ok {
						ann.KeyChanges[measure] = ks
					}
				case annotationPickup:
					ann.Pickups[measure] = true
				}
			case c == '{':
				block, next, aerr := scanChordBlock(line, j)
				j = max(next, j+1)
				if aerr != nil {
					continue
				}
				if mark, ok := parseChordMark(block.text, block.attached); ok {
					pending = &mark
				}
			case isElementChar(c):
				if pending != nil {
					ann.Chords[ElementRef{Measure: measure, Element: element}] = *pending
					pending = nil
				}
				element++
				j++
			default:
				j++
			}
		}

		if lineHasMeasureContent(line[segment:]) {
			closeMeasure()
		}
	}
	return ann
}
