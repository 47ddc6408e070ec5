package gen

import "strings"

const metadataFence = "---"

// splitLines splits src into lines without their terminators. A trailing
// carriage return is kept in the line; callers that care trim it.
func splitLines(src string) []string {
	lines := strings.Split(src, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// metadataSpan locates the first pair of fence lines. start and end are
// 0-indexed line positions of the fences. When only an opening fence exists,
// found is false and start is its index; otherwise start is -1.
func metadataSpan(lines []string) (start, end int, found bool) {
	start, end = -1, -1
	for i, line := range lines {
		if strings.TrimSpace(line) != metadataFence {
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		return start, i, true
	}
	return start, -1, false
}

// ExtractMetadata returns the text between the first pair of fence lines.
func ExtractMetadata(src string) (string, bool) {
	lines := splitLines(src)
	start, end, ok := metadataSpan(lines)
	if !ok {
		return "", false
	}
	return strings.Join(lines[start+1:end], "\n"), true
}

// isElementChar reports whether c starts a note or a rest.
func isElementChar(c byte) bool {
	return (c >= 'A' && c <= 'G') || c == '$'
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' || c == '\r' }

type annotationKind int

const (
	annotationModPoint annotationKind = iota + 1
	annotationMeasureOctave
	annotationChord
	annotationKey
	annotationPickup
)

type annotation struct {
	kind   annotationKind
	group  InstrumentGroup
	shift  int
	symbol string
	key    string
}

// annotationError carries a byte offset into the scanned line.
type annotationError struct {
	offset  int
	message string
}

var octaveModifiers = map[string]int{"^": 1, "^^": 2, "_": -1, "__": -2}

// scanAnnotation reads the "@" annotation that starts at s[i] and returns it
// together with the offset just past it.
func scanAnnotation(s string, i int) (annotation, int, *annotationError) {
	j := i + 1
	for j < len(s) && s[j] != ':' && !isBlank(s[j]) && s[j] != '\n' && s[j] != '@' {
		j++
	}
	name := s[i+1 : j]
	if j >= len(s) || s[j] != ':' {
		if name == "pickup" {
			return annotation{kind: annotationPickup}, j, nil
		}
		return annotation{}, j, &annotationError{offset: i, message: "Unknown annotation '@" + name + "'"}
	}
	j++ // ':'

	switch name {
	case "ch":
		end := scanWord(s, j)
		if end == j {
			return annotation{}, end, &annotationError{offset: i, message: "Chord annotation @ch: requires a chord symbol"}
		}
		return annotation{kind: annotationChord, symbol: s[j:end]}, end, nil
	case "key":
		end := j
		for end < len(s) && !isBlank(s[end]) && s[end] != '\n' && s[end] != '@' {
			end++
		}
		return annotation{kind: annotationKey, key: s[j:end]}, end, nil
	case "":
		end := scanOctaveRun(s, j)
		shift, ok := octaveModifiers[s[j:end]]
		if !ok {
			return annotation{}, end, &annotationError{offset: i, message: "Invalid measure octave modifier"}
		}
		return annotation{kind: annotationMeasureOctave, shift: shift}, end, nil
	}

	group, ok := ParseInstrumentGroup(name)
	if !ok {
		return annotation{}, j, &annotationError{offset: i, message: "Unknown annotation '@" + name + "'"}
	}
	for j < len(s) && isBlank(s[j]) {
		j++
	}
	end := scanOctaveRun(s, j)
	shift, ok := octaveModifiers[s[j:end]]
	if !ok {
		return annotation{}, end, &annotationError{offset: i, message: "Invalid mod point annotation"}
	}
	return annotation{kind: annotationModPoint, group: group, shift: shift}, end, nil
}

func scanWord(s string, i int) int {
	for i < len(s) && !isBlank(s[i]) && s[i] != '\n' {
		i++
	}
	return i
}

func scanOctaveRun(s string, i int) int {
	for i < len(s) && (s[i] == '^' || s[i] == '_') {
		i++
	}
	return i
}

// chordBlock is a "{symbol}" annotation with its trailing suffix.
type chordBlock struct {
	text     string
	attached bool
}

func isChordRhythmChar(c byte) bool {
	return c == 'o' || c == 'p' || c == '/' || c == '*'
}

// scanChordBlock reads the "{...}" annotation that starts at s[i]. A
// standalone block keeps its rhythm suffix in text; an attached one ends in
// ':' which is consumed.
func scanChordBlock(s string, i int) (chordBlock, int, *annotationError) {
	j := i + 1
	for j < len(s) && s[j] != '}' && s[j] != '\n' {
		j++
	}
	if j >= len(s) {
		return chordBlock{}, j, &annotationError{offset: i, message: "Unclosed chord annotation"}
	}
	if s[j] == '\n' {
		return chordBlock{}, j, &annotationError{offset: i, message: "Unexpected newline inside chord annotation"}
	}
	symbol := s[i+1 : j]
	if strings.TrimSpace(symbol) == "" {
		return chordBlock{}, j + 1, &annotationError{offset: i, message: "Chord annotation cannot be empty"}
	}
	j++
	if j < len(s) && s[j] == ':' {
		return chordBlock{text: symbol, attached: true}, j + 1, nil
	}
	k := j
	for k < len(s) && isChordRhythmChar(s[k]) {
		k++
	}
	return chordBlock{text: symbol + s[j:k]}, k, nil
}

// stripAnnotations removes "@" and "{...}" annotations from a music line so
// that the remaining characters are structural. Malformed annotations are
// dropped up to the point where scanning stopped.
func stripAnnotations(line string) string {
	if !strings.ContainsAny(line, "@{") {
		return line
	}
	var b strings.Builder
	for i := 0; i < len(line); {
		switch line[i] {
		case '@':
			_, next, _ := scanAnnotation(line, i)
			i = max(next, i+1)
		case '{':
			_, next, _ := scanChordBlock(line, i)
			i = max(next, i+1)
		default:
			b.WriteByte(line[i])
			i++
		}
	}
	return b.String()
}

// lineHasMeasureContent reports whether a music line produces a measure: it
// holds a note or rest, a repeat marker, or a leading ending marker once
// annotations are removed.
func lineHasMeasureContent(line string) bool {
	s := stripAnnotations(line)
	for i := 0; i < len(s); i++ {
		if isElementChar(s[i]) {
			return true
		}
	}
	if strings.Contains(s, "||:") || strings.Contains(s, ":||") {
		return true
	}
	return hasLeadingEnding(s)
}

func hasLeadingEnding(s string) bool {
	t := strings.TrimLeft(s, " \t\r")
	return strings.HasPrefix(t, "1.") || strings.HasPrefix(t, "2.")
}
