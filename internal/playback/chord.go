package playback

import (
	"strings"
	"unicode/utf8"
)

// chordShape holds semitone offsets above the root. A negative slot is empty.
type chordShape struct {
	third      int
	fifth      int
	seventh    int
	extensions []int
}

type chordToken struct {
	text       string
	alteration bool
	apply      func(*chordShape)
}

func minorThird(s *chordShape) { s.third = 3 }

func seventh(n int) func(*chordShape) {
	return func(s *chordShape) { s.seventh = n }
}

func extend(offsets ...int) func(*chordShape) {
	return func(s *chordShape) { s.extensions = append(s.extensions, offsets...) }
}

func combine(fns ...func(*chordShape)) func(*chordShape) {
	return func(s *chordShape) {
		for _, fn := range fns {
			fn(s)
		}
	}
}

func fifth(n int) func(*chordShape) {
	return func(s *chordShape) { s.fifth = n }
}

func third(n int) func(*chordShape) {
	return func(s *chordShape) { s.third = n }
}

var (
	minorSeventh = combine(minorThird, seventh(10))
	majorSeventh = seventh(11)
	dominant     = seventh(10)
	diminished   = combine(minorThird, fifth(6))
	halfDim      = combine(minorThird, fifth(6), seventh(10))
	augmented    = fifth(8)
)

var chordTokens = buildChordTokens()

func buildChordTokens() []chordToken {
	var tokens []chordToken
	alter := func(text string, fn func(*chordShape)) {
		tokens = append(tokens, chordToken{text: text, alteration: true, apply: fn})
	}
	base := func(fn func(*chordShape), texts ...string) {
		for _, t := range texts {
			tokens = append(tokens, chordToken{text: t, apply: fn})
		}
	}

	alter("b5", fifth(6))
	alter("#5", fifth(8))
	alter("+5", fifth(8))
	alter("b9", extend(13))
	alter("#9", extend(15))
	alter("b11", extend(16))
	alter("#11", extend(18))
	alter("b13", extend(20))
	alter("#13", extend(22))

	// minor-major seventh
	base(combine(minorThird, seventh(11)), "mMaj7", "mmaj7", "mM7", "minMaj7", "minmaj7", "-maj7", "-M7", "mΔ7", "-Δ7", "m(maj7)")
	base(combine(minorThird, seventh(11), extend(14)), "mMaj9", "mmaj9", "mM9", "minMaj9", "-maj9")

	base(majorSeventh, "maj7", "M7", "Δ7", "Δ")
	base(combine(majorSeventh, extend(14)), "maj9", "M9", "Δ9")
	base(combine(majorSeventh, extend(14, 18)), "maj11", "M11")
	base(combine(majorSeventh, extend(14, 21)), "maj13", "M13", "Δ13")
	base(func(*chordShape) {}, "maj", "M")

	base(combine(diminished, seventh(9)), "dim7", "°7", "o7")
	base(diminished, "dim", "°", "o")
	base(halfDim, "ø7", "ø", "m7b5", "min7b5", "-7b5")
	base(combine(augmented, dominant), "aug7", "+7", "7#5")
	base(augmented, "aug", "+")

	for _, m := range []string{"m", "min", "-"} {
		base(minorThird, m)
		base(combine(minorThird, extend(9)), m+"6")
		base(minorSeventh, m+"7")
		base(combine(minorSeventh, extend(14)), m+"9")
		base(combine(minorSeventh, extend(14, 17)), m+"11")
		base(combine(minorSeventh, extend(14, 17, 21)), m+"13")
		base(combine(minorThird, extend(9, 14)), m+"6/9", m+"69")
	}

	base(third(5), "sus", "sus4")
	base(third(2), "sus2")
	base(combine(third(5), dominant), "7sus4", "7sus")
	base(combine(third(5), dominant, extend(14)), "9sus4", "9sus")
	base(extend(14), "add9")
	base(extend(2), "add2")
	base(extend(17), "add11")
	base(extend(5), "add4")
	base(extend(9, 14), "6/9", "69")
	base(combine(dominant, extend(13, 15, 18, 20), func(s *chordShape) { s.fifth = -1 }), "alt", "7alt")

	base(dominant, "7")
	base(combine(dominant, extend(14)), "9")
	base(combine(dominant, extend(14, 17)), "11")
	base(combine(dominant, extend(14, 21)), "13")
	base(extend(9), "6")
	return tokens
}

var rootPitches = map[byte]int{'C': 48, 'D': 50, 'E': 52, 'F': 53, 'G': 55, 'A': 57, 'B': 59}

// parseRoot reads a root letter and optional accidental, returning its
// pitch in the C3 octave and the remaining text.
func parseRoot(s string) (int, string, bool) {
	if s == "" {
		return 0, s, false
	}
	p, ok := rootPitches[s[0]]
	if !ok {
		return 0, s, false
	}
	s = s[1:]
	switch {
	case strings.HasPrefix(s, "#"):
		p++
		s = s[1:]
	case strings.HasPrefix(s, "b"):
		p--
		s = s[1:]
	}
	// keep Cb and B# inside the octave
	p = 48 + (p-48+12)%12
	return p, s, true
}

// ParseChordSymbol voices a chord symbol in the C3 register. Unknown text
// is skipped, so the result may be empty but parsing never fails.
//
// A slash bass ("C/E") is put first and its pitch class removed from the
// rest of the chord.
func ParseChordSymbol(symbol string) []int {
	symbol = strings.TrimSpace(symbol)
	head := symbol
	bass := -1
	if i := strings.LastIndexByte(symbol, '/'); i >= 0 {
		if p, rest, ok := parseRoot(symbol[i+1:]); ok && rest == "" {
			head = symbol[:i]
			bass = p
		}
	}

	root, quality, ok := parseRoot(head)
	if !ok {
		return nil
	}
	shape := chordShape{third: 4, fifth: 7, seventh: -1}
	baseUsed := false
	for quality != "" {
		var best *chordToken
		for i := range chordTokens {
			tok := &chordTokens[i]
			if !tok.alteration && baseUsed {
				continue
			}
			if strings.HasPrefix(quality, tok.text) && (best == nil || len(tok.text) > len(best.text)) {
				best = tok
			}
		}
		if best == nil {
			_, size := utf8.DecodeRuneInString(quality)
			quality = quality[size:]
			continue
		}
		best.apply(&shape)
		if !best.alteration {
			baseUsed = true
		}
		quality = quality[len(best.text):]
	}

	offsets := []int{0}
	for _, slot := range []int{shape.third, shape.fifth, shape.seventh} {
		if slot >= 0 {
			offsets = append(offsets, slot)
		}
	}
	offsets = append(offsets, shape.extensions...)

	var notes []int
	seen := map[int]bool{}
	for _, off := range offsets {
		n := root + off
		if seen[n] || (bass >= 0 && n%12 == bass%12) {
			continue
		}
		seen[n] = true
		notes = append(notes, n)
	}
	if bass >= 0 {
		notes = append([]int{bass}, notes...)
	}
	return notes
}
