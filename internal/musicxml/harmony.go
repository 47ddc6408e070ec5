package musicxml

import "strings"

var harmonyKinds = map[string]string{
	"":         "major",
	"m":        "minor",
	"min":      "minor",
	"-":        "minor",
	"maj7":     "major-seventh",
	"M7":       "major-seventh",
	"Δ7":       "major-seventh",
	"m7":       "minor-seventh",
	"min7":     "minor-seventh",
	"-7":       "minor-seventh",
	"7":        "dominant",
	"dim":      "diminished",
	"o":        "diminished",
	"°":        "diminished",
	"dim7":     "diminished-seventh",
	"o7":       "diminished-seventh",
	"°7":       "diminished-seventh",
	"m7b5":     "half-diminished",
	"ø":        "half-diminished",
	"half-dim": "half-diminished",
	"aug":      "augmented",
	"+":        "augmented",
	"sus4":     "suspended-fourth",
	"sus":      "suspended-fourth",
	"sus2":     "suspended-second",
	"6":        "major-sixth",
	"m6":       "minor-sixth",
	"9":        "dominant-ninth",
	"maj9":     "major-ninth",
	"M9":       "major-ninth",
	"m9":       "minor-ninth",
	"11":       "dominant-11th",
	"maj11":    "major-11th",
	"m11":      "minor-11th",
	"13":       "dominant-13th",
	"maj13":    "major-13th",
	"m13":      "minor-13th",
}

// HarmonyKind maps a chord quality (the symbol after its root) to a
// MusicXML <kind> value.
func HarmonyKind(quality string) string {
	if k, ok := harmonyKinds[quality]; ok {
		return k
	}
	return "other"
}

// splitChordRoot separates the root letter and accidental from the quality.
// ok is false when the symbol does not start with a note letter.
func splitChordRoot(symbol string) (step byte, alter int, quality string, ok bool) {
	if symbol == "" || strings.IndexByte(stepLetters, symbol[0]) < 0 {
		return 0, 0, symbol, false
	}
	step = symbol[0]
	rest := symbol[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		alter = 1
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		alter = -1
		rest = rest[1:]
	}
	return step, alter, rest, true
}

// splitBass cuts a "/E" or "/Bb" bass note off a quality.
func splitBass(quality string) (string, string) {
	i := strings.LastIndexByte(quality, '/')
	if i < 0 {
		return quality, ""
	}
	if _, _, rest, ok := splitChordRoot(quality[i+1:]); !ok || rest != "" {
		return quality, ""
	}
	return quality[:i], quality[i+1:]
}

const stepLetters = "CDEFGAB"

var stepSemitones = [...]int{0, 2, 4, 5, 7, 9, 11}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

func transposeNote(step byte, alter int, t Transposition) string {
	idx := strings.IndexByte(stepLetters, step)
	chromatic := mod(stepSemitones[idx]+alter+t.Chromatic, 12)
	newIdx := mod(idx+t.Diatonic, 7)

	var acc string
	switch mod(chromatic-stepSemitones[newIdx], 12) {
	case 1:
		acc = "#"
	case 2:
		acc = "##"
	case 10:
		acc = "bb"
	case 11:
		acc = "b"
	}
	return string(stepLetters[newIdx]) + acc
}

// transposeChordRoot moves the root and any slash bass of symbol, keeping
// its quality. Symbols without a letter root are returned unchanged.
func transposeChordRoot(symbol string, t Transposition) string {
	step, alter, quality, ok := splitChordRoot(symbol)
	if !ok {
		return symbol
	}
	quality, bass := splitBass(quality)
	out := transposeNote(step, alter, t) + quality
	if bass != "" {
		bs, ba, _, _ := splitChordRoot(bass)
		out += "/" + transposeNote(bs, ba, t)
	}
	return out
}

func (w *xmlWriter) harmony(symbol string, t *Transposition) {
	if t != nil {
		symbol = transposeChordRoot(symbol, *t)
	}
	step, alter, quality, ok := splitChordRoot(symbol)

	defer w.close(w.open("harmony"))
	if !ok {
		// no chord, e.g. N.C.
		w.open("root")
		w.text("root-step", "C")
		w.close("root")
		w.text("kind", "none", "text", symbol)
		return
	}
	quality, bass := splitBass(quality)
	w.open("root")
	w.text("root-step", string(step))
	if alter != 0 {
		w.int("root-alter", alter)
	}
	w.close("root")
	w.text("kind", HarmonyKind(quality), "text", symbol)
	if bass != "" {
		bs, ba, _, _ := splitChordRoot(bass)
		w.open("bass")
		w.text("bass-step", string(bs))
		if ba != 0 {
			w.int("bass-alter", ba)
		}
		w.close("bass")
	}
}
