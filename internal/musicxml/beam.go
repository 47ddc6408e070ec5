package musicxml

import "github.com/cbegin/gen-go/internal/gen"

type beamState int

const (
	beamNone beamState = iota
	beamBegin
	beamContinue
	beamEnd
)

func (b beamState) String() string {
	switch b {
	case beamBegin:
		return "begin"
	case beamContinue:
		return "continue"
	case beamEnd:
		return "end"
	}
	return ""
}

// beatWindow is the beaming unit in high-resolution divisions. Compound
// meters group by the dotted quarter.
func beatWindow(ts gen.TimeSignature) int {
	if ts.BeatType == 8 && ts.Beats%3 == 0 {
		return 18
	}
	if ts.BeatType <= 0 {
		return 12
	}
	return 48 / ts.BeatType
}

func beamableNote(el gen.Element) bool {
	n, ok := el.(*gen.Note)
	return ok && n.Duration.Beamable()
}

// beamStates groups runs of two or more beamable notes that fall inside one
// beat window.
func beamStates(elements []gen.Element, ts gen.TimeSignature) []beamState {
	states := make([]beamState, len(elements))
	window := beatWindow(ts)
	if window <= 0 {
		return states
	}

	pos := 0
	i := 0
	for i < len(elements) {
		if !beamableNote(elements[i]) {
			pos += highResDivisions(elements[i].Timing())
			i++
			continue
		}
		beatEnd := (pos/window + 1) * window
		start := i
		for i < len(elements) && pos < beatEnd && beamableNote(elements[i]) {
			d := highResDivisions(elements[i].Timing())
			if pos+d > beatEnd && i > start {
				break
			}
			pos += d
			i++
		}
		if i-start >= 2 {
			states[start] = beamBegin
			for j := start + 1; j < i-1; j++ {
				states[j] = beamContinue
			}
			states[i-1] = beamEnd
		}
	}
	return states
}
