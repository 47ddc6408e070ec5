package gen

import (
	"math"
	"strconv"
)

const durationTolerance = 0.001

// Validate checks measure lengths against the time signature, then repeat
// and ending structure. Pickup measures are exempt from the length check.
func Validate(score *Score) error {
	ts := score.Metadata.TimeSignature
	for i := range score.Measures {
		if err := validateMeasure(&score.Measures[i], ts, i+1); err != nil {
			return err
		}
	}
	if err := validateRepeats(score.Measures); err != nil {
		return err
	}
	return validateEndings(score.Measures)
}

func validateMeasure(m *Measure, ts TimeSignature, number int) error {
	if m.Pickup {
		return nil
	}
	var total float64
	for _, el := range m.Elements {
		r := el.Timing()
		f := r.Duration.Fraction()
		if r.Dotted {
			f *= 1.5
		}
		if r.Tuplet != nil {
			f *= r.Tuplet.Ratio()
		}
		total += f
	}
	expected := ts.MeasureFraction()
	if math.Abs(total-expected) > durationTolerance {
		bt := float64(ts.BeatType)
		return &SemanticError{
			Measure: number,
			Message: "Measure duration mismatch: expected " + formatBeats(expected*bt) + " beats, got " + formatBeats(total*bt) + " beats",
		}
	}
	return nil
}

func formatBeats(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func validateRepeats(measures []Measure) error {
	open := 0
	for i, m := range measures {
		number := i + 1
		if m.RepeatStart {
			if open > 0 {
				return &SemanticError{Measure: number, Message: "Repeat start (||:) found without closing the previous repeat. Close the previous repeat with :|| first."}
			}
			open = number
		}
		if m.RepeatEnd {
			if open == 0 {
				return &SemanticError{Measure: number, Message: "Repeat end (:||) found without a matching repeat start (||:)"}
			}
			open = 0
		}
	}
	if open > 0 {
		return &SemanticError{Measure: open, Message: "Repeat start (||:) at this measure has no matching repeat end (:||)"}
	}
	return nil
}

func validateEndings(measures []Measure) error {
	for i, m := range measures {
		number := i + 1
		switch m.Ending {
		case EndingFirst:
			if !m.RepeatEnd {
				return &SemanticError{Measure: number, Message: "First ending (1.) must end with a repeat sign (:||)"}
			}
		case EndingSecond:
			if m.RepeatEnd {
				return &SemanticError{Measure: number, Message: "Second ending (2.) cannot have a repeat sign (:||)"}
			}
			if i == 0 || measures[i-1].Ending != EndingFirst {
				return &SemanticError{Measure: number, Message: "Second ending (2.) must immediately follow a first ending (1.)"}
			}
		}
	}
	return nil
}
