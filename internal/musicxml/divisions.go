package musicxml

import "github.com/cbegin/gen-go/internal/gen"

// Divisions per quarter note written to the document.
const Divisions = 4

var (
	divisionTable        = [...]int{16, 8, 4, 2, 1, 1}
	highResDivisionTable = [...]int{48, 24, 12, 6, 3, 2}
)

func scaleDivisions(base int, r gen.Rhythm) int {
	if r.Dotted {
		base += base / 2
	}
	if r.Tuplet != nil {
		// integer truncation is part of the format; renderers align to it
		base = base * r.Tuplet.NormalNotes / r.Tuplet.ActualNotes
	}
	return base
}

// DurationDivisions is the <duration> value of r at 4 divisions per quarter.
func DurationDivisions(r gen.Rhythm) int {
	return scaleDivisions(divisionTable[r.Duration], r)
}

// highResDivisions measures r at 12 per quarter so triplet boundaries stay exact.
func highResDivisions(r gen.Rhythm) int {
	return scaleDivisions(highResDivisionTable[r.Duration], r)
}
