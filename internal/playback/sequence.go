package playback

import "github.com/cbegin/gen-go/internal/gen"

// Sequence returns the order measures are played in, as indices into
// measures, with repeats and first/second endings unrolled.
//
// A repeated section plays twice. With endings, the first pass takes the
// first ending and the second pass skips to the second ending, which runs
// until the next repeat start or ending mark. A repeat end with no start
// replays from the top of the score.
func Sequence(measures []gen.Measure) []int {
	var seq []int
	span := func(from, to int) {
		for k := from; k <= to; k++ {
			seq = append(seq, k)
		}
	}

	i := 0
	for i < len(measures) {
		m := measures[i]
		switch {
		case m.RepeatStart:
			end, first, second := scanRepeat(measures, i)
			if end < 0 {
				seq = append(seq, i)
				i++
				continue
			}
			body := end
			if first >= 0 {
				body = first - 1
			}

			span(i, end)
			switch {
			case second >= 0:
				span(i, body)
				last := second
				for k := second + 1; k < len(measures); k++ {
					if measures[k].RepeatStart || measures[k].Ending != gen.EndingNone {
						break
					}
					last = k
				}
				span(second, last)
				i = last + 1
			default:
				span(i, body)
				i = end + 1
			}
		case m.RepeatEnd:
			seq = append(seq, i)
			span(0, i)
			i++
		default:
			seq = append(seq, i)
			i++
		}
	}
	return seq
}

// scanRepeat finds the repeat end of the section starting at start and the
// first measures of its endings. Missing values are -1.
func scanRepeat(measures []gen.Measure, start int) (end, first, second int) {
	end, first, second = -1, -1, -1
	for j := start; j < len(measures); j++ {
		switch measures[j].Ending {
		case gen.EndingFirst:
			if first < 0 {
				first = j
			}
		case gen.EndingSecond:
			if second < 0 {
				second = j
			}
		}
		if measures[j].RepeatEnd {
			end = j
			if second < 0 && j+1 < len(measures) && measures[j+1].Ending == gen.EndingSecond {
				second = j + 1
			}
			return end, first, second
		}
	}
	return -1, first, second
}
