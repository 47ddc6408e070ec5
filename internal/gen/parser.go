package gen

// parseState is the state carried from one measure to the next.
type parseState struct {
	inSlur          bool
	slurStartMarked bool
	pendingTieStop  bool
}

type parser struct {
	tokens  []Token
	pos     int
	ann     *Annotations
	measure int
}

// Parse compiles Gen source into a Score without semantic validation.
func Parse(src string) (*Score, error) {
	ann := Extract(src)

	md := DefaultMetadata()
	if content, ok := ExtractMetadata(src); ok {
		var err error
		if md, err = DecodeMetadata(content); err != nil {
			return nil, err
		}
	}

	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, ann: ann}
	measures, err := p.parseMusic()
	if err != nil {
		return nil, err
	}
	return &Score{
		Metadata:      md,
		Measures:      measures,
		ModPoints:     ann.ModPoints,
		LineToMeasure: ann.LineToMeasure,
		MeasureLines:  ann.MeasureLines,
	}, nil
}

func (p *parser) current() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) at(kind TokenKind) bool {
	t, ok := p.current()
	return ok && t.Kind == kind
}

func (p *parser) skip(kinds ...TokenKind) {
	for {
		t, ok := p.current()
		if !ok {
			return
		}
		matched := false
		for _, k := range kinds {
			if t.Kind == k {
				matched = true
				break
			}
		}
		if !matched {
			return
		}
		p.pos++
	}
}

func (p *parser) parseMusic() ([]Measure, error) {
	var measures []Measure
	var st parseState
	p.skip(TokenWhitespace, TokenNewline, TokenMetadataFence)
	for p.pos < len(p.tokens) {
		m, err := p.parseMeasure(&st)
		if err != nil {
			return nil, err
		}
		if m != nil {
			if ks, ok := p.ann.KeyChanges[p.measure]; ok {
				ks := ks
				m.KeyChange = &ks
			}
			m.Pickup = p.ann.Pickups[p.measure]
			measures = append(measures, *m)
			p.measure++
		}
		p.skip(TokenWhitespace, TokenNewline, TokenMetadataFence)
	}
	return measures, nil
}

// parseMeasure reads one line. It returns nil when the line carried no
// elements, repeat signs or ending.
func (p *parser) parseMeasure(st *parseState) (*Measure, error) {
	m := &Measure{}
	element := 0

	switch {
	case p.at(TokenFirstEnding):
		m.Ending = EndingFirst
		p.pos++
	case p.at(TokenSecondEnding):
		m.Ending = EndingSecond
		p.pos++
	}
	p.skip(TokenWhitespace)
	if p.at(TokenRepeatStart) {
		m.RepeatStart = true
		p.pos++
		p.skip(TokenWhitespace)
	}

	for {
		t, ok := p.current()
		if !ok {
			break
		}
		if t.Kind == TokenNewline {
			p.pos++
			break
		}

		switch t.Kind {
		case TokenWhitespace:
			p.pos++
			continue
		case TokenRepeatEnd:
			m.RepeatEnd = true
			p.pos++
			p.skip(TokenWhitespace)
			if p.at(TokenNewline) {
				p.pos++
			}
			return finishMeasure(m), nil
		case TokenLeftParen:
			p.pos++
			st.inSlur = true
			st.slurStartMarked = false
			continue
		case TokenRightParen:
			p.pos++
			if n, ok := lastNote(m.Elements); ok {
				n.SlurStop = true
			}
			st.inSlur = false
			st.slurStartMarked = false
			continue
		}

		saved := p.pos
		offset := p.parseOctaveModifiers()
		if p.at(TokenLeftBracket) {
			group, pendingTie, err := p.parseBracketGroup(offset)
			if err != nil {
				return nil, err
			}
			for _, el := range group {
				p.annotate(el, element)
				element++
			}
			if st.pendingTieStop {
				if n, ok := group[0].(*Note); ok {
					n.TieStop = true
				}
				st.pendingTieStop = false
			}
			if st.inSlur && !st.slurStartMarked {
				if n, ok := group[0].(*Note); ok {
					n.SlurStart = true
					st.slurStartMarked = true
				}
			}
			if p.at(TokenHyphen) {
				p.pos++
				if n, ok := group[len(group)-1].(*Note); ok {
					n.TieStart = true
				}
				st.pendingTieStop = true
			}
			if pendingTie {
				st.pendingTieStop = true
			}
			m.Elements = append(m.Elements, group...)
			continue
		}
		p.pos = saved

		el, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		p.annotate(el, element)
		element++
		if n, ok := el.(*Note); ok {
			if st.pendingTieStop {
				n.TieStop = true
			}
			if st.inSlur && !st.slurStartMarked {
				n.SlurStart = true
				st.slurStartMarked = true
			}
		}
		// a rest ends any open tie
		st.pendingTieStop = false
		if p.at(TokenHyphen) {
			p.pos++
			if n, ok := el.(*Note); ok {
				n.TieStart = true
			}
			st.pendingTieStop = true
		}
		m.Elements = append(m.Elements, el)
	}
	return finishMeasure(m), nil
}

func finishMeasure(m *Measure) *Measure {
	if len(m.Elements) == 0 && !m.RepeatStart && !m.RepeatEnd && m.Ending == EndingNone {
		return nil
	}
	return m
}

func lastNote(elements []Element) (*Note, bool) {
	if len(elements) == 0 {
		return nil, false
	}
	n, ok := elements[len(elements)-1].(*Note)
	return n, ok
}

// annotate binds the extracted chord and the measure octave modifier to the
// element at index idx of the current measure. Group rhythms are resolved
// before this runs, so attached chords see the final duration.
func (p *parser) annotate(el Element, idx int) {
	var chord *ChordAnnotation
	if mark, ok := p.ann.Chords[ElementRef{Measure: p.measure, Element: idx}]; ok {
		chord = &ChordAnnotation{Symbol: mark.Symbol, Duration: mark.Duration, Dotted: mark.Dotted}
		if mark.Attached {
			r := el.Timing()
			chord.Duration, chord.Dotted = r.Duration, r.Dotted
		}
	}
	switch e := el.(type) {
	case *Note:
		e.Chord = chord
		if shift, ok := p.ann.MeasureOctaves[p.measure]; ok {
			e.Octave = e.Octave.Shift(shift)
		}
	case *Rest:
		e.Chord = chord
	}
}

// parseBracketGroup parses "[...]" with its tuplet count and rhythm suffix.
// The returned flag reports a tie left open by the last element inside.
func (p *parser) parseBracketGroup(octave int) ([]Element, bool, error) {
	open, _ := p.current()
	p.pos++

	var elements []Element
	var st parseState
	closed := false
	for !closed {
		t, ok := p.current()
		if !ok {
			return nil, false, parseErrorf(open.Line, open.Column, "Expected closing bracket ]")
		}
		switch t.Kind {
		case TokenRightBracket:
			p.pos++
			closed = true
			continue
		case TokenWhitespace:
			p.pos++
			continue
		case TokenNewline:
			return nil, false, parseErrorf(open.Line, open.Column, "Unexpected newline inside bracket group")
		case TokenLeftParen:
			p.pos++
			st.inSlur = true
			st.slurStartMarked = false
			continue
		case TokenRightParen:
			p.pos++
			if n, ok := lastNote(elements); ok {
				n.SlurStop = true
			}
			st.inSlur = false
			st.slurStartMarked = false
			continue
		}

		el, err := p.parseElement()
		if err != nil {
			return nil, false, err
		}
		if n, ok := el.(*Note); ok {
			if st.pendingTieStop {
				n.TieStop = true
			}
			if st.inSlur && !st.slurStartMarked {
				n.SlurStart = true
				st.slurStartMarked = true
			}
		}
		// a rest ends any open tie
		st.pendingTieStop = false
		if p.at(TokenHyphen) {
			p.pos++
			if n, ok := el.(*Note); ok {
				n.TieStart = true
			}
			st.pendingTieStop = true
		}
		elements = append(elements, el)
	}

	if len(elements) == 0 {
		return nil, false, parseErrorf(open.Line, open.Column, "Bracket group cannot be empty")
	}

	tupletCount := 0
	if t, ok := p.current(); ok && t.Kind == TokenNumber {
		if t.Count < 2 {
			return nil, false, parseErrorf(t.Line, t.Column, "Tuplet count must be at least 2")
		}
		tupletCount = t.Count
		p.pos++
	}
	groupDuration, groupDotted := p.parseRhythm()

	last := len(elements) - 1
	for i, el := range elements {
		var r *Rhythm
		switch e := el.(type) {
		case *Note:
			r = &e.Rhythm
			e.Octave = e.Octave.Shift(octave)
		case *Rest:
			r = &e.Rhythm
		}
		if tupletCount > 0 {
			info := NewTupletInfo(tupletCount)
			info.IsStart = i == 0
			info.IsStop = i == last
			r.Tuplet = &info
			if r.Duration == Quarter {
				r.Duration = groupDuration
			}
			continue
		}
		if r.Duration == Quarter && groupDuration != Quarter {
			r.Duration = groupDuration
			r.Dotted = groupDotted
		}
	}
	return elements, st.pendingTieStop, nil
}

// parseElement reads [octave] letter|$ [accidental] [rhythm].
func (p *parser) parseElement() (Element, error) {
	start, ok := p.current()
	if !ok {
		return nil, parseErrorf(0, 0, "Expected note or rest")
	}
	octave := ClampOctave(p.parseOctaveModifiers())

	t, ok := p.current()
	if !ok {
		return nil, parseErrorf(start.Line, start.Column, "Expected note or rest")
	}
	switch t.Kind {
	case TokenRest:
		p.pos++
		if acc, ok := p.current(); ok && (acc.Kind == TokenSharp || acc.Kind == TokenFlat || acc.Kind == TokenNatural) {
			return nil, parseErrorf(acc.Line, acc.Column, "Rest cannot have an accidental")
		}
		d, dotted := p.parseRhythm()
		return &Rest{Rhythm: Rhythm{Duration: d, Dotted: dotted}}, nil
	case TokenNote:
		p.pos++
		n := &Note{Name: t.Note, Octave: octave}
		n.Accidental = p.parseAccidental()
		n.Duration, n.Dotted = p.parseRhythm()
		return n, nil
	}
	return nil, parseErrorf(t.Line, t.Column, "Expected note or rest, found %s", t)
}

// parseOctaveModifiers sums a run of ^ and _ tokens.
func (p *parser) parseOctaveModifiers() int {
	offset := 0
	for {
		switch {
		case p.at(TokenCaret):
			offset++
		case p.at(TokenUnderscore):
			offset--
		default:
			return offset
		}
		p.pos++
	}
}

func (p *parser) parseAccidental() Accidental {
	t, ok := p.current()
	if !ok {
		return Natural
	}
	switch t.Kind {
	case TokenSharp:
		p.pos++
		return Sharp
	case TokenFlat:
		p.pos++
		return Flat
	case TokenNatural:
		p.pos++
		return ForceNatural
	}
	return Natural
}

// parseRhythm consumes a rhythm suffix. Conflicting markers fall back to a
// quarter note.
func (p *parser) parseRhythm() (Duration, bool) {
	slashes := 0
	half, whole, dotted := false, false, false
loop:
	for {
		t, ok := p.current()
		if !ok {
			break
		}
		switch t.Kind {
		case TokenSlash:
			slashes += t.Count
		case TokenHalf:
			half = true
		case TokenWhole:
			whole = true
		case TokenDot:
			dotted = true
		default:
			break loop
		}
		p.pos++
	}

	switch {
	case slashes == 0 && whole && !half:
		return Whole, dotted
	case slashes == 0 && half && !whole:
		return Half, dotted
	case slashes == 1 && !half && !whole:
		return Eighth, dotted
	case slashes == 2 && !half && !whole:
		return Sixteenth, dotted
	case slashes == 3 && !half && !whole:
		return ThirtySecond, dotted
	}
	return Quarter, dotted
}
