package gen

// ParseChecked parses src and validates the result.
func ParseChecked(src string) (*Score, error) {
	score, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if err := Validate(score); err != nil {
		return nil, err
	}
	return score, nil
}
