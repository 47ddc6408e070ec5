package gen

import (
	"errors"
	"testing"
)

func semanticErr(t *testing.T, src string) *SemanticError {
	t.Helper()
	score := mustParse(t, src)
	err := Validate(score)
	var se *SemanticError
	if !errors.As(err, &se) {
		t.Fatalf("%q: expected SemanticError, got %v", src, err)
	}
	return se
}

func TestValidateAcceptsFullMeasures(t *testing.T) {
	sources := []string{
		"C D E F\nGo\n$p Cp",
		"[C D E]3 F G",
		"[C D E]3/ [F G A]3/ Bp",
		"C* D/ E F",
		"---\ntime-signature: 6/8\n---\nC/ D/ E/ F/ G/ A/\nCp*",
		"---\ntime-signature: 3/4\n---\nC D E",
		"[C D E F G]5// Cp*",
	}
	for _, src := range sources {
		if err := Validate(mustParse(t, src)); err != nil {
			t.Fatalf("%q: expected valid score, got %v", src, err)
		}
	}
}

func TestValidateDurationMismatch(t *testing.T) {
	se := semanticErr(t, "C D E F\nC D E")
	if se.Measure != 2 {
		t.Fatalf("expected measure 2, got %d", se.Measure)
	}
	if se.Message != "Measure duration mismatch: expected 4 beats, got 3 beats" {
		t.Fatalf("unexpected message %q", se.Message)
	}
	if se.Error() != "Semantic error at measure 2: Measure duration mismatch: expected 4 beats, got 3 beats" {
		t.Fatalf("unexpected error text %q", se.Error())
	}
}

func TestValidateFractionalMismatch(t *testing.T) {
	se := semanticErr(t, "---\ntime-signature: 6/8\n---\nC D")
	if se.Message != "Measure duration mismatch: expected 6 beats, got 4 beats" || se.Measure != 1 {
		t.Fatalf("unexpected %v", se)
	}
	se = semanticErr(t, "C D E F/")
	if se.Message != "Measure duration mismatch: expected 4 beats, got 3.5 beats" {
		t.Fatalf("unexpected message %q", se.Message)
	}
}

func TestValidateSkipsPickup(t *testing.T) {
	if err := Validate(mustParse(t, "@pickup G\nC D E F")); err != nil {
		t.Fatalf("expected pickup to be exempt, got %v", err)
	}
}

func TestValidateRepeats(t *testing.T) {
	cases := []struct {
		src     string
		measure int
		message string
	}{
		{"||: C D E F\n||: C D E F :||", 2, "Repeat start (||:) found without closing the previous repeat. Close the previous repeat with :|| first."},
		{"C D E F :||", 1, "Repeat end (:||) found without a matching repeat start (||:)"},
		{"C D E F\n||: C D E F\nC D E F", 2, "Repeat start (||:) at this measure has no matching repeat end (:||)"},
	}
	for _, tc := range cases {
		se := semanticErr(t, tc.src)
		if se.Measure != tc.measure || se.Message != tc.message {
			t.Fatalf("%q: expected %d %q, got %d %q", tc.src, tc.measure, tc.message, se.Measure, se.Message)
		}
	}
}

func TestValidateEndings(t *testing.T) {
	if err := Validate(mustParse(t, "||: C D E F\n1. G G G G :||\n2. C C C C")); err != nil {
		t.Fatalf("expected valid volta structure, got %v", err)
	}
	cases := []struct {
		src     string
		measure int
		message string
	}{
		{"||: C D E F\n1. G G G G\nC C C C :||", 2, "First ending (1.) must end with a repeat sign (:||)"},
		{"||: C D E F\n1. G G G G :||\n2. ||: C C C C :||", 3, "Second ending (2.) cannot have a repeat sign (:||)"},
		{"||: C D E F :||\n2. C C C C", 2, "Second ending (2.) must immediately follow a first ending (1.)"},
	}
	for _, tc := range cases {
		se := semanticErr(t, tc.src)
		if se.Measure != tc.measure || se.Message != tc.message {
			t.Fatalf("%q: expected %d %q, got %d %q", tc.src, tc.measure, tc.message, se.Measure, se.Message)
		}
	}
}

func TestParseCheckedRunsValidation(t *testing.T) {
	if _, err := ParseChecked("C D E"); err == nil {
		t.Fatalf("expected checked parse to fail on a short measure")
	}
	if _, err := Parse("C D E"); err != nil {
		t.Fatalf("expected unchecked parse to accept a short measure, got %v", err)
	}
}
