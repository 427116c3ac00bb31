package duration_test

import (
	"errors"
	"testing"
	"time"

	"github.com/reoring/ciskema/internal/duration"
)

func TestParse_Accepted(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"1 week", 7 * 24 * time.Hour},
		{"2h 30m", 2*time.Hour + 30*time.Minute},
		{"1 day and 4 hours", 28 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"90", 90 * time.Second},
		{"1.5 hours", 90 * time.Minute},
		{"3 months", 90 * 24 * time.Hour},
		{"  2 Days, 1 minute ", 48*time.Hour + time.Minute},
		{"1 yr", 365 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := duration.Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParse_Rejected(t *testing.T) {
	for _, in := range []string{
		"",
		"3 mos",
		"7 elephants",
		"week",
		"1 2",
		"10 and",
		"1 hour 20",
		"99999999999 years",
		"-1 day",
	} {
		_, err := duration.Parse(in)
		if err == nil {
			t.Fatalf("Parse(%q) expected error", in)
		}
		if !errors.Is(err, duration.ErrInvalid) {
			t.Fatalf("Parse(%q) error %v does not wrap ErrInvalid", in, err)
		}
		if duration.Valid(in) {
			t.Fatalf("Valid(%q) = true", in)
		}
	}
}
