// Package duration parses human-written duration expressions such as
// "1 week", "2h 30m", "1 day and 4 hours" or a bare number of seconds.
package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("invalid duration")

const (
	day   = 24 * 60 * 60
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// unit seconds by accepted spelling; plural forms are listed explicitly so
// that near-misses like "mos" are rejected instead of guessed.
var units = map[string]float64{
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"d": day, "day": day, "days": day,
	"w": week, "wk": week, "wks": week, "week": week, "weeks": week,
	"mo": month, "month": month, "months": month,
	"y": year, "yr": year, "yrs": year, "year": year, "years": year,
}

// maxSeconds keeps the result inside time.Duration.
var maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// Parse converts s into a time.Duration. Months count as 30 days and years as
// 365 days.
func Parse(s string) (time.Duration, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, fmt.Errorf("%w: empty expression", ErrInvalid)
	}
	var total float64
	groups := 0
	bare := false
	i := 0
	for i < len(in) {
		c := in[i]
		if c == ' ' || c == '\t' || c == ',' {
			i++
			continue
		}
		if groups > 0 && strings.HasPrefix(in[i:], "and ") {
			i += len("and ")
			continue
		}
		if bare {
			return 0, fmt.Errorf("%w: unexpected %q after unitless number", ErrInvalid, in[i:])
		}

		start := i
		for i < len(in) && (isDigit(in[i]) || in[i] == '.') {
			i++
		}
		if start == i {
			return 0, fmt.Errorf("%w: expected a number at %q", ErrInvalid, in[start:])
		}
		n, err := strconv.ParseFloat(in[start:i], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalid, in[start:i])
		}
		for i < len(in) && in[i] == ' ' {
			i++
		}
		ustart := i
		for i < len(in) && isLetter(in[i]) {
			i++
		}
		unit := in[ustart:i]
		if unit == "" {
			if groups > 0 {
				return 0, fmt.Errorf("%w: missing unit after %q", ErrInvalid, in[start:ustart])
			}
			bare = true
			total += n
			groups++
			continue
		}
		mult, ok := units[unit]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalid, unit)
		}
		total += n * mult
		groups++
	}
	if total > maxSeconds {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalid, s)
	}
	return time.Duration(total * float64(time.Second)), nil
}

// Valid reports whether s parses.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' }
