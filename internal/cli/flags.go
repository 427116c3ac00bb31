package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// enumValue is a string flag restricted to a fixed set of choices.
type enumValue struct {
	allowed []string
	value   string
}

var _ pflag.Value = (*enumValue)(nil)

// newEnumValue starts at def when it is allowed and at the first choice
// otherwise, so a bad environment value cannot break flag parsing.
func newEnumValue(def string, allowed ...string) *enumValue {
	v := &enumValue{allowed: allowed, value: allowed[0]}
	if slices.Contains(allowed, strings.ToLower(def)) {
		v.value = strings.ToLower(def)
	}
	return v
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(e.allowed, s) {
		return fmt.Errorf("must be one of %s", e.choices())
	}
	e.value = s
	return nil
}

func (e *enumValue) Type() string { return "string" }

func (e *enumValue) choices() string { return strings.Join(e.allowed, "|") }
