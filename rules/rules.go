// Package rules provides the optional validation rules attached to node types
// at registration. Every rule ignores values of a kind it does not check, so
// shape mismatches are reported once by the node's shape rule.
package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	ciskema "github.com/reoring/ciskema"
	"github.com/reoring/ciskema/i18n"
	"github.com/reoring/ciskema/internal/duration"
)

// And runs every rule and concatenates their violations in order.
func And(rs ...ciskema.Rule) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		var out []ciskema.Violation
		for _, r := range rs {
			if r == nil {
				continue
			}
			out = append(out, r(v)...)
		}
		return out
	}
}

// Or passes when any rule passes. Otherwise it reports the violations of the
// first rule.
func Or(rs ...ciskema.Rule) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		var first []ciskema.Violation
		for i, r := range rs {
			vs := r(v)
			if len(vs) == 0 {
				return nil
			}
			if i == 0 {
				first = vs
			}
		}
		return first
	}
}

// Cond is a predicate over a node's own raw value.
type Cond func(ciskema.Value) bool

// If runs rs only when c holds for the value.
func If(c Cond, rs ...ciskema.Rule) ciskema.Rule {
	inner := And(rs...)
	return func(v ciskema.Value) []ciskema.Violation {
		if !c(v) {
			return nil
		}
		return inner(v)
	}
}

// Not negates a condition.
func Not(c Cond) Cond { return func(v ciskema.Value) bool { return !c(v) } }

// KeyEquals holds for maps whose key is the string want.
func KeyEquals(key, want string) Cond {
	return func(v ciskema.Value) bool {
		s, ok := v.Get(key).AsString()
		return ok && s == want
	}
}

// ---- string formats ----

// Duration requires strings to be a human duration such as "1 week" or
// "2h 30m".
func Duration() ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		s, ok := v.AsString()
		if !ok || duration.Valid(s) {
			return nil
		}
		return format(i18n.ExpectDuration)
	}
}

// DurationAtMost requires parsable durations to be no longer than max. label
// is the human form of max used in the message.
func DurationAtMost(max time.Duration, label string) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		s, ok := v.AsString()
		if !ok {
			return nil
		}
		d, err := duration.Parse(s)
		if err != nil || d <= max {
			return nil
		}
		return []ciskema.Violation{ciskema.Violate(ciskema.CodeTooBig, map[string]string{"max": label})}
	}
}

// Regexp requires strings to be a "/pattern/" literal whose pattern compiles.
func Regexp() ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		s, ok := v.AsString()
		if !ok {
			return nil
		}
		if len(s) < 2 || s[0] != '/' || s[len(s)-1] != '/' {
			return format(i18n.ExpectRegexp)
		}
		if _, err := regexp.Compile(s[1 : len(s)-1]); err != nil {
			return format(i18n.ExpectRegexp)
		}
		return nil
	}
}

// KeyFormat checks identifier-like keys used for cache names: they may not
// contain "/" and may not be "." or "..".
func KeyFormat() ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		s, ok := v.AsString()
		if !ok {
			return nil
		}
		var out []ciskema.Violation
		if strings.Contains(s, "/") {
			out = append(out, ciskema.ViolateMsg(ciskema.CodeInvalidFormat, i18n.MsgKeySlash, nil))
		}
		if s == "." || s == ".." {
			out = append(out, ciskema.ViolateMsg(ciskema.CodeInvalidFormat, i18n.MsgKeyDot, nil))
		}
		return out
	}
}

// ---- constraints ----

// OneOf restricts strings to the given choices.
func OneOf(choices ...string) ciskema.Rule {
	allowed := lo.Keyify(choices)
	joined := strings.Join(choices, ", ")
	return func(v ciskema.Value) []ciskema.Violation {
		s, ok := v.AsString()
		if !ok {
			return nil
		}
		if _, ok := allowed[s]; ok {
			return nil
		}
		return []ciskema.Violation{ciskema.Violate(ciskema.CodeInvalidEnum, map[string]string{"choices": joined})}
	}
}

// IntRange requires numbers to be integers within [min, max].
func IntRange(min, max int64) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		n, ok := v.AsNumber()
		if !ok {
			return nil
		}
		i, err := n.Int64()
		if err != nil {
			return []ciskema.Violation{ciskema.Violate(ciskema.CodeInvalidType, map[string]string{"expected": i18n.ExpectInteger})}
		}
		switch {
		case i < min:
			return []ciskema.Violation{ciskema.Violate(ciskema.CodeTooSmall, map[string]string{"min": strconv.FormatInt(min, 10)})}
		case i > max:
			return []ciskema.Violation{ciskema.Violate(ciskema.CodeTooBig, map[string]string{"max": strconv.FormatInt(max, 10)})}
		}
		return nil
	}
}

// MinItems requires sequences to hold at least n elements.
func MinItems(n int) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		if v.Kind() != ciskema.KindSequence || v.Len() >= n {
			return nil
		}
		return []ciskema.Violation{ciskema.Violate(ciskema.CodeTooShort, map[string]string{"min": strconv.Itoa(n)})}
	}
}

// MaxLength limits strings to n characters.
func MaxLength(n int) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		s, ok := v.AsString()
		if !ok || len([]rune(s)) <= n {
			return nil
		}
		return []ciskema.Violation{ciskema.Violate(ciskema.CodeTooLong, map[string]string{"max": strconv.Itoa(n)})}
	}
}

// NotBlank rejects empty strings, empty sequences and empty maps.
func NotBlank() ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		blank := false
		switch v.Kind() {
		case ciskema.KindString:
			s, _ := v.AsString()
			blank = strings.TrimSpace(s) == ""
		case ciskema.KindSequence, ciskema.KindMap:
			blank = v.Len() == 0
		}
		if !blank {
			return nil
		}
		return []ciskema.Violation{ciskema.Violate(ciskema.CodeBlank, nil)}
	}
}

// ---- map keys ----

// present reports whether a map carries key with a non-null value.
func present(v ciskema.Value, key string) bool {
	return !v.Get(key).IsAbsent()
}

// RequireKeys reports the keys missing from a map, in argument order. A key
// holding null counts as missing.
func RequireKeys(keys ...string) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		if v.Kind() != ciskema.KindMap {
			return nil
		}
		missing := lo.Reject(keys, func(k string, _ int) bool { return present(v, k) })
		if len(missing) == 0 {
			return nil
		}
		return []ciskema.Violation{ciskema.Violate(ciskema.CodeMissingKey, map[string]string{"keys": strings.Join(missing, ", ")})}
	}
}

// ForbidKeys reports which of keys a map carries with a non-null value.
func ForbidKeys(keys ...string) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		if v.Kind() != ciskema.KindMap {
			return nil
		}
		found := lo.Filter(keys, func(k string, _ int) bool { return present(v, k) })
		if len(found) == 0 {
			return nil
		}
		return []ciskema.Violation{ciskema.Violate(ciskema.CodeForbiddenKey, map[string]string{"keys": strings.Join(found, ", ")})}
	}
}

// VisibleMember requires a map to hold at least one non-null member whose key
// lacks the hidden prefix.
func VisibleMember(hiddenPrefix string) ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		if v.Kind() != ciskema.KindMap {
			return nil
		}
		if lo.SomeBy(v.Keys(), func(k string) bool { return !strings.HasPrefix(k, hiddenPrefix) && present(v, k) }) {
			return nil
		}
		return []ciskema.Violation{ciskema.ViolateMsg(ciskema.CodeTooShort, i18n.MsgVisibleMember, nil)}
	}
}

// KeysNotBlank rejects maps holding an empty or whitespace-only key.
func KeysNotBlank() ciskema.Rule {
	return func(v ciskema.Value) []ciskema.Violation {
		if v.Kind() != ciskema.KindMap {
			return nil
		}
		if !lo.SomeBy(v.Keys(), func(k string) bool { return strings.TrimSpace(k) == "" }) {
			return nil
		}
		return []ciskema.Violation{ciskema.ViolateMsg(ciskema.CodeBlank, i18n.MsgBlankKey, nil)}
	}
}

func format(expected string) []ciskema.Violation {
	return []ciskema.Violation{ciskema.Violate(ciskema.CodeInvalidFormat, map[string]string{"expected": expected})}
}
