package ciskema

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/reoring/ciskema/i18n"
)

// Rule inspects the raw value of one node and reports violations. Rules are
// pure: they see only the node's own value, never siblings or ancestors.
type Rule func(Value) []Violation

// Violate builds a Violation whose message is resolved through i18n using the
// issue code as message id.
func Violate(code string, data map[string]string) Violation {
	return ViolateMsg(code, code, data)
}

// ViolateMsg builds a Violation with an explicit message id.
func ViolateMsg(code, msgID string, data map[string]string) Violation {
	var params map[string]any
	if len(data) > 0 {
		params = make(map[string]any, len(data))
		for k, v := range data {
			params[k] = v
		}
	}
	return Violation{Code: code, Message: i18n.T(msgID, data), Params: params}
}

func typeViolation(expected string) []Violation {
	return []Violation{Violate(CodeInvalidType, map[string]string{"expected": expected})}
}

// ---- shape rules (attached automatically by the builder) ----

func scalarRule(kind ScalarKind) Rule {
	return func(v Value) []Violation {
		if v.IsAbsent() {
			return nil
		}
		switch kind {
		case ScalarString:
			if v.Kind() != KindString {
				return typeViolation(i18n.ExpectString)
			}
		case ScalarBool:
			if v.Kind() != KindBool {
				return typeViolation(i18n.ExpectBoolean)
			}
		case ScalarNumber:
			if v.Kind() != KindNumber {
				return typeViolation(i18n.ExpectNumber)
			}
		default:
			if !v.IsScalar() {
				return typeViolation(i18n.ExpectScalar)
			}
		}
		return nil
	}
}

func stringListRule(v Value) []Violation {
	if v.IsAbsent() || isStringList(v) {
		return nil
	}
	return typeViolation(i18n.ExpectStringList)
}

func stringOrRegexListRule(v Value) []Violation {
	if v.IsAbsent() {
		return nil
	}
	if !isStringList(v) {
		return typeViolation(i18n.ExpectStringOrRegexp)
	}
	for _, s := range stringElems(v) {
		if body, ok := regexLiteral(s); ok {
			if _, err := regexp.Compile(body); err != nil {
				return []Violation{Violate(CodeInvalidFormat, map[string]string{"expected": i18n.ExpectStringOrRegexp})}
			}
		}
	}
	return nil
}

func keyValueMapRule(v Value) []Violation {
	if v.IsAbsent() {
		return nil
	}
	if v.Kind() != KindMap {
		return typeViolation(i18n.ExpectKeyValueMap)
	}
	for _, k := range v.keys {
		if v.m[k].Kind() != KindString {
			return typeViolation(i18n.ExpectKeyValueMap)
		}
	}
	return nil
}

func mapRule(v Value) []Violation {
	if v.IsAbsent() || v.Kind() == KindMap {
		return nil
	}
	return typeViolation(i18n.ExpectHash)
}

// AllowedKeys reports every map key outside keys, in input order, as a single
// unknown-key violation. Non-map values are left to the shape rule.
func AllowedKeys(keys ...string) Rule {
	allowed := lo.Keyify(keys)
	return func(v Value) []Violation {
		if v.Kind() != KindMap {
			return nil
		}
		unknown := lo.Filter(v.keys, func(k string, _ int) bool {
			_, ok := allowed[k]
			return !ok
		})
		if len(unknown) == 0 {
			return nil
		}
		return []Violation{Violate(CodeUnknownKey, map[string]string{"keys": strings.Join(unknown, ", ")})}
	}
}

// ---- helpers shared with materialization ----

func isStringList(v Value) bool {
	switch v.Kind() {
	case KindString:
		return true
	case KindSequence:
		return lo.EveryBy(v.seq, func(e Value) bool { return e.Kind() == KindString })
	default:
		return false
	}
}

// stringElems returns the string elements of a lone string or a sequence,
// skipping anything that is not a string.
func stringElems(v Value) []string {
	switch v.Kind() {
	case KindString:
		return []string{v.str}
	case KindSequence:
		return lo.FilterMap(v.seq, func(e Value, _ int) (string, bool) { return e.AsString() })
	default:
		return nil
	}
}

// regexLiteral recognizes "/body/" and returns body.
func regexLiteral(s string) (string, bool) {
	if len(s) < 2 || s[0] != '/' || s[len(s)-1] != '/' {
		return "", false
	}
	return s[1 : len(s)-1], true
}
