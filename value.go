package ciskema

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Kind enumerates the variants of a Value.
type Kind uint8

const (
	KindAbsent Kind = iota // No value (missing key or explicit null).
	KindString
	KindBool
	KindNumber
	KindSequence
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the generic deserialized input: a scalar, an ordered sequence, an
// ordered string-keyed map, or absent. The zero Value is absent.
//
// Values are immutable once built; accessors never expose internal slices.
type Value struct {
	kind Kind
	str  string // string payload, or the textual form of a number
	b    bool
	seq  []Value
	keys []string
	m    map[string]Value
}

// Absent returns the absent Value.
func Absent() Value { return Value{} }

// Str returns a string scalar.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Num returns a number scalar from its textual representation.
func Num(text string) Value { return Value{kind: KindNumber, str: text} }

// Int returns a number scalar holding i.
func Int(i int64) Value { return Num(strconv.FormatInt(i, 10)) }

// Seq returns a sequence of the given elements.
func Seq(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindSequence, seq: cp}
}

// Strings returns a sequence of string scalars.
func Strings(ss ...string) Value {
	seq := make([]Value, len(ss))
	for i, s := range ss {
		seq[i] = Str(s)
	}
	return Value{kind: KindSequence, seq: seq}
}

// MapBuilder accumulates ordered key/value pairs for a map Value.
type MapBuilder struct {
	keys []string
	m    map[string]Value
}

// NewMap starts an ordered map. Setting an existing key replaces its value but
// keeps its original position.
func NewMap() *MapBuilder { return &MapBuilder{m: map[string]Value{}} }

// Set adds or replaces key.
func (b *MapBuilder) Set(key string, v Value) *MapBuilder {
	if _, ok := b.m[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.m[key] = v
	return b
}

// Has reports whether key was already set.
func (b *MapBuilder) Has(key string) bool {
	_, ok := b.m[key]
	return ok
}

// Value freezes the builder into a map Value. The builder must not be reused.
func (b *MapBuilder) Value() Value {
	return Value{kind: KindMap, keys: b.keys, m: b.m}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// IsScalar reports whether v is a string, bool or number.
func (v Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindBool || v.kind == KindNumber
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the textual number payload.
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.str), true
}

// Len returns the number of elements of a sequence or entries of a map.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMap:
		return len(v.keys)
	default:
		return 0
	}
}

// Index returns the i-th sequence element, or absent when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.seq) {
		return Value{}
	}
	return v.seq[i]
}

// Elems returns a copy of the sequence elements.
func (v Value) Elems() []Value {
	if v.kind != KindSequence {
		return nil
	}
	out := make([]Value, len(v.seq))
	copy(out, v.seq)
	return out
}

// Keys returns a copy of the map keys in input order.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get returns the value stored under key; missing keys and non-maps yield absent.
func (v Value) Get(key string) Value {
	if v.kind != KindMap {
		return Value{}
	}
	return v.m[key]
}

// Has reports whether a map contains key.
func (v Value) Has(key string) bool {
	if v.kind != KindMap {
		return false
	}
	_, ok := v.m[key]
	return ok
}

// Interface converts v into plain Go values: string, bool, json.Number,
// []any, map[string]any, or nil for absent.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.str)
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.m[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality, including map key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindString, KindNumber:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for i, k := range v.keys {
			if o.keys[i] != k || !v.m[k].Equal(o.m[k]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindString:
		return strconv.Quote(v.str)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.str
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// FromAny converts plain Go data into a Value. Maps with string keys are
// ordered by sorted key because Go maps carry no order; use NewMap to keep an
// explicit order. Unsupported types yield an error.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case string:
		return Str(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Num(string(t)), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case uint64:
		return Num(strconv.FormatUint(t, 10)), nil
	case float64:
		return Num(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case float32:
		return Num(strconv.FormatFloat(float64(t), 'g', -1, 32)), nil
	case []string:
		return Strings(t...), nil
	case []any:
		seq := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			seq[i] = ev
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case map[string]any:
		b := NewMap()
		for _, k := range sortedKeys(t) {
			ev, err := FromAny(t[k])
			if err != nil {
				return Value{}, err
			}
			b.Set(k, ev)
		}
		return b.Value(), nil
	case map[string]string:
		b := NewMap()
		for _, k := range sortedKeys(t) {
			b.Set(k, Str(t[k]))
		}
		return b.Value(), nil
	default:
		return Value{}, fmt.Errorf("ciskema: unsupported value type %T", x)
	}
}

// MustFromAny is FromAny for literals in tests and schema defaults.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string { return slices.Sorted(maps.Keys(m)) }
