package ciskema

// Source produces the value tree of one document. Drivers live under source/
// and report decoding failures as Issues.
type Source interface {
	Value() (Value, error)
	Format() string
}

// ValueSource wraps an already decoded value.
func ValueSource(v Value) Source { return valueSource{v: v} }

type valueSource struct{ v Value }

func (s valueSource) Value() (Value, error) { return s.v, nil }
func (valueSource) Format() string          { return "value" }
