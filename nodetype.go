package ciskema

import (
	"strings"

	"github.com/samber/mo"
)

// Shape is the structural category of a node type.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeStringList
	ShapeStringOrRegexList
	ShapeKeyValueMap
	ShapeComposite
	ShapeCollection
	ShapeSentinel
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeStringList:
		return "string_list"
	case ShapeStringOrRegexList:
		return "string_or_regex_list"
	case ShapeKeyValueMap:
		return "key_value_map"
	case ShapeComposite:
		return "composite"
	case ShapeCollection:
		return "collection"
	default:
		return "sentinel"
	}
}

// ScalarKind selects the accepted scalar variant of a ShapeScalar node.
type ScalarKind uint8

const (
	ScalarString ScalarKind = iota
	ScalarBool
	ScalarNumber
	ScalarAny // string, bool or number
)

// JoinPolicy controls how a StringList materializes.
type JoinPolicy uint8

const (
	JoinNone    JoinPolicy = iota // []string
	JoinNewline                   // trimmed lines joined with "\n"
)

// Child declares one key of a composite node type.
type Child struct {
	Key         string
	Type        *NodeType
	Description string
}

// NodeType is an immutable entry of a Registry. It is shared by every Entry
// of that type across validation runs.
type NodeType struct {
	name        string
	shape       Shape
	scalar      ScalarKind
	join        JoinPolicy
	def         mo.Option[Value]
	description string
	rules       []Rule

	// composite
	children []Child
	index    map[string]int
	strict   bool
	rest     *Child

	// collection
	hiddenPrefix string
	visible      *NodeType
	hidden       *NodeType
}

var sentinelType = &NodeType{name: "sentinel", shape: ShapeSentinel, def: mo.None[Value]()}

// SentinelType is the process-wide inert node type. It has no rules and no
// default; entries of this type materialize to nil and are never relevant.
func SentinelType() *NodeType { return sentinelType }

// Name returns the registered type name.
func (t *NodeType) Name() string { return t.name }

// Shape returns the structural family of the type.
func (t *NodeType) Shape() Shape { return t.shape }

// ScalarKind returns the accepted scalar kind. It is meaningful for
// ShapeScalar only.
func (t *NodeType) ScalarKind() ScalarKind { return t.scalar }

// Join returns how a string list materializes.
func (t *NodeType) Join() JoinPolicy { return t.join }

// Default returns the value used when the input omits the node.
func (t *NodeType) Default() mo.Option[Value] { return t.def }

// Description returns the human-readable summary set with Describe.
func (t *NodeType) Description() string { return t.description }

// Strict reports whether undeclared keys are rejected.
func (t *NodeType) Strict() bool { return t.strict }

// Children returns the declared children in declaration order.
func (t *NodeType) Children() []Child {
	out := make([]Child, len(t.children))
	copy(out, t.children)
	return out
}

// Child looks up a declared child by key.
func (t *NodeType) Child(key string) (Child, bool) {
	i, ok := t.index[key]
	if !ok {
		return Child{}, false
	}
	return t.children[i], true
}

// Rest returns the child that receives undeclared keys, if any.
func (t *NodeType) Rest() (Child, bool) {
	if t.rest == nil {
		return Child{}, false
	}
	return *t.rest, true
}

// Members returns the collection member types and the hidden-name prefix.
func (t *NodeType) Members() (visible, hidden *NodeType, prefix string) {
	return t.visible, t.hidden, t.hiddenPrefix
}

// IsHidden classifies a collection member name.
func (t *NodeType) IsHidden(name string) bool {
	return t.hiddenPrefix != "" && strings.HasPrefix(name, t.hiddenPrefix)
}

func (t *NodeType) validate(v Value) []Violation {
	var out []Violation
	for _, r := range t.rules {
		out = append(out, r(v)...)
	}
	return out
}
