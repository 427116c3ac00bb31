package ciskema

import (
	"errors"
	"fmt"

	"github.com/samber/mo"
)

// Registry is the immutable catalog of node types produced by a Builder. It
// is safe for concurrent use by any number of validation runs.
type Registry struct {
	root  *NodeType
	types map[string]*NodeType
	order []string
}

// Root returns the node type used for the document root.
func (r *Registry) Root() *NodeType { return r.root }

// Type looks up a registered node type by name.
func (r *Registry) Type(name string) (*NodeType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns every registered node type in registration order.
func (r *Registry) Types() []*NodeType {
	out := make([]*NodeType, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.types[n])
	}
	return out
}

// Builder accumulates node type definitions. Definitions are frozen into a
// Registry by Build; the builder must not be used afterwards.
type Builder struct {
	defs  []*TypeBuilder
	names map[string]struct{}
	errs  []error
	built bool
}

// NewBuilder starts an empty registry definition.
func NewBuilder() *Builder { return &Builder{names: map[string]struct{}{}} }

// TypeBuilder configures one node type. Methods that do not apply to the
// type's shape record an error reported by Builder.Build.
type TypeBuilder struct {
	b           *Builder
	name        string
	shape       Shape
	scalar      ScalarKind
	join        JoinPolicy
	def         mo.Option[Value]
	description string
	rules       []Rule
	children    []childDef
	strict      bool
	rest        *childDef
	prefix      string
	visible     *TypeBuilder
	hidden      *TypeBuilder
}

type childDef struct {
	key         string
	t           *TypeBuilder
	description string
}

func (b *Builder) define(name string, shape Shape) *TypeBuilder {
	tb := &TypeBuilder{b: b, name: name, shape: shape, def: mo.None[Value]()}
	if _, dup := b.names[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("node type %q defined twice", name))
	}
	b.names[name] = struct{}{}
	b.defs = append(b.defs, tb)
	return tb
}

// Scalar defines a scalar node type of the given kind.
func (b *Builder) Scalar(name string, kind ScalarKind) *TypeBuilder {
	tb := b.define(name, ShapeScalar)
	tb.scalar = kind
	return tb
}

// StringList defines a node accepting a string or a sequence of strings.
func (b *Builder) StringList(name string, join JoinPolicy) *TypeBuilder {
	tb := b.define(name, ShapeStringList)
	tb.join = join
	return tb
}

// StringOrRegexList defines a list whose elements may be "/regex/" literals.
func (b *Builder) StringOrRegexList(name string) *TypeBuilder {
	return b.define(name, ShapeStringOrRegexList)
}

// KeyValueMap defines a string-to-string map node. Its default is the empty
// map unless Default overrides it.
func (b *Builder) KeyValueMap(name string) *TypeBuilder {
	tb := b.define(name, ShapeKeyValueMap)
	tb.def = mo.Some(NewMap().Value())
	return tb
}

// Composite defines a fixed composite node with declared children.
func (b *Builder) Composite(name string) *TypeBuilder {
	return b.define(name, ShapeComposite)
}

// Collection defines a dynamic named collection. Member names starting with
// hiddenPrefix are classified as hidden members.
func (b *Builder) Collection(name, hiddenPrefix string, visible, hidden *TypeBuilder) *TypeBuilder {
	tb := b.define(name, ShapeCollection)
	tb.prefix = hiddenPrefix
	tb.visible = visible
	tb.hidden = hidden
	if visible == nil || hidden == nil {
		b.errs = append(b.errs, fmt.Errorf("collection %q requires visible and hidden member types", name))
	}
	return tb
}

func (tb *TypeBuilder) misuse(op string) *TypeBuilder {
	tb.b.errs = append(tb.b.errs, fmt.Errorf("%s is not supported by %s node type %q", op, tb.shape, tb.name))
	return tb
}

// Name returns the type name.
func (tb *TypeBuilder) Name() string { return tb.name }

// Default sets the value fabricated when the input omits the node.
func (tb *TypeBuilder) Default(v Value) *TypeBuilder {
	if v.IsAbsent() {
		tb.def = mo.None[Value]()
		return tb
	}
	tb.def = mo.Some(v)
	return tb
}

// Describe sets the human description of the type.
func (tb *TypeBuilder) Describe(s string) *TypeBuilder {
	tb.description = s
	return tb
}

// Rules appends validation rules, evaluated after the shape rule in order.
func (tb *TypeBuilder) Rules(rs ...Rule) *TypeBuilder {
	for _, r := range rs {
		if r != nil {
			tb.rules = append(tb.rules, r)
		}
	}
	return tb
}

// Child declares a composite child.
func (tb *TypeBuilder) Child(key string, t *TypeBuilder, description string) *TypeBuilder {
	if tb.shape != ShapeComposite {
		return tb.misuse("Child")
	}
	tb.children = append(tb.children, childDef{key: key, t: t, description: description})
	return tb
}

// Strict rejects input keys that are not declared children.
func (tb *TypeBuilder) Strict() *TypeBuilder {
	if tb.shape != ShapeComposite {
		return tb.misuse("Strict")
	}
	tb.strict = true
	return tb
}

// Rest routes every undeclared input key into one synthetic child of type t,
// stored under key. The child receives a map of the leftover keys in input
// order, or an absent value when there are none.
func (tb *TypeBuilder) Rest(key string, t *TypeBuilder, description string) *TypeBuilder {
	if tb.shape != ShapeComposite {
		return tb.misuse("Rest")
	}
	tb.rest = &childDef{key: key, t: t, description: description}
	return tb
}

// Build freezes every definition reachable from root into a Registry.
func (b *Builder) Build(root *TypeBuilder) (*Registry, error) {
	if b.built {
		return nil, errors.New("ciskema: builder already used")
	}
	b.built = true
	if root == nil {
		return nil, errors.New("ciskema: nil root type")
	}
	errs := append([]error(nil), b.errs...)
	frozen := make(map[*TypeBuilder]*NodeType, len(b.defs))
	for _, tb := range b.defs {
		frozen[tb] = &NodeType{}
	}
	reg := &Registry{types: make(map[string]*NodeType, len(b.defs))}
	for _, tb := range b.defs {
		nt, err := tb.freeze(frozen)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reg.types[tb.name] = nt
		reg.order = append(reg.order, tb.name)
	}
	reg.root = frozen[root]
	if reg.root == nil {
		errs = append(errs, fmt.Errorf("root type %q was not defined by this builder", root.name))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("ciskema: invalid registry: %w", err)
	}
	for _, nt := range reg.Types() {
		if d, ok := nt.def.Get(); ok {
			// Only the shape is checked: configured rules may reject an
			// omitted section on purpose (e.g. an empty job collection).
			if vs := nt.rules[0](d); len(vs) > 0 {
				errs = append(errs, fmt.Errorf("default of %q is invalid: %s", nt.name, vs[0].Message))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("ciskema: invalid registry: %w", err)
	}
	return reg, nil
}

// MustBuild is Build for package-level registries.
func (b *Builder) MustBuild(root *TypeBuilder) *Registry {
	reg, err := b.Build(root)
	if err != nil {
		panic(err)
	}
	return reg
}

func (tb *TypeBuilder) freeze(frozen map[*TypeBuilder]*NodeType) (*NodeType, error) {
	nt := frozen[tb]
	lookup := func(t *TypeBuilder) (*NodeType, error) {
		if t == nil {
			return nil, fmt.Errorf("node type %q references a nil type", tb.name)
		}
		ft, ok := frozen[t]
		if !ok {
			return nil, fmt.Errorf("node type %q references %q from another builder", tb.name, t.name)
		}
		return ft, nil
	}

	*nt = NodeType{
		name:         tb.name,
		shape:        tb.shape,
		scalar:       tb.scalar,
		join:         tb.join,
		def:          tb.def,
		description:  tb.description,
		strict:       tb.strict,
		hiddenPrefix: tb.prefix,
	}

	switch tb.shape {
	case ShapeScalar:
		nt.rules = append(nt.rules, scalarRule(tb.scalar))
	case ShapeStringList:
		nt.rules = append(nt.rules, stringListRule)
	case ShapeStringOrRegexList:
		nt.rules = append(nt.rules, stringOrRegexListRule)
	case ShapeKeyValueMap:
		nt.rules = append(nt.rules, keyValueMapRule)
	case ShapeComposite, ShapeCollection:
		nt.rules = append(nt.rules, mapRule)
	}

	if tb.shape == ShapeComposite {
		nt.index = make(map[string]int, len(tb.children))
		keys := make([]string, 0, len(tb.children))
		for _, c := range tb.children {
			ct, err := lookup(c.t)
			if err != nil {
				return nil, err
			}
			if _, dup := nt.index[c.key]; dup {
				return nil, fmt.Errorf("node type %q declares child %q twice", tb.name, c.key)
			}
			nt.index[c.key] = len(nt.children)
			nt.children = append(nt.children, Child{Key: c.key, Type: ct, Description: c.description})
			keys = append(keys, c.key)
		}
		if tb.rest != nil {
			if tb.strict {
				return nil, fmt.Errorf("node type %q cannot be strict and collect undeclared keys", tb.name)
			}
			if _, clash := nt.index[tb.rest.key]; clash {
				return nil, fmt.Errorf("node type %q rest key %q clashes with a declared child", tb.name, tb.rest.key)
			}
			rt, err := lookup(tb.rest.t)
			if err != nil {
				return nil, err
			}
			nt.rest = &Child{Key: tb.rest.key, Type: rt, Description: tb.rest.description}
		}
		if tb.strict {
			nt.rules = append(nt.rules, AllowedKeys(keys...))
		}
	}

	if tb.shape == ShapeCollection {
		var err error
		if nt.visible, err = lookup(tb.visible); err != nil {
			return nil, err
		}
		if nt.hidden, err = lookup(tb.hidden); err != nil {
			return nil, err
		}
	}

	nt.rules = append(nt.rules, tb.rules...)
	return nt, nil
}
