package ciskema

// Result is the outcome of one validation run. It owns the entry tree.
type Result struct {
	root *Entry
}

// Validate composes v against the registry's root type. It never fails: every
// mismatch becomes an issue on the entry where it was found.
func Validate(reg *Registry, v Value) *Result {
	t := reg.Root()
	root := Fabricate(t, v, "", nil, t.Description())
	root.compose()
	return &Result{root: root}
}

// Root returns the root entry.
func (r *Result) Root() *Entry { return r.root }

// Valid reports whether the whole tree is free of issues.
func (r *Result) Valid() bool { return r.root.Valid() }

// Issues returns every issue in pre-order.
func (r *Result) Issues() Issues { return r.root.Issues() }

// Errors returns the display form of every issue, in pre-order.
func (r *Result) Errors() []string { return r.root.Issues().Strings() }

// Entry looks up the entry at the given key path. Missing keys yield a
// sentinel entry.
func (r *Result) Entry(path ...string) *Entry { return r.root.Lookup(path...) }

// SemanticValue returns the materialized value at path. The boolean is false
// when the path resolves to a sentinel.
func (r *Result) SemanticValue(path ...string) (any, bool) {
	e := r.root.Lookup(path...)
	if e.typ.shape == ShapeSentinel {
		return nil, false
	}
	return e.Value(), true
}

// Specified reports whether the value at path came from the input.
func (r *Result) Specified(path ...string) bool { return r.root.Lookup(path...).Specified() }

// Presence returns the presence flags of every non-sentinel entry keyed by
// JSON Pointer.
func (r *Result) Presence() PresenceMap { return collectPresence(r.root) }
