package ciskema

import "weak"

// Fabricate places a new, not yet composed entry of type t under parent.
//
// A present raw value yields a specified entry of type t. An absent value
// yields the type's default when it has one and a sentinel otherwise; both are
// unspecified. Key, parent and description are set the same way in every case.
func Fabricate(t *NodeType, raw Value, key string, parent *Entry, description string) *Entry {
	e := &Entry{
		key:         key,
		description: description,
		path:        childPointer(parent, key),
	}
	if parent != nil {
		e.parent = weak.Make(parent)
	}
	switch {
	case !raw.IsAbsent():
		e.typ, e.raw, e.specified = t, raw, true
	case t.def.IsPresent():
		e.typ, e.raw = t, t.def.MustGet()
	default:
		e.typ, e.raw = sentinelType, Absent()
	}
	return e
}
