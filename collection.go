package ciskema

// instantiateCollection fabricates one member per input key, in input order.
// Names carrying the hidden prefix use the hidden member type and are marked
// hidden; the classification depends on the name alone.
func (e *Entry) instantiateCollection() {
	t := e.typ
	for _, name := range e.raw.keys {
		mt, hidden := t.visible, t.IsHidden(name)
		if hidden {
			mt = t.hidden
		}
		m := Fabricate(mt, e.raw.m[name], name, e, memberDescription(name, hidden))
		m.hidden = hidden
		e.addChild(m)
	}
}

func memberDescription(name string, hidden bool) string {
	if hidden {
		return name + " hidden definition"
	}
	return name + " definition"
}

// RelevantKeys returns the keys of relevant children in composition order.
func (e *Entry) RelevantKeys() []string {
	var out []string
	for _, k := range e.childKeys {
		if e.children[k].Relevant() {
			out = append(out, k)
		}
	}
	return out
}
