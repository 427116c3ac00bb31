package ciskema

// compose builds the subtree below e and evaluates the rules of every node.
// Children are instantiated first (phase A) and only then composed and
// validated depth-first (phase B); e's own rules run last. Composing twice is
// a no-op.
func (e *Entry) compose() {
	if e.composed {
		return
	}
	e.composed = true

	switch e.typ.shape {
	case ShapeComposite:
		if e.raw.Kind() == KindMap {
			e.instantiateComposite()
		}
	case ShapeCollection:
		if e.raw.Kind() == KindMap {
			e.instantiateCollection()
		}
	}
	for _, k := range e.childKeys {
		e.children[k].compose()
	}
	e.evaluate()
}

func (e *Entry) instantiateComposite() {
	t := e.typ
	for _, c := range t.children {
		e.addChild(Fabricate(c.Type, e.raw.Get(c.Key), c.Key, e, c.Description))
	}
	if t.rest == nil {
		return
	}
	leftover := NewMap()
	for _, k := range e.raw.keys {
		if _, declared := t.index[k]; !declared {
			leftover.Set(k, e.raw.m[k])
		}
	}
	rest := Absent()
	if len(leftover.keys) > 0 {
		rest = leftover.Value()
	}
	r := Fabricate(t.rest.Type, rest, t.rest.Key, e, t.rest.Description)
	// the leftover keys live directly under e in the input
	r.path = e.path
	e.addChild(r)
}

func (e *Entry) evaluate() {
	for _, v := range e.typ.validate(e.raw) {
		e.issues = append(e.issues, Issue{
			Key:     e.key,
			Path:    e.path,
			Code:    v.Code,
			Message: v.Message,
			Params:  v.Params,
		})
	}
}
