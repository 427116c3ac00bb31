package ciskema

import (
	"strings"
	"weak"
)

// Entry is one instantiated position of the schema tree for a single
// validation run. Entries are owned by their parent; the parent link is weak
// so a subtree never keeps its ancestors alive.
type Entry struct {
	raw         Value
	typ         *NodeType
	key         string
	description string
	parent      weak.Pointer[Entry]
	path        string

	childKeys []string
	children  map[string]*Entry

	issues    Issues
	specified bool
	hidden    bool
	composed  bool
}

// Key returns the immediate key of the entry ("" for the root).
func (e *Entry) Key() string { return e.key }

// Description returns the human description given at placement.
func (e *Entry) Description() string { return e.description }

// Type returns the node type; sentinel entries return SentinelType().
func (e *Entry) Type() *NodeType { return e.typ }

// Raw returns the raw value the entry was built from. For defaulted entries
// this is the default.
func (e *Entry) Raw() Value { return e.raw }

// Parent returns the owning entry, or nil for the root or once the owner has
// been collected.
func (e *Entry) Parent() *Entry { return e.parent.Value() }

// Pointer returns the JSON Pointer of the entry's input location ("/" for
// the root). A rest child shares the pointer of its parent.
func (e *Entry) Pointer() string { return e.path }

// Specified reports whether the input carried an explicit value.
func (e *Entry) Specified() bool { return e.specified }

// Relevant reports whether downstream output should include the entry.
// Sentinels and hidden collection members are never relevant.
func (e *Entry) Relevant() bool {
	return e.typ.shape != ShapeSentinel && !e.hidden
}

// Hidden reports whether the entry is a hidden collection member.
func (e *Entry) Hidden() bool { return e.hidden }

// LocalIssues returns the issues reported by this entry's own rules.
func (e *Entry) LocalIssues() Issues { return e.issues }

// Issues returns this entry's issues followed by every child's, depth-first
// in child order.
func (e *Entry) Issues() Issues {
	var out Issues
	e.walk(func(n *Entry) { out = append(out, n.issues...) })
	return out
}

// Valid reports whether the subtree has no issues.
func (e *Entry) Valid() bool {
	valid := true
	e.walk(func(n *Entry) {
		if len(n.issues) > 0 {
			valid = false
		}
	})
	return valid
}

// ChildKeys returns the child keys in composition order.
func (e *Entry) ChildKeys() []string {
	return append([]string(nil), e.childKeys...)
}

// Child returns the child stored under key. A key that was never composed
// yields a fresh sentinel entry placed under e, so callers can chain lookups
// without nil checks.
func (e *Entry) Child(key string) *Entry {
	if c, ok := e.children[key]; ok {
		return c
	}
	return Fabricate(sentinelType, Absent(), key, e, "")
}

// Lookup follows path from e through Child.
func (e *Entry) Lookup(path ...string) *Entry {
	cur := e
	for _, k := range path {
		cur = cur.Child(k)
	}
	return cur
}

// Value returns the semantic value of the entry.
func (e *Entry) Value() any { return materialize(e) }

func (e *Entry) walk(fn func(*Entry)) {
	fn(e)
	for _, k := range e.childKeys {
		e.children[k].walk(fn)
	}
}

func (e *Entry) addChild(c *Entry) {
	if e.children == nil {
		e.children = make(map[string]*Entry)
	}
	if _, dup := e.children[c.key]; !dup {
		e.childKeys = append(e.childKeys, c.key)
	}
	e.children[c.key] = c
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func childPointer(parent *Entry, key string) string {
	if parent == nil {
		return "/"
	}
	tok := pointerEscaper.Replace(key)
	if parent.path == "/" {
		return "/" + tok
	}
	return parent.path + "/" + tok
}
