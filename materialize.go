package ciskema

import "strings"

// materialize converts an entry into its semantic value:
//
//	scalar                string, bool or json.Number
//	string list           []string, or one "\n"-joined string of trimmed lines
//	string-or-regex list  []string with "/.../" delimiters removed
//	key/value map         map[string]string
//	composite/collection  map[string]any of relevant children
//	sentinel              nil
//
// Invalid raw values materialize to the closest neutral value of the shape
// instead of failing.
func materialize(e *Entry) any {
	switch e.typ.shape {
	case ShapeScalar:
		if !e.raw.IsScalar() {
			return nil
		}
		return e.raw.Interface()
	case ShapeStringList:
		elems := stringElems(e.raw)
		if e.typ.join == JoinNewline {
			lines := make([]string, len(elems))
			for i, s := range elems {
				lines[i] = strings.TrimSpace(s)
			}
			return strings.Join(lines, "\n")
		}
		if elems == nil {
			elems = []string{}
		}
		return elems
	case ShapeStringOrRegexList:
		elems := stringElems(e.raw)
		out := make([]string, len(elems))
		for i, s := range elems {
			if body, ok := regexLiteral(s); ok {
				s = body
			}
			out[i] = s
		}
		return out
	case ShapeKeyValueMap:
		out := make(map[string]string, e.raw.Len())
		for _, k := range e.raw.Keys() {
			if s, ok := e.raw.Get(k).AsString(); ok {
				out[k] = s
			}
		}
		return out
	case ShapeComposite, ShapeCollection:
		out := make(map[string]any, len(e.childKeys))
		for _, k := range e.childKeys {
			if c := e.children[k]; c.Relevant() {
				out[k] = materialize(c)
			}
		}
		return out
	default:
		return nil
	}
}
