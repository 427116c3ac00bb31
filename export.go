package ciskema

import (
	"regexp"

	"github.com/reoring/ciskema/jsonschema"
)

// JSONSchema projects the registry's root type onto a JSON Schema document.
// Rules are opaque functions and are not represented; shapes, defaults and
// descriptions are.
func (r *Registry) JSONSchema() *jsonschema.Schema {
	s := schemaOf(r.root, map[*NodeType]bool{})
	s.Dialect = jsonschema.Draft
	s.Title = r.root.name
	return s
}

func schemaOf(t *NodeType, visiting map[*NodeType]bool) *jsonschema.Schema {
	if visiting[t] {
		return jsonschema.Of("object")
	}
	visiting[t] = true
	defer delete(visiting, t)

	var s *jsonschema.Schema
	switch t.shape {
	case ShapeScalar:
		switch t.scalar {
		case ScalarString:
			s = jsonschema.Of("string")
		case ScalarBool:
			s = jsonschema.Of("boolean")
		case ScalarNumber:
			s = jsonschema.Of("number")
		default:
			s = &jsonschema.Schema{OneOf: []*jsonschema.Schema{
				jsonschema.Of("string"), jsonschema.Of("boolean"), jsonschema.Of("number"),
			}}
		}
	case ShapeStringList, ShapeStringOrRegexList:
		s = jsonschema.StringOrArray()
	case ShapeKeyValueMap:
		s = &jsonschema.Schema{Type: "object", AdditionalProperties: jsonschema.Of("string")}
	case ShapeComposite:
		s = &jsonschema.Schema{Type: "object", Properties: make(map[string]*jsonschema.Schema, len(t.children))}
		for _, c := range t.children {
			cs := schemaOf(c.Type, visiting)
			if cs.Description == "" {
				cs.Description = c.Description
			}
			s.Properties[c.Key] = cs
		}
		switch {
		case t.strict:
			s.AdditionalProperties = false
		case t.rest != nil && t.rest.Type.shape == ShapeCollection:
			membersInto(s, t.rest.Type, visiting)
		case t.rest != nil:
			s.AdditionalProperties = schemaOf(t.rest.Type, visiting)
		}
	case ShapeCollection:
		s = jsonschema.Of("object")
		membersInto(s, t, visiting)
	default:
		s = &jsonschema.Schema{}
	}
	if s.Description == "" {
		s.Description = t.description
	}
	if d, ok := t.def.Get(); ok {
		s.Default = d.Interface()
	}
	return s
}

// membersInto describes collection members: hidden names through a pattern
// property and every other name through additionalProperties.
func membersInto(s *jsonschema.Schema, coll *NodeType, visiting map[*NodeType]bool) {
	if coll.hiddenPrefix != "" {
		s.PatternProperties = map[string]*jsonschema.Schema{
			"^" + regexp.QuoteMeta(coll.hiddenPrefix): schemaOf(coll.hidden, visiting),
		}
	}
	s.AdditionalProperties = schemaOf(coll.visible, visiting)
}
