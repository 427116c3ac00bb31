// Package yamlsrc decodes YAML documents into ciskema values through
// yaml.Node, so key order and key positions survive decoding.
package yamlsrc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	ciskema "github.com/reoring/ciskema"
)

// DuplicateKeyError reports a duplicate key found in a YAML mapping with both
// the first occurrence position and the duplicate occurrence position.
type DuplicateKeyError struct {
	Key       string
	Path      string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// Bytes returns a Source over data using ciskema.DefaultParseOpt.
func Bytes(data []byte) ciskema.Source { return WithOptions(data, ciskema.DefaultParseOpt()) }

// WithOptions returns a Source over data using opt.
func WithOptions(data []byte, opt ciskema.ParseOpt) ciskema.Source {
	return &document{data: data, opt: opt}
}

// Reader reads r fully and returns a Source over its content. Reading stops
// one byte past opt.MaxBytes when a limit is set.
func Reader(r io.Reader, opt ciskema.ParseOpt) (ciskema.Source, error) {
	if opt.MaxBytes > 0 {
		r = io.LimitReader(r, opt.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read yaml: %w", err)
	}
	return WithOptions(data, opt), nil
}

type document struct {
	data []byte
	opt  ciskema.ParseOpt
}

func (d *document) Format() string { return "yaml" }

// Value decodes the first document of the stream. Further documents are
// rejected since a pipeline definition is a single mapping.
func (d *document) Value() (ciskema.Value, error) {
	if d.opt.MaxBytes > 0 && int64(len(d.data)) > d.opt.MaxBytes {
		return ciskema.Value{}, issue("/", ciskema.CodeTruncated, "max bytes exceeded")
	}
	dec := yaml.NewDecoder(bytes.NewReader(d.data))
	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return ciskema.Absent(), nil
		}
		return ciskema.Value{}, issue("/", ciskema.CodeParseError, err.Error())
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return ciskema.Value{}, issue("/", ciskema.CodeParseError, fmt.Sprintf("unexpected second document at line %d", extra.Line))
	} else if !errors.Is(err, io.EOF) {
		return ciskema.Value{}, issue("/", ciskema.CodeParseError, err.Error())
	}
	c := converter{opt: d.opt}
	v, err := c.node(&root, "", 0)
	if err != nil {
		var de *DuplicateKeyError
		if errors.As(err, &de) {
			return ciskema.Value{}, ciskema.AppendIssues(nil, ciskema.Issue{
				Key: de.Key, Path: de.Path, Code: ciskema.CodeDuplicateKey, Message: de.Error(),
			})
		}
		return ciskema.Value{}, err
	}
	return v, nil
}

type converter struct {
	opt ciskema.ParseOpt
}

func (c converter) node(n *yaml.Node, path string, depth int) (ciskema.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return ciskema.Absent(), nil
		}
		return c.node(n.Content[0], path, depth)
	case yaml.AliasNode:
		if n.Alias == nil {
			return ciskema.Absent(), nil
		}
		// aliases count as nesting so self-referencing anchors stop at MaxDepth
		return c.node(n.Alias, path, depth+1)
	case yaml.MappingNode:
		if err := c.checkDepth(path, depth+1); err != nil {
			return ciskema.Value{}, err
		}
		return c.mapping(n, path, depth+1)
	case yaml.SequenceNode:
		if err := c.checkDepth(path, depth+1); err != nil {
			return ciskema.Value{}, err
		}
		elems := make([]ciskema.Value, 0, len(n.Content))
		for i, e := range n.Content {
			v, err := c.node(e, path+"/"+strconv.Itoa(i), depth+1)
			if err != nil {
				return ciskema.Value{}, err
			}
			elems = append(elems, v)
		}
		return ciskema.Seq(elems...), nil
	case yaml.ScalarNode:
		return scalar(n), nil
	default:
		return ciskema.Absent(), nil
	}
}

func (c converter) checkDepth(path string, depth int) error {
	if c.opt.MaxDepth > 0 && depth > c.opt.MaxDepth {
		if path == "" {
			path = "/"
		}
		return issue(path, ciskema.CodeParseError, "max depth exceeded")
	}
	return nil
}

// mapping converts a YAML mapping. Keys written explicitly win over keys
// pulled in through "<<" merges, wherever the merge appears.
func (c converter) mapping(n *yaml.Node, path string, depth int) (ciskema.Value, error) {
	explicit := make(map[string][2]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if isMerge(k) {
			continue
		}
		if pos, dup := explicit[k.Value]; dup {
			de := &DuplicateKeyError{Key: k.Value, Path: path + "/" + escape(k.Value), FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
			switch c.opt.Strictness.OnDuplicateKey {
			case ciskema.Error:
				return ciskema.Value{}, de
			case ciskema.Warn:
				if c.opt.Warn != nil {
					c.opt.Warn(ciskema.Issue{Key: de.Key, Path: de.Path, Code: ciskema.CodeDuplicateKey, Message: de.Error()})
				}
			}
			continue
		}
		explicit[k.Value] = [2]int{k.Line, k.Column}
	}

	m := ciskema.NewMap()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if isMerge(k) {
			if err := c.merge(m, v, explicit, path, depth); err != nil {
				return ciskema.Value{}, err
			}
			continue
		}
		cv, err := c.node(v, path+"/"+escape(k.Value), depth)
		if err != nil {
			return ciskema.Value{}, err
		}
		m.Set(k.Value, cv)
	}
	return m.Value(), nil
}

func (c converter) merge(m *ciskema.MapBuilder, src *yaml.Node, explicit map[string][2]int, path string, depth int) error {
	mv, err := c.node(src, path, depth)
	if err != nil {
		return err
	}
	sources := []ciskema.Value{mv}
	if mv.Kind() == ciskema.KindSequence {
		sources = mv.Elems()
	}
	for _, s := range sources {
		if s.Kind() != ciskema.KindMap {
			return issue(path, ciskema.CodeParseError, "merge key value must be a mapping or a list of mappings")
		}
		for _, k := range s.Keys() {
			if _, ok := explicit[k]; ok || m.Has(k) {
				continue
			}
			m.Set(k, s.Get(k))
		}
	}
	return nil
}

func isMerge(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

func scalar(n *yaml.Node) ciskema.Value {
	switch n.ShortTag() {
	case "!!null":
		return ciskema.Absent()
	case "!!bool":
		switch strings.ToLower(n.Value) {
		case "true":
			return ciskema.Bool(true)
		case "false":
			return ciskema.Bool(false)
		}
		return ciskema.Str(n.Value)
	case "!!int":
		if i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64); err == nil {
			return ciskema.Int(i)
		}
		// beyond int64
		if bi, ok := new(big.Int).SetString(strings.ReplaceAll(n.Value, "_", ""), 0); ok {
			return ciskema.Num(bi.String())
		}
		return ciskema.Str(n.Value)
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return ciskema.Str(n.Value)
		}
		return ciskema.Num(strconv.FormatFloat(f, 'g', -1, 64))
	default:
		return ciskema.Str(n.Value)
	}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escape(s string) string { return pointerEscaper.Replace(s) }

func issue(path, code, msg string) ciskema.Issues {
	key := ""
	if i := strings.LastIndexByte(path, '/'); i >= 0 && i < len(path)-1 {
		key = path[i+1:]
	}
	return ciskema.AppendIssues(nil, ciskema.Issue{Key: key, Path: path, Code: code, Message: msg})
}
