// Package hclsrc reads pipeline definitions written in HCL native syntax.
// Top-level attributes become root keys. Unlabelled blocks become nested
// maps, so
//
//	stages = ["build", "test"]
//	rspec {
//	  script = ["bundle exec rspec"]
//	}
//
// is equivalent to the YAML mapping with "stages" and "rspec" keys. Object
// constructor expressions keep their written key order. Expressions are
// evaluated without variables or functions.
//
// Repeated blocks and repeated object keys follow
// ParseOpt.Strictness.OnDuplicateKey, the later value winning when they are
// tolerated. A repeated attribute is always a syntax error of HCL itself.
package hclsrc

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	ciskema "github.com/reoring/ciskema"
)

// Bytes returns a Source over data using ciskema.DefaultParseOpt. filename
// only labels diagnostics.
func Bytes(filename string, data []byte) ciskema.Source {
	return WithOptions(filename, data, ciskema.DefaultParseOpt())
}

// WithOptions returns a Source over data using opt.
func WithOptions(filename string, data []byte, opt ciskema.ParseOpt) ciskema.Source {
	return &document{filename: filename, data: data, opt: opt}
}

type document struct {
	filename string
	data     []byte
	opt      ciskema.ParseOpt
}

func (d *document) Format() string { return "hcl" }

func (d *document) Value() (ciskema.Value, error) {
	if d.opt.MaxBytes > 0 && int64(len(d.data)) > d.opt.MaxBytes {
		return ciskema.Value{}, ciskema.AppendIssues(nil, ciskema.Issue{Path: "/", Code: ciskema.CodeTruncated, Message: "max bytes exceeded"})
	}
	file, diags := hclsyntax.ParseConfig(d.data, d.filename, hcl.InitialPos)
	if diags.HasErrors() {
		return ciskema.Value{}, diagIssues("", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return ciskema.Value{}, ciskema.AppendIssues(nil, ciskema.Issue{Path: "/", Code: ciskema.CodeParseError, Message: "unsupported HCL body"})
	}
	if len(body.Attributes) == 0 && len(body.Blocks) == 0 {
		return ciskema.Absent(), nil
	}
	c := converter{opt: d.opt}
	return c.body(body, "", 1)
}

type converter struct {
	opt ciskema.ParseOpt
}

// duplicate applies the duplicate-key strictness to a repeated name. When it
// returns nil the later value replaces the earlier one.
func (c converter) duplicate(path, key string) error {
	msg := fmt.Sprintf("duplicate key %q", key)
	switch c.opt.Strictness.OnDuplicateKey {
	case ciskema.Error:
		return issue(path, ciskema.CodeDuplicateKey, msg)
	case ciskema.Warn:
		if c.opt.Warn != nil {
			c.opt.Warn(ciskema.Issue{Key: key, Path: path, Code: ciskema.CodeDuplicateKey, Message: msg})
		}
	}
	return nil
}

// member is an attribute or block in source order.
type member struct {
	name  string
	start int
	attr  *hclsyntax.Attribute
	block *hclsyntax.Block
}

func (c converter) body(b *hclsyntax.Body, path string, depth int) (ciskema.Value, error) {
	if err := c.checkDepth(path, depth); err != nil {
		return ciskema.Value{}, err
	}
	members := make([]member, 0, len(b.Attributes)+len(b.Blocks))
	for name, a := range b.Attributes {
		members = append(members, member{name: name, start: a.SrcRange.Start.Byte, attr: a})
	}
	for _, blk := range b.Blocks {
		members = append(members, member{name: blk.Type, start: blk.TypeRange.Start.Byte, block: blk})
	}
	slices.SortFunc(members, func(a, b member) int { return a.start - b.start })

	m := ciskema.NewMap()
	for _, mb := range members {
		p := path + "/" + escape(mb.name)
		if m.Has(mb.name) {
			if err := c.duplicate(p, mb.name); err != nil {
				return ciskema.Value{}, err
			}
		}
		var (
			v   ciskema.Value
			err error
		)
		if mb.attr != nil {
			v, err = c.expr(mb.attr.Expr, p, depth)
		} else {
			if len(mb.block.Labels) > 0 {
				return ciskema.Value{}, issue(p, ciskema.CodeParseError, fmt.Sprintf("block %q must not have labels", mb.name))
			}
			v, err = c.body(mb.block.Body, p, depth+1)
		}
		if err != nil {
			return ciskema.Value{}, err
		}
		m.Set(mb.name, v)
	}
	return m.Value(), nil
}

func (c converter) expr(e hclsyntax.Expression, path string, depth int) (ciskema.Value, error) {
	switch t := e.(type) {
	case *hclsyntax.ObjectConsExpr:
		if err := c.checkDepth(path, depth+1); err != nil {
			return ciskema.Value{}, err
		}
		m := ciskema.NewMap()
		for _, item := range t.Items {
			kv, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() {
				return ciskema.Value{}, diagIssues(path, diags)
			}
			if kv.IsNull() || !kv.IsKnown() || kv.Type() != cty.String {
				return ciskema.Value{}, issue(path, ciskema.CodeParseError, "object keys must be strings")
			}
			key := kv.AsString()
			p := path + "/" + escape(key)
			if m.Has(key) {
				if err := c.duplicate(p, key); err != nil {
					return ciskema.Value{}, err
				}
			}
			v, err := c.expr(item.ValueExpr, p, depth+1)
			if err != nil {
				return ciskema.Value{}, err
			}
			m.Set(key, v)
		}
		return m.Value(), nil
	case *hclsyntax.TupleConsExpr:
		if err := c.checkDepth(path, depth+1); err != nil {
			return ciskema.Value{}, err
		}
		elems := make([]ciskema.Value, 0, len(t.Exprs))
		for i, x := range t.Exprs {
			v, err := c.expr(x, fmt.Sprintf("%s/%d", path, i), depth+1)
			if err != nil {
				return ciskema.Value{}, err
			}
			elems = append(elems, v)
		}
		return ciskema.Seq(elems...), nil
	}
	cv, diags := e.Value(nil)
	if diags.HasErrors() {
		return ciskema.Value{}, diagIssues(path, diags)
	}
	return c.fromCty(cv, path, depth)
}

// fromCty converts an evaluated value. Object and map elements come out in
// lexical key order since cty does not keep the written order.
func (c converter) fromCty(v cty.Value, path string, depth int) (ciskema.Value, error) {
	if v.IsNull() {
		return ciskema.Absent(), nil
	}
	if !v.IsWhollyKnown() {
		return ciskema.Value{}, issue(path, ciskema.CodeParseError, "value is not known without variables")
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return ciskema.Str(v.AsString()), nil
	case ty == cty.Bool:
		return ciskema.Bool(v.True()), nil
	case ty == cty.Number:
		return ciskema.Num(numberText(v.AsBigFloat())), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		if err := c.checkDepth(path, depth+1); err != nil {
			return ciskema.Value{}, err
		}
		var elems []ciskema.Value
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, ev := it.Element()
			cv, err := c.fromCty(ev, fmt.Sprintf("%s/%d", path, i), depth+1)
			if err != nil {
				return ciskema.Value{}, err
			}
			elems = append(elems, cv)
		}
		return ciskema.Seq(elems...), nil
	case ty.IsObjectType() || ty.IsMapType():
		if err := c.checkDepth(path, depth+1); err != nil {
			return ciskema.Value{}, err
		}
		m := ciskema.NewMap()
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			key := k.AsString()
			cv, err := c.fromCty(ev, path+"/"+escape(key), depth+1)
			if err != nil {
				return ciskema.Value{}, err
			}
			m.Set(key, cv)
		}
		return m.Value(), nil
	default:
		return ciskema.Value{}, issue(path, ciskema.CodeParseError, "unsupported value type "+ty.FriendlyName())
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

func numberText(f *big.Float) string {
	if f.IsInt() {
		if i, acc := f.Int(nil); acc == big.Exact {
			return i.String()
		}
	}
	return f.Text('g', -1)
}

func diagIssues(path string, diags hcl.Diagnostics) ciskema.Issues {
	if path == "" {
		path = "/"
	}
	var out ciskema.Issues
	for _, d := range diags.Errs() {
		out = ciskema.AppendIssues(out, ciskema.Issue{Key: lastToken(path), Path: path, Code: ciskema.CodeParseError, Message: d.Error()})
	}
	return out
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escape(s string) string { return pointerEscaper.Replace(s) }

func lastToken(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 && i < len(path)-1 {
		return path[i+1:]
	}
	return ""
}

func issue(path, code, msg string) ciskema.Issues {
	return ciskema.AppendIssues(nil, ciskema.Issue{Key: lastToken(path), Path: path, Code: code, Message: msg})
}
