// Package jsonsrc decodes JSON documents with goccy/go-json into ciskema
// values, keeping object key order and enforcing ParseOpt limits.
package jsonsrc

import (
	"bytes"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	ciskema "github.com/reoring/ciskema"
	eng "github.com/reoring/ciskema/internal/engine"
)

// Bytes returns a Source over data using ciskema.DefaultParseOpt.
func Bytes(data []byte) ciskema.Source { return WithOptions(data, ciskema.DefaultParseOpt()) }

// WithOptions returns a Source over data using opt.
func WithOptions(data []byte, opt ciskema.ParseOpt) ciskema.Source {
	return &document{r: bytes.NewReader(data), size: int64(len(data)), opt: opt}
}

// Reader returns a Source that streams from r.
func Reader(r io.Reader, opt ciskema.ParseOpt) ciskema.Source {
	return &document{r: r, size: -1, opt: opt}
}

type document struct {
	r    io.Reader
	size int64
	opt  ciskema.ParseOpt
}

func (d *document) Format() string { return "json" }

func (d *document) Value() (ciskema.Value, error) {
	if d.opt.MaxBytes > 0 && d.size > d.opt.MaxBytes {
		return ciskema.Value{}, ciskema.AppendIssues(nil, ciskema.Issue{Path: "/", Code: ciskema.CodeTruncated, Message: "max bytes exceeded"})
	}
	src := eng.WrapWithEnforcement(NewTokenSource(d.r), eng.OptionsFrom(d.opt))
	v, err := eng.DecodeValue(src)
	if err != nil {
		return ciskema.Value{}, eng.ToIssues(err)
	}
	return v, nil
}

// ---- engine.TokenSource implementation using go-json Decoder ----

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

type source struct {
	dec   *j.Decoder
	stack []frame
}

// NewTokenSource wraps r into an engine.TokenSource. Numbers keep their
// textual form.
func NewTokenSource(r io.Reader) eng.TokenSource {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &source{dec: dec}
}

// valueDone flips an enclosing object back to expecting a key.
func (s *source) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

func (s *source) NextToken() (eng.Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		return eng.Token{}, err
	}
	off := s.Location()
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return eng.Token{Kind: eng.KindBeginObject, Offset: off}, nil
		case '}':
			if n := len(s.stack); n > 0 {
				s.stack = s.stack[:n-1]
			}
			s.valueDone()
			return eng.Token{Kind: eng.KindEndObject, Offset: off}, nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return eng.Token{Kind: eng.KindBeginArray, Offset: off}, nil
		case ']':
			if n := len(s.stack); n > 0 {
				s.stack = s.stack[:n-1]
			}
			s.valueDone()
			return eng.Token{Kind: eng.KindEndArray, Offset: off}, nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				return eng.Token{Kind: eng.KindKey, String: v, Offset: off}, nil
			}
		}
		s.valueDone()
		return eng.Token{Kind: eng.KindString, String: v, Offset: off}, nil
	case bool:
		s.valueDone()
		return eng.Token{Kind: eng.KindBool, Bool: v, Offset: off}, nil
	case j.Number:
		s.valueDone()
		return eng.Token{Kind: eng.KindNumber, Number: string(v), Offset: off}, nil
	case float64:
		s.valueDone()
		return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: off}, nil
	}
	s.valueDone()
	return eng.Token{Kind: eng.KindNull, Offset: off}, nil
}

func (s *source) Location() int64 { return s.dec.InputOffset() }
