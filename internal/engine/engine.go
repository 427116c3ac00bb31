// Package engine turns streams of JSON-like tokens into ciskema values and
// enforces decoding limits on the way.
package engine

import (
	"errors"
	"fmt"
	"io"

	ciskema "github.com/reoring/ciskema"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// DecodeValue reads exactly one value from src. Map key order follows the
// input; a repeated key keeps its first position and its last value. null
// decodes to an absent value.
func DecodeValue(src TokenSource) (ciskema.Value, error) {
	tok, err := src.NextToken()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ciskema.Absent(), nil
		}
		return ciskema.Value{}, err
	}
	v, err := decodeValue(src, tok)
	if err != nil {
		return ciskema.Value{}, err
	}
	if extra, err := src.NextToken(); err == nil {
		return ciskema.Value{}, IssueError{SimpleIssue{Code: ciskema.CodeParseError, Path: "/", Message: fmt.Sprintf("unexpected trailing data at offset %d", extra.Offset)}}
	} else if !errors.Is(err, io.EOF) {
		return ciskema.Value{}, err
	}
	return v, nil
}

func decodeValue(src TokenSource, tok Token) (ciskema.Value, error) {
	switch tok.Kind {
	case KindBeginObject:
		return decodeObject(src)
	case KindBeginArray:
		return decodeArray(src)
	case KindString:
		return ciskema.Str(tok.String), nil
	case KindNumber:
		return ciskema.Num(tok.Number), nil
	case KindBool:
		return ciskema.Bool(tok.Bool), nil
	case KindNull:
		return ciskema.Absent(), nil
	default:
		return ciskema.Value{}, io.ErrUnexpectedEOF
	}
}

func decodeObject(src TokenSource) (ciskema.Value, error) {
	m := ciskema.NewMap()
	for {
		tok, err := src.NextToken()
		if err != nil {
			return ciskema.Value{}, unexpectedEOF(err)
		}
		if tok.Kind == KindEndObject {
			return m.Value(), nil
		}
		if tok.Kind != KindKey {
			return ciskema.Value{}, io.ErrUnexpectedEOF
		}
		vt, err := src.NextToken()
		if err != nil {
			return ciskema.Value{}, unexpectedEOF(err)
		}
		v, err := decodeValue(src, vt)
		if err != nil {
			return ciskema.Value{}, err
		}
		m.Set(tok.String, v)
	}
}

func decodeArray(src TokenSource) (ciskema.Value, error) {
	var arr []ciskema.Value
	for {
		tok, err := src.NextToken()
		if err != nil {
			return ciskema.Value{}, unexpectedEOF(err)
		}
		if tok.Kind == KindEndArray {
			return ciskema.Seq(arr...), nil
		}
		v, err := decodeValue(src, tok)
		if err != nil {
			return ciskema.Value{}, err
		}
		arr = append(arr, v)
	}
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ToIssues converts a decoding error into Issues. Enforcement failures keep
// their code and path; anything else becomes a parse error at the root.
func ToIssues(err error) ciskema.Issues {
	if err == nil {
		return nil
	}
	if ii, ok := ciskema.AsIssues(err); ok {
		return ii
	}
	var ie IssueError
	if errors.As(err, &ie) {
		return ciskema.AppendIssues(nil, ie.Issue())
	}
	return ciskema.AppendIssues(nil, ciskema.Issue{Path: "/", Code: ciskema.CodeParseError, Message: err.Error()})
}
