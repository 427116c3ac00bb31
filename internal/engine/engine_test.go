package engine

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	ciskema "github.com/reoring/ciskema"
)

type sliceSource struct {
	toks []Token
	i    int
}

func (s *sliceSource) NextToken() (Token, error) {
	if s.i >= len(s.toks) {
		return Token{}, io.EOF
	}
	t := s.toks[s.i]
	s.i++
	return t, nil
}

func (s *sliceSource) Location() int64 {
	if s.i == 0 {
		return 0
	}
	return s.toks[s.i-1].Offset
}

func obj() Token           { return Token{Kind: KindBeginObject} }
func endObj() Token        { return Token{Kind: KindEndObject} }
func arr() Token           { return Token{Kind: KindBeginArray} }
func endArr() Token        { return Token{Kind: KindEndArray} }
func key(s string) Token   { return Token{Kind: KindKey, String: s} }
func str(s string) Token   { return Token{Kind: KindString, String: s} }
func num(s string) Token   { return Token{Kind: KindNumber, Number: s} }
func null() Token          { return Token{Kind: KindNull} }
func boolean(b bool) Token { return Token{Kind: KindBool, Bool: b} }

func TestDecodeValue(t *testing.T) {
	src := &sliceSource{toks: []Token{
		obj(),
		key("z"), num("1"),
		key("a"), arr(), str("x"), boolean(true), null(), endArr(),
		key("z"), num("2"),
		key("n"), null(),
		endObj(),
	}}
	v, err := DecodeValue(src)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if d := cmp.Diff([]string{"z", "a", "n"}, v.Keys()); d != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", d)
	}
	if n, _ := v.Get("z").AsNumber(); n != "2" {
		t.Fatalf("repeated key keeps the last value, got %v", n)
	}
	if !v.Has("n") || !v.Get("n").IsAbsent() {
		t.Fatalf("null should decode to a present absent value")
	}
	if v.Get("a").Len() != 3 {
		t.Fatalf("array length = %d", v.Get("a").Len())
	}
}

func TestDecodeValue_Errors(t *testing.T) {
	v, err := DecodeValue(&sliceSource{})
	if err != nil || !v.IsAbsent() {
		t.Fatalf("empty input = %v, %v", v, err)
	}

	_, err = DecodeValue(&sliceSource{toks: []Token{obj(), key("a"), str("x")}})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("truncated object: %v", err)
	}

	_, err = DecodeValue(&sliceSource{toks: []Token{str("a"), Token{Kind: KindString, String: "b", Offset: 4}}})
	iss := ToIssues(err)
	if len(iss) != 1 || iss[0].Code != ciskema.CodeParseError || iss[0].Path != "/" {
		t.Fatalf("trailing data: %v", iss)
	}
}

func TestEnforcement_DuplicateKey(t *testing.T) {
	toks := func() *sliceSource {
		return &sliceSource{toks: []Token{
			obj(), key("a"), obj(), key("b"), num("1"), key("b"), num("2"), endObj(), endObj(),
		}}
	}

	_, err := DecodeValue(WrapWithEnforcement(toks(), EnforceOptions{OnDuplicate: DupError}))
	iss := ToIssues(err)
	want := ciskema.Issue{Key: "b", Path: "/a/b", Code: ciskema.CodeDuplicateKey, Message: "key 'b' duplicated"}
	if len(iss) != 1 {
		t.Fatalf("expected one issue, got %v", iss)
	}
	if d := cmp.Diff(want, iss[0]); d != "" {
		t.Fatalf("issue mismatch (-want +got):\n%s", d)
	}

	var warned []ciskema.Issue
	opt := OptionsFrom(ciskema.ParseOpt{
		Strictness: ciskema.Strictness{OnDuplicateKey: ciskema.Warn},
		Warn:       func(it ciskema.Issue) { warned = append(warned, it) },
	})
	v, err := DecodeValue(WrapWithEnforcement(toks(), opt))
	if err != nil {
		t.Fatalf("warn mode should not fail: %v", err)
	}
	if n, _ := v.Get("a").Get("b").AsNumber(); n != "2" {
		t.Fatalf("last value wins, got %v", n)
	}
	if len(warned) != 1 || warned[0].Path != "/a/b" {
		t.Fatalf("warnings = %v", warned)
	}

	if _, err := DecodeValue(WrapWithEnforcement(toks(), EnforceOptions{})); err != nil {
		t.Fatalf("ignore mode should not fail: %v", err)
	}
}

func TestEnforcement_DuplicateInArrayElementsIsScoped(t *testing.T) {
	src := &sliceSource{toks: []Token{
		arr(), obj(), key("a"), num("1"), endObj(), obj(), key("a"), num("2"), endObj(), endArr(),
	}}
	if _, err := DecodeValue(WrapWithEnforcement(src, EnforceOptions{OnDuplicate: DupError})); err != nil {
		t.Fatalf("sibling objects may reuse keys: %v", err)
	}
}

func TestEnforcement_MaxDepth(t *testing.T) {
	src := &sliceSource{toks: []Token{
		obj(), key("a"), arr(), obj(), endObj(), endArr(), endObj(),
	}}
	_, err := DecodeValue(WrapWithEnforcement(src, EnforceOptions{MaxDepth: 2}))
	iss := ToIssues(err)
	if len(iss) != 1 || iss[0].Code != ciskema.CodeParseError || iss[0].Path != "/a/0" {
		t.Fatalf("depth issue = %v", iss)
	}
}

func TestEnforcement_MaxBytes(t *testing.T) {
	src := &sliceSource{toks: []Token{
		{Kind: KindBeginObject, Offset: 1},
		{Kind: KindKey, String: "a", Offset: 5},
		{Kind: KindString, String: "long", Offset: 40},
		{Kind: KindEndObject, Offset: 41},
	}}
	_, err := DecodeValue(WrapWithEnforcement(src, EnforceOptions{MaxBytes: 10}))
	iss := ToIssues(err)
	if len(iss) != 1 || iss[0].Code != ciskema.CodeTruncated || iss[0].Path != "/a" {
		t.Fatalf("truncation issue = %v", iss)
	}
}

func TestSimpleIssue_KeyUnescapesPointer(t *testing.T) {
	it := SimpleIssue{Code: ciskema.CodeDuplicateKey, Path: "/jobs/a~1b"}.Issue()
	if it.Key != "a/b" {
		t.Fatalf("key = %q", it.Key)
	}
	if root := (SimpleIssue{Path: "/"}).Issue(); root.Key != "" {
		t.Fatalf("root key = %q", root.Key)
	}
}

func TestToIssues_PlainError(t *testing.T) {
	iss := ToIssues(errors.New("bad token"))
	if len(iss) != 1 || iss[0].Message != "bad token" || iss[0].Path != "/" {
		t.Fatalf("issues = %v", iss)
	}
	if ToIssues(nil) != nil {
		t.Fatalf("nil error has no issues")
	}
}
