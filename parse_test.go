package ciskema_test

import (
	"context"
	"errors"
	"testing"

	ciskema "github.com/reoring/ciskema"
)

type failingSource struct{ err error }

func (s failingSource) Value() (ciskema.Value, error) { return ciskema.Value{}, s.err }
func (failingSource) Format() string                  { return "test" }

func TestParseFrom_ValidatesDecodedValue(t *testing.T) {
	reg := testRegistry(t)
	src := ciskema.ValueSource(ciskema.MustFromAny(map[string]any{"name": "n"}))
	res, err := ciskema.ParseFrom(context.Background(), reg, src)
	if err != nil {
		t.Fatalf("ParseFrom: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("unexpected issues: %v", res.Errors())
	}
	if got, _ := res.SemanticValue("name"); got != "n" {
		t.Fatalf("name = %v", got)
	}
}

func TestParseFrom_Errors(t *testing.T) {
	reg := testRegistry(t)
	ok := ciskema.ValueSource(ciskema.Absent())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ciskema.ParseFrom(canceled, reg, ok); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	_, err := ciskema.ParseFrom(context.Background(), nil, ok)
	iss, isIssues := ciskema.AsIssues(err)
	if !isIssues || iss[0].Code != ciskema.CodeParseError {
		t.Fatalf("nil registry: %v", err)
	}

	_, err = ciskema.ParseFrom(context.Background(), reg, nil)
	if _, isIssues := ciskema.AsIssues(err); !isIssues {
		t.Fatalf("nil source: %v", err)
	}

	_, err = ciskema.ParseFrom(context.Background(), reg, failingSource{errors.New("boom")})
	iss, isIssues = ciskema.AsIssues(err)
	if !isIssues || len(iss) != 1 || iss[0].Message != "boom" || iss[0].Path != "/" {
		t.Fatalf("plain decode error should become one parse issue, got %v", err)
	}

	dup := ciskema.Issues{{Code: ciskema.CodeDuplicateKey, Path: "/a", Key: "a"}}
	_, err = ciskema.ParseFrom(context.Background(), reg, failingSource{dup})
	iss, _ = ciskema.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != ciskema.CodeDuplicateKey {
		t.Fatalf("source issues should pass through, got %v", err)
	}
}
