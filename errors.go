package ciskema

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType   = "invalid_type"
	CodeUnknownKey    = "unknown_key"
	CodeInvalidFormat = "invalid_format"
	CodeInvalidEnum   = "invalid_enum"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeBlank         = "blank"
	CodeMissingKey    = "missing_key"
	CodeForbiddenKey  = "forbidden_key"
	// Decoding failures reported by sources before validation starts.
	CodeParseError   = "parse_error"
	CodeDuplicateKey = "duplicate_key"
	CodeTruncated    = "truncated"
)

// Category groups issue codes into the error taxonomy.
type Category uint8

const (
	CategoryShape Category = iota
	CategoryUnknownKey
	CategoryFormat
	CategoryConstraint
	CategoryParse
)

func (c Category) String() string {
	switch c {
	case CategoryShape:
		return "ShapeError"
	case CategoryUnknownKey:
		return "UnknownKeyError"
	case CategoryFormat:
		return "FormatError"
	case CategoryConstraint:
		return "ConstraintError"
	default:
		return "ParseError"
	}
}

// CategoryOf maps an issue code to its category. Unknown codes are treated as
// constraint failures since custom rules usually express business limits.
func CategoryOf(code string) Category {
	switch code {
	case CodeInvalidType:
		return CategoryShape
	case CodeUnknownKey, CodeForbiddenKey:
		return CategoryUnknownKey
	case CodeInvalidFormat:
		return CategoryFormat
	case CodeParseError, CodeDuplicateKey, CodeTruncated:
		return CategoryParse
	default:
		return CategoryConstraint
	}
}

// Violation is what a Rule reports: a code and a message. The owning entry
// turns it into an Issue by attaching its key and path.
type Violation struct {
	Code    string
	Message string
	Params  map[string]any
}

// Issue represents a single validation entry.
type Issue struct {
	Key     string // Immediate field name of the reporting node ("" for the root).
	Path    string // JSON Pointer of the reporting node (for example: /jobs/rspec/cache).
	Code    string // One of the codes listed above.
	Message string
	// Params carries structured parameters (e.g., {"keys": "bogus"}) for i18n
	// and tooling.
	Params map[string]any
}

// Category returns the taxonomy bucket of the issue code.
func (it Issue) Category() Category { return CategoryOf(it.Code) }

// RootKey names the document root in formatted issues.
const RootKey = "root"

// Format renders the issue for display as "<key> <message>" with the first
// letter upper-cased. Root issues have no key and are labelled "root".
func (it Issue) Format() string {
	key := it.Key
	if key == "" {
		key = RootKey
	}
	return sentenceCase(key + " " + it.Message)
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Strings formats every issue with Issue.Format, preserving order.
func (iss Issues) Strings() []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Format()
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

func singleIssue(code, msg string) Issues {
	return AppendIssues(nil, Issue{Path: "/", Code: code, Message: msg})
}

func sentenceCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
