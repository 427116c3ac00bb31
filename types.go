package ciskema

// Strictness configures enforcement applied while decoding a document.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn or Error on repeated map keys.
}

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// PresenceOpt filters the paths reported by Result.Presence.
type PresenceOpt struct {
	Include []string
	Exclude []string
}

// ParseOpt bundles decoding options understood by every source driver.
type ParseOpt struct {
	Strictness Strictness
	MaxDepth   int   // 0 disables the nesting limit.
	MaxBytes   int64 // 0 disables the size limit.
	// Warn receives duplicate-key issues when OnDuplicateKey is Warn.
	Warn func(Issue)
}

// DefaultParseOpt rejects duplicate keys and limits nesting to 64 levels.
func DefaultParseOpt() ParseOpt {
	return ParseOpt{
		Strictness: Strictness{OnDuplicateKey: Error},
		MaxDepth:   64,
	}
}
