package ciskema

import (
	"context"
)

// ParseFrom decodes src and validates the result against reg. Decoding
// failures are returned as Issues and no Result is produced.
func ParseFrom(ctx context.Context, reg *Registry, src Source) (*Result, error) {
	if reg == nil {
		return nil, singleIssue(CodeParseError, "nil registry")
	}
	if src == nil {
		return nil, singleIssue(CodeParseError, "nil source")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := src.Value()
	if err != nil {
		return nil, toIssues(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Validate(reg, v), nil
}

func toIssues(err error) Issues {
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	return singleIssue(CodeParseError, err.Error())
}
