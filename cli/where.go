package main

import (
	"strings"

	"github.com/pkg/errors"

	"jetdb"
)

// operators in match order; longer spellings first
var condOps = []struct {
	text string
	op   jetdb.Op
}{
	{"is not null", jetdb.OpNotNull},
	{"is null", jetdb.OpIsNull},
	{"like", jetdb.OpLike},
	{">=", jetdb.OpGtEq},
	{"<=", jetdb.OpLtEq},
	{"==", jetdb.OpEqual},
	{"=", jetdb.OpEqual},
	{">", jetdb.OpGt},
	{"<", jetdb.OpLt},
}

// parseCondition splits "column op literal". Null tests take no literal.
func parseCondition(s string) (string, jetdb.Op, string, error) {
	s = strings.TrimSpace(s)
	end := strings.IndexAny(s, " \t=<>")
	if end <= 0 {
		return "", 0, "", errors.Wrapf(jetdb.ErrParse, "condition %q", s)
	}
	col := s[:end]
	rest := strings.TrimSpace(s[end:])
	lower := strings.ToLower(rest)
	for _, c := range condOps {
		if !strings.HasPrefix(lower, c.text) {
			continue
		}
		lit := strings.TrimSpace(rest[len(c.text):])
		if c.op == jetdb.OpIsNull || c.op == jetdb.OpNotNull {
			if lit != "" {
				break
			}
			return col, c.op, "0", nil
		}
		if lit == "" {
			break
		}
		return col, c.op, lit, nil
	}
	return "", 0, "", errors.Wrapf(jetdb.ErrParse, "condition %q", s)
}
