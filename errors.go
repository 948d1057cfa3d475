package jetdb

import "github.com/pkg/errors"

// corruption
var (
	ErrNotJet           = errors.New("not a jet database file")
	ErrShortPage        = errors.New("short page read")
	ErrOutOfBounds      = errors.New("extent outside page buffer")
	ErrCorruptChain     = errors.New("long value chain exceeds hop limit")
	ErrUnknownLongValue = errors.New("unhandled long value flags")
	ErrBadTableDef      = errors.New("malformed table definition")
)

// usage
var (
	ErrClosed          = errors.New("database closed")
	ErrTableNotFound   = errors.New("table not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrBadColumnNumber = errors.New("column number out of range")
	ErrNotLongValue    = errors.New("column is not a memo or ole column")
	ErrNoCurrentRow    = errors.New("no current row")
	ErrParse           = errors.New("parse error")
	ErrBadLiteral      = errors.New("bad literal")
	ErrWriteByOther    = errors.New("db locked exclusively by another process")
)

// IsCorrupt reports whether err stems from malformed file content rather
// than from misuse of the API.
func IsCorrupt(err error) bool {
	for _, target := range []error{ErrNotJet, ErrShortPage, ErrOutOfBounds,
		ErrCorruptChain, ErrUnknownLongValue, ErrBadTableDef} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
