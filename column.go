package jetdb

import "fmt"

type ColType uint8

const (
	ColBool     ColType = 0x01
	ColByte     ColType = 0x02
	ColInt      ColType = 0x03
	ColLongInt  ColType = 0x04
	ColMoney    ColType = 0x05
	ColFloat    ColType = 0x06
	ColDouble   ColType = 0x07
	ColDateTime ColType = 0x08
	ColBinary   ColType = 0x09
	ColText     ColType = 0x0a
	ColOLE      ColType = 0x0b
	ColMemo     ColType = 0x0c
	ColRepID    ColType = 0x0f
	ColNumeric  ColType = 0x10
)

var colTypeNames = map[ColType]string{
	ColBool:     "Boolean",
	ColByte:     "Byte",
	ColInt:      "Integer",
	ColLongInt:  "Long Integer",
	ColMoney:    "Currency",
	ColFloat:    "Single",
	ColDouble:   "Double",
	ColDateTime: "DateTime (Short)",
	ColBinary:   "Binary",
	ColText:     "Text",
	ColOLE:      "OLE",
	ColMemo:     "Memo/Hyperlink",
	ColRepID:    "Replication ID",
	ColNumeric:  "Numeric",
}

func (t ColType) String() string {
	if s, ok := colTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown 0x%02x", uint8(t))
}

// fixedWidth is the number of row bytes a fixed column of type t occupies,
// 0 for booleans and -1 for variable width types.
func (t ColType) fixedWidth() int {
	switch t {
	case ColBool:
		return 0
	case ColByte:
		return 1
	case ColInt:
		return 2
	case ColLongInt, ColFloat:
		return 4
	case ColMoney, ColDouble, ColDateTime:
		return 8
	case ColRepID:
		return 16
	case ColNumeric:
		return 17
	}
	return -1
}

func (t ColType) isLongValue() bool {
	return t == ColMemo || t == ColOLE
}

// Column describes one column of a table. Everything except the bindings is
// read-only once the table is open.
type Column struct {
	Name string
	Type ColType
	Size int

	// Num is the column number stored in the table definition; it indexes
	// the row null mask.
	Num int
	// VarNum indexes the variable column offset table of a row.
	VarNum      int
	FixedOffset int
	IsFixed     bool
	Precision   int
	Scale       int

	index int

	bindValue *string
	bindLen   *int

	sargs []Sarg

	// extent of this column in the last row read
	cur Field
}

// Index returns the 0-based position of the column in its table.
func (c *Column) Index() int {
	return c.index
}

// Sargs returns the indexable predicates attached by MarkIndexable.
func (c *Column) Sargs() []Sarg {
	return c.sargs
}

// DisplaySize is the column width used for tabular output.
func (c *Column) DisplaySize() int {
	switch c.Type {
	case ColBool:
		return 1
	case ColByte:
		return 3
	case ColInt:
		return 5
	case ColLongInt:
		return 7
	case ColFloat, ColDouble:
		return 10
	case ColText:
		return c.Size
	case ColDateTime:
		return 20
	case ColMemo:
		return 255
	case ColMoney:
		return 12
	case ColNumeric:
		return c.Precision + 2
	}
	return 0
}
