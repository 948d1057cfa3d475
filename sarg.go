package jetdb

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Op int

const (
	OpOr Op = iota + 1
	OpAnd
	OpNot
	OpEqual
	OpGt
	OpLt
	OpGtEq
	OpLtEq
	OpLike
	OpIsNull
	OpNotNull
)

var opNames = map[Op]string{
	OpOr:      "OR",
	OpAnd:     "AND",
	OpNot:     "NOT",
	OpEqual:   "=",
	OpGt:      ">",
	OpLt:      "<",
	OpGtEq:    ">=",
	OpLtEq:    "<=",
	OpLike:    "LIKE",
	OpIsNull:  "IS NULL",
	OpNotNull: "IS NOT NULL",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// IsRelational reports whether o compares a column with a literal.
func (o Op) IsRelational() bool {
	return o >= OpEqual && o <= OpNotNull
}

// ParseOp maps the textual form of a comparison operator to an Op.
func ParseOp(s string) (Op, error) {
	s = strings.Join(strings.Fields(strings.ToUpper(s)), " ")
	if s == "==" {
		return OpEqual, nil
	}
	for op, name := range opNames {
		if name == s && op.IsRelational() {
			return op, nil
		}
	}
	return 0, errors.Wrapf(ErrParse, "unknown operator %q", s)
}

// Value is a predicate literal, either a string or an integer.
type Value struct {
	S        string
	I        int32
	IsString bool
}

func (v Value) String() string {
	if v.IsString {
		return "'" + v.S + "'"
	}
	return strconv.Itoa(int(v.I))
}

// ParseLiteral reads a quoted string or a 32-bit integer.
func ParseLiteral(s string) (Value, error) {
	if n := len(s); n >= 2 && (s[0] == '\'' || s[0] == '"') && s[n-1] == s[0] {
		return Value{S: s[1 : n-1], IsString: true}, nil
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return Value{}, errors.Wrapf(ErrBadLiteral, "%q", s)
	}
	return Value{I: int32(i)}, nil
}

// Sarg is a single indexable comparison against a column.
type Sarg struct {
	Op    Op
	Value Value
}

// Node is a predicate tree node. Connectives use Left (and Right for AND
// and OR); leaves carry a column name and a literal. A leaf without a column
// name is a constant whose truth is its integer value.
type Node struct {
	Op          Op
	Left, Right *Node
	ColumnName  string
	Col         *Column
	Value       Value
}

func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Op {
	case OpAnd, OpOr:
		return "(" + n.Left.String() + " " + n.Op.String() + " " + n.Right.String() + ")"
	case OpNot:
		return "NOT " + n.Left.String()
	case OpIsNull, OpNotNull:
		return n.ColumnName + " " + n.Op.String()
	}
	if n.ColumnName == "" {
		return n.Value.String()
	}
	return n.ColumnName + " " + n.Op.String() + " " + n.Value.String()
}

// Walk visits n and its children depth first, left before right. It stops
// as soon as fn returns true and reports whether it was stopped.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return false
	}
	if fn(n) {
		return true
	}
	return Walk(n.Left, fn) || Walk(n.Right, fn)
}

// Builder assembles a predicate tree from postfix input on an operand stack.
// The most recently pushed node is the root.
type Builder struct {
	stack []*Node
}

func (b *Builder) push(n *Node) {
	b.stack = append(b.stack, n)
}

func (b *Builder) pop() (*Node, error) {
	if len(b.stack) == 0 {
		b.Reset()
		return nil, errors.Wrap(ErrParse, "operand stack empty")
	}
	n := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return n, nil
}

// AddSarg pushes the leaf "column op literal".
func (b *Builder) AddSarg(column string, op Op, v Value) error {
	if !op.IsRelational() {
		b.Reset()
		return errors.Wrapf(ErrParse, "%s is not a comparison", op)
	}
	b.push(&Node{Op: op, ColumnName: column, Value: v})
	return nil
}

// AddConst pushes a constant leaf.
func (b *Builder) AddConst(v int32) {
	b.push(&Node{Op: OpEqual, Value: Value{I: v}})
}

// AddNot replaces the top operand with its negation.
func (b *Builder) AddNot() error {
	l, err := b.pop()
	if err != nil {
		return err
	}
	b.push(&Node{Op: OpNot, Left: l})
	return nil
}

// AddAnd combines the two top operands.
func (b *Builder) AddAnd() error {
	return b.addBinary(OpAnd)
}

// AddOr combines the two top operands.
func (b *Builder) AddOr() error {
	return b.addBinary(OpOr)
}

func (b *Builder) addBinary(op Op) error {
	right, err := b.pop()
	if err != nil {
		return err
	}
	left, err := b.pop()
	if err != nil {
		return err
	}
	b.push(&Node{Op: op, Left: left, Right: right})
	return nil
}

// Tree returns the current root without giving it up.
func (b *Builder) Tree() *Node {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// Take hands the root to the caller and empties the builder.
func (b *Builder) Take() *Node {
	n := b.Tree()
	b.Reset()
	return n
}

// Reset drops every pending operand.
func (b *Builder) Reset() {
	b.stack = nil
}

// Len returns the number of pending operands.
func (b *Builder) Len() int {
	return len(b.stack)
}

// ResolveColumns attaches every named leaf of tree to its column in t.
func ResolveColumns(t *Table, tree *Node) error {
	var err error
	Walk(tree, func(n *Node) bool {
		if n.Op.IsRelational() && n.ColumnName != "" {
			if n.Col, err = t.Column(n.ColumnName); err != nil {
				return true
			}
		}
		return false
	})
	return err
}

// MarkIndexable records the comparisons an index may use on their columns.
// Only leaves reached through AND qualify; the walk ends at the first OR or
// NOT it meets.
func MarkIndexable(tree *Node) {
	Walk(tree, func(n *Node) bool {
		if n.Op == OpOr || n.Op == OpNot {
			return true
		}
		if n.Op.IsRelational() && n.Col != nil {
			n.Col.sargs = append(n.Col.sargs, Sarg{Op: n.Op, Value: n.Value})
		}
		return false
	})
}

func (t *Table) testSargs(fields []Field) bool {
	if t.sargTree == nil {
		return true
	}
	return t.eval(t.sargTree, fields)
}

func (t *Table) eval(n *Node, fields []Field) bool {
	switch n.Op {
	case OpOr:
		return t.eval(n.Left, fields) || t.eval(n.Right, fields)
	case OpAnd:
		return t.eval(n.Left, fields) && t.eval(n.Right, fields)
	case OpNot:
		return !t.eval(n.Left, fields)
	}
	if n.Col == nil {
		return n.Value.I != 0
	}
	return t.testField(n, &fields[n.Col.index])
}

// testField applies a leaf to one field. A null field only satisfies
// IS NULL.
func (t *Table) testField(n *Node, fd *Field) bool {
	switch n.Op {
	case OpIsNull:
		return fd.IsNull
	case OpNotNull:
		return !fd.IsNull
	}
	col := n.Col
	if col.Type == ColBool {
		var v int32
		if !fd.IsNull {
			v = 1
		}
		return testInt(n.Op, n.Value.I, v)
	}
	if fd.IsNull {
		return false
	}
	switch col.Type {
	case ColByte:
		if len(fd.Value) < 1 {
			return false
		}
		return testInt(n.Op, n.Value.I, int32(fd.Value[0]))
	case ColInt:
		if len(fd.Value) < 2 {
			return false
		}
		return testInt(n.Op, n.Value.I, int32(int16(binary.LittleEndian.Uint16(fd.Value))))
	case ColLongInt:
		if len(fd.Value) < 4 {
			return false
		}
		return testInt(n.Op, n.Value.I, int32(binary.LittleEndian.Uint32(fd.Value)))
	case ColText:
		s, err := t.db.decoder.Text(fd.Value)
		if err != nil {
			return false
		}
		if n.Op == OpLike {
			return Like(s, n.Value.S)
		}
		return testString(n.Op, n.Value.S, s)
	}
	return true
}

// testInt compares the literal lit with the row value v.
func testInt(op Op, lit, v int32) bool {
	switch op {
	case OpEqual:
		return lit == v
	case OpGt:
		return lit < v
	case OpLt:
		return lit > v
	case OpGtEq:
		return lit <= v
	case OpLtEq:
		return lit >= v
	}
	return false
}

// testString compares the literal lit with the row value s.
func testString(op Op, lit, s string) bool {
	rc := BytesComparator([]byte(lit), []byte(s))
	switch op {
	case OpEqual:
		return rc == 0
	case OpGt:
		return rc < 0
	case OpLt:
		return rc > 0
	case OpGtEq:
		return rc <= 0
	case OpLtEq:
		return rc >= 0
	case OpLike:
		return Like(s, lit)
	}
	return false
}
