package jetsql

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"jetdb"
)

// DumpOptions controls how Dump prints a result.
type DumpOptions struct {
	// Pretty draws a boxed table sized to the column display sizes.
	Pretty bool
	// Delimiter separates fields when Pretty is off. Defaults to a tab.
	Delimiter string
	Headers   bool
	Footers   bool
}

var DefaultDumpOptions = DumpOptions{Pretty: true, Headers: true, Footers: true}

// Dump binds all columns, prints every remaining row of the current
// statement to w and resets the session. It returns the row count.
func (s *SQL) Dump(w io.Writer, opts DumpOptions) (int, error) {
	if s.table == nil && s.static == nil {
		return 0, ErrNoResult
	}
	defer s.Reset()
	if err := s.BindAll(); err != nil {
		return 0, err
	}
	if opts.Pretty {
		return s.dumpPretty(w, opts)
	}
	return s.dumpDelimited(w, opts)
}

func (s *SQL) dumpDelimited(w io.Writer, opts DumpOptions) (int, error) {
	delim := opts.Delimiter
	if delim == "" {
		delim = "\t"
	}
	if opts.Headers {
		names := make([]string, len(s.columns))
		for i, c := range s.columns {
			names[i] = c.Name
		}
		fmt.Fprintln(w, strings.Join(names, delim))
	}
	rows := 0
	for {
		ok, err := s.Fetch()
		if err != nil {
			return rows, err
		}
		if !ok {
			break
		}
		rows++
		fmt.Fprintln(w, strings.Join(s.bound, delim))
	}
	if opts.Footers {
		printRowsRetrieved(w, rows)
	}
	return rows, nil
}

func (s *SQL) dumpPretty(w io.Writer, opts DumpOptions) (int, error) {
	sizes := make([]int, len(s.columns))
	for i, c := range s.columns {
		sizes[i] = c.DisplaySize
		if w := runewidth.StringWidth(c.Name); opts.Headers && w > sizes[i] {
			sizes[i] = w
		}
	}
	if opts.Headers {
		printBreak(w, sizes)
		names := make([]string, len(s.columns))
		for i, c := range s.columns {
			names[i] = c.Name
		}
		printValues(w, names, sizes)
	}
	printBreak(w, sizes)

	rows := 0
	for {
		ok, err := s.Fetch()
		if err != nil {
			return rows, err
		}
		if !ok {
			break
		}
		rows++
		printValues(w, s.bound, sizes)
	}

	printBreak(w, sizes)
	if opts.Footers {
		printRowsRetrieved(w, rows)
	}
	return rows, nil
}

func printBreak(w io.Writer, sizes []int) {
	var b strings.Builder
	b.WriteByte('+')
	for _, sz := range sizes {
		b.WriteString(strings.Repeat("-", sz))
		b.WriteByte('+')
	}
	fmt.Fprintln(w, b.String())
}

// printValues pads or cuts every value to its column size, measured in
// terminal cells.
func printValues(w io.Writer, vals []string, sizes []int) {
	var b strings.Builder
	b.WriteByte('|')
	for i, sz := range sizes {
		b.WriteString(runewidth.FillRight(runewidth.Truncate(vals[i], sz, ""), sz))
		b.WriteByte('|')
	}
	fmt.Fprintln(w, b.String())
}

func printRowsRetrieved(w io.Writer, n int) {
	switch n {
	case 0:
		fmt.Fprintln(w, "No Rows retrieved")
	case 1:
		fmt.Fprintln(w, "1 Row retrieved")
	default:
		fmt.Fprintf(w, "%d Rows retrieved\n", n)
	}
}

// ShowPlan prints the predicate tree of the current select and the access
// path chosen for it.
func (s *SQL) ShowPlan(w io.Writer) error {
	if s.table == nil {
		return ErrNoResult
	}
	t := s.table
	if tree := t.SargTree(); tree != nil {
		dumpNode(w, tree, "root  ", 0)
	}
	if t.Strategy() == jetdb.TableScan {
		fmt.Fprintf(w, "Table scanning %s\n", t.Name)
	} else {
		fmt.Fprintf(w, "Index scanning %s using %s\n", t.Name, t.ScanIndex().Name())
	}
	return nil
}

func dumpNode(w io.Writer, n *jetdb.Node, label string, level int) {
	fmt.Fprint(w, label, strings.Repeat("--->", level+1))
	switch n.Op {
	case jetdb.OpAnd, jetdb.OpOr, jetdb.OpNot:
		fmt.Fprintf(w, " %s\n", strings.ToLower(n.Op.String()))
	case jetdb.OpIsNull, jetdb.OpNotNull:
		fmt.Fprintf(w, " %s %s\n", n.ColumnName, strings.ToLower(n.Op.String()))
	default:
		fmt.Fprintf(w, " %s %s %s\n", n.ColumnName, strings.ToLower(n.Op.String()), n.Value)
	}
	if n.Left != nil {
		dumpNode(w, n.Left, "left  ", level+1)
	}
	if n.Right != nil {
		dumpNode(w, n.Right, "right ", level+1)
	}
}
