package jetdb

import (
	"strings"

	"github.com/pkg/errors"
)

// BindColumn makes Fetch write the value of the 1-based column n into value
// and its length into length. Either may be nil; binding again replaces the
// previous targets.
func (t *Table) BindColumn(n int, value *string, length *int) error {
	col, err := t.ColumnByNum(n)
	if err != nil {
		return err
	}
	col.bindValue = value
	col.bindLen = length
	return nil
}

// BindColumnByName binds the column called name and returns its 1-based
// number, or -1 and ErrColumnNotFound.
func (t *Table) BindColumnByName(name string, value *string, length *int) (int, error) {
	for i, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			col.bindValue = value
			col.bindLen = length
			return i + 1, nil
		}
	}
	return -1, errors.Wrapf(ErrColumnNotFound, "%q in table %q", name, t.Name)
}

// BindLen sets only the length target of the 1-based column n.
func (t *Table) BindLen(n int, length *int) error {
	col, err := t.ColumnByNum(n)
	if err != nil {
		return err
	}
	col.bindLen = length
	return nil
}

// UnbindAll clears every binding of the table.
func (t *Table) UnbindAll() {
	for _, col := range t.Columns {
		col.bindValue = nil
		col.bindLen = nil
	}
}

// attemptBind records the extent of fd on its column and writes the decoded
// value to the column's bindings. Booleans live in the null bit and are
// bound as "1" or "0"; OLE columns bind their raw descriptor. A value that
// fails to decode is bound as "".
func (t *Table) attemptBind(col *Column, fd *Field) {
	col.cur = *fd
	if col.bindValue == nil && col.bindLen == nil {
		return
	}

	var (
		s   string
		n   int
		err error
	)
	switch {
	case col.Type == ColBool:
		s = "0"
		if !fd.IsNull {
			s = "1"
		}
		n = 1
	case fd.IsNull:
	case col.Type == ColOLE:
		if len(fd.Value) >= memoOverhead {
			s, n = string(fd.Value[:memoOverhead]), memoOverhead
		}
	case col.Type == ColMemo:
		s, err = t.memoString(fd.Value)
		n = len(s)
	case col.Type == ColNumeric:
		s, err = t.db.decoder.Numeric(fd.Value, col.Precision, col.Scale)
		n = len(s)
	default:
		s, err = t.db.decoder.Decode(col.Type, fd.Value)
		n = len(s)
	}
	if err != nil {
		t.log.WithError(err).WithField("column", col.Name).Warn("value not decoded")
		s, n = "", 0
	}
	if col.bindValue != nil {
		*col.bindValue = s
	}
	if col.bindLen != nil {
		*col.bindLen = n
	}
}
