package jetdb

import (
	"github.com/pkg/errors"
)

// Fetch advances to the next row that is not deleted and passes the
// predicate tree, writing it into the bound columns. It returns false once
// the table is exhausted. A corrupt row ends the call with an error; the
// cursor is already past it, so the next Fetch continues with the row after.
// Whenever Fetch returns false there is no current row.
func (t *Table) Fetch() (bool, error) {
	ok, err := t.fetch()
	if !ok {
		t.clearCurrent()
	}
	return ok, err
}

func (t *Table) fetch() (bool, error) {
	if t.closed || !t.db.opened {
		return false, ErrClosed
	}
	if t.NumRows == 0 || t.eof {
		return false, nil
	}

	if t.curPgNum == 0 {
		t.curPgNum = 1
		t.curRow = 0
		if t.strategy != IndexScan {
			if ok, err := t.readNextDataPage(); !ok {
				t.eof = err == nil
				return false, err
			}
		}
	}

	for {
		if t.strategy == IndexScan {
			if t.iter == nil {
				return false, nil
			}
			pg, row, ok, err := t.iter.Next()
			if err != nil {
				t.releaseIndex()
				return false, errors.Wrapf(err, "index %q", t.scanIdx.Name())
			}
			if !ok {
				t.releaseIndex()
				return false, nil
			}
			if err := t.pager.ReadPage(pg); err != nil {
				return false, err
			}
			t.curPhysPg, t.curRow = pg, row
		} else {
			v := t.pager.Page()
			rows := v.u16(t.format.RowCountOffset)
			if v.err != nil {
				return false, v.err
			}
			// if at end of page, find a new page
			if t.curRow >= rows {
				t.curRow = 0
				if ok, err := t.readNextDataPage(); !ok {
					t.eof = err == nil
					return false, err
				}
				continue
			}
		}

		ok, err := t.readRow(t.curRow)
		t.curRow++
		if err != nil {
			t.log.WithError(err).WithField("page", t.curPhysPg).Warn("skipping corrupt row")
			return false, err
		}
		if ok {
			return true, nil
		}
	}
}

// readNextDataPage loads the next data page of the table into the primary
// buffer, reporting false when there is none.
func (t *Table) readNextDataPage() (bool, error) {
	pg, err := t.nextDataPage()
	if err != nil || pg == 0 {
		return false, err
	}
	if err := t.pager.ReadPage(pg); err != nil {
		return false, err
	}
	t.curPhysPg = pg
	t.curPgNum++
	t.log.WithField("page", pg).Debug("data page")
	return true, nil
}

// readRow cracks row of the current page, filters it and binds it. It
// reports false for deleted rows and rows the predicates reject.
func (t *Table) readRow(row int) (bool, error) {
	v := t.pager.Page()
	start, end, flags, err := rowExtent(v, t.format, row)
	if err != nil {
		return false, errors.Wrapf(err, "page %d row %d", t.curPhysPg, row)
	}
	if hasFlag(flags, rowDeleteFlag) && !t.IncludeDeleted {
		return false, nil
	}

	fields, err := crackRow(v, t.format, t.Columns, start, end)
	if err != nil {
		return false, errors.Wrapf(err, "page %d row %d", t.curPhysPg, row)
	}
	if !t.testSargs(fields) {
		return false, nil
	}
	for i := range fields {
		fields[i].Page = t.curPhysPg
		t.attemptBind(t.Columns[fields[i].ColNum], &fields[i])
	}
	return true, nil
}

// clearCurrent forgets the extents recorded by the last bound row.
func (t *Table) clearCurrent() {
	for _, c := range t.Columns {
		c.cur = Field{}
	}
}
