package jetdb

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// long value descriptor flags
const (
	lvalInline     uint16 = 0x8000
	lvalSinglePage uint16 = 0x4000
	lvalChained    uint16 = 0x0000
)

// LongValue reads a memo or OLE value described by a 12 byte descriptor.
// Pages are borrowed through the table's alternate buffer, so the table's
// current page is untouched between calls. Each LongValue keeps its own
// chain position.
type LongValue struct {
	t *Table

	Length int
	Flags  uint16

	inline []byte
	row    int
	page   uint32
	hops   int
	done   bool
}

// LongValue returns a reader for the memo or OLE column at 1-based position
// colNum of the row last fetched. Once Fetch has returned false, or the
// primary buffer holds another page, there is no current row.
func (t *Table) LongValue(colNum int) (*LongValue, error) {
	if t.closed || !t.db.opened {
		return nil, ErrClosed
	}
	col, err := t.ColumnByNum(colNum)
	if err != nil {
		return nil, err
	}
	if !col.Type.isLongValue() {
		return nil, errors.Wrapf(ErrNotLongValue, "%q is %s", col.Name, col.Type)
	}
	if t.curPgNum == 0 || col.cur.Page == 0 || col.cur.Page != t.pager.PageNum() {
		return nil, ErrNoCurrentRow
	}
	if col.cur.IsNull {
		return &LongValue{t: t, done: true}, nil
	}
	v := t.pager.Page()
	raw := v.slice(col.cur.Start, col.cur.Size)
	if v.err != nil {
		return nil, v.err
	}
	return t.newLongValue(raw)
}

func (t *Table) newLongValue(raw []byte) (*LongValue, error) {
	if len(raw) < memoOverhead {
		return nil, errors.Wrapf(ErrOutOfBounds, "long value descriptor of %d bytes", len(raw))
	}
	lv := &LongValue{
		t:      t,
		Length: int(binary.LittleEndian.Uint16(raw[0:2])),
		Flags:  binary.LittleEndian.Uint16(raw[2:4]),
		row:    int(raw[4]),
		page:   uint32(raw[5]) | uint32(raw[6])<<8 | uint32(raw[7])<<16,
	}
	switch lv.Flags {
	case lvalInline:
		lv.inline = append([]byte(nil), raw[memoOverhead:]...)
	case lvalSinglePage, lvalChained:
	default:
		return nil, errors.Wrapf(ErrUnknownLongValue, "flags 0x%04x", lv.Flags)
	}
	return lv, nil
}

func (lv *LongValue) maxHops() int {
	n := lv.t.db.options.MaxChainHops
	if pages := int(lv.t.pager.NumPages()); pages < n {
		n = pages
	}
	return n
}

// Next returns the next chunk of the value: the whole payload for inline
// and single page values, one page's worth for chained ones. It returns
// io.EOF after the last chunk. A chain that breaks after its first page
// ends early with io.EOF; a broken first page is an error.
func (lv *LongValue) Next() ([]byte, error) {
	if lv.done {
		return nil, io.EOF
	}
	switch lv.Flags {
	case lvalInline:
		lv.done = true
		return lv.inline, nil
	case lvalSinglePage:
		lv.done = true
		var out []byte
		err := lv.t.pager.WithAltPage(lv.page, func(v *view) error {
			start, end, _, err := rowExtent(v, lv.t.format, lv.row)
			if err != nil {
				return err
			}
			out = append([]byte(nil), v.slice(start, end-start+1)...)
			return v.err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "long value page %d row %d", lv.page, lv.row)
		}
		return out, nil
	}

	if lv.page == 0 {
		lv.done = true
		return nil, io.EOF
	}
	if lv.hops >= lv.maxHops() {
		lv.done = true
		return nil, errors.Wrapf(ErrCorruptChain, "more than %d pages", lv.hops)
	}
	lv.hops++

	var (
		out      []byte
		nextRow  int
		nextPage uint32
	)
	err := lv.t.pager.WithAltPage(lv.page, func(v *view) error {
		start, end, _, err := rowExtent(v, lv.t.format, lv.row)
		if err != nil {
			return err
		}
		if end-start+1 < 4 {
			return errors.Wrapf(ErrOutOfBounds, "chain link of %d bytes", end-start+1)
		}
		nextRow = v.u8(start)
		nextPage = v.u24(start + 1)
		out = append([]byte(nil), v.slice(start+4, end-start-3)...)
		return v.err
	})
	if err != nil {
		lv.done = true
		if lv.hops == 1 {
			return nil, errors.Wrapf(err, "long value page %d row %d", lv.page, lv.row)
		}
		lv.t.log.WithError(err).WithField("page", lv.page).Warn("broken long value chain, value truncated")
		return nil, io.EOF
	}
	lv.row, lv.page = nextRow, nextPage
	return out, nil
}

// ReadAll reads the remainder of the value.
func (lv *LongValue) ReadAll() ([]byte, error) {
	var out []byte
	for {
		chunk, err := lv.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}

// memoString reads the memo described by raw and decodes it as text.
func (t *Table) memoString(raw []byte) (string, error) {
	lv, err := t.newLongValue(raw)
	if err != nil {
		return "", err
	}
	b, err := lv.ReadAll()
	if err != nil {
		return "", err
	}
	return t.db.decoder.Text(b)
}
