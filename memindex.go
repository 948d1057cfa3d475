package jetdb

import (
	"encoding/binary"

	"github.com/google/btree"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const memIndexDegree = 32

type rowLocation struct {
	page uint32
	row  int
}

// indexEntry is one row of a MemIndex. Nulls sort first; equal keys keep
// physical order.
type indexEntry struct {
	key  []byte
	null bool
	loc  rowLocation
	cmp  Comparator
}

// Less implements btree.Item interface
func (e *indexEntry) Less(than btree.Item) bool {
	o := than.(*indexEntry)
	if e.null != o.null {
		return e.null
	}
	if c := e.cmp(e.key, o.key); c != 0 {
		return c < 0
	}
	if e.loc.page != o.loc.page {
		return e.loc.page < o.loc.page
	}
	return e.loc.row < o.loc.row
}

// MemIndex is an in-memory ordered index over one column, built by scanning
// the table once. It satisfies Index.
type MemIndex struct {
	name string
	col  *Column
	cmp  Comparator
	tree *btree.BTree
}

// BuildMemIndex indexes column of t. The scan runs on a separate cursor, so
// t's position, bindings and predicates are left alone.
func BuildMemIndex(t *Table, column string) (*MemIndex, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	scan, err := t.db.OpenTable(t.Entry)
	if err != nil {
		return nil, err
	}
	defer scan.Close()
	scol := scan.Columns[col.index]

	m := &MemIndex{
		name: t.Name + "." + col.Name,
		col:  col,
		cmp:  comparatorFor(col.Type),
		tree: btree.New(memIndexDegree),
	}
	for {
		ok, err := scan.Fetch()
		if err != nil {
			return nil, errors.Wrapf(err, "build index %s", m.name)
		}
		if !ok {
			break
		}
		key, null, err := m.fieldKey(scan, &scol.cur)
		if err != nil {
			return nil, errors.Wrapf(err, "build index %s", m.name)
		}
		pg, row := scan.Position()
		m.tree.ReplaceOrInsert(&indexEntry{
			key:  key,
			null: null,
			loc:  rowLocation{page: pg, row: row - 1},
			cmp:  m.cmp,
		})
	}
	t.log.WithFields(log.Fields{"column": col.Name, "rows": m.tree.Len()}).Debug("memory index built")
	return m, nil
}

// fieldKey encodes the value of fd the way the column's comparator orders
// it.
func (m *MemIndex) fieldKey(t *Table, fd *Field) ([]byte, bool, error) {
	switch m.col.Type {
	case ColBool:
		if fd.IsNull {
			return int32Key(0), false, nil
		}
		return int32Key(1), false, nil
	}
	if fd.IsNull {
		return nil, true, nil
	}
	if w := m.col.Type.fixedWidth(); w > 0 && len(fd.Value) < w {
		return nil, false, errors.Wrapf(ErrOutOfBounds, "%s key of %d bytes", m.col.Type, len(fd.Value))
	}
	switch m.col.Type {
	case ColByte:
		return int32Key(int32(fd.Value[0])), false, nil
	case ColInt:
		return int32Key(int32(int16(binary.LittleEndian.Uint16(fd.Value)))), false, nil
	case ColLongInt:
		return int32Key(int32(binary.LittleEndian.Uint32(fd.Value))), false, nil
	case ColText:
		s, err := t.db.decoder.Text(fd.Value)
		return []byte(s), false, err
	}
	return append([]byte(nil), fd.Value...), false, nil
}

func (m *MemIndex) literalKey(v Value) []byte {
	switch m.col.Type {
	case ColBool, ColByte, ColInt, ColLongInt:
		return int32Key(v.I)
	}
	return []byte(v.S)
}

func int32Key(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func (m *MemIndex) Name() string {
	return m.name
}

func (m *MemIndex) Column() *Column {
	return m.col
}

// Len returns the number of indexed rows.
func (m *MemIndex) Len() int {
	return m.tree.Len()
}

// Scan returns the locations of the rows satisfying every sarg, in key
// order. Lower bounds seek into the tree and upper bounds end the walk.
func (m *MemIndex) Scan(sargs []Sarg) (IndexIterator, error) {
	var lo []byte
	for _, s := range sargs {
		switch s.Op {
		case OpEqual, OpGt, OpGtEq:
			if k := m.literalKey(s.Value); lo == nil || m.cmp(k, lo) > 0 {
				lo = k
			}
		}
	}

	it := &memIterator{}
	visit := func(i btree.Item) bool {
		e := i.(*indexEntry)
		for _, s := range sargs {
			if m.match(e, s) {
				continue
			}
			switch s.Op {
			case OpEqual, OpLt, OpLtEq:
				// every later key is larger still
				if !e.null && m.cmp(e.key, m.literalKey(s.Value)) > 0 {
					return false
				}
			}
			return true
		}
		it.hits = append(it.hits, e.loc)
		return true
	}
	if lo != nil {
		m.tree.AscendGreaterOrEqual(&indexEntry{key: lo, loc: rowLocation{row: -1}, cmp: m.cmp}, visit)
	} else {
		m.tree.Ascend(visit)
	}
	return it, nil
}

func (m *MemIndex) match(e *indexEntry, s Sarg) bool {
	switch s.Op {
	case OpIsNull:
		return e.null
	case OpNotNull:
		return !e.null
	}
	if e.null {
		return false
	}
	switch m.col.Type {
	case ColBool, ColByte, ColInt, ColLongInt:
		return testInt(s.Op, s.Value.I, int32(le32(e.key)))
	case ColText:
		return testString(s.Op, s.Value.S, string(e.key))
	}
	return true
}

type memIterator struct {
	hits   []rowLocation
	pos    int
	closed bool
}

func (it *memIterator) Next() (uint32, int, bool, error) {
	if it.closed {
		return 0, 0, false, ErrClosed
	}
	if it.pos >= len(it.hits) {
		return 0, 0, false, nil
	}
	loc := it.hits[it.pos]
	it.pos++
	return loc.page, loc.row, true, nil
}

func (it *memIterator) Close() error {
	it.closed = true
	it.hits = nil
	return nil
}
