package jetdb

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ScanStrategy int

const (
	TableScan ScanStrategy = iota
	IndexScan
)

func (s ScanStrategy) String() string {
	if s == IndexScan {
		return "Index Scan"
	}
	return "Table Scan"
}

// Index is an ordered access path over one column of a table. Scan returns
// an iterator over the (page, row) locations of rows that may satisfy the
// given predicates; rows are still checked against the full predicate tree.
type Index interface {
	Name() string
	Column() *Column
	Scan(sargs []Sarg) (IndexIterator, error)
}

// IndexIterator yields row locations in index order until ok is false.
type IndexIterator interface {
	Next() (page uint32, row int, ok bool, err error)
	Close() error
}

// Table is a cursor over one table. It is not safe for concurrent use.
type Table struct {
	Name    string
	Entry   *CatalogEntry
	Columns []*Column
	NumRows int

	// IncludeDeleted makes Fetch return rows flagged as deleted.
	IncludeDeleted bool

	db       *DB
	format   *Format
	pager    *pager
	log      log.FieldLogger
	usageMap []byte
	numIdxs  int

	// cursor
	curPgNum  int
	curPhysPg uint32
	curRow    int
	eof       bool

	strategy ScanStrategy
	sargTree *Node
	indexes  []Index
	scanIdx  Index
	iter     IndexIterator
	closed   bool
}

// OpenTable reads the definition of the table described by entry and
// returns a cursor positioned before its first row.
func (db *DB) OpenTable(entry *CatalogEntry) (*Table, error) {
	if !db.opened {
		return nil, ErrClosed
	}
	p := db.newPager()
	td, err := readTableDef(p, db.decoder, entry.TableDefPage)
	if err != nil {
		return nil, errors.Wrapf(err, "table %q", entry.Name)
	}
	t := &Table{
		Name:    entry.Name,
		Entry:   entry,
		Columns: td.columns,
		NumRows: td.numRows,
		db:      db,
		format:  db.format,
		pager:   p,
		numIdxs: td.numIdxs,
		log:     db.log.WithField("table", entry.Name),
	}
	if t.usageMap, err = readUsageMap(p, td); err != nil {
		t.log.WithError(err).Warn("usage map unreadable, scanning pages")
		t.usageMap = nil
	}
	return t, nil
}

// Column returns the column called name, compared case-insensitively.
func (t *Table) Column(name string) (*Column, error) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, errors.Wrapf(ErrColumnNotFound, "%q in table %q", name, t.Name)
}

// ColumnByNum returns the column at 1-based position n.
func (t *Table) ColumnByNum(n int) (*Column, error) {
	if n < 1 || n > len(t.Columns) {
		return nil, errors.Wrapf(ErrBadColumnNumber, "%d of %d", n, len(t.Columns))
	}
	return t.Columns[n-1], nil
}

// Strategy returns the access path chosen for the next scan.
func (t *Table) Strategy() ScanStrategy {
	return t.strategy
}

// ScanIndex returns the index driving an index scan, if any.
func (t *Table) ScanIndex() Index {
	return t.scanIdx
}

// SargTree returns the attached predicate tree.
func (t *Table) SargTree() *Node {
	return t.sargTree
}

// Position returns the physical page and the next row slot of the cursor.
func (t *Table) Position() (uint32, int) {
	return t.curPhysPg, t.curRow
}

// Rewind resets the cursor to before the first row. An index scan gets a
// fresh iterator.
func (t *Table) Rewind() error {
	if t.closed || !t.db.opened {
		return ErrClosed
	}
	t.clearCurrent()
	t.curPgNum = 0
	t.curPhysPg = 0
	t.curRow = 0
	t.eof = false
	if t.strategy == IndexScan {
		return t.initIndexScan()
	}
	return nil
}

// AttachIndex makes idx available to ChooseStrategy.
func (t *Table) AttachIndex(idx Index) {
	t.indexes = append(t.indexes, idx)
}

// AttachSargs resolves the column names of tree against the table, records
// its indexable leaves on their columns and installs it as the row filter.
// A previous tree is dropped.
func (t *Table) AttachSargs(tree *Node) error {
	if err := ResolveColumns(t, tree); err != nil {
		return err
	}
	for _, c := range t.Columns {
		c.sargs = nil
	}
	MarkIndexable(tree)
	t.sargTree = tree
	return nil
}

// ChooseStrategy selects an index scan when an attached index covers a
// column with indexable predicates, and a table scan otherwise. The cursor
// is rewound.
func (t *Table) ChooseStrategy() error {
	t.releaseIndex()
	t.strategy = TableScan
	t.scanIdx = nil
	for _, idx := range t.indexes {
		if col := idx.Column(); col != nil && len(col.sargs) > 0 {
			t.strategy = IndexScan
			t.scanIdx = idx
			break
		}
	}
	t.log.WithField("strategy", t.strategy).Debug("scan strategy chosen")
	return t.Rewind()
}

func (t *Table) initIndexScan() error {
	t.releaseIndex()
	it, err := t.scanIdx.Scan(t.scanIdx.Column().sargs)
	if err != nil {
		return errors.Wrapf(err, "index %q", t.scanIdx.Name())
	}
	t.iter = it
	return nil
}

func (t *Table) releaseIndex() {
	if t.iter == nil {
		return
	}
	if err := t.iter.Close(); err != nil {
		t.log.WithError(err).Warn("closing index iterator")
	}
	t.iter = nil
}

// Close releases the index iterator and the predicate tree.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.releaseIndex()
	t.sargTree = nil
	for _, c := range t.Columns {
		c.sargs = nil
	}
	t.closed = true
	return nil
}
