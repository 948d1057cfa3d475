// Package jetsql is a small SQL session over a jetdb handle. A statement is
// assembled call by call (columns, table, predicates in postfix order) and
// then run with Select, ListTables or DescribeTable. Any usage error resets
// the session so the next statement starts clean.
package jetsql

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"jetdb"
)

var (
	ErrNotConnected = errors.New("you must connect to a database first")
	ErrNoTable      = errors.New("no table named in statement")
	ErrNoResult     = errors.New("no statement has been run")
)

// Column is an output column of the current statement.
type Column struct {
	Name        string
	DisplaySize int
}

// SQL holds one connection and the per-statement state built on it.
type SQL struct {
	db      *jetdb.DB
	options *jetdb.Options
	log     log.FieldLogger

	columns    []Column
	tables     []string
	allColumns bool
	builder    jetdb.Builder
	indexes    []string

	table  *jetdb.Table
	static *staticRows
	bound  []string
}

// New returns a session that opens databases with options.
func New(options *jetdb.Options) *SQL {
	s := &SQL{options: options, log: log.StandardLogger()}
	if options != nil && options.Logger != nil {
		s.log = options.Logger
	}
	return s
}

// Open connects to the database at path. When path cannot be opened and
// has no ".mdb" in it, path+".mdb" is tried as well.
func (s *SQL) Open(path string) error {
	if s.db != nil {
		_ = s.Close()
	}
	db, err := jetdb.Open(path, s.options)
	if err != nil && !strings.Contains(path, ".mdb") {
		var err2 error
		if db, err2 = jetdb.Open(path+".mdb", s.options); err2 == nil {
			err = nil
		}
	}
	if err != nil {
		return errors.Wrapf(err, "unable to locate database %s", path)
	}
	s.db = db
	return nil
}

// Attach uses an already open handle. Close will close it.
func (s *SQL) Attach(db *jetdb.DB) {
	s.db = db
}

// DB returns the connected handle, or nil.
func (s *SQL) DB() *jetdb.DB {
	return s.db
}

// Close resets the session and closes the database.
func (s *SQL) Close() error {
	if s.db == nil {
		return ErrNotConnected
	}
	s.Reset()
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQL) AddColumn(name string) {
	s.columns = append(s.columns, Column{Name: name})
}

// AllColumns selects every column of the table, as "*" does.
func (s *SQL) AllColumns() {
	s.allColumns = true
}

func (s *SQL) AddTable(name string) {
	s.tables = append(s.tables, name)
}

// AddIndex asks Select to build an in-memory index on column, making an
// index scan possible for predicates on it.
func (s *SQL) AddIndex(column string) {
	s.indexes = append(s.indexes, column)
}

// AddSarg pushes the comparison "column op literal". Literals in single or
// double quotes are strings, anything else must be an integer.
func (s *SQL) AddSarg(column string, op jetdb.Op, literal string) error {
	v, err := jetdb.ParseLiteral(literal)
	if err != nil {
		s.Reset()
		return err
	}
	if err := s.builder.AddSarg(column, op, v); err != nil {
		s.Reset()
		return err
	}
	return nil
}

func (s *SQL) AddAnd() error {
	return s.resetOnError(s.builder.AddAnd())
}

func (s *SQL) AddOr() error {
	return s.resetOnError(s.builder.AddOr())
}

func (s *SQL) AddNot() error {
	return s.resetOnError(s.builder.AddNot())
}

func (s *SQL) resetOnError(err error) error {
	if err != nil {
		s.Reset()
	}
	return err
}

// Select opens the named table, checks the requested columns, attaches the
// predicate tree and picks a scan strategy.
func (s *SQL) Select() error {
	if s.db == nil {
		return s.resetOnError(ErrNotConnected)
	}
	if len(s.tables) == 0 {
		return s.resetOnError(ErrNoTable)
	}
	name := s.tables[0]
	entry, err := s.db.FindEntry(name, jetdb.ObjTable)
	if err != nil {
		return s.resetOnError(errors.Wrapf(err, "%s is not a table in this database", name))
	}
	t, err := s.db.OpenTable(entry)
	if err != nil {
		return s.resetOnError(err)
	}

	if s.allColumns {
		for _, c := range t.Columns {
			s.columns = append(s.columns, Column{Name: c.Name})
		}
	}
	for i := range s.columns {
		c, err := t.Column(s.columns[i].Name)
		if err != nil {
			t.Close()
			return s.resetOnError(err)
		}
		s.columns[i].DisplaySize = c.DisplaySize()
	}

	if err := t.AttachSargs(s.builder.Take()); err != nil {
		t.Close()
		return s.resetOnError(err)
	}
	for _, col := range s.indexes {
		idx, err := jetdb.BuildMemIndex(t, col)
		if err != nil {
			t.Close()
			return s.resetOnError(err)
		}
		t.AttachIndex(idx)
	}
	if err := t.ChooseStrategy(); err != nil {
		t.Close()
		return s.resetOnError(err)
	}
	s.table = t
	s.log.WithFields(log.Fields{"table": t.Name, "strategy": t.Strategy()}).Debug("select")
	return nil
}

// ListTables produces one "Tables" row per user table.
func (s *SQL) ListTables() error {
	if s.db == nil {
		return s.resetOnError(ErrNotConnected)
	}
	entries, err := s.db.Catalog()
	if err != nil {
		return s.resetOnError(err)
	}
	s.columns = []Column{{Name: "Tables", DisplaySize: 30}}
	s.static = &staticRows{}
	for _, e := range entries {
		if e.Type == jetdb.ObjTable && !e.IsSystem() {
			s.static.rows = append(s.static.rows, []string{e.Name})
		}
	}
	return nil
}

// DescribeTable produces a name, type and size row for each column of the
// first named table.
func (s *SQL) DescribeTable() error {
	if s.db == nil {
		return s.resetOnError(ErrNotConnected)
	}
	if len(s.tables) == 0 {
		return s.resetOnError(ErrNoTable)
	}
	name := s.tables[0]
	entry, err := s.db.FindEntry(name, jetdb.ObjTable)
	if err != nil {
		return s.resetOnError(errors.Wrapf(err, "%s is not a table in this database", name))
	}
	t, err := s.db.OpenTable(entry)
	if err != nil {
		return s.resetOnError(err)
	}
	defer t.Close()

	s.columns = []Column{
		{Name: "Column Name", DisplaySize: 30},
		{Name: "Type", DisplaySize: 20},
		{Name: "Size", DisplaySize: 10},
	}
	s.static = &staticRows{}
	for _, c := range t.Columns {
		s.static.rows = append(s.static.rows, []string{c.Name, c.Type.String(), strconv.Itoa(c.Size)})
	}
	return nil
}

// Columns returns the output columns of the current statement.
func (s *SQL) Columns() []Column {
	return s.columns
}

// Table returns the table a Select opened.
func (s *SQL) Table() *jetdb.Table {
	return s.table
}

// BindAll binds every output column to the slice returned by Values.
func (s *SQL) BindAll() error {
	s.bound = make([]string, len(s.columns))
	if s.table == nil {
		return nil
	}
	for i, c := range s.columns {
		if _, err := s.table.BindColumnByName(c.Name, &s.bound[i], nil); err != nil {
			return s.resetOnError(err)
		}
	}
	return nil
}

// Fetch advances to the next result row.
func (s *SQL) Fetch() (bool, error) {
	switch {
	case s.table != nil:
		return s.table.Fetch()
	case s.static != nil:
		return s.static.next(s.bound), nil
	}
	return false, ErrNoResult
}

// Values holds the current row after Fetch, in output column order.
func (s *SQL) Values() []string {
	return s.bound
}

// Reset releases the table and the predicate tree and forgets the columns,
// tables and indexes named so far.
func (s *SQL) Reset() {
	if s.table != nil {
		_ = s.table.Close()
		s.table = nil
	}
	s.columns = nil
	s.tables = nil
	s.allColumns = false
	s.indexes = nil
	s.builder.Reset()
	s.static = nil
	s.bound = nil
}

type staticRows struct {
	rows [][]string
	pos  int
}

func (r *staticRows) next(dst []string) bool {
	if r.pos >= len(r.rows) {
		return false
	}
	copy(dst, r.rows[r.pos])
	r.pos++
	return true
}
