package jetdb

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type ObjectType int

const (
	ObjForm ObjectType = iota
	ObjTable
	ObjMacro
	ObjSystemTable
	ObjReport
	ObjQuery
	ObjLinkedTable
	ObjModule
	ObjRelationship
)

var objectTypeNames = []string{
	"Form", "Table", "Macro", "System Table", "Report",
	"Query", "Linked Table", "Module", "Relationship",
}

func (t ObjectType) String() string {
	if t >= 0 && int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return "Unknown " + strconv.Itoa(int(t))
}

// CatalogEntry is one row of the MSysObjects system table.
type CatalogEntry struct {
	Name         string
	Type         ObjectType
	TableDefPage uint32
}

// IsSystem reports whether the entry names an internal MSys object.
func (e *CatalogEntry) IsSystem() bool {
	return strings.HasPrefix(e.Name, "MSys")
}

// Catalog reads MSysObjects. The result is cached on the handle.
func (db *DB) Catalog() ([]*CatalogEntry, error) {
	if !db.opened {
		return nil, ErrClosed
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.catalog != nil {
		return db.catalog, nil
	}

	sys := &CatalogEntry{Name: "MSysObjects", Type: ObjSystemTable, TableDefPage: catalogPage}
	t, err := db.OpenTable(sys)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer t.Close()

	var id, name, typ string
	for _, b := range []struct {
		col string
		ptr *string
	}{{"Id", &id}, {"Name", &name}, {"Type", &typ}} {
		if _, err := t.BindColumnByName(b.col, b.ptr, nil); err != nil {
			return nil, errors.Wrap(err, "catalog")
		}
	}

	var entries []*CatalogEntry
	for {
		ok, err := t.Fetch()
		if err != nil {
			return nil, errors.Wrap(err, "read catalog")
		}
		if !ok {
			break
		}
		objID, err1 := strconv.ParseInt(id, 10, 64)
		objType, err2 := strconv.Atoi(typ)
		if err1 != nil || err2 != nil {
			db.log.WithField("name", name).Warn("skipping catalog row with unreadable id or type")
			continue
		}
		entries = append(entries, &CatalogEntry{
			Name:         name,
			Type:         ObjectType(objType & 0x7f),
			TableDefPage: uint32(objID) & 0x00ffffff,
		})
	}
	db.catalog = entries
	return entries, nil
}

// FindEntry returns the catalog entry named name of the given type,
// comparing names case-insensitively.
func (db *DB) FindEntry(name string, typ ObjectType) (*CatalogEntry, error) {
	entries, err := db.Catalog()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Type == typ && strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return nil, errors.Wrapf(ErrTableNotFound, "%q", name)
}

// OpenTableByName opens the user or system table called name.
func (db *DB) OpenTableByName(name string) (*Table, error) {
	e, err := db.FindEntry(name, ObjTable)
	if errors.Is(err, ErrTableNotFound) {
		e, err = db.FindEntry(name, ObjSystemTable)
	}
	if err != nil {
		return nil, err
	}
	return db.OpenTable(e)
}
