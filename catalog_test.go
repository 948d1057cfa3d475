package jetdb

import (
	"testing"

	"github.com/pkg/errors"
	assertion "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jetdb/internal/jettest"
)

func TestCatalog(t *testing.T) {
	assert := assertion.New(t)
	db := openSample(t)

	entries, err := db.Catalog()
	require.NoError(t, err)
	type entry struct {
		name string
		typ  ObjectType
		page uint32
		sys  bool
	}
	var got []entry
	for _, e := range entries {
		got = append(got, entry{e.Name, e.Type, e.TableDefPage, e.IsSystem()})
	}
	assert.Equal([]entry{
		{"MSysObjects", ObjTable, jettest.CatalogPage, true},
		{"People", ObjTable, jettest.PeoplePage, false},
		{"Query1", ObjQuery, 11, false},
		{"Form1", ObjForm, 12, false},
		{"Empty", ObjTable, jettest.EmptyPage, false},
		{"Logs", ObjTable, jettest.LogsPage, false},
	}, got)

	again, err := db.Catalog()
	assert.NoError(err)
	assert.Same(entries[0], again[0])
}

func TestObjectTypeString(t *testing.T) {
	assert := assertion.New(t)
	assert.Equal("Table", ObjTable.String())
	assert.Equal("System Table", ObjSystemTable.String())
	assert.Equal("Relationship", ObjRelationship.String())
	assert.Equal("Unknown 42", ObjectType(42).String())
	assert.Equal("Unknown -1", ObjectType(-1).String())
}

func TestFindEntry(t *testing.T) {
	assert := assertion.New(t)
	db := openSample(t)

	e, err := db.FindEntry("PEOPLE", ObjTable)
	require.NoError(t, err)
	assert.Equal("People", e.Name)

	e, err = db.FindEntry("query1", ObjQuery)
	require.NoError(t, err)
	assert.Equal(uint32(11), e.TableDefPage)

	_, err = db.FindEntry("Query1", ObjTable)
	assert.True(errors.Is(err, ErrTableNotFound))

	_, err = db.OpenTableByName("Form1")
	assert.True(errors.Is(err, ErrTableNotFound))
	_, err = db.OpenTableByName("nothing")
	assert.True(errors.Is(err, ErrTableNotFound))

	// the catalog can read itself
	tbl, err := db.OpenTableByName("msysobjects")
	require.NoError(t, err)
	assert.Equal(6, tbl.NumRows)
	vals := bindAll(t, tbl)
	rows := fetchAll(t, tbl, vals)
	require.Len(t, rows, 6)
	assert.Equal([]string{"16777220", "People", "1"}, rows[1])
	assert.Equal([]string{"12", "Form1", "-32768"}, rows[3])
}

func TestCatalogClosed(t *testing.T) {
	assert := assertion.New(t)
	db := openSample(t)
	require.NoError(t, db.Close())

	_, err := db.Catalog()
	assert.True(errors.Is(err, ErrClosed))
	_, err = db.OpenTableByName("People")
	assert.True(errors.Is(err, ErrClosed))
}
