package jetdb

import (
	"encoding/binary"
	"testing"

	assertion "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jetdb/internal/jettest"
)

// scanTable is a bare cursor over db driven by usageMap, for exercising
// page selection without a table definition.
func scanTable(db *DB, usageMap []byte, tdefPage uint32) *Table {
	return &Table{
		Name:     "scan",
		Entry:    &CatalogEntry{Name: "scan", Type: ObjTable, TableDefPage: tdefPage},
		db:       db,
		format:   db.format,
		pager:    db.newPager(),
		log:      db.log,
		usageMap: usageMap,
	}
}

func collectPages(t *testing.T, tbl *Table) []uint32 {
	var pages []uint32
	for {
		pg, err := tbl.nextDataPage()
		require.NoError(t, err)
		if pg == 0 {
			return pages
		}
		pages = append(pages, pg)
		tbl.curPhysPg = pg
	}
}

func TestUsageMapInline(t *testing.T) {
	assert := assertion.New(t)
	db := openSample(t)

	tbl := scanTable(db, jettest.UsageMap0(0, 5, 6, 17), 0)
	assert.Equal([]uint32{5, 6, 17}, collectPages(t, tbl))

	// bit 0 is the base page
	tbl = scanTable(db, jettest.UsageMap0(40, 40, 41, 55), 0)
	assert.Equal([]uint32{40, 41, 55}, collectPages(t, tbl))

	tbl = scanTable(db, jettest.UsageMap0(0, 3, 9), 0)
	tbl.curPhysPg = 3
	pg, err := tbl.nextDataPage()
	assert.NoError(err)
	assert.Equal(uint32(9), pg)

	tbl = scanTable(db, []byte{0, 1, 0}, 0)
	assert.Empty(collectPages(t, tbl))
}

func mapPage(bits ...uint32) []byte {
	pg := make([]byte, jettest.PageSize)
	pg[0] = jettest.PageMap
	for _, b := range bits {
		pg[4+b/8] |= 1 << (b % 8)
	}
	return pg
}

func indirectMap(pages ...uint32) []byte {
	m := []byte{1}
	for _, p := range pages {
		m = binary.LittleEndian.AppendUint32(m, p)
	}
	return m
}

func TestUsageMapIndirect(t *testing.T) {
	assert := assertion.New(t)
	per := uint32(FormatJet4.bitsPerMapPage())

	im := jettest.NewImage()
	im.Set(2, mapPage(5, 9))
	im.Set(3, mapPage(0, 7))
	db := openImage(t, im, &Options{})

	tbl := scanTable(db, indirectMap(2, 0, 3), 0)
	assert.Equal([]uint32{5, 9, 2 * per, 2*per + 7}, collectPages(t, tbl))

	// resume mid bitmap
	tbl = scanTable(db, indirectMap(2), 0)
	tbl.curPhysPg = 6
	pg, err := tbl.nextDataPage()
	assert.NoError(err)
	assert.Equal(uint32(9), pg)
}

func TestUsageMapIndirectSkipsEmptyEntries(t *testing.T) {
	assert := assertion.New(t)
	per := uint32(FormatJet4.bitsPerMapPage())

	im := jettest.NewImage()
	im.Set(3, mapPage(5))
	db := openImage(t, im, &Options{})

	tbl := scanTable(db, indirectMap(0, 3), 0)
	require.NoError(t, tbl.pager.ReadPage(1))
	reads := db.Stats().PageReads

	pg, err := tbl.nextDataPage()
	assert.NoError(err)
	assert.Equal(per+5, pg)
	// only the map page of the second entry was read
	assert.Equal(reads+1, db.Stats().PageReads)
	// and the current page survived it
	assert.Equal(uint32(1), tbl.pager.PageNum())
}

func TestUsageMapBruteForce(t *testing.T) {
	assert := assertion.New(t)
	logger, hook := quietLogger()
	im := jettest.NewImage()
	im.Set(4, jettest.DataPage(2, nil, nil))
	im.Set(6, jettest.DataPage(9, nil, nil))
	im.Set(7, jettest.TableDef(nil, 0, 0, 0))
	im.Set(8, jettest.DataPage(9, nil, nil))
	db := openImage(t, im, &Options{Logger: logger})

	// unknown map type
	tbl := scanTable(db, []byte{7, 1, 2, 3}, 9)
	assert.Equal([]uint32{6, 8}, collectPages(t, tbl))
	assert.NotEmpty(hook.AllEntries())

	// no map at all
	tbl = scanTable(db, nil, 2)
	assert.Equal([]uint32{4}, collectPages(t, tbl))
}

func TestFetchBruteForceTable(t *testing.T) {
	assert := assertion.New(t)
	logger, _ := quietLogger()
	options := sampleOptions()
	options.Logger = logger
	db := openImage(t, jettest.Sample(), options)

	tbl, err := db.OpenTableByName("Logs")
	require.NoError(t, err)
	var seq, msg string
	_, err = tbl.BindColumnByName("seq", &seq, nil)
	require.NoError(t, err)
	_, err = tbl.BindColumnByName("msg", &msg, nil)
	require.NoError(t, err)

	var got []string
	for {
		ok, err := tbl.Fetch()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, seq+":"+msg)
	}
	// the page owned by another table is skipped
	assert.Equal([]string{"1:a", "2:b", "3:c"}, got)
}
