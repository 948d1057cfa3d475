package jetdb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	assertion "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jetdb/internal/jettest"
)

func sampleOptions() *Options {
	return &Options{
		DateFormat:       jettest.SampleDateFmt,
		CachePages:       16,
		CacheCompression: CompSnappy,
	}
}

// openImage opens im in memory. A nil options selects sampleOptions.
func openImage(t *testing.T, im *jettest.Image, options *Options) *DB {
	if options == nil {
		options = sampleOptions()
	}
	r, size := im.Reader()
	db, err := OpenReader(r, size, options)
	require.NoError(t, err)
	return db
}

func openSample(t *testing.T) *DB {
	return openImage(t, jettest.Sample(), nil)
}

// quietLogger returns a logger that records entries instead of printing.
func quietLogger() (*logrus.Logger, *logtest.Hook) {
	return logtest.NewNullLogger()
}

func writeSample(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "sample.mdb")
	require.NoError(t, os.WriteFile(path, jettest.Sample().Bytes(), 0644))
	return path
}

func TestOpen(t *testing.T) {
	assert := assertion.New(t)
	path := writeSample(t)

	// open un-exist
	db, err := Open(path+".missing", nil)
	assert.Nil(db)
	assert.True(os.IsNotExist(err))

	db, err = Open(path, sampleOptions())
	require.NoError(t, err)
	assert.Equal(Jet4, db.Format().Version)
	assert.Equal(uint32(jettest.SamplePages), db.newPager().NumPages())

	// concurrent readers share the lock
	db2, err := Open(path, nil)
	assert.NoError(err)
	assert.NoError(db2.Close())

	entries, err := db.Catalog()
	assert.NoError(err)
	assert.Len(entries, 6)

	assert.NoError(db.Close())
	// close twice is a no-op
	assert.NoError(db.Close())

	_, err = db.Catalog()
	assert.True(errors.Is(err, ErrClosed))
}

func TestOpenMmap(t *testing.T) {
	assert := assertion.New(t)
	path := writeSample(t)

	options := sampleOptions()
	options.Mmap = true
	db, err := Open(path, options)
	require.NoError(t, err)
	defer db.Close()
	assert.NotNil(db.dataref)

	tbl, err := db.OpenTableByName("People")
	require.NoError(t, err)
	n := 0
	for {
		ok, err := tbl.Fetch()
		require.NoError(t, err)
		if !ok {
			break
		}
		n++
	}
	assert.Equal(len(jettest.PeopleRows), n)
}

func TestTableAfterClose(t *testing.T) {
	assert := assertion.New(t)
	path := writeSample(t)

	for _, mmap := range []bool{true, false} {
		options := sampleOptions()
		options.Mmap = mmap
		options.CachePages = 0
		db, err := Open(path, options)
		require.NoError(t, err)

		tbl, err := db.OpenTableByName("People")
		require.NoError(t, err)
		ok, err := tbl.Fetch()
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, db.Close())

		ok, err = tbl.Fetch()
		assert.False(ok)
		assert.True(errors.Is(err, ErrClosed), "mmap=%v: %v", mmap, err)
		assert.False(IsCorrupt(err))
		assert.True(errors.Is(tbl.Rewind(), ErrClosed))
		_, err = tbl.LongValue(5)
		assert.True(errors.Is(err, ErrClosed))

		// the shared page file refuses reads as well
		err = tbl.pager.ReadPage(jettest.PeopleDataB)
		assert.True(errors.Is(err, ErrClosed), "mmap=%v: %v", mmap, err)
		assert.False(IsCorrupt(err))
	}
}

func TestReadHeader(t *testing.T) {
	assert := assertion.New(t)

	im := jettest.NewImage()
	im.Set(3, make([]byte, jettest.PageSize))
	r, size := im.Reader()
	db, err := OpenReader(r, size, nil)
	assert.NoError(err)
	assert.Equal(Jet4, db.Format().Version)
	assert.Equal(4096, db.Format().PageSize)

	// ACE files share the Jet4 layout
	copy(im.Page(0)[4:], "Standard ACE DB")
	r, size = im.Reader()
	_, err = OpenReader(r, size, nil)
	assert.NoError(err)

	// version byte 0 is Jet3
	im.Page(0)[versionOffset] = 0
	r, size = im.Reader()
	db, err = OpenReader(r, size, nil)
	assert.NoError(err)
	assert.Equal(Jet3, db.Format().Version)
	assert.Equal(2048, db.Format().PageSize)

	// wrong magic
	copy(im.Page(0)[4:], "Standard Foo DB")
	r, size = im.Reader()
	_, err = OpenReader(r, size, nil)
	assert.True(errors.Is(err, ErrNotJet))
	assert.True(IsCorrupt(err))

	// page 0 must be a database header page
	im = jettest.NewImage()
	im.Page(0)[0] = byte(PageData)
	r, size = im.Reader()
	_, err = OpenReader(r, size, nil)
	assert.True(errors.Is(err, ErrNotJet))

	// shorter than one page
	hdr := jettest.NewImage().Bytes()[:100]
	_, err = OpenReader(bytes.NewReader(hdr), int64(len(hdr)), nil)
	assert.True(errors.Is(err, ErrNotJet))
}

func TestOpenBadOptions(t *testing.T) {
	assert := assertion.New(t)
	r, size := jettest.Sample().Reader()

	_, err := OpenReader(r, size, &Options{Charset: "no-such-charset"})
	assert.Error(err)

	db, err := OpenReader(r, size, &Options{})
	assert.NoError(err)
	assert.Equal(DefaultMaxChainHops, db.options.MaxChainHops)
	assert.Equal(0, db.CachedPages())
}

func TestPageCache(t *testing.T) {
	assert := assertion.New(t)
	for _, alg := range []CompressAlgorithm{CompSnappy, CompLz4, CompNone} {
		options := sampleOptions()
		options.CacheCompression = alg
		db := openImage(t, jettest.Sample(), options)

		_, err := db.Catalog()
		assert.NoError(err, alg.String())
		cold := db.Stats()
		assert.NotZero(cold.PageReads, alg.String())
		assert.NotZero(db.CachedPages(), alg.String())

		// a second table scan is served from the cache
		tbl, err := db.OpenTableByName("People")
		assert.NoError(err)
		for {
			ok, err := tbl.Fetch()
			assert.NoError(err)
			if !ok {
				break
			}
		}
		tbl, err = db.OpenTableByName("People")
		assert.NoError(err)
		before := db.Stats()
		for {
			ok, err := tbl.Fetch()
			assert.NoError(err)
			if !ok {
				break
			}
		}
		after := db.Stats()
		assert.Equal(before.PageReads, after.PageReads, alg.String())
		assert.True(after.CacheHits > before.CacheHits, alg.String())
	}
}

func TestPageCacheEviction(t *testing.T) {
	assert := assertion.New(t)
	c, err := newPageCache(2, CompLz4)
	require.NoError(t, err)

	pg := make([]byte, 4096)
	for i := range pg {
		pg[i] = byte(i % 7)
	}
	c.put(1, pg)
	c.put(2, pg)
	c.put(3, pg)
	assert.Equal(2, c.len())

	dst := make([]byte, 4096)
	assert.False(c.get(1, dst))
	assert.True(c.get(3, dst))
	assert.Equal(pg, dst)

	// a cached page of the wrong size is dropped
	assert.False(c.get(3, make([]byte, 2048)))
	assert.Equal(1, c.len())
}

func TestMetricsRegisterer(t *testing.T) {
	assert := assertion.New(t)
	reg := prometheus.NewRegistry()
	options := sampleOptions()
	options.Registerer = reg
	options.CachePages = 0

	db1 := openImage(t, jettest.Sample(), options)
	db2 := openImage(t, jettest.Sample(), options)
	_, err := db1.Catalog()
	assert.NoError(err)
	_, err = db2.Catalog()
	assert.NoError(err)

	// both handles feed the collector registered first
	n := db1.Stats().PageReads + db2.Stats().PageReads
	assert.Equal(float64(n), testutil.ToFloat64(db1.metrics.promReads))
}

func TestLoggerDefault(t *testing.T) {
	assert := assertion.New(t)
	logger, _ := quietLogger()
	options := sampleOptions()
	options.Logger = logger
	db := openImage(t, jettest.Sample(), options)
	assert.Equal(logrus.FieldLogger(logger), db.logger())

	db = openImage(t, jettest.Sample(), &Options{})
	assert.Equal(logrus.FieldLogger(logrus.StandardLogger()), db.logger())
}
