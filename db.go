package jetdb

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var jetMagics = [][]byte{
	[]byte("Standard Jet DB"),
	[]byte("Standard ACE DB"),
}

const (
	magicOffset = 4

	DefaultCachePages   = 256
	DefaultMaxChainHops = 1 << 18
)

// Options represents the options that can be set when opening a database.
type Options struct {
	// DateFormat is the strftime pattern used to render DateTime columns.
	// Every table opened from the handle shares it. Defaults to "%x %X".
	DateFormat string

	// Charset names the legacy code page of Jet3 text, e.g. "windows-1252".
	// Any name known to the WHATWG encoding index is accepted. When empty,
	// Jet3 text bytes are passed through unchanged. Jet4 text ignores it.
	Charset string

	// CachePages is the number of pages kept in the shared page cache.
	// If <=0, pages are always read from the file.
	CachePages int

	// CacheCompression selects how cached pages are held in memory.
	CacheCompression CompressAlgorithm

	// Mmap maps the file read-only instead of issuing a pread per page.
	Mmap bool

	// MaxChainHops bounds the number of pages a chained memo or OLE value
	// may span. A longer chain is reported as ErrCorruptChain. The number
	// of pages in the file is always an upper bound as well.
	MaxChainHops int

	// Logger receives warnings about recoverable corruption and debug
	// tracing of scans. Defaults to the logrus standard logger.
	Logger log.FieldLogger

	// Registerer, when set, receives the page store counters.
	Registerer prometheus.Registerer
}

var DefaultOptions = &Options{
	DateFormat:       DefaultDateFormat,
	CachePages:       DefaultCachePages,
	CacheCompression: CompSnappy,
	MaxChainHops:     DefaultMaxChainHops,
}

// DB is an open Jet database file. Tables opened from it each keep their
// own page buffers, so several can be scanned in turn; a single Table must
// not be used from more than one goroutine at a time.
type DB struct {
	path    string
	file    *os.File
	dataref []byte // mmap'ed readonly
	opened  bool

	format  *Format
	pages   *pageFile
	decoder *Decoder
	options Options
	log     log.FieldLogger
	metrics *metrics

	mu      sync.Mutex
	catalog []*CatalogEntry
}

// Open opens the database file at path read-only. A shared advisory lock
// is held until Close.
func Open(path string, options *Options) (*DB, error) {
	var db = &DB{opened: true, path: path}
	var err error
	if db.file, err = os.Open(path); err != nil {
		return nil, err
	}

	if err := flock(db.file); err != nil {
		_ = db.close()
		return nil, err
	}

	info, err := db.file.Stat()
	if err != nil {
		_ = db.close()
		return nil, errors.Wrap(err, "stat db file")
	}

	var r io.ReaderAt = db.file
	if options != nil && options.Mmap && info.Size() > 0 {
		if db.dataref, err = mmap(db.file, int(info.Size())); err != nil {
			_ = db.close()
			return nil, err
		}
		r = bytes.NewReader(db.dataref)
	}

	if err := db.init(r, info.Size(), options); err != nil {
		_ = db.close()
		return nil, err
	}
	return db, nil
}

// OpenReader reads a database image from r, which holds size bytes.
func OpenReader(r io.ReaderAt, size int64, options *Options) (*DB, error) {
	db := &DB{opened: true}
	if err := db.init(r, size, options); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) init(r io.ReaderAt, size int64, options *Options) error {
	// Set default options if no options are provided.
	if options == nil {
		options = DefaultOptions
	}
	db.options = *options
	if db.options.MaxChainHops <= 0 {
		db.options.MaxChainHops = DefaultMaxChainHops
	}
	db.log = db.options.Logger
	if db.log == nil {
		db.log = log.StandardLogger()
	}

	version, err := readHeader(r)
	if err != nil {
		return err
	}
	db.format = formatFor(version)
	if size < int64(db.format.PageSize) {
		return errors.Wrapf(ErrNotJet, "%d bytes is less than one page", size)
	}

	if db.decoder, err = NewDecoder(version, db.options.DateFormat, db.options.Charset); err != nil {
		return err
	}

	db.metrics = newMetrics(db.options.Registerer)
	db.pages = &pageFile{
		r:        r,
		size:     size,
		pageSize: db.format.PageSize,
		metrics:  db.metrics,
	}
	if db.options.CachePages > 0 {
		if db.pages.cache, err = newPageCache(db.options.CachePages, db.options.CacheCompression); err != nil {
			return err
		}
	}
	db.log.WithFields(log.Fields{
		"path":    db.path,
		"version": version,
		"pages":   db.pages.numPages(),
	}).Debug("jet database opened")
	return nil
}

// readHeader validates the magic string on page 0 and returns the layout
// generation recorded there.
func readHeader(r io.ReaderAt) (JetVersion, error) {
	var hdr [versionOffset + 1]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return 0, errors.Wrapf(ErrNotJet, "read header: %v", err)
	}
	if hdr[0] != byte(PageDB) {
		return 0, errors.Wrapf(ErrNotJet, "page 0 type 0x%02x", hdr[0])
	}
	ok := false
	for _, m := range jetMagics {
		if bytes.Equal(hdr[magicOffset:magicOffset+len(m)], m) {
			ok = true
			break
		}
	}
	if !ok {
		return 0, ErrNotJet
	}
	if hdr[versionOffset] == 0 {
		return Jet3, nil
	}
	return Jet4, nil
}

// Close releases the file, its lock and any mapping.
func (db *DB) Close() error {
	return db.close()
}

func (db *DB) close() error {
	if !db.opened {
		return nil
	}

	db.opened = false
	if db.pages != nil {
		db.pages.closed.Store(true)
	}

	// Close the mmap.
	if err := munmap(db.dataref); err != nil {
		return errors.Wrap(err, "munmap")
	}
	db.dataref = nil

	// Close file handles.
	if db.file != nil {
		// Unlock the file.
		if err := funlock(db.file); err != nil {
			db.logger().Warnf("jetdb.Close(): funlock error: %s", err)
		}

		// Close the file descriptor.
		if err := db.file.Close(); err != nil {
			return errors.Wrap(err, "db file closed")
		}
		db.file = nil
	}

	db.path = ""
	return nil
}

func (db *DB) logger() log.FieldLogger {
	if db.log == nil {
		return log.StandardLogger()
	}
	return db.log
}

// Format returns the layout constants of the open file.
func (db *DB) Format() *Format {
	return db.format
}

// Decoder returns the value decoder configured for this handle.
func (db *DB) Decoder() *Decoder {
	return db.decoder
}

// Stats returns a snapshot of the page store counters.
func (db *DB) Stats() Stats {
	return db.metrics.snapshot()
}

// CachedPages reports how many pages the page cache holds.
func (db *DB) CachedPages() int {
	if db.pages.cache == nil {
		return 0
	}
	return db.pages.cache.len()
}

func (db *DB) newPager() *pager {
	return newPager(db.pages, db.format)
}
