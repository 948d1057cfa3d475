package jetdb

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// view is a bounds-checked little-endian reader over a page buffer. The first
// out of range access is latched in err; later reads return 0 so a decode
// sequence can be written straight through and checked once.
type view struct {
	b   []byte
	err error
}

func newView(b []byte) *view {
	return &view{b: b}
}

func (v *view) check(off, n int) bool {
	if v.err != nil {
		return false
	}
	if off < 0 || n < 0 || off > len(v.b)-n {
		v.err = errors.Wrapf(ErrOutOfBounds, "offset %d len %d in %d byte buffer", off, n, len(v.b))
		return false
	}
	return true
}

func (v *view) u8(off int) int {
	if !v.check(off, 1) {
		return 0
	}
	return int(v.b[off])
}

func (v *view) u16(off int) int {
	if !v.check(off, 2) {
		return 0
	}
	return int(v.b[off]) | int(v.b[off+1])<<8
}

func (v *view) u24(off int) uint32 {
	if !v.check(off, 3) {
		return 0
	}
	return uint32(v.b[off]) | uint32(v.b[off+1])<<8 | uint32(v.b[off+2])<<16
}

func (v *view) u32(off int) uint32 {
	if !v.check(off, 4) {
		return 0
	}
	return uint32(v.b[off]) | uint32(v.b[off+1])<<8 | uint32(v.b[off+2])<<16 | uint32(v.b[off+3])<<24
}

// slice returns b[off:off+n] without copying.
func (v *view) slice(off, n int) []byte {
	if !v.check(off, n) {
		return nil
	}
	return v.b[off : off+n : off+n]
}

func (v *view) len() int {
	return len(v.b)
}

// pageFile is the shared, read-only source of pages for one DB handle.
type pageFile struct {
	r        io.ReaderAt
	size     int64
	pageSize int
	cache    *pageCache
	metrics  *metrics

	// set by DB.Close before the file or mapping goes away
	closed atomic.Bool
}

func (f *pageFile) numPages() uint32 {
	return uint32(f.size / int64(f.pageSize))
}

// readPage fills dst with page n. Anything short of a full page is
// ErrShortPage and dst is zeroed so no stale bytes survive.
func (f *pageFile) readPage(dst []byte, n uint32) error {
	if f.closed.Load() {
		return errors.Wrapf(ErrClosed, "read page %d", n)
	}
	if f.cache != nil {
		if f.cache.get(n, dst) {
			f.metrics.cacheHit()
			return nil
		}
		f.metrics.cacheMiss()
	}
	got, err := f.r.ReadAt(dst, int64(n)*int64(f.pageSize))
	f.metrics.pageRead()
	if got != f.pageSize {
		clear(dst)
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return errors.Wrapf(ErrShortPage, "page %d: read %d of %d bytes: %v", n, got, f.pageSize, err)
	}
	if f.cache != nil {
		f.cache.put(n, dst)
	}
	return nil
}

// pager owns a primary and an alternate page buffer over a shared pageFile.
// Every Table has its own pager so that cursors on one handle never clobber
// each other's current page.
type pager struct {
	file   *pageFile
	format *Format

	buf, alt      []byte
	pgNum, altNum uint32
	bufOK, altOK  bool
}

func newPager(f *pageFile, format *Format) *pager {
	return &pager{
		file:   f,
		format: format,
		buf:    make([]byte, format.PageSize),
		alt:    make([]byte, format.PageSize),
	}
}

// ReadPage loads page n into the primary buffer. The file is never written,
// so a page that is already loaded is not read again.
func (p *pager) ReadPage(n uint32) error {
	if p.bufOK && p.pgNum == n {
		return nil
	}
	if err := p.file.readPage(p.buf, n); err != nil {
		p.bufOK = false
		return err
	}
	p.pgNum, p.bufOK = n, true
	return nil
}

// ReadAltPage loads page n into the alternate buffer.
func (p *pager) ReadAltPage(n uint32) error {
	if err := p.file.readPage(p.alt, n); err != nil {
		p.altOK = false
		return err
	}
	p.altNum, p.altOK = n, true
	return nil
}

// Swap exchanges the primary and alternate buffers.
func (p *pager) Swap() {
	p.buf, p.alt = p.alt, p.buf
	p.pgNum, p.altNum = p.altNum, p.pgNum
	p.bufOK, p.altOK = p.altOK, p.bufOK
}

// WithAltPage reads page n into the alternate buffer, swaps it in for the
// duration of fn and swaps back on every return path, panics included. The
// primary page is unchanged when it returns.
func (p *pager) WithAltPage(n uint32, fn func(v *view) error) error {
	if err := p.ReadAltPage(n); err != nil {
		return err
	}
	p.Swap()
	defer p.Swap()
	return fn(p.Page())
}

// Page returns a bounds-checked view of the primary buffer.
func (p *pager) Page() *view {
	if !p.bufOK {
		return &view{b: p.buf, err: errors.Wrap(ErrShortPage, "no page loaded")}
	}
	return newView(p.buf)
}

// PageNum returns the number of the page in the primary buffer.
func (p *pager) PageNum() uint32 {
	return p.pgNum
}

// NumPages returns the number of whole pages in the file.
func (p *pager) NumPages() uint32 {
	return p.file.numPages()
}
