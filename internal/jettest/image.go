// Package jettest writes small Jet4 database images for tests. It mirrors
// the on-disk layout independently of the reader so that tests check the
// reader against the format rather than against itself.
package jettest

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	PageSize       = 4096
	rowCountOffset = 0x0c

	PageData     = 0x01
	PageTableDef = 0x02
	PageMap      = 0x05

	RowLookup  uint16 = 0x8000
	RowDeleted uint16 = 0x4000

	LvalInline     uint16 = 0x8000
	LvalSinglePage uint16 = 0x4000
	LvalChained    uint16 = 0x0000
)

type ColType byte

const (
	Bool     ColType = 0x01
	Byte     ColType = 0x02
	Int      ColType = 0x03
	LongInt  ColType = 0x04
	Money    ColType = 0x05
	Float    ColType = 0x06
	Double   ColType = 0x07
	DateTime ColType = 0x08
	Binary   ColType = 0x09
	Text     ColType = 0x0a
	OLE      ColType = 0x0b
	Memo     ColType = 0x0c
	Numeric  ColType = 0x10
)

func (t ColType) width() int {
	switch t {
	case Bool:
		return 0
	case Byte:
		return 1
	case Int:
		return 2
	case LongInt, Float:
		return 4
	case Money, Double, DateTime:
		return 8
	case Numeric:
		return 17
	}
	return -1
}

// Col declares a table column. Size only matters for variable columns.
type Col struct {
	Name  string
	Type  ColType
	Size  int
	Prec  int
	Scale int
}

// Image is a database file under construction. Page 0 is the header.
type Image struct {
	pages [][]byte
}

func NewImage() *Image {
	hdr := make([]byte, PageSize)
	copy(hdr[4:], "Standard Jet DB")
	hdr[0x14] = 1
	return &Image{pages: [][]byte{hdr}}
}

// Set stores pg as page n, growing the file with zero pages as needed.
func (im *Image) Set(n int, pg []byte) {
	for len(im.pages) <= n {
		im.pages = append(im.pages, make([]byte, PageSize))
	}
	im.pages[n] = pg
}

// Page returns page n for in-place edits.
func (im *Image) Page(n int) []byte {
	return im.pages[n]
}

func (im *Image) Bytes() []byte {
	return bytes.Join(im.pages, nil)
}

// Reader returns the image and its size, ready for OpenReader.
func (im *Image) Reader() (*bytes.Reader, int64) {
	b := im.Bytes()
	return bytes.NewReader(b), int64(len(b))
}

// TableDef writes a single page table definition. Column numbers follow
// the slice order.
func TableDef(cols []Col, numRows int, mapPage uint32, mapRow int) []byte {
	return TableDefChain(cols, numRows, mapPage, mapRow, nil)[0]
}

// TableDefChain writes a table definition spread over 1+len(next) pages.
// Page i links to next[i]; continuation pages carry an 8 byte header.
func TableDefChain(cols []Col, numRows int, mapPage uint32, mapRow int, next []uint32) [][]byte {
	def := make([]byte, 63+len(cols)*(25+2+2*32))
	def[0], def[1] = PageTableDef, 0x01
	put32(def, 16, uint32(numRows))
	put16(def, 45, len(cols))
	put32(def, 55, mapPage<<8|uint32(mapRow))

	pos := 63
	fixedOff, varNum := 0, 0
	for i, c := range cols {
		e := def[pos : pos+25]
		e[0] = byte(c.Type)
		e[5] = byte(i)
		e[11], e[12] = byte(c.Prec), byte(c.Scale)
		if w := c.Type.width(); w >= 0 {
			e[15] = 0x01
			put16(e, 21, fixedOff)
			put16(e, 23, w)
			fixedOff += w
		} else {
			put16(e, 7, varNum)
			put16(e, 23, c.Size)
			varNum++
		}
		pos += 25
	}
	for _, c := range cols {
		name := UCS2(c.Name)
		put16(def, pos, len(name))
		pos += 2
		pos += copy(def[pos:], name)
	}

	pages := [][]byte{make([]byte, PageSize)}
	rest := def[copy(pages[0], def):]
	for range next {
		pg := make([]byte, PageSize)
		pg[0], pg[1] = PageTableDef, 0x01
		rest = rest[copy(pg[8:], rest):]
		pages = append(pages, pg)
	}
	for i, n := range next {
		put32(pages[i], 4, n)
	}
	return pages
}

// DataPage lays rows out from the end of the page downwards, row 0 last.
// flags, when given, are or'ed into the directory slots.
func DataPage(owner uint32, rows [][]byte, flags []uint16) []byte {
	pg := make([]byte, PageSize)
	pg[0], pg[1] = PageData, 0x01
	put32(pg, 4, owner)
	put16(pg, rowCountOffset, len(rows))
	end := PageSize
	for i, r := range rows {
		start := end - len(r)
		copy(pg[start:], r)
		e := uint16(start)
		if flags != nil {
			e |= flags[i]
		}
		put16(pg, rowCountOffset+2+2*i, int(e))
		end = start
	}
	return pg
}

// Row packs one Jet4 row. A nil value is null; Bool columns take a bool,
// every other column raw bytes.
func Row(cols []Col, vals []any) []byte {
	n := len(cols)
	mask := make([]byte, (n+7)/8)
	var fixed, data []byte
	var lens []int
	for i, c := range cols {
		v := vals[i]
		if c.Type == Bool {
			if b, _ := v.(bool); b {
				mask[i/8] |= 1 << (i % 8)
			}
			continue
		}
		raw, _ := v.([]byte)
		if v != nil {
			mask[i/8] |= 1 << (i % 8)
		}
		if w := c.Type.width(); w >= 0 {
			buf := make([]byte, w)
			copy(buf, raw)
			fixed = append(fixed, buf...)
		} else {
			data = append(data, raw...)
			lens = append(lens, len(raw))
		}
	}

	row := le16(n)
	row = append(row, fixed...)
	offs := []int{len(row)}
	for _, l := range lens {
		offs = append(offs, offs[len(offs)-1]+l)
	}
	row = append(row, data...)
	for i := len(offs) - 1; i >= 0; i-- {
		row = append(row, le16(offs[i])...)
	}
	row = append(row, le16(len(lens))...)
	return append(row, mask...)
}

// UsageMap0 builds an inline usage map starting at base with the given
// pages marked.
func UsageMap0(base uint32, pages ...uint32) []byte {
	m := make([]byte, 5+16)
	put32(m, 1, base)
	for _, p := range pages {
		off := p - base
		m[5+off/8] |= 1 << (off % 8)
	}
	return m
}

// UCS2 encodes s (ASCII) as little-endian UCS-2 without a marker.
func UCS2(s string) []byte {
	out := make([]byte, 0, 2*len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, s[i], 0)
	}
	return out
}

// Compressed encodes s behind the FF FE compression marker.
func Compressed(s string) []byte {
	return append([]byte{0xff, 0xfe}, s...)
}

func I16(v int16) []byte {
	return le16(int(uint16(v)))
}

func I32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func I64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func F32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func F64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

// NumericField writes a 17 byte fixed point field.
func NumericField(mag uint32, neg bool) []byte {
	b := make([]byte, 17)
	if neg {
		b[0] = 0x80
	}
	binary.LittleEndian.PutUint32(b[13:], mag)
	return b
}

// LongValueRef is a 12 byte memo/OLE descriptor pointing at page/row.
func LongValueRef(length int, flags uint16, row int, page uint32) []byte {
	b := make([]byte, 12)
	put16(b, 0, length)
	put16(b, 2, int(flags))
	b[4] = byte(row)
	b[5], b[6], b[7] = byte(page), byte(page>>8), byte(page>>16)
	return b
}

// LongValueInline is a descriptor followed by its payload.
func LongValueInline(payload []byte) []byte {
	return append(LongValueRef(len(payload), LvalInline, 0, 0), payload...)
}

// ChainLink is one row of a chained long value.
func ChainLink(nextRow int, nextPage uint32, payload []byte) []byte {
	b := []byte{byte(nextRow), byte(nextPage), byte(nextPage >> 8), byte(nextPage >> 16)}
	return append(b, payload...)
}

func le16(v int) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func put16(b []byte, off, v int) {
	binary.LittleEndian.PutUint16(b[off:], uint16(v))
}

func put32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}
