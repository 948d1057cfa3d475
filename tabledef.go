package jetdb

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// tableDef is the parsed content of a table definition page chain.
type tableDef struct {
	numRows   int
	numIdxs   int
	columns   []*Column
	mapPage   uint32
	mapRow    int
	continued int
}

// readTableDefBytes loads the definition starting at page n, following
// continuation pages. Continuation pages contribute everything after their
// 8 byte header.
func readTableDefBytes(p *pager, n uint32, maxPages int) ([]byte, int, error) {
	var buf []byte
	pages := 0
	for pg := n; pg != 0; pages++ {
		if pages > maxPages {
			return nil, 0, errors.Wrapf(ErrBadTableDef, "definition at page %d loops", n)
		}
		if err := p.ReadPage(pg); err != nil {
			return nil, 0, err
		}
		v := p.Page()
		if typ := PageType(v.u8(0)); typ != PageTableDef {
			return nil, 0, errors.Wrapf(ErrBadTableDef, "page %d has type 0x%02x", pg, typ)
		}
		next := v.u32(4)
		if pages == 0 {
			buf = append(buf, v.b...)
		} else {
			buf = append(buf, v.slice(p.format.TabDefContinueOff, v.len()-p.format.TabDefContinueOff)...)
		}
		if v.err != nil {
			return nil, 0, v.err
		}
		pg = next
	}
	return buf, pages - 1, nil
}

func readTableDef(p *pager, dec *Decoder, n uint32) (*tableDef, error) {
	f := p.format
	raw, continued, err := readTableDefBytes(p, n, int(p.NumPages()))
	if err != nil {
		return nil, err
	}
	v := newView(raw)
	td := &tableDef{
		numRows:   int(v.u32(f.TabNumRowsOffset)),
		numIdxs:   int(v.u32(f.TabNumIdxsOffset)),
		continued: continued,
	}
	numCols := v.u16(f.TabNumColsOffset)
	numRIdxs := int(v.u32(f.TabNumRIdxsOffset))
	pgRow := v.u32(f.TabUsageMapOffset)
	td.mapRow, td.mapPage = int(pgRow&0xff), pgRow>>8
	if v.err != nil {
		return nil, errors.Wrapf(ErrBadTableDef, "page %d header: %v", n, v.err)
	}

	pos := f.TabColsStartOff + numRIdxs*f.TabRIdxEntrySize
	if numRIdxs < 0 || pos > v.len() {
		return nil, errors.Wrapf(ErrBadTableDef, "page %d: %d real indexes", n, numRIdxs)
	}
	td.columns = make([]*Column, numCols)
	for i := range td.columns {
		e := v.slice(pos, f.ColEntrySize)
		if e == nil {
			return nil, errors.Wrapf(ErrBadTableDef, "page %d column %d: %v", n, i, v.err)
		}
		ev := newView(e)
		col := &Column{
			Type:        ColType(ev.u8(f.ColTypeOffset)),
			Num:         ev.u8(f.ColNumOffset),
			VarNum:      ev.u16(f.ColVarOffset),
			Precision:   ev.u8(f.ColPrecOffset),
			Scale:       ev.u8(f.ColScaleOffset),
			IsFixed:     ev.u8(f.ColFlagsOffset)&0x01 != 0,
			FixedOffset: ev.u16(f.ColFixedOffset),
			Size:        ev.u16(f.ColSizeOffset),
		}
		td.columns[i] = col
		pos += f.ColEntrySize
	}

	for i, col := range td.columns {
		var l int
		if f.ColNameLenSize == 2 {
			l = v.u16(pos)
		} else {
			l = v.u8(pos)
		}
		pos += f.ColNameLenSize
		name := v.slice(pos, l)
		if v.err != nil {
			return nil, errors.Wrapf(ErrBadTableDef, "page %d column name %d: %v", n, i, v.err)
		}
		if col.Name, err = dec.name(name); err != nil {
			return nil, errors.Wrapf(ErrBadTableDef, "page %d column name %d: %v", n, i, err)
		}
		pos += l
	}

	sort.SliceStable(td.columns, func(i, j int) bool {
		return td.columns[i].Num < td.columns[j].Num
	})
	for i, col := range td.columns {
		col.index = i
	}
	return td, nil
}

// name decodes an object or column name. Jet4 names are plain UCS-2.
func (d *Decoder) name(raw []byte) (string, error) {
	if d.version == Jet3 {
		return d.Text(raw)
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// readUsageMap copies the usage map row referenced by the definition.
func readUsageMap(p *pager, td *tableDef) ([]byte, error) {
	var m []byte
	err := p.WithAltPage(td.mapPage, func(v *view) error {
		start, end, _, err := rowExtent(v, p.format, td.mapRow)
		if err != nil {
			return err
		}
		m = append([]byte(nil), v.slice(start, end-start+1)...)
		return v.err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "usage map at page %d row %d", td.mapPage, td.mapRow)
	}
	return m, nil
}
