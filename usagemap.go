package jetdb

import (
	"encoding/binary"
)

// nextDataPage returns the first data page of the table after curPhysPg,
// or 0 when there is none. The usage map format is chosen by its first
// byte; an unknown format falls back to reading every following page.
func (t *Table) nextDataPage() (uint32, error) {
	if len(t.usageMap) > 0 {
		switch t.usageMap[0] {
		case 0:
			return t.findByMap0(), nil
		case 1:
			return t.findByMap1()
		}
		t.log.WithField("type", t.usageMap[0]).Warn("unrecognized usage map type, defaulting to brute force read")
	}
	return t.findByScan()
}

// findByMap0 scans an inline bitmap. Bytes 1..4 hold the page number of
// bit 0 and the bitmap starts at byte 5.
func (t *Table) findByMap0() uint32 {
	if len(t.usageMap) < 5 {
		return 0
	}
	pg := binary.LittleEndian.Uint32(t.usageMap[1:5])
	for _, b := range t.usageMap[5:] {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 && pg > t.curPhysPg {
				return pg
			}
			pg++
		}
	}
	return 0
}

// findByMap1 scans an indirect map: a list of 4 byte page numbers, each a
// map page whose bitmap starts at byte 4 and covers bitsPerMapPage pages.
// Empty entries are skipped without reading anything.
func (t *Table) findByMap1() (uint32, error) {
	per := uint32(t.format.bitsPerMapPage())
	next := t.curPhysPg + 1
	idx := next / per
	off := next % per

	for i := 1 + 4*int(idx); i+4 <= len(t.usageMap); i, idx = i+4, idx+1 {
		mapPg := binary.LittleEndian.Uint32(t.usageMap[i : i+4])
		if mapPg == 0 {
			off = 0
			continue
		}
		base := idx * per
		var found uint32
		err := t.pager.WithAltPage(mapPg, func(v *view) error {
			for k := off; k < per; k++ {
				if v.u8(4+int(k/8))&(1<<(k%8)) != 0 && base+k > t.curPhysPg {
					found = base + k
					return nil
				}
			}
			return v.err
		})
		if err != nil {
			return 0, err
		}
		if found != 0 {
			return found, nil
		}
		off = 0
	}
	return 0, nil
}

// findByScan reads the pages after curPhysPg until one is a data page owned
// by this table.
func (t *Table) findByScan() (uint32, error) {
	n := t.pager.NumPages()
	for pg := t.curPhysPg + 1; pg < n; pg++ {
		if err := t.pager.ReadPage(pg); err != nil {
			return 0, err
		}
		v := t.pager.Page()
		if PageType(v.u8(0)) == PageData && v.u32(4) == t.Entry.TableDefPage {
			return pg, nil
		}
	}
	return 0, nil
}
