package jetdb

import (
	"github.com/pkg/errors"
)

// Field locates one column's value inside the row last read. Value aliases
// the page buffer and is only valid until the next page read. Page is the
// physical page the row was bound from, 0 until then.
type Field struct {
	ColNum  int
	IsFixed bool
	IsNull  bool
	Start   int
	Size    int
	Value   []byte
	Page    uint32
}

// rowEntry reads directory slot row and splits it into the masked offset
// and the flag bits.
func rowEntry(v *view, f *Format, row int) (int, uint16) {
	e := uint16(v.u16(f.rowDirOffset(row)))
	return int(e & rowOffsetMask), e &^ rowOffsetMask
}

// findEndOfRow returns the inclusive last byte of row: one before the start
// of the nearest earlier slot that is not a lookup entry, or the last byte
// of the page.
func findEndOfRow(v *view, f *Format, row int) int {
	for i := row - 1; i >= 0; i-- {
		off, flags := rowEntry(v, f, i)
		if !hasFlag(flags, rowLookupFlag) {
			return off - 1
		}
	}
	return f.PageSize - 1
}

// rowExtent returns the inclusive byte range and flags of row, checked
// against the page.
func rowExtent(v *view, f *Format, row int) (start, end int, flags uint16, err error) {
	start, flags = rowEntry(v, f, row)
	end = findEndOfRow(v, f, row)
	if v.err != nil {
		return 0, 0, 0, v.err
	}
	if start > end || end >= v.len() {
		return 0, 0, 0, errors.Wrapf(ErrOutOfBounds, "row %d spans %d..%d", row, start, end)
	}
	return start, end, flags, nil
}

// isNull tests the row null mask for the 1-based column colNum. A set bit
// means the column holds a value.
func isNull(mask []byte, colNum int) bool {
	byteNum := (colNum - 1) / 8
	bitNum := uint((colNum - 1) % 8)
	if byteNum < 0 || byteNum >= len(mask) {
		return true
	}
	return mask[byteNum]&(1<<bitNum) == 0
}

// crackRow splits the row occupying [start, end] of the page into one Field
// per column, in column order. Columns the row predates are null.
func crackRow(v *view, f *Format, cols []*Column, start, end int) ([]Field, error) {
	cs := f.RowColCountSize
	var rowCols int
	if cs == 2 {
		rowCols = v.u16(start)
	} else {
		rowCols = v.u8(start)
	}
	bm := (rowCols + 7) / 8
	mask := v.slice(end-bm+1, bm)

	var (
		rowVarCols int
		offsets    []int
	)
	if f.Version == Jet4 {
		rowVarCols = v.u16(end - bm - 1)
		offsets = make([]int, rowVarCols+1)
		for i := range offsets {
			offsets[i] = v.u16(end - bm - 3 - 2*i)
		}
	} else {
		rowVarCols = v.u8(end - bm)
		offsets = jet3VarOffsets(v, start, end, bm, rowVarCols)
	}
	if v.err != nil {
		return nil, v.err
	}
	if rowVarCols > rowCols {
		return nil, errors.Wrapf(ErrOutOfBounds, "row claims %d variable of %d columns", rowVarCols, rowCols)
	}

	rowFixedCols := rowCols - rowVarCols
	fixedFound := 0
	fields := make([]Field, len(cols))
	for i, col := range cols {
		fd := &fields[i]
		fd.ColNum = i
		fd.IsFixed = col.IsFixed
		fd.IsNull = isNull(mask, col.Num+1)

		switch {
		case col.IsFixed && fixedFound < rowFixedCols:
			fixedFound++
			fd.Start = start + cs + col.FixedOffset
			fd.Size = col.Size
		case !col.IsFixed && col.VarNum < rowVarCols:
			fd.Start = start + offsets[col.VarNum]
			fd.Size = offsets[col.VarNum+1] - offsets[col.VarNum]
		default:
			fd.Start, fd.Size, fd.IsNull = 0, 0, true
			continue
		}
		if col.Type == ColBool {
			continue
		}
		if fd.Size < 0 || fd.Start < start || fd.Start+fd.Size > end+1 {
			return nil, errors.Wrapf(ErrOutOfBounds, "column %q at %d+%d outside row %d..%d",
				col.Name, fd.Start, fd.Size, start, end)
		}
		if !fd.IsNull {
			fd.Value = v.slice(fd.Start, fd.Size)
		}
	}
	return fields, v.err
}

// jet3VarOffsets reads the single byte variable offsets of a Jet3 row. Rows
// longer than 256 bytes carry a jump table in front of the variable count;
// each jump passed adds 256 to the offsets that follow it.
func jet3VarOffsets(v *view, start, end, bm, rowVarCols int) []int {
	numJumps := (end - start) / 256
	colPtr := end - bm - numJumps - 1
	// the last jump may be a dummy entry
	if numJumps > 0 && (colPtr-start-rowVarCols)/256 < numJumps {
		numJumps--
	}
	jumpsUsed := 0
	offsets := make([]int, rowVarCols+1)
	for i := range offsets {
		if jumpsUsed < numJumps && i == v.u8(end-bm-jumpsUsed-1) {
			jumpsUsed++
		}
		offsets[i] = v.u8(colPtr-i) + jumpsUsed*256
	}
	return offsets
}
