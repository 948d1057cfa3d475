package jetdb

// JetVersion identifies the on-disk layout generation.
type JetVersion uint8

const (
	Jet3 JetVersion = iota
	Jet4
)

func (v JetVersion) String() string {
	if v == Jet3 {
		return "Jet3"
	}
	return "Jet4"
}

type PageType uint8

const (
	PageDB       PageType = 0x00
	PageData     PageType = 0x01
	PageTableDef PageType = 0x02
	PageIndexIn  PageType = 0x03
	PageIndexOut PageType = 0x04
	PageMap      PageType = 0x05
)

// row directory flag bits
const (
	rowLookupFlag uint16 = 0x8000
	rowDeleteFlag uint16 = 0x4000
	rowOffsetMask uint16 = 0x1fff
)

const (
	// catalog table definition always lives on page 2
	catalogPage uint32 = 2

	// versionOffset holds 0 for Jet3 and >= 1 for Jet4 and later
	versionOffset = 0x14

	memoOverhead = 12
)

// Format holds the layout constants of one Jet generation.
type Format struct {
	Version  JetVersion
	PageSize int

	// RowCountOffset is where a data page stores its row count. The row
	// directory follows immediately after it.
	RowCountOffset int

	TabNumRowsOffset  int
	TabNumColsOffset  int
	TabNumIdxsOffset  int
	TabNumRIdxsOffset int
	TabUsageMapOffset int
	TabColsStartOff   int
	TabRIdxEntrySize  int

	ColEntrySize      int
	ColTypeOffset     int
	ColNumOffset      int
	ColVarOffset      int
	ColRowNumOffset   int
	ColPrecOffset     int
	ColScaleOffset    int
	ColFlagsOffset    int
	ColFixedOffset    int
	ColSizeOffset     int
	ColNameLenSize    int
	RowColCountSize   int
	VarOffsetWidth    int
	TabDefContinueOff int
}

var (
	FormatJet3 = &Format{
		Version:           Jet3,
		PageSize:          2048,
		RowCountOffset:    0x08,
		TabNumRowsOffset:  12,
		TabNumColsOffset:  25,
		TabNumIdxsOffset:  27,
		TabNumRIdxsOffset: 31,
		TabUsageMapOffset: 35,
		TabColsStartOff:   43,
		TabRIdxEntrySize:  8,
		ColEntrySize:      18,
		ColTypeOffset:     0,
		ColNumOffset:      1,
		ColVarOffset:      3,
		ColRowNumOffset:   5,
		ColPrecOffset:     11,
		ColScaleOffset:    12,
		ColFlagsOffset:    13,
		ColFixedOffset:    14,
		ColSizeOffset:     16,
		ColNameLenSize:    1,
		RowColCountSize:   1,
		VarOffsetWidth:    1,
		TabDefContinueOff: 8,
	}
	FormatJet4 = &Format{
		Version:           Jet4,
		PageSize:          4096,
		RowCountOffset:    0x0c,
		TabNumRowsOffset:  16,
		TabNumColsOffset:  45,
		TabNumIdxsOffset:  47,
		TabNumRIdxsOffset: 51,
		TabUsageMapOffset: 55,
		TabColsStartOff:   63,
		TabRIdxEntrySize:  12,
		ColEntrySize:      25,
		ColTypeOffset:     0,
		ColNumOffset:      5,
		ColVarOffset:      7,
		ColRowNumOffset:   9,
		ColPrecOffset:     11,
		ColScaleOffset:    12,
		ColFlagsOffset:    15,
		ColFixedOffset:    21,
		ColSizeOffset:     23,
		ColNameLenSize:    2,
		RowColCountSize:   2,
		VarOffsetWidth:    2,
		TabDefContinueOff: 8,
	}
)

func formatFor(v JetVersion) *Format {
	if v == Jet3 {
		return FormatJet3
	}
	return FormatJet4
}

// rowDirOffset returns the page offset of row directory slot row.
func (f *Format) rowDirOffset(row int) int {
	return f.RowCountOffset + 2 + row*2
}

// bitsPerMapPage is the number of pages one type 1 usage map page covers.
func (f *Format) bitsPerMapPage() int {
	return (f.PageSize - 4) * 8
}
