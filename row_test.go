package jetdb

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	assertion "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jetdb/internal/jettest"
)

// testColumns lays cols out the way a table definition would.
func testColumns(cols []jettest.Col) []*Column {
	out := make([]*Column, len(cols))
	fixedOff, varNum := 0, 0
	for i, c := range cols {
		col := &Column{
			Name:      c.Name,
			Type:      ColType(c.Type),
			Num:       i,
			Precision: c.Prec,
			Scale:     c.Scale,
			index:     i,
		}
		if w := col.Type.fixedWidth(); w >= 0 {
			col.IsFixed, col.FixedOffset, col.Size = true, fixedOff, w
			fixedOff += w
		} else {
			col.VarNum, col.Size = varNum, c.Size
			varNum++
		}
		out[i] = col
	}
	return out
}

func crackOne(t *testing.T, cols []*Column, row []byte) ([]Field, error) {
	v := newView(jettest.DataPage(0, [][]byte{row}, nil))
	start, end, _, err := rowExtent(v, FormatJet4, 0)
	require.NoError(t, err)
	return crackRow(v, FormatJet4, cols, start, end)
}

func TestIsNull(t *testing.T) {
	assert := assertion.New(t)
	mask := []byte{0x01, 0x80}
	assert.False(isNull(mask, 1))
	assert.True(isNull(mask, 2))
	assert.True(isNull(mask, 8))
	assert.True(isNull(mask, 9))
	assert.False(isNull(mask, 16))
	// beyond the mask
	assert.True(isNull(mask, 17))
	assert.True(isNull(nil, 1))
	assert.True(isNull(mask, 0))

	// both directions at the edges of one mask byte
	assert.True(isNull([]byte{0xfe}, 1))
	assert.False(isNull([]byte{0xfe}, 2))
	assert.False(isNull([]byte{0x80}, 8))
	assert.True(isNull([]byte{0x80}, 1))
	assert.True(isNull([]byte{0x7f}, 8))
	assert.False(isNull([]byte{0x7f}, 7))
}

func TestFindEndOfRow(t *testing.T) {
	assert := assertion.New(t)
	pg := make([]byte, 4096)
	f := FormatJet4
	binary.LittleEndian.PutUint16(pg[f.RowCountOffset:], 3)
	binary.LittleEndian.PutUint16(pg[f.rowDirOffset(0):], 4000)
	binary.LittleEndian.PutUint16(pg[f.rowDirOffset(1):], 3000|rowLookupFlag)
	binary.LittleEndian.PutUint16(pg[f.rowDirOffset(2):], 3500|rowDeleteFlag)
	v := newView(pg)

	assert.Equal(4095, findEndOfRow(v, f, 0))
	assert.Equal(3999, findEndOfRow(v, f, 1))
	// lookup slots are passed over
	assert.Equal(3999, findEndOfRow(v, f, 2))

	start, end, flags, err := rowExtent(v, f, 2)
	assert.NoError(err)
	assert.Equal(3500, start)
	assert.Equal(3999, end)
	assert.True(hasFlag(flags, rowDeleteFlag))
	assert.False(hasFlag(flags, rowLookupFlag))

	off, flags := rowEntry(v, f, 1)
	assert.Equal(3000, off)
	assert.Equal(rowLookupFlag, flags)

	// start past end
	binary.LittleEndian.PutUint16(pg[f.rowDirOffset(0):], 0x1fff)
	_, _, _, err = rowExtent(v, f, 0)
	assert.True(errors.Is(err, ErrOutOfBounds))
}

func TestCrackRowJet4(t *testing.T) {
	assert := assertion.New(t)
	cols := testColumns(jettest.PeopleCols)
	row := jettest.Row(jettest.PeopleCols, []any{
		jettest.I32(7), true, nil, jettest.UCS2("Eve"), nil,
		jettest.F64(25569), jettest.I64(1), nil,
	})
	fields, err := crackOne(t, cols, row)
	require.NoError(t, err)
	require.Len(t, fields, len(cols))

	assert.False(fields[0].IsNull)
	assert.True(fields[0].IsFixed)
	assert.Equal(jettest.I32(7), fields[0].Value)
	// bool lives in the null mask only
	assert.False(fields[1].IsNull)
	assert.Nil(fields[1].Value)
	assert.True(fields[2].IsNull)
	assert.Nil(fields[2].Value)
	assert.False(fields[3].IsFixed)
	assert.Equal(jettest.UCS2("Eve"), fields[3].Value)
	assert.Equal(6, fields[3].Size)
	assert.True(fields[4].IsNull)
	assert.Equal(0, fields[4].Size)
	assert.Equal(jettest.F64(25569), fields[5].Value)
	assert.Equal(jettest.I64(1), fields[6].Value)
	assert.True(fields[7].IsNull)
	for i, fd := range fields {
		assert.Equal(i, fd.ColNum)
	}
}

func TestCrackRowMissingColumns(t *testing.T) {
	assert := assertion.New(t)
	short := []jettest.Col{
		{Name: "a", Type: jettest.LongInt},
		{Name: "b", Type: jettest.Text, Size: 10},
	}
	wide := append(append([]jettest.Col{}, short...),
		jettest.Col{Name: "c", Type: jettest.Text, Size: 10},
		jettest.Col{Name: "d", Type: jettest.Int},
	)
	// a row written before c and d were added
	row := jettest.Row(short, []any{jettest.I32(1), jettest.UCS2("x")})
	fields, err := crackOne(t, testColumns(wide), row)
	require.NoError(t, err)
	assert.False(fields[0].IsNull)
	assert.Equal(jettest.UCS2("x"), fields[1].Value)
	assert.True(fields[2].IsNull)
	assert.True(fields[3].IsNull)
}

func TestCrackRowOutOfBounds(t *testing.T) {
	assert := assertion.New(t)
	cols := []jettest.Col{
		{Name: "a", Type: jettest.LongInt},
		{Name: "b", Type: jettest.Text, Size: 10},
	}
	row := jettest.Row(cols, []any{jettest.I32(1), jettest.UCS2("xy")})
	// offset[1] sits 6 bytes before the 1 byte mask
	binary.LittleEndian.PutUint16(row[len(row)-7:], 0xff)
	_, err := crackOne(t, testColumns(cols), row)
	assert.True(errors.Is(err, ErrOutOfBounds))
	assert.True(IsCorrupt(err))

	// more variable columns than columns
	row = jettest.Row(cols, []any{jettest.I32(1), jettest.UCS2("xy")})
	binary.LittleEndian.PutUint16(row[len(row)-3:], 9)
	_, err = crackOne(t, testColumns(cols), row)
	assert.True(errors.Is(err, ErrOutOfBounds))
}

// jet3Page places a single row at the end of a Jet3 page.
func jet3Page(row []byte) *view {
	f := FormatJet3
	pg := make([]byte, f.PageSize)
	pg[0] = byte(PageData)
	start := f.PageSize - len(row)
	copy(pg[start:], row)
	binary.LittleEndian.PutUint16(pg[f.RowCountOffset:], 1)
	binary.LittleEndian.PutUint16(pg[f.rowDirOffset(0):], uint16(start))
	return newView(pg)
}

var jet3Cols = []*Column{
	{Name: "n", Type: ColLongInt, Num: 0, IsFixed: true, Size: 4},
	{Name: "t", Type: ColText, Num: 1, VarNum: 0, Size: 255, index: 1},
}

func TestCrackRowJet3JumpTable(t *testing.T) {
	assert := assertion.New(t)

	row := make([]byte, 310)
	row[0] = 2
	copy(row[1:], jettest.I32(-3))
	for i := 5; i < 305; i++ {
		row[i] = 'a' + byte(i%26)
	}
	row[305] = 305 - 256 // offset[1], past the jump
	row[306] = 5         // offset[0]
	row[307] = 1         // jump applies from variable column 1
	row[308] = 1         // variable column count
	row[309] = 0x03      // null mask

	v := jet3Page(row)
	start, end, _, err := rowExtent(v, FormatJet3, 0)
	require.NoError(t, err)
	assert.Equal(309, end-start)

	fields, err := crackRow(v, FormatJet3, jet3Cols, start, end)
	require.NoError(t, err)
	assert.Equal(jettest.I32(-3), fields[0].Value)
	assert.Equal(start+5, fields[1].Start)
	assert.Equal(300, fields[1].Size)
	assert.Equal(row[5:305], fields[1].Value)
}

func TestCrackRowJet3DummyJump(t *testing.T) {
	assert := assertion.New(t)

	// long enough for one jump entry, but the variable data never crosses
	// 256 so the entry is a dummy
	row := make([]byte, 260)
	row[0] = 2
	copy(row[1:], jettest.I32(9))
	copy(row[5:], "0123456789")
	row[255] = 15 // offset[1]
	row[256] = 5  // offset[0]
	row[257] = 0  // dummy jump
	row[258] = 1
	row[259] = 0x03

	v := jet3Page(row)
	start, end, _, err := rowExtent(v, FormatJet3, 0)
	require.NoError(t, err)
	fields, err := crackRow(v, FormatJet3, jet3Cols, start, end)
	require.NoError(t, err)
	assert.Equal([]byte("0123456789"), fields[1].Value)

	d, err := NewDecoder(Jet3, "", "")
	require.NoError(t, err)
	s, err := d.Decode(ColText, fields[1].Value)
	assert.NoError(err)
	assert.Equal("0123456789", s)
}

func TestCrackRowJet3Short(t *testing.T) {
	assert := assertion.New(t)
	// col count, long int, "hi", offsets 7 and 5, var count, mask (t null)
	row := []byte{2, 1, 0, 0, 0, 'h', 'i', 7, 5, 1, 0x01}
	v := jet3Page(row)
	start, end, _, err := rowExtent(v, FormatJet3, 0)
	require.NoError(t, err)
	fields, err := crackRow(v, FormatJet3, jet3Cols, start, end)
	require.NoError(t, err)
	assert.Equal(jettest.I32(1), fields[0].Value)
	assert.True(fields[1].IsNull)
	assert.Equal(2, fields[1].Size)
	assert.Nil(fields[1].Value)
}
