package jettest

// Page numbers of the Sample database.
const (
	MapPage        = 1
	CatalogPage    = 2
	CatalogData    = 3
	PeoplePage     = 4
	PeopleDataA    = 5
	PeopleDataB    = 6
	LvalPage       = 7
	LvalNextPage   = 8
	EmptyPage      = 9
	LogsPage       = 10
	LogsDataA      = 11
	ForeignData    = 12
	LogsDataB      = 13
	SamplePages    = 14
	SampleDateFmt  = "%Y-%m-%d %H:%M:%S"
	SinglePageMemo = "single page memo"
	ChainedMemo    = "chained memo value"
)

var CatalogCols = []Col{
	{Name: "Id", Type: LongInt},
	{Name: "Name", Type: Text, Size: 255},
	{Name: "Type", Type: Int},
}

var PeopleCols = []Col{
	{Name: "ID", Type: LongInt},
	{Name: "Active", Type: Bool},
	{Name: "Score", Type: Double},
	{Name: "Name", Type: Text, Size: 50},
	{Name: "Notes", Type: Memo},
	{Name: "Born", Type: DateTime},
	{Name: "Price", Type: Money},
	{Name: "Amount", Type: Numeric, Prec: 6, Scale: 2},
}

var LogsCols = []Col{
	{Name: "Seq", Type: Int},
	{Name: "Msg", Type: Text, Size: 20},
}

// PeopleRows is what a scan of People binds with SampleDateFmt, in column
// order. The deleted row with ID 2 is not listed.
var PeopleRows = [][]string{
	{"1", "1", "2.5", "Alice", "hi", "1970-01-02 12:00:00", "1.2345", "0123.45"},
	{"3", "0", "3", "Bob", SinglePageMemo, "", "-5.0000", "-0000.05"},
	{"4", "1", "", "Carol", ChainedMemo, "1970-01-01 00:00:00", "0.0000", "0000.00"},
	{"5", "0", "0", "", "", "", "", ""},
}

func catalogRow(id int32, name string, typ int16) []byte {
	return Row(CatalogCols, []any{I32(id), UCS2(name), I16(typ)})
}

// Sample builds the reference database: a catalog, the People table with
// one row of every decoded type spread over two pages, an empty table and
// the Logs table whose usage map is of an unknown type.
func Sample() *Image {
	im := NewImage()

	im.Set(MapPage, DataPage(0, [][]byte{
		UsageMap0(0, CatalogData),
		UsageMap0(0, PeopleDataA, PeopleDataB),
		UsageMap0(0),
		{0x07, 0, 0, 0, 0},
	}, nil))

	im.Set(CatalogPage, TableDef(CatalogCols, 6, MapPage, 0))
	im.Set(CatalogData, DataPage(CatalogPage, [][]byte{
		catalogRow(CatalogPage, "MSysObjects", -32767),
		catalogRow(0x01000000|PeoplePage, "People", 1),
		catalogRow(11, "Query1", 5),
		catalogRow(12, "Form1", -32768),
		catalogRow(EmptyPage, "Empty", 1),
		catalogRow(LogsPage, "Logs", 1),
	}, nil))

	im.Set(PeoplePage, TableDef(PeopleCols, 5, MapPage, 1))
	im.Set(PeopleDataA, DataPage(PeoplePage, [][]byte{
		Row(PeopleCols, []any{I32(1), true, F64(2.5), UCS2("Alice"), LongValueInline(UCS2("hi")),
			F64(25570.5), I64(12345), NumericField(12345, false)}),
		Row(PeopleCols, []any{I32(2), true, F64(1), UCS2("Dave"), nil, nil, nil, nil}),
		Row(PeopleCols, []any{I32(3), false, F64(3), Compressed("Bob"),
			LongValueRef(2*len(SinglePageMemo), LvalSinglePage, 0, LvalPage),
			nil, I64(-50000), NumericField(5, true)}),
	}, []uint16{0, RowDeleted, 0}))
	im.Set(PeopleDataB, DataPage(PeoplePage, [][]byte{
		Row(PeopleCols, []any{I32(4), true, nil, UCS2("Carol"),
			LongValueRef(2*len(ChainedMemo), LvalChained, 1, LvalPage),
			F64(25569), I64(0), NumericField(0, false)}),
		Row(PeopleCols, []any{I32(5), false, F64(0), nil, nil, nil, nil, nil}),
	}, nil))

	im.Set(LvalPage, DataPage(PeoplePage, [][]byte{
		UCS2(SinglePageMemo),
		ChainLink(0, LvalNextPage, UCS2("chained ")),
	}, nil))
	im.Set(LvalNextPage, DataPage(PeoplePage, [][]byte{
		ChainLink(0, 0, UCS2("memo value")),
	}, nil))

	im.Set(EmptyPage, TableDef(PeopleCols, 0, MapPage, 2))

	im.Set(LogsPage, TableDef(LogsCols, 3, MapPage, 3))
	im.Set(LogsDataA, DataPage(LogsPage, [][]byte{
		Row(LogsCols, []any{I16(1), UCS2("a")}),
		Row(LogsCols, []any{I16(2), UCS2("b")}),
	}, nil))
	im.Set(ForeignData, DataPage(PeoplePage, [][]byte{
		Row(LogsCols, []any{I16(99), UCS2("not mine")}),
	}, nil))
	im.Set(LogsDataB, DataPage(LogsPage, [][]byte{
		Row(LogsCols, []any{I16(3), UCS2("c")}),
	}, nil))
	return im
}
