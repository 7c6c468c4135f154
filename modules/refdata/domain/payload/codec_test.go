package payload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_MalformedJSONDegradesToEmpty(t *testing.T) {
	require.True(t, Parse("{not json").Empty())
	require.True(t, Parse("").Empty())
	require.True(t, Parse(`{"rows": "nope"}`).Empty())
}

func TestParse_SeparatesHeaderAndValues(t *testing.T) {
	rs := Parse(`{"rows":[
		{"row_type":"header","operation":"BUILD NEW","string_01":"Country Code","string_03":"Region"},
		{"row_type":"values","operation":"INSERT ROW","string_01":"US","string_03":"NAM"},
		{"operation":"INSERT ROW","string_01":"GB","string_03":"EMEA"}
	]}`)

	require.Len(t, rs.Headers, 1)
	require.Len(t, rs.Values, 2)
	require.Equal(t, "Country Code", rs.Header().Slot("string_01"))
	// missing row_type defaults to values
	require.Equal(t, RowTypeValues, rs.Values[1].RowType)
	require.Equal(t, "GB", rs.Values[1].Slot("string_01"))
}

func TestParse_KeepsCallerSuppliedRowID(t *testing.T) {
	rs := Parse(`{"rows":[{"row_type":"values","operation":"INSERT ROW","rowid":"42","string_01":"US"}]}`)
	require.Len(t, rs.Values, 1)
	require.Equal(t, "42", rs.Values[0].RowID)
}

func TestVisibleColumns_OnlyLabeledSlots(t *testing.T) {
	rs := Parse(`{"rows":[{"row_type":"header","string_01":"Country","string_02":"   ","string_10":"Region"}]}`)
	require.Equal(t, []string{"string_01", "string_10"}, VisibleColumns(rs))

	labels := ColumnLabels(rs)
	require.Equal(t, "Country", labels["string_01"])
	require.Equal(t, "", labels["string_02"])
	require.Equal(t, "Region", labels["string_10"])
}

func TestVisibleColumns_NoHeader(t *testing.T) {
	rs := Parse(`{"rows":[{"row_type":"values","string_01":"US"}]}`)
	require.Nil(t, VisibleColumns(rs))
}

func TestEncode_RoundTrip(t *testing.T) {
	in := `{"rows":[
		{"row_type":"header","operation":"BUILD NEW","string_01":"Country"},
		{"row_type":"values","operation":"INSERT ROW","update_rowid":"","string_01":"US"}
	]}`
	rs := Parse(in)
	again := Parse(Encode(rs))
	require.Len(t, again.Headers, 1)
	require.Len(t, again.Values, 1)
	require.Equal(t, "US", again.Values[0].Slot("string_01"))
	require.Equal(t, "INSERT ROW", again.Values[0].Operation)
}
