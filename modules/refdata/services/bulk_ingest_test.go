package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
)

func draftRowSet() payload.RowSet {
	return payload.RowSet{
		Headers: []payload.Row{headerRow(map[string]string{"string_01": "Code", "string_02": "Name"})},
	}
}

func TestAppendFromCSV_DecoratedHeaders(t *testing.T) {
	csvText := "string_01 (Code),string_02 (Name)\nUS,United States\nDE,Germany\n"
	out, added, err := AppendFromCSV(draftRowSet(), csvText, []string{"string_01", "string_02"})
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Len(t, out.Values, 2)
	require.Equal(t, "INSERT ROW", out.Values[0].Operation)
	require.Equal(t, "Germany", out.Values[1].SlotTrimmed("string_02"))
}

func TestAppendFromCSV_BareHeaders(t *testing.T) {
	csvText := "string_01,string_02\nUS,United States\n"
	_, added, err := AppendFromCSV(draftRowSet(), csvText, []string{"string_01", "string_02"})
	require.NoError(t, err)
	require.Equal(t, 1, added)
}

func TestAppendFromCSV_SkipsBlankRows(t *testing.T) {
	csvText := "string_01,string_02\nUS,United States\n , \n,\nDE,Germany\n"
	_, added, err := AppendFromCSV(draftRowSet(), csvText, []string{"string_01", "string_02"})
	require.NoError(t, err)
	require.Equal(t, 2, added)
}

func TestAppendFromCSV_UnsupportedColumnFailsClosed(t *testing.T) {
	csvText := "string_01 (Code),string_07 (Mystery),string_09 (Extra)\nUS,a,b\n"
	out, added, err := AppendFromCSV(draftRowSet(), csvText, []string{"string_01", "string_02"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "string_07")
	require.Contains(t, err.Error(), "string_09")
	require.Equal(t, 0, added)
	require.Empty(t, out.Values, "no partial ingestion on failure")
}

func TestAppendFromCSV_NonSlotColumnsIgnored(t *testing.T) {
	// a stray non-slot column is ignored, not an error
	text := "string_01,Comment\nUS,internal note\n"
	out, added, err := AppendFromCSV(draftRowSet(), text, []string{"string_01", "string_02"})
	require.NoError(t, err)
	require.Equal(t, 1, added)
	require.Equal(t, "", out.Values[0].SlotTrimmed("string_02"))
}

func TestAppendFromCSV_BOMTolerated(t *testing.T) {
	csvText := "\ufeffstring_01,string_02\nUS,United States\n"
	_, added, err := AppendFromCSV(draftRowSet(), csvText, []string{"string_01", "string_02"})
	require.NoError(t, err)
	require.Equal(t, 1, added)
}

func TestAppendFromCSV_NoVisibleColumns(t *testing.T) {
	_, _, err := AppendFromCSV(payload.RowSet{}, "string_01\nUS\n", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "header row")
}

func TestAppendFromCSV_NoMatchingColumns(t *testing.T) {
	_, _, err := AppendFromCSV(draftRowSet(), "Code,Name\nUS,United States\n", []string{"string_01", "string_02"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "template")
}

func TestAppendFromCSV_TrimsCells(t *testing.T) {
	text := "string_01,string_02\n  US  ,  United States  \n"
	out, _, err := AppendFromCSV(draftRowSet(), text, []string{"string_01", "string_02"})
	require.NoError(t, err)
	require.Equal(t, "US", out.Values[0].Slot("string_01"))
}

func TestBulkTemplateCSV(t *testing.T) {
	got := BulkTemplateCSV(
		[]string{"string_01", "string_02", "string_03"},
		map[string]string{"string_01": "Code", "string_02": "Name"},
	)
	require.Equal(t, "string_01 (Code),string_02 (Name),string_03", strings.TrimSpace(got))
}
