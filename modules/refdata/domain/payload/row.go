package payload

import (
	"fmt"
	"strings"
)

const (
	RowTypeHeader = "header"
	RowTypeValues = "values"

	// SlotCount is the number of generic business fields a row can carry
	// (string_01..string_65). The loader file format is fixed at 65 slots.
	SlotCount = 65
)

var slotNames = buildSlotNames()

func buildSlotNames() []string {
	names := make([]string, 0, SlotCount)
	for i := 1; i <= SlotCount; i++ {
		names = append(names, fmt.Sprintf("string_%02d", i))
	}
	return names
}

// SlotNames returns string_01..string_65 in order. Callers must not mutate
// the returned slice.
func SlotNames() []string {
	return slotNames
}

// Row is one payload row in typed form. Fields holds only the generic
// business slots; everything else the wire format carries is lifted into
// named fields. RowID is kept solely so submission validation can reject
// caller-supplied row identifiers.
type Row struct {
	RowType     string
	Operation   string
	StartDt     string
	EndDt       string
	Version     string
	UpdateRowID string
	RowID       string
	Fields      map[string]string
}

// Slot returns the raw value of a business slot, empty string when unset.
func (r Row) Slot(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// SlotTrimmed returns the trimmed value of a business slot.
func (r Row) SlotTrimmed(name string) string {
	return strings.TrimSpace(r.Slot(name))
}

func (r Row) IsHeader() bool {
	return strings.EqualFold(strings.TrimSpace(r.RowType), RowTypeHeader)
}

// RowSet is the typed form of a payload document. Headers keeps every row
// tagged as a header so validation can reject payloads with more than one;
// well-formed payloads have exactly one.
type RowSet struct {
	Headers []Row
	Values  []Row
}

// Header returns the first header row, or nil.
func (s RowSet) Header() *Row {
	if len(s.Headers) == 0 {
		return nil
	}
	return &s.Headers[0]
}

func (s RowSet) Empty() bool {
	return len(s.Headers) == 0 && len(s.Values) == 0
}

// Rows returns all rows in document order: the header first, then values.
func (s RowSet) Rows() []Row {
	out := make([]Row, 0, len(s.Headers)+len(s.Values))
	out = append(out, s.Headers...)
	out = append(out, s.Values...)
	return out
}
