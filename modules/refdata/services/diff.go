package services

import (
	"fmt"
	"strings"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
)

// Column is one business field selected for diff display: the generic slot
// plus the label resolved from the header rows.
type Column struct {
	Slot  string `json:"slot"`
	Label string `json:"label"`
}

type CellDiff struct {
	Slot    string `json:"slot"`
	Before  string `json:"before"`
	After   string `json:"after"`
	Changed bool   `json:"changed"`
}

type RowDiff struct {
	Key       string     `json:"key"`
	Index     int        `json:"index"`
	Operation string     `json:"operation"`
	Cells     []CellDiff `json:"cells"`
	Changed   bool       `json:"changed"`
}

// DiffColumns selects the slots worth showing for a baseline/proposed pair:
// any slot labeled by either header, or populated by any values row on
// either side. Labels prefer the proposed header, fall back to the baseline
// header, then to the slot name itself.
func DiffColumns(baseline, proposed payload.RowSet) []Column {
	bHdr := baseline.Header()
	pHdr := proposed.Header()

	label := func(hdr *payload.Row, slot string) string {
		if hdr == nil {
			return ""
		}
		return hdr.SlotTrimmed(slot)
	}
	used := func(slot string) bool {
		if label(pHdr, slot) != "" || label(bHdr, slot) != "" {
			return true
		}
		for _, r := range proposed.Values {
			if r.SlotTrimmed(slot) != "" {
				return true
			}
		}
		for _, r := range baseline.Values {
			if r.SlotTrimmed(slot) != "" {
				return true
			}
		}
		return false
	}

	var cols []Column
	for _, slot := range payload.SlotNames() {
		if !used(slot) {
			continue
		}
		l := label(pHdr, slot)
		if l == "" {
			l = label(bHdr, slot)
		}
		if l == "" {
			l = slot
		}
		cols = append(cols, Column{Slot: slot, Label: l})
	}
	return cols
}

// Diff aligns the values rows of two payloads positionally and produces the
// per-cell change set. Proposed payloads preserve baseline row order (rows
// are retired in place, never removed, and inserts append), so index
// alignment is the identity mapping for surviving rows.
//
// A row counts as changed when any visible cell differs after trimming, or
// when its operation alone declares intent (INSERT/UPDATE/RETIRE/UNRETIRE
// ROW) — an update that touches no cell is still a change.
func Diff(baseline, proposed payload.RowSet) []RowDiff {
	cols := DiffColumns(baseline, proposed)

	n := len(baseline.Values)
	if len(proposed.Values) > n {
		n = len(proposed.Values)
	}

	diffs := make([]RowDiff, 0, n)
	for i := 0; i < n; i++ {
		var before, after payload.Row
		if i < len(baseline.Values) {
			before = baseline.Values[i]
		}
		if i < len(proposed.Values) {
			after = proposed.Values[i]
		}

		cells := make([]CellDiff, 0, len(cols))
		changed := false
		for _, col := range cols {
			bv := before.SlotTrimmed(col.Slot)
			av := after.SlotTrimmed(col.Slot)
			cellChanged := bv != av
			if cellChanged {
				changed = true
			}
			cells = append(cells, CellDiff{Slot: col.Slot, Before: bv, After: av, Changed: cellChanged})
		}

		op := after.Operation
		if op == "" {
			op = before.Operation
		}
		if parsed, err := changerequest.ParseOperation(op); err == nil && parsed.MarksChange() {
			changed = true
		}

		diffs = append(diffs, RowDiff{
			Key:       rowKey(after, before, i),
			Index:     i,
			Operation: op,
			Cells:     cells,
			Changed:   changed,
		})
	}
	return diffs
}

// ChangedOnly is a pure filter over Diff output, backing the "changed rows
// only" presentation mode.
func ChangedOnly(diffs []RowDiff) []RowDiff {
	out := make([]RowDiff, 0, len(diffs))
	for _, d := range diffs {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}

// rowKey prefers the update target digest when present, otherwise a stable
// one-based positional label.
func rowKey(after, before payload.Row, idx int) string {
	if u := strings.TrimSpace(after.UpdateRowID); u != "" {
		return "update:" + u
	}
	if u := strings.TrimSpace(before.UpdateRowID); u != "" {
		return "update:" + u
	}
	return fmt.Sprintf("row:%d", idx+1)
}
