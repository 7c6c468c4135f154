package payload

import (
	"encoding/json"
	"sort"
	"strings"
)

type wireEnvelope struct {
	Rows []map[string]any `json:"rows"`
}

// Parse decodes a payload document into a RowSet. Malformed JSON, a missing
// "rows" key or non-object rows all degrade to an empty RowSet; payload
// corruption never propagates past this boundary.
func Parse(text string) RowSet {
	var env wireEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return RowSet{}
	}

	var out RowSet
	for _, raw := range env.Rows {
		if raw == nil {
			continue
		}
		row := rowFromWire(raw)
		if row.IsHeader() {
			out.Headers = append(out.Headers, row)
		} else {
			out.Values = append(out.Values, row)
		}
	}
	return out
}

func rowFromWire(raw map[string]any) Row {
	row := Row{
		RowType:     wireString(raw, "row_type"),
		Operation:   wireString(raw, "operation"),
		StartDt:     wireString(raw, "start_dt"),
		EndDt:       wireString(raw, "end_dt"),
		Version:     wireString(raw, "version"),
		UpdateRowID: wireString(raw, "update_rowid"),
		RowID:       wireString(raw, "rowid"),
	}
	if row.RowType == "" {
		row.RowType = RowTypeValues
	}
	for key := range raw {
		if !strings.HasPrefix(key, "string_") {
			continue
		}
		if row.Fields == nil {
			row.Fields = map[string]string{}
		}
		row.Fields[key] = wireString(raw, key)
	}
	return row
}

func wireString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}

// Encode renders a RowSet back into the wire envelope. Business slots are
// emitted in slot order so the output is deterministic for fingerprinting.
func Encode(rs RowSet) string {
	rows := make([]map[string]any, 0, len(rs.Headers)+len(rs.Values))
	for _, r := range rs.Rows() {
		rows = append(rows, rowToWire(r))
	}
	b, err := json.MarshalIndent(wireEnvelope{Rows: rows}, "", "  ")
	if err != nil {
		return `{"rows": []}`
	}
	return string(b)
}

func rowToWire(r Row) map[string]any {
	out := map[string]any{
		"row_type":     r.RowType,
		"operation":    r.Operation,
		"start_dt":     r.StartDt,
		"end_dt":       r.EndDt,
		"version":      r.Version,
		"update_rowid": r.UpdateRowID,
	}
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = r.Fields[k]
	}
	return out
}

// VisibleColumns returns the slots whose header label is non-empty after
// trimming. These are the business fields "in use" for a reference.
func VisibleColumns(rs RowSet) []string {
	hdr := rs.Header()
	if hdr == nil {
		return nil
	}
	var cols []string
	for _, slot := range SlotNames() {
		if hdr.SlotTrimmed(slot) != "" {
			cols = append(cols, slot)
		}
	}
	return cols
}

// ColumnLabels maps every slot to its trimmed header label, empty string for
// unlabeled slots.
func ColumnLabels(rs RowSet) map[string]string {
	labels := make(map[string]string, SlotCount)
	hdr := rs.Header()
	for _, slot := range SlotNames() {
		if hdr == nil {
			labels[slot] = ""
			continue
		}
		labels[slot] = hdr.SlotTrimmed(slot)
	}
	return labels
}
