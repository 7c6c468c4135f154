package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
)

// AppendFromCSV translates an uploaded CSV into INSERT ROW values rows
// appended to an existing draft payload.
//
// Column headers must resolve to a visible slot, either as the bare slot
// name ("string_01") or the hint-decorated template form
// ("string_01 (Country Code)"). Any column resolving to a slot outside
// visibleCols blocks the whole upload — no partial ingestion. Data rows
// whose visible cells are all blank are skipped silently. The returned
// count is rows actually appended, not rows read.
func AppendFromCSV(rs payload.RowSet, csvText string, visibleCols []string) (payload.RowSet, int, error) {
	if len(visibleCols) == 0 {
		return rs, 0, fmt.Errorf("cannot determine visible business columns (missing header row)")
	}

	reader := csv.NewReader(strings.NewReader(stripBOM(csvText)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return rs, 0, fmt.Errorf("could not read CSV header: %w", err)
	}

	visibleSet := make(map[string]struct{}, len(visibleCols))
	for _, c := range visibleCols {
		visibleSet[c] = struct{}{}
	}

	// column index -> resolved slot
	slotByIndex := make(map[int]string, len(header))
	var offending []string
	for i, cell := range header {
		slot, ok := resolveSlot(cell)
		if !ok {
			continue
		}
		if _, visible := visibleSet[slot]; !visible {
			offending = append(offending, slot)
			continue
		}
		slotByIndex[i] = slot
	}
	if len(offending) > 0 {
		return rs, 0, fmt.Errorf(
			"upload blocked, the file contains columns not supported by this reference: %s",
			strings.Join(offending, ", "))
	}
	if len(slotByIndex) == 0 {
		return rs, 0, fmt.Errorf("CSV headers do not match the expected template, download the template and fill it in")
	}

	added := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rs, 0, fmt.Errorf("could not read CSV row: %w", err)
		}

		row := payload.Row{
			RowType:   payload.RowTypeValues,
			Operation: changerequest.OpInsertRow.String(),
			Fields:    map[string]string{},
		}
		blank := true
		for i, slot := range slotByIndex {
			if i >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[i])
			row.Fields[slot] = v
			if v != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rs.Values = append(rs.Values, row)
		added++
	}

	return rs, added, nil
}

// resolveSlot maps a CSV header cell to a slot name. Accepts the bare slot
// or a decorated "string_NN (Label)" form; the decoration is discarded.
func resolveSlot(cell string) (string, bool) {
	cell = strings.TrimSpace(cell)
	if !strings.HasPrefix(cell, "string_") {
		return "", false
	}
	token := cell
	if i := strings.IndexAny(cell, " ("); i > 0 {
		token = strings.TrimSpace(cell[:i])
	}
	for _, slot := range payload.SlotNames() {
		if token == slot {
			return slot, true
		}
	}
	return "", false
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

// BulkTemplateCSV renders the one-line CSV template for a reference's
// visible columns, decorated with the business labels so the file is
// self-describing.
func BulkTemplateCSV(visibleCols []string, labels map[string]string) string {
	cells := make([]string, 0, len(visibleCols))
	for _, c := range visibleCols {
		if label := strings.TrimSpace(labels[c]); label != "" {
			cells = append(cells, fmt.Sprintf("%s (%s)", c, label))
		} else {
			cells = append(cells, c)
		}
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(cells)
	w.Flush()
	return b.String()
}
