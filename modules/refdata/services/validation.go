package services

import (
	"fmt"
	"strings"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
)

// ValidatePayload enforces the submit-time governance rules on a change
// request payload. Pure: it never mutates its arguments and can run after
// every edit. Structural failures short-circuit; later rules assume the
// structure the earlier ones established.
func ValidatePayload(ref *reference.Reference, cr *changerequest.ChangeRequest) (errs, warnings []string) {
	rs := payload.Parse(cr.Payload)

	if rs.Empty() {
		errs = append(errs, "No rows found in payload. Please provide a header row and at least one values row.")
		return errs, warnings
	}

	if len(rs.Headers) == 0 {
		errs = append(errs, "Missing header row (row_type=header). The first row must define business field labels.")
		return errs, warnings
	}
	if len(rs.Headers) > 1 {
		errs = append(errs, "Multiple header rows found. Only one row_type=header is allowed per change request.")
		return errs, warnings
	}
	hdr := rs.Header()

	for idx, vr := range rs.Values {
		raw := strings.TrimSpace(vr.Operation)
		if raw == "" {
			errs = append(errs, fmt.Sprintf(
				"Values row %d is missing an Operation. Set it to one of: INSERT ROW, UPDATE ROW, KEEP ROW, RETIRE ROW, UNRETIRE ROW.",
				idx+1))
			continue
		}
		if _, err := changerequest.ParseOperation(raw); err != nil {
			opErr := err.(*changerequest.OperationError)
			kind := "an invalid"
			if opErr.Legacy {
				kind = "an unsupported"
			}
			errs = append(errs, fmt.Sprintf(
				"Values row %d has %s Operation '%s'. Use only: INSERT ROW, UPDATE ROW, KEEP ROW, RETIRE ROW, UNRETIRE ROW.",
				idx+1, kind, raw))
		}
	}

	// Row identity is server-derived only; a caller-supplied rowid must
	// never reach the loader.
	for _, r := range rs.Rows() {
		if strings.TrimSpace(r.RowID) != "" {
			errs = append(errs, "Row ID must not be provided. Please remove 'rowid' from the data.")
			break
		}
	}

	if !ref.HasBaseline() {
		if !changerequest.IsBuildNew(hdr.Operation) {
			errs = append(errs, "This reference has no approved version yet. The header row operation must be BUILD NEW.")
			return errs, warnings
		}
	}

	visible := payload.VisibleColumns(rs)
	if len(visible) == 0 {
		errs = append(errs, "Header row must define at least one business field label (string_01..string_65).")
		return errs, warnings
	}
	visibleSet := make(map[string]struct{}, len(visible))
	for _, c := range visible {
		visibleSet[c] = struct{}{}
	}

	for idx, vr := range rs.Values {
		var invalid []string
		for _, slot := range payload.SlotNames() {
			if vr.SlotTrimmed(slot) == "" {
				continue
			}
			if _, ok := visibleSet[slot]; !ok {
				invalid = append(invalid, slot)
			}
		}
		if len(invalid) > 0 {
			errs = append(errs, fmt.Sprintf(
				"Values row %d populates business fields not defined in the header: %s.",
				idx+1, strings.Join(invalid, ", ")))
		}
	}

	return errs, warnings
}

// ValidateUpdateTargets is the strict row-level pre-check: every values row
// whose operation targets an existing row must carry an update_rowid equal
// to the digest of some values row in the latest approved payload. Skipped
// entirely when no baseline exists (build-new scenario). This is what
// prevents approved updates that silently touch zero rows.
func ValidateUpdateTargets(baseline *changerequest.ChangeRequest, cr *changerequest.ChangeRequest) (errs, warnings []string) {
	if baseline == nil || strings.TrimSpace(baseline.Payload) == "" {
		return errs, warnings
	}

	baselineRows := payload.Parse(baseline.Payload)
	if len(baselineRows.Values) == 0 {
		warnings = append(warnings, "No approved values exist yet to validate UPDATE targets against.")
		return errs, warnings
	}
	approved := payload.BaselineDigests(baselineRows)

	rs := payload.Parse(cr.Payload)
	for idx, r := range rs.Values {
		op, err := changerequest.ParseOperation(r.Operation)
		if err != nil || !op.TargetsExistingRow() {
			continue
		}
		target := strings.TrimSpace(r.UpdateRowID)
		if target == "" {
			errs = append(errs, fmt.Sprintf("Values row %d: %s requires update_rowid.", idx+1, op))
			continue
		}
		if _, ok := approved[target]; !ok {
			errs = append(errs, fmt.Sprintf(
				"Values row %d: update_rowid='%s' does not match any current row in the latest approved version.",
				idx+1, target))
		}
	}

	return errs, warnings
}
