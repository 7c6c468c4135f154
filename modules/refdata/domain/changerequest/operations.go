package changerequest

import (
	"fmt"
	"strings"
)

// Operation is the closed set of row-level verbs a values row may carry.
// Wire strings are parsed at the boundary; legacy verbs are rejected, never
// remapped (normalization is an explicit migration concern, not runtime
// behavior).
type Operation int

const (
	OpUnknown Operation = iota
	OpInsertRow
	OpUpdateRow
	OpKeepRow
	OpRetireRow
	OpUnretireRow
)

const allowedOperationList = "INSERT ROW, UPDATE ROW, KEEP ROW, RETIRE ROW, UNRETIRE ROW"

var operationLabels = map[Operation]string{
	OpInsertRow:   "INSERT ROW",
	OpUpdateRow:   "UPDATE ROW",
	OpKeepRow:     "KEEP ROW",
	OpRetireRow:   "RETIRE ROW",
	OpUnretireRow: "UNRETIRE ROW",
}

var operationsByLabel = func() map[string]Operation {
	m := make(map[string]Operation, len(operationLabels))
	for op, label := range operationLabels {
		m[label] = op
	}
	return m
}()

// Legacy verbs blocked with a targeted message. These shipped in older
// drafts and loader files and must never be silently accepted.
var legacyOperations = map[string]struct{}{
	"INSERT":   {},
	"UPDATE":   {},
	"KEEP":     {},
	"RETAIN":   {},
	"DELETE":   {},
	"REMOVE":   {},
	"UNDELETE": {},
	"UNRETIRE": {},
	"RETIRE":   {},
	"REPLACE":  {},
}

func (op Operation) String() string {
	if label, ok := operationLabels[op]; ok {
		return label
	}
	return "UNKNOWN"
}

// TargetsExistingRow reports whether the operation must name a baseline row
// via update_rowid.
func (op Operation) TargetsExistingRow() bool {
	switch op {
	case OpUpdateRow, OpRetireRow, OpUnretireRow:
		return true
	}
	return false
}

// MarksChange reports whether the operation alone makes a row diff-worthy,
// even when no cell content differs.
func (op Operation) MarksChange() bool {
	switch op {
	case OpInsertRow, OpUpdateRow, OpRetireRow, OpUnretireRow:
		return true
	}
	return false
}

// LoaderVerb returns the verb the downstream loader expects. The loader has
// no UPDATE concept; it replaces the targeted row wholesale.
func (op Operation) LoaderVerb() string {
	if op == OpUpdateRow {
		return "REPLACE ROW"
	}
	return op.String()
}

type OperationError struct {
	Raw    string
	Legacy bool
}

func (e *OperationError) Error() string {
	kind := "invalid"
	if e.Legacy {
		kind = "unsupported"
	}
	return fmt.Sprintf("%s operation %q, use only: %s", kind, e.Raw, allowedOperationList)
}

// ParseOperation resolves a wire operation string, case-insensitively and
// ignoring surrounding whitespace. A blank string, a legacy verb, or
// anything outside the locked vocabulary returns *OperationError.
func ParseOperation(raw string) (Operation, error) {
	canonical := strings.ToUpper(strings.TrimSpace(raw))
	if op, ok := operationsByLabel[canonical]; ok {
		return op, nil
	}
	if _, ok := legacyOperations[canonical]; ok {
		return OpUnknown, &OperationError{Raw: raw, Legacy: true}
	}
	return OpUnknown, &OperationError{Raw: raw}
}

// Header-row intent markers. A reference with no approved baseline only
// accepts a build-new header; snapshot-mode rebuilds use REPLACE ALL.
var buildNewMarkers = map[string]struct{}{
	"BUILD NEW": {},
	"BUILD_NEW": {},
	"NEW":       {},
	"CREATE":    {},
}

func IsBuildNew(raw string) bool {
	_, ok := buildNewMarkers[strings.ToUpper(strings.TrimSpace(raw))]
	return ok
}

func IsRebuild(raw string) bool {
	return strings.ToUpper(strings.TrimSpace(raw)) == "REPLACE ALL"
}
