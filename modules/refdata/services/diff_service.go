package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
)

// DiffReport is the full comparison surface served to reviewers.
type DiffReport struct {
	ChangeRequestID uuid.UUID `json:"change_request_id"`
	DisplayID       string    `json:"display_id"`
	BaselineVersion *int32    `json:"baseline_version,omitempty"`
	Columns         []Column  `json:"columns"`
	Rows            []RowDiff `json:"rows"`
	ChangedRows     int       `json:"changed_rows"`
	TotalRows       int       `json:"total_rows"`
}

// DiffAgainstBaseline compares a change request's payload with the
// approved baseline it targets. changedOnly drops unchanged rows from the
// report; the counters always reflect the full set.
func (s *ChangeRequestService) DiffAgainstBaseline(ctx context.Context, id uuid.UUID, changedOnly bool) (*DiffReport, error) {
	cr, err := s.changes.GetByID(ctx, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	ref, err := s.refs.GetByID(ctx, cr.ReferenceID)
	if err != nil {
		return nil, mapPgError(err)
	}
	baseline, err := s.approvedBaseline(ctx, ref)
	if err != nil {
		return nil, err
	}

	var baseSet payload.RowSet
	var baselineVersion *int32
	if baseline != nil {
		baseSet = payload.Parse(baseline.Payload)
		baselineVersion = baseline.Version
	}
	propSet := payload.Parse(cr.Payload)

	rows := Diff(baseSet, propSet)
	changed := len(ChangedOnly(rows))
	total := len(rows)
	if changedOnly {
		rows = ChangedOnly(rows)
	}

	return &DiffReport{
		ChangeRequestID: cr.ID,
		DisplayID:       cr.DisplayID,
		BaselineVersion: baselineVersion,
		Columns:         DiffColumns(baseSet, propSet),
		Rows:            rows,
		ChangedRows:     changed,
		TotalRows:       total,
	}, nil
}

// CompareVersions diffs two approved versions of a reference, older as the
// baseline of the comparison.
func (s *ChangeRequestService) CompareVersions(ctx context.Context, referenceID uuid.UUID, fromVersion, toVersion int32) (*DiffReport, error) {
	if fromVersion >= toVersion {
		return nil, newServiceError(http.StatusUnprocessableEntity, "REFDATA_VALIDATION",
			"from version must be lower than to version", nil)
	}
	from, err := s.changes.GetApprovedByVersion(ctx, referenceID, fromVersion)
	if err != nil {
		return nil, mapPgError(err)
	}
	to, err := s.changes.GetApprovedByVersion(ctx, referenceID, toVersion)
	if err != nil {
		return nil, mapPgError(err)
	}

	baseSet := payload.Parse(from.Payload)
	propSet := payload.Parse(to.Payload)
	rows := Diff(baseSet, propSet)

	return &DiffReport{
		ChangeRequestID: to.ID,
		DisplayID:       to.DisplayID,
		BaselineVersion: from.Version,
		Columns:         DiffColumns(baseSet, propSet),
		Rows:            rows,
		ChangedRows:     len(ChangedOnly(rows)),
		TotalRows:       len(rows),
	}, nil
}
