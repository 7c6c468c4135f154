package services

import (
	"time"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
)

// BuildRowAudits snapshots every values row of a change request into
// immutable audit records. Captured at submit time so the trail reflects
// exactly what the approver saw, regardless of later edits to anything.
func BuildRowAudits(cr *changerequest.ChangeRequest) []changerequest.RowAudit {
	rs := payload.Parse(cr.Payload)
	now := time.Now().UTC()

	audits := make([]changerequest.RowAudit, 0, len(rs.Values))
	for i, row := range rs.Values {
		audits = append(audits, changerequest.RowAudit{
			ChangeRequestID: cr.ID,
			RowIndex:        i,
			Operation:       row.Operation,
			UpdateRowID:     row.UpdateRowID,
			RowDigest:       payload.RowDigest(row),
			RowPayload:      payload.Encode(payload.RowSet{Values: []payload.Row{row}}),
			CreatedAt:       now,
		})
	}
	return audits
}
