package changerequest

import (
	"time"

	"github.com/google/uuid"
)

// RowAudit is the append-only per-row trace captured when a change request
// is submitted. Immutable once written; exists purely for traceability.
type RowAudit struct {
	ID              int64     `json:"id"`
	ChangeRequestID uuid.UUID `json:"change_request_id"`
	RowIndex        int       `json:"row_index"`
	Operation       string    `json:"operation"`
	UpdateRowID     string    `json:"update_rowid"`
	RowDigest       string    `json:"row_digest"`
	RowPayload      string    `json:"row_payload"`
	CreatedAt       time.Time `json:"created_at"`
}
