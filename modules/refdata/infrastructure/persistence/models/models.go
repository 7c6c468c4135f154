package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Reference struct {
	ID                   pgtype.UUID
	Name                 string
	Kind                 string
	Mode                 string
	Status               string
	CollaborationMode    string
	Description          string
	OwnerGroup           string
	Tags                 string
	Category             string
	DataClassification   string
	LastApprovedChangeID pgtype.UUID
	CreatedAt            pgtype.Timestamptz
	UpdatedAt            pgtype.Timestamptz
}

type ChangeRequest struct {
	ID                pgtype.UUID
	ReferenceID       pgtype.UUID
	DisplayID         string
	DraftToken        pgtype.UUID
	LockVersion       int32
	Status            string
	Version           pgtype.Int4
	CollaborationMode string
	TrackingID        string
	Payload           string
	ChangeReason      string
	ChangeCategory    string
	OverrideRetired   bool
	BulkAddCount      int32
	CreatedBy         pgtype.UUID
	RequestedBySID    string
	SubmittedAt       pgtype.Timestamptz
	DecidedAt         pgtype.Timestamptz
	DecidedBySID      string
	DecisionNote      string
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

type RowAudit struct {
	ID              int64
	ChangeRequestID pgtype.UUID
	RowIndex        int32
	Operation       string
	UpdateRowID     string
	RowDigest       string
	RowPayload      string
	CreatedAt       time.Time
}
