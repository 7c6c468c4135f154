package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/infrastructure/persistence/models"
)

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func asUUID(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

func asUUIDPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

func asTime(v pgtype.Timestamptz) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}

func asTimePtr(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func pgTimePtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func asInt32Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	n := v.Int32
	return &n
}

func pgInt32Ptr(n *int32) pgtype.Int4 {
	if n == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *n, Valid: true}
}

func toDomainReference(row *models.Reference) *reference.Reference {
	return &reference.Reference{
		ID:                   asUUID(row.ID),
		Name:                 row.Name,
		Kind:                 row.Kind,
		Mode:                 row.Mode,
		Status:               row.Status,
		Collaboration:        row.CollaborationMode,
		Description:          row.Description,
		OwnerGroup:           row.OwnerGroup,
		Tags:                 row.Tags,
		Category:             row.Category,
		DataClassification:   row.DataClassification,
		LastApprovedChangeID: asUUIDPtr(row.LastApprovedChangeID),
		CreatedAt:            asTime(row.CreatedAt),
		UpdatedAt:            asTime(row.UpdatedAt),
	}
}

func toDomainChangeRequest(row *models.ChangeRequest) *changerequest.ChangeRequest {
	return &changerequest.ChangeRequest{
		ID:             asUUID(row.ID),
		ReferenceID:    asUUID(row.ReferenceID),
		DisplayID:      row.DisplayID,
		DraftToken:     asUUID(row.DraftToken),
		LockVersion:    row.LockVersion,
		Status:         row.Status,
		Version:        asInt32Ptr(row.Version),
		Collaboration:  row.CollaborationMode,
		TrackingID:     row.TrackingID,
		Payload:        row.Payload,
		ChangeReason:   row.ChangeReason,
		Category:       row.ChangeCategory,
		OverrideFlag:   row.OverrideRetired,
		BulkAddCount:   row.BulkAddCount,
		CreatedBy:      asUUID(row.CreatedBy),
		RequestedBySID: row.RequestedBySID,
		SubmittedAt:    asTimePtr(row.SubmittedAt),
		DecidedAt:      asTimePtr(row.DecidedAt),
		DecidedBySID:   row.DecidedBySID,
		DecisionNote:   row.DecisionNote,
		CreatedAt:      asTime(row.CreatedAt),
		UpdatedAt:      asTime(row.UpdatedAt),
	}
}
