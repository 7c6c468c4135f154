package changerequest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no change request matches the lookup.
	ErrNotFound = errors.New("change request not found")
	// ErrLockConflict is returned when a conditional update found a
	// different lock_version than the caller presented. The stored record
	// is untouched; the caller must reload and retry.
	ErrLockConflict = errors.New("lock version mismatch")
)

type DraftUpdate struct {
	Payload      string
	TrackingID   string
	ChangeReason string
	Category     string
	OverrideFlag bool
	BulkAddDelta int32
}

type Filter struct {
	ReferenceID *uuid.UUID
	Status      string
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, cr *ChangeRequest) (*ChangeRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ChangeRequest, error)
	List(ctx context.Context, f Filter) ([]*ChangeRequest, error)

	// FindSubmitted returns the submitted change request for a reference,
	// or ErrNotFound. For single-owner references the partial unique index
	// guarantees at most one exists.
	FindSubmitted(ctx context.Context, referenceID uuid.UUID) (*ChangeRequest, error)
	ListDrafts(ctx context.Context, referenceID uuid.UUID) ([]*ChangeRequest, error)

	// UpdateDraft applies a draft edit if and only if the stored
	// lock_version equals the presented one, incrementing it by one.
	// Returns ErrLockConflict otherwise, with no mutation.
	UpdateDraft(ctx context.Context, id uuid.UUID, lockVersion int32, upd DraftUpdate) (*ChangeRequest, error)

	// MarkSubmitted moves a draft to submitted under the same compare-and-
	// increment discipline as UpdateDraft.
	MarkSubmitted(ctx context.Context, id uuid.UUID, lockVersion int32, submittedAt time.Time) (*ChangeRequest, error)

	// MarkDecided stamps the terminal decision fields. Version is non-nil
	// only for approvals.
	MarkDecided(ctx context.Context, id uuid.UUID, status string, version *int32, decidedAt time.Time, decidedBySID, note string) (*ChangeRequest, error)

	Delete(ctx context.Context, id uuid.UUID) error
	AddContributor(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	// NextDisplaySeq reserves the next per-year sequence number used to
	// build display ids like CR-2026-0042.
	NextDisplaySeq(ctx context.Context, year int) (int, error)
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
	MaxApprovedVersion(ctx context.Context, referenceID uuid.UUID) (int32, error)
	GetApprovedByVersion(ctx context.Context, referenceID uuid.UUID, version int32) (*ChangeRequest, error)

	InsertRowAudits(ctx context.Context, audits []RowAudit) error
	ListRowAudits(ctx context.Context, changeRequestID uuid.UUID) ([]RowAudit, error)
}
