package changerequest

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Change categories carried as governance metadata on a request.
const (
	CategoryDataCorrection    = "data_correction"
	CategoryNewValueAdd       = "new_value_add"
	CategoryPolicyCompliance  = "policy_compliance"
	CategoryOperationalUpdate = "operational_update"
	CategoryEnhancement       = "enhancement"
	CategoryOther             = "other"
)

// ChangeRequest is one proposed edit batch against a reference.
//
// DraftToken is generated at creation and never changes; it guards against a
// stale browser tab re-submitting after the draft was replaced. LockVersion
// is the optimistic-concurrency counter: every save must present the value
// it last observed, and the store increments it atomically on success.
// Version mirrors the baseline version the draft was forked from (nil when
// the reference had no approved baseline) and is overwritten with the
// reference's next version only at approval.
type ChangeRequest struct {
	ID             uuid.UUID   `json:"id"`
	ReferenceID    uuid.UUID   `json:"reference_id"`
	DisplayID      string      `json:"display_id"`
	DraftToken     uuid.UUID   `json:"draft_token"`
	LockVersion    int32       `json:"lock_version"`
	Status         string      `json:"status"`
	Version        *int32      `json:"version,omitempty"`
	Collaboration  string      `json:"collaboration_mode"`
	TrackingID     string      `json:"tracking_id"`
	Payload        string      `json:"payload"`
	ChangeReason   string      `json:"change_reason"`
	Category       string      `json:"change_category"`
	OverrideFlag   bool        `json:"override_retired"`
	BulkAddCount   int32       `json:"bulk_add_count"`
	CreatedBy      uuid.UUID   `json:"created_by"`
	Contributors   []uuid.UUID `json:"contributors,omitempty"`
	SubmittedAt    *time.Time  `json:"submitted_at,omitempty"`
	DecidedAt      *time.Time  `json:"decided_at,omitempty"`
	DecidedBySID   string      `json:"decided_by_sid,omitempty"`
	DecisionNote   string      `json:"decision_note,omitempty"`
	RequestedBySID string      `json:"requested_by_sid,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (cr *ChangeRequest) IsDraft() bool     { return cr.Status == StatusDraft }
func (cr *ChangeRequest) IsSubmitted() bool { return cr.Status == StatusSubmitted }
func (cr *ChangeRequest) IsDecided() bool {
	return cr.Status == StatusApproved || cr.Status == StatusRejected
}

// CanEdit reports whether the user may mutate this draft: the creator
// always, contributors only in collaborative mode.
func (cr *ChangeRequest) CanEdit(userID uuid.UUID) bool {
	if cr.CreatedBy == userID {
		return true
	}
	if cr.Collaboration != CollaborationCollaborative {
		return false
	}
	for _, c := range cr.Contributors {
		if c == userID {
			return true
		}
	}
	return false
}

const (
	CollaborationSingleOwner   = "single_owner"
	CollaborationCollaborative = "collaborative"
)
