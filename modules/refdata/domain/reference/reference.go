package reference

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindMap  = "map"
	KindList = "list"
)

const (
	// ModeVersioning publishes incremental versions; ModeSnapshot replaces
	// the full dataset on every publish.
	ModeVersioning = "versioning"
	ModeSnapshot   = "snapshot"
)

const (
	StatusPendingReview = "pending_review"
	StatusInReview      = "in_review"
	StatusActive        = "active"
	StatusRejected      = "rejected"
	StatusRetired       = "retired"
)

const (
	CollaborationSingleOwner   = "single_owner"
	CollaborationCollaborative = "collaborative"
)

const (
	ClassificationGeneral    = "general"
	ClassificationClassified = "classified"
)

// Reference is the catalog entry for one governed dataset. Its status and
// baseline pointer move only inside the approve transition or through
// administrative edits.
type Reference struct {
	ID                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	Kind                 string     `json:"kind"`
	Mode                 string     `json:"mode"`
	Status               string     `json:"status"`
	Collaboration        string     `json:"collaboration_mode"`
	Description          string     `json:"description"`
	OwnerGroup           string     `json:"owner_group"`
	Tags                 string     `json:"tags"`
	Category             string     `json:"category"`
	DataClassification   string     `json:"data_classification"`
	LastApprovedChangeID *uuid.UUID `json:"last_approved_change_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (r *Reference) IsRetired() bool { return r.Status == StatusRetired }

// HasBaseline reports whether any change was ever approved for this
// reference.
func (r *Reference) HasBaseline() bool { return r.LastApprovedChangeID != nil }
