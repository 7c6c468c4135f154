package permissions

import (
	"context"

	"github.com/google/uuid"
)

// Capabilities the core consumes. Role-group membership storage and
// authentication live outside this module; the checker is injected.
const (
	CapMaker         = "maker"
	CapSteward       = "steward"
	CapApprover      = "approver"
	CapBusinessOwner = "business_owner"
)

// Actor identifies the calling user: a stable id plus the corporate SID
// recorded on governance metadata.
type Actor struct {
	ID  uuid.UUID
	SID string
}

type CapabilityChecker interface {
	HasCapability(ctx context.Context, actor Actor, capability string) (bool, error)
}

// StaticChecker is a fixed capability map, used by tests and the demo seed.
type StaticChecker map[uuid.UUID]map[string]bool

func (s StaticChecker) HasCapability(_ context.Context, actor Actor, capability string) (bool, error) {
	return s[actor.ID][capability], nil
}
