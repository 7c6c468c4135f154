package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
	"github.com/JomsTrinidad/master-data-utility/pkg/composables"
)

// CapabilityRepository checks grants against refdata_capabilities and
// doubles as the grant store for the seed tool.
type CapabilityRepository struct{}

func NewCapabilityRepository() *CapabilityRepository {
	return &CapabilityRepository{}
}

var _ permissions.CapabilityChecker = (*CapabilityRepository)(nil)

func (r *CapabilityRepository) HasCapability(ctx context.Context, actor permissions.Actor, capability string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM refdata_capabilities
			WHERE user_id = $1 AND capability = $2
		)`,
		pgUUID(actor.ID), capability,
	).Scan(&ok)
	return ok, err
}

func (r *CapabilityRepository) Grant(ctx context.Context, userID uuid.UUID, capability string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO refdata_capabilities (user_id, capability)
		VALUES ($1, $2)
		ON CONFLICT (user_id, capability) DO NOTHING`,
		pgUUID(userID), capability,
	)
	return err
}

func (r *CapabilityRepository) Revoke(ctx context.Context, userID uuid.UUID, capability string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		DELETE FROM refdata_capabilities
		WHERE user_id = $1 AND capability = $2`,
		pgUUID(userID), capability,
	)
	return err
}
