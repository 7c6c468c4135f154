package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/infrastructure/persistence/models"
	"github.com/JomsTrinidad/master-data-utility/pkg/composables"
	"github.com/JomsTrinidad/master-data-utility/pkg/repo"
)

const referenceColumns = `
	id, name, kind, mode, status, collaboration_mode, description,
	owner_group, tags, category, data_classification,
	last_approved_change_id, created_at, updated_at
`

type ReferenceRepository struct{}

func NewReferenceRepository() reference.Repository {
	return &ReferenceRepository{}
}

func scanReference(row pgx.Row) (*reference.Reference, error) {
	var m models.Reference
	if err := row.Scan(
		&m.ID, &m.Name, &m.Kind, &m.Mode, &m.Status, &m.CollaborationMode,
		&m.Description, &m.OwnerGroup, &m.Tags, &m.Category,
		&m.DataClassification, &m.LastApprovedChangeID, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reference.ErrNotFound
		}
		return nil, err
	}
	return toDomainReference(&m), nil
}

func (r *ReferenceRepository) Create(ctx context.Context, ref *reference.Reference) (*reference.Reference, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	return scanReference(tx.QueryRow(ctx, `
		INSERT INTO refdata_references (
			id, name, kind, mode, status, collaboration_mode, description,
			owner_group, tags, category, data_classification
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+referenceColumns,
		pgUUID(ref.ID), ref.Name, ref.Kind, ref.Mode, ref.Status,
		ref.Collaboration, ref.Description, ref.OwnerGroup, ref.Tags,
		ref.Category, ref.DataClassification,
	))
}

func (r *ReferenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*reference.Reference, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanReference(tx.QueryRow(ctx,
		`SELECT `+referenceColumns+` FROM refdata_references WHERE id = $1`,
		pgUUID(id),
	))
}

func (r *ReferenceRepository) GetByName(ctx context.Context, name string) (*reference.Reference, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanReference(tx.QueryRow(ctx,
		`SELECT `+referenceColumns+` FROM refdata_references WHERE name = $1`,
		name,
	))
}

func (r *ReferenceRepository) List(ctx context.Context, f reference.Filter) ([]*reference.Reference, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"1=1"}
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}

	query := `SELECT ` + referenceColumns + `
		FROM refdata_references
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name`
	query += repo.FormatLimitOffset(f.Limit, 0)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*reference.Reference
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *ReferenceRepository) Update(ctx context.Context, ref *reference.Reference) (*reference.Reference, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	return scanReference(tx.QueryRow(ctx, `
		UPDATE refdata_references SET
			description = $2, owner_group = $3, tags = $4, category = $5,
			data_classification = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+referenceColumns,
		pgUUID(ref.ID), ref.Description, ref.OwnerGroup, ref.Tags,
		ref.Category, ref.DataClassification,
	))
}

func (r *ReferenceRepository) SetBaseline(ctx context.Context, id uuid.UUID, changeID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE refdata_references
		SET last_approved_change_id = $2, status = $3, updated_at = now()
		WHERE id = $1`,
		pgUUID(id), pgUUID(changeID), reference.StatusActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return reference.ErrNotFound
	}
	return nil
}

func (r *ReferenceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE refdata_references SET status = $2, updated_at = now() WHERE id = $1`,
		pgUUID(id), status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return reference.ErrNotFound
	}
	return nil
}
