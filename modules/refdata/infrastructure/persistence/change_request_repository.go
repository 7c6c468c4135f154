package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/infrastructure/persistence/models"
	"github.com/JomsTrinidad/master-data-utility/pkg/composables"
	"github.com/JomsTrinidad/master-data-utility/pkg/repo"
)

const changeRequestColumns = `
	id, reference_id, display_id, draft_token, lock_version, status, version,
	collaboration_mode, tracking_id, payload, change_reason, change_category,
	override_retired, bulk_add_count, created_by, requested_by_sid,
	submitted_at, decided_at, decided_by_sid, decision_note,
	created_at, updated_at
`

type ChangeRequestRepository struct{}

func NewChangeRequestRepository() changerequest.Repository {
	return &ChangeRequestRepository{}
}

func scanChangeRequest(row pgx.Row) (*changerequest.ChangeRequest, error) {
	var m models.ChangeRequest
	if err := row.Scan(
		&m.ID, &m.ReferenceID, &m.DisplayID, &m.DraftToken, &m.LockVersion,
		&m.Status, &m.Version, &m.CollaborationMode, &m.TrackingID, &m.Payload,
		&m.ChangeReason, &m.ChangeCategory, &m.OverrideRetired, &m.BulkAddCount,
		&m.CreatedBy, &m.RequestedBySID, &m.SubmittedAt, &m.DecidedAt,
		&m.DecidedBySID, &m.DecisionNote, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, changerequest.ErrNotFound
		}
		return nil, err
	}
	return toDomainChangeRequest(&m), nil
}

func (r *ChangeRequestRepository) loadContributors(ctx context.Context, cr *changerequest.ChangeRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	rows, err := tx.Query(ctx,
		`SELECT user_id FROM refdata_change_contributors WHERE change_request_id = $1 ORDER BY added_at`,
		pgUUID(cr.ID),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}
		cr.Contributors = append(cr.Contributors, id)
	}
	return rows.Err()
}

func (r *ChangeRequestRepository) Create(ctx context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	return scanChangeRequest(tx.QueryRow(ctx, `
		INSERT INTO refdata_change_requests (
			id, reference_id, display_id, draft_token, status, version,
			collaboration_mode, tracking_id, payload, change_reason,
			change_category, override_retired, created_by, requested_by_sid
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+changeRequestColumns,
		pgUUID(cr.ID), pgUUID(cr.ReferenceID), cr.DisplayID, pgUUID(cr.DraftToken),
		cr.Status, pgInt32Ptr(cr.Version), cr.Collaboration, cr.TrackingID,
		cr.Payload, cr.ChangeReason, cr.Category, cr.OverrideFlag,
		pgUUID(cr.CreatedBy), cr.RequestedBySID,
	))
}

func (r *ChangeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	cr, err := scanChangeRequest(tx.QueryRow(ctx,
		`SELECT `+changeRequestColumns+` FROM refdata_change_requests WHERE id = $1`,
		pgUUID(id),
	))
	if err != nil {
		return nil, err
	}
	if err := r.loadContributors(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

func (r *ChangeRequestRepository) List(ctx context.Context, f changerequest.Filter) ([]*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"1=1"}
	var args []any
	if f.ReferenceID != nil {
		args = append(args, pgUUID(*f.ReferenceID))
		where = append(where, fmt.Sprintf("reference_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + changeRequestColumns + `
		FROM refdata_change_requests
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC`
	query += repo.FormatLimitOffset(f.Limit, 0)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*changerequest.ChangeRequest
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func (r *ChangeRequestRepository) FindSubmitted(ctx context.Context, referenceID uuid.UUID) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanChangeRequest(tx.QueryRow(ctx, `
		SELECT `+changeRequestColumns+`
		FROM refdata_change_requests
		WHERE reference_id = $1 AND status = $2
		ORDER BY submitted_at DESC
		LIMIT 1`,
		pgUUID(referenceID), changerequest.StatusSubmitted,
	))
}

func (r *ChangeRequestRepository) ListDrafts(ctx context.Context, referenceID uuid.UUID) ([]*changerequest.ChangeRequest, error) {
	refID := referenceID
	return r.List(ctx, changerequest.Filter{ReferenceID: &refID, Status: changerequest.StatusDraft})
}

func (r *ChangeRequestRepository) UpdateDraft(ctx context.Context, id uuid.UUID, lockVersion int32, upd changerequest.DraftUpdate) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	// Compare-and-increment: the WHERE clause loses against any concurrent
	// writer that already bumped lock_version.
	cr, err := scanChangeRequest(tx.QueryRow(ctx, `
		UPDATE refdata_change_requests SET
			lock_version = lock_version + 1,
			payload = $3, tracking_id = $4, change_reason = $5,
			change_category = $6, override_retired = $7,
			bulk_add_count = bulk_add_count + $8,
			updated_at = now()
		WHERE id = $1 AND lock_version = $2 AND status = $9
		RETURNING `+changeRequestColumns,
		pgUUID(id), lockVersion, upd.Payload, upd.TrackingID, upd.ChangeReason,
		upd.Category, upd.OverrideFlag, upd.BulkAddDelta, changerequest.StatusDraft,
	))
	if err != nil {
		if errors.Is(err, changerequest.ErrNotFound) {
			return nil, r.explainMiss(ctx, id)
		}
		return nil, err
	}
	return cr, nil
}

func (r *ChangeRequestRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, lockVersion int32, submittedAt time.Time) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	cr, err := scanChangeRequest(tx.QueryRow(ctx, `
		UPDATE refdata_change_requests SET
			lock_version = lock_version + 1,
			status = $3, submitted_at = $4, updated_at = now()
		WHERE id = $1 AND lock_version = $2 AND status = $5
		RETURNING `+changeRequestColumns,
		pgUUID(id), lockVersion, changerequest.StatusSubmitted,
		pgTimePtr(&submittedAt), changerequest.StatusDraft,
	))
	if err != nil {
		if errors.Is(err, changerequest.ErrNotFound) {
			return nil, r.explainMiss(ctx, id)
		}
		return nil, err
	}
	return cr, nil
}

// explainMiss distinguishes "row gone" from "lock_version moved" after a
// conditional update matched nothing.
func (r *ChangeRequestRepository) explainMiss(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM refdata_change_requests WHERE id = $1)`,
		pgUUID(id),
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return changerequest.ErrNotFound
	}
	return changerequest.ErrLockConflict
}

func (r *ChangeRequestRepository) MarkDecided(ctx context.Context, id uuid.UUID, status string, version *int32, decidedAt time.Time, decidedBySID, note string) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	return scanChangeRequest(tx.QueryRow(ctx, `
		UPDATE refdata_change_requests SET
			lock_version = lock_version + 1,
			status = $2, version = $3, decided_at = $4,
			decided_by_sid = $5, decision_note = $6, updated_at = now()
		WHERE id = $1 AND status = $7
		RETURNING `+changeRequestColumns,
		pgUUID(id), status, pgInt32Ptr(version), pgTimePtr(&decidedAt),
		decidedBySID, note, changerequest.StatusSubmitted,
	))
}

func (r *ChangeRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM refdata_change_requests WHERE id = $1`, pgUUID(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return changerequest.ErrNotFound
	}
	return nil
}

func (r *ChangeRequestRepository) AddContributor(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO refdata_change_contributors (change_request_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (change_request_id, user_id) DO NOTHING`,
		pgUUID(id), pgUUID(userID),
	)
	return err
}

func (r *ChangeRequestRepository) NextDisplaySeq(ctx context.Context, year int) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var seq int
	err = tx.QueryRow(ctx, `
		INSERT INTO refdata_display_seq (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = refdata_display_seq.seq + 1
		RETURNING seq`,
		year,
	).Scan(&seq)
	return seq, err
}

func (r *ChangeRequestRepository) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM refdata_change_requests
		WHERE created_at >= $1 AND created_at < $2`,
		day.Truncate(24*time.Hour), day.Truncate(24*time.Hour).Add(24*time.Hour),
	).Scan(&n)
	return n, err
}

func (r *ChangeRequestRepository) MaxApprovedVersion(ctx context.Context, referenceID uuid.UUID) (int32, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var v int32
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM refdata_change_requests
		WHERE reference_id = $1 AND status = $2`,
		pgUUID(referenceID), changerequest.StatusApproved,
	).Scan(&v)
	return v, err
}

func (r *ChangeRequestRepository) GetApprovedByVersion(ctx context.Context, referenceID uuid.UUID, version int32) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return scanChangeRequest(tx.QueryRow(ctx, `
		SELECT `+changeRequestColumns+`
		FROM refdata_change_requests
		WHERE reference_id = $1 AND status = $2 AND version = $3`,
		pgUUID(referenceID), changerequest.StatusApproved, version,
	))
}

func (r *ChangeRequestRepository) InsertRowAudits(ctx context.Context, audits []changerequest.RowAudit) error {
	if len(audits) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, a := range audits {
		if _, err := tx.Exec(ctx, `
			INSERT INTO refdata_row_audits (
				change_request_id, row_index, operation, update_rowid,
				row_digest, row_payload, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			pgUUID(a.ChangeRequestID), a.RowIndex, a.Operation, a.UpdateRowID,
			a.RowDigest, a.RowPayload, a.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChangeRequestRepository) ListRowAudits(ctx context.Context, changeRequestID uuid.UUID) ([]changerequest.RowAudit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, change_request_id, row_index, operation, update_rowid,
			row_digest, row_payload, created_at
		FROM refdata_row_audits
		WHERE change_request_id = $1
		ORDER BY row_index`,
		pgUUID(changeRequestID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []changerequest.RowAudit
	for rows.Next() {
		var m models.RowAudit
		if err := rows.Scan(
			&m.ID, &m.ChangeRequestID, &m.RowIndex, &m.Operation,
			&m.UpdateRowID, &m.RowDigest, &m.RowPayload, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, changerequest.RowAudit{
			ID:              m.ID,
			ChangeRequestID: asUUID(m.ChangeRequestID),
			RowIndex:        int(m.RowIndex),
			Operation:       m.Operation,
			UpdateRowID:     m.UpdateRowID,
			RowDigest:       m.RowDigest,
			RowPayload:      m.RowPayload,
			CreatedAt:       m.CreatedAt,
		})
	}
	return out, rows.Err()
}
