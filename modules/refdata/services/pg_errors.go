package services

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
)

func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	if errors.Is(err, changerequest.ErrLockConflict) {
		recordWriteConflict("lock_version")
		return newServiceError(http.StatusConflict, "REFDATA_LOCK_CONFLICT",
			"the record changed since you loaded it, reload and retry", err)
	}
	if errors.Is(err, changerequest.ErrNotFound) {
		return newServiceError(http.StatusNotFound, "REFDATA_NOT_FOUND", "change request not found", err)
	}
	if errors.Is(err, reference.ErrNotFound) {
		return newServiceError(http.StatusNotFound, "REFDATA_NOT_FOUND", "reference not found", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return newServiceError(http.StatusNotFound, "REFDATA_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		switch pgErr.ConstraintName {
		case "uniq_submitted_cr_single_owner":
			// The partial unique index is the authoritative guard; the
			// application pre-check only races against it.
			recordWriteConflict("duplicate_submit")
			return newServiceError(http.StatusConflict, "REFDATA_DUPLICATE_SUBMIT",
				"another change request is already submitted for this reference", err)
		case "refdata_references_name_key":
			return newServiceError(http.StatusConflict, "REFDATA_NAME_CONFLICT",
				"reference name already exists", err)
		case "refdata_change_requests_display_id_key":
			recordWriteConflict("display_id")
			return newServiceError(http.StatusConflict, "REFDATA_DISPLAY_ID_CONFLICT",
				"display id already taken, retry", err)
		default:
			recordWriteConflict("unique")
			return newServiceError(http.StatusConflict, "REFDATA_CONFLICT", "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		return newServiceError(http.StatusUnprocessableEntity, "REFDATA_REFERENCE_NOT_FOUND",
			"referenced record not found", err)
	}
	return err
}
