package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
	"github.com/JomsTrinidad/master-data-utility/pkg/eventbus"
)

// ChangeRequestService drives the draft -> submitted -> approved/rejected
// lifecycle. All transition writes are conditional on the lock version the
// caller last observed, so two concurrent editors can never trample each
// other; the loser gets a 409 and must reload.
type ChangeRequestService struct {
	refs    reference.Repository
	changes changerequest.Repository
	caps    permissions.CapabilityChecker
	bus     eventbus.EventBus
}

func NewChangeRequestService(
	refs reference.Repository,
	changes changerequest.Repository,
	caps permissions.CapabilityChecker,
	bus eventbus.EventBus,
) *ChangeRequestService {
	return &ChangeRequestService{refs: refs, changes: changes, caps: caps, bus: bus}
}

// DraftUpdateInput is the editable subset a caller may change on a draft.
type DraftUpdateInput struct {
	Payload      string
	TrackingID   string
	ChangeReason string
	Category     string
	OverrideFlag bool
	BulkAddDelta int32
}

func (s *ChangeRequestService) requireCapability(ctx context.Context, actor permissions.Actor, capability string) error {
	ok, err := s.caps.HasCapability(ctx, actor, capability)
	if err != nil {
		return newServiceError(http.StatusInternalServerError, "REFDATA_INTERNAL", "capability check failed", err)
	}
	if !ok {
		return newServiceError(http.StatusForbidden, "REFDATA_FORBIDDEN",
			fmt.Sprintf("user lacks the %s capability", capability), nil)
	}
	return nil
}

func (s *ChangeRequestService) hasAnyCapability(ctx context.Context, actor permissions.Actor, capabilities ...string) (bool, error) {
	for _, c := range capabilities {
		ok, err := s.caps.HasCapability(ctx, actor, c)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// OpenDraft returns the change request an editor should work on for a
// reference, creating a fresh draft when none is resumable.
//
// Resolution order:
//  1. A submitted request exists: return it read-only (single-owner
//     references lock editing while a decision is pending).
//  2. The editor already owns a draft that is still aligned with the
//     current baseline: resume it.
//  3. The editor owns a stale draft (forked from an older version whose
//     content no longer matches): conflict, the stale draft must be
//     discarded explicitly before new work starts.
//  4. Otherwise create a new draft prefilled from the approved baseline,
//     or a build-new skeleton when no baseline exists.
func (s *ChangeRequestService) OpenDraft(ctx context.Context, actor permissions.Actor, referenceID uuid.UUID) (*ChangeRequestView, error) {
	if err := s.requireCapability(ctx, actor, permissions.CapMaker); err != nil {
		return nil, err
	}

	ref, err := s.refs.GetByID(ctx, referenceID)
	if err != nil {
		return nil, mapPgError(err)
	}

	if submitted, err := s.changes.FindSubmitted(ctx, referenceID); err == nil {
		return s.view(ctx, ref, submitted)
	} else if !isNotFound(err) {
		return nil, mapPgError(err)
	}

	baseline, err := s.approvedBaseline(ctx, ref)
	if err != nil {
		return nil, err
	}

	drafts, err := s.changes.ListDrafts(ctx, referenceID)
	if err != nil {
		return nil, mapPgError(err)
	}
	for _, d := range drafts {
		if !d.CanEdit(actor.ID) {
			continue
		}
		if s.draftAligned(d, baseline) {
			return s.view(ctx, ref, d)
		}
		return nil, newServiceError(http.StatusConflict, "REFDATA_STALE_DRAFT",
			fmt.Sprintf("draft %s was made against an older version of this reference, discard it before starting new work", d.DisplayID), nil)
	}

	cr, err := s.createDraft(ctx, actor, ref, baseline)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, ref, cr)
}

func (s *ChangeRequestService) createDraft(ctx context.Context, actor permissions.Actor, ref *reference.Reference, baseline *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	now := time.Now().UTC()
	seq, err := s.changes.NextDisplaySeq(ctx, now.Year())
	if err != nil {
		return nil, mapPgError(err)
	}

	cr := &changerequest.ChangeRequest{
		ID:             uuid.New(),
		ReferenceID:    ref.ID,
		DisplayID:      fmt.Sprintf("CR-%d-%04d", now.Year(), seq),
		DraftToken:     uuid.New(),
		Status:         changerequest.StatusDraft,
		Collaboration:  ref.Collaboration,
		TrackingID:     s.suggestTrackingID(ctx, now),
		CreatedBy:      actor.ID,
		RequestedBySID: actor.SID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if baseline != nil {
		cr.Version = baseline.Version
		cr.Payload = prefillFromBaseline(baseline)
	} else {
		cr.Payload = buildNewSkeleton()
	}

	created, err := s.changes.Create(ctx, cr)
	if err != nil {
		return nil, mapPgError(err)
	}
	recordTransition("draft_created", "ok")
	return created, nil
}

// suggestTrackingID proposes the next session tracking id for today,
// SESyyyymmdd-REQnnnnnn. Advisory only; the caller can overwrite it.
func (s *ChangeRequestService) suggestTrackingID(ctx context.Context, now time.Time) string {
	n, err := s.changes.CountCreatedOn(ctx, now)
	if err != nil {
		n = 0
	}
	return fmt.Sprintf("SES%s-REQ%06d", now.Format("20060102"), n+1)
}

// draftAligned reports whether a draft can still be edited against the
// current baseline: either it was forked from the baseline's version, or
// its payload content is byte-equivalent after normalization (covers
// drafts created before versions were stamped).
func (s *ChangeRequestService) draftAligned(d, baseline *changerequest.ChangeRequest) bool {
	if baseline == nil {
		return d.Version == nil
	}
	if d.Version != nil && baseline.Version != nil && *d.Version == *baseline.Version {
		return true
	}
	return payload.Fingerprint(d.Payload) == payload.Fingerprint(baseline.Payload)
}

func (s *ChangeRequestService) approvedBaseline(ctx context.Context, ref *reference.Reference) (*changerequest.ChangeRequest, error) {
	if !ref.HasBaseline() {
		return nil, nil
	}
	baseline, err := s.changes.GetByID(ctx, *ref.LastApprovedChangeID)
	if err != nil {
		return nil, mapPgError(err)
	}
	return baseline, nil
}

// prefillFromBaseline copies the approved payload into a new draft with
// every values row reset to KEEP ROW and stamped with the digest of the
// baseline row it came from, so target validation passes untouched rows
// through.
func prefillFromBaseline(baseline *changerequest.ChangeRequest) string {
	rs := payload.Parse(baseline.Payload)
	for i := range rs.Values {
		rs.Values[i].UpdateRowID = payload.RowDigest(rs.Values[i])
		rs.Values[i].Operation = changerequest.OpKeepRow.String()
	}
	return payload.Encode(rs)
}

func buildNewSkeleton() string {
	hdr := payload.Row{
		RowType:   payload.RowTypeHeader,
		Operation: "BUILD NEW",
	}
	return payload.Encode(payload.RowSet{Headers: []payload.Row{hdr}})
}

// SaveDraft applies an edit to a draft under optimistic locking. The
// presented lockVersion must match the stored one or the save is rejected
// without side effects. Editing is restricted to the creator, plus
// contributors on collaborative references; a collaborative save records
// the editor as a contributor.
func (s *ChangeRequestService) SaveDraft(ctx context.Context, actor permissions.Actor, id uuid.UUID, lockVersion int32, in DraftUpdateInput) (*changerequest.ChangeRequest, error) {
	if err := s.requireCapability(ctx, actor, permissions.CapMaker); err != nil {
		return nil, err
	}

	return inTx(ctx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		cr, err := s.changes.GetByID(txCtx, id)
		if err != nil {
			return nil, mapPgError(err)
		}
		if !cr.IsDraft() {
			return nil, newServiceError(http.StatusConflict, "REFDATA_CONFLICT",
				fmt.Sprintf("change request %s is %s and can no longer be edited", cr.DisplayID, cr.Status), nil)
		}
		// Collaborative drafts accept any maker, who joins the
		// contributor list on first save.
		if !cr.CanEdit(actor.ID) && cr.Collaboration != changerequest.CollaborationCollaborative {
			return nil, newServiceError(http.StatusForbidden, "REFDATA_FORBIDDEN",
				"only the draft owner can edit a single-owner draft", nil)
		}

		updated, err := s.changes.UpdateDraft(txCtx, id, lockVersion, changerequest.DraftUpdate{
			Payload:      in.Payload,
			TrackingID:   strings.TrimSpace(in.TrackingID),
			ChangeReason: strings.TrimSpace(in.ChangeReason),
			Category:     in.Category,
			OverrideFlag: in.OverrideFlag,
			BulkAddDelta: in.BulkAddDelta,
		})
		if err != nil {
			recordWriteConflict("draft_save")
			return nil, mapPgError(err)
		}

		if updated.Collaboration == changerequest.CollaborationCollaborative && actor.ID != updated.CreatedBy {
			if err := s.changes.AddContributor(txCtx, id, actor.ID); err != nil {
				return nil, mapPgError(err)
			}
		}
		return updated, nil
	})
}

// SubmitInput carries the submit-time guards: the draft token issued when
// the draft was opened and the lock version the client last observed.
type SubmitInput struct {
	DraftToken  uuid.UUID
	LockVersion int32
}

// SubmitResult is what the caller gets back from a submit attempt: the
// stored request plus any advisory warnings the validators produced.
type SubmitResult struct {
	ChangeRequest *changerequest.ChangeRequest
	Warnings      []string
}

// Submit moves a draft to submitted. Re-submitting an already-submitted
// request with the matching draft token is a no-op success, so a retried
// request after a network timeout cannot double-submit. A mismatched token
// means the caller is holding a superseded draft and is rejected.
//
// Validation runs before any write; a hard rule failure surfaces as
// *ValidationError with every error and warning collected. The row audit
// trail is captured in the same transaction as the status flip.
func (s *ChangeRequestService) Submit(ctx context.Context, actor permissions.Actor, id uuid.UUID, in SubmitInput) (*SubmitResult, error) {
	if err := s.requireCapability(ctx, actor, permissions.CapMaker); err != nil {
		return nil, err
	}

	cr, err := s.changes.GetByID(ctx, id)
	if err != nil {
		return nil, mapPgError(err)
	}

	if cr.IsSubmitted() {
		if cr.DraftToken == in.DraftToken {
			return &SubmitResult{ChangeRequest: cr}, nil
		}
		return nil, newServiceError(http.StatusConflict, "REFDATA_CONFLICT",
			fmt.Sprintf("change request %s was already submitted from another session", cr.DisplayID), nil)
	}
	if cr.IsDecided() {
		return nil, newServiceError(http.StatusConflict, "REFDATA_CONFLICT",
			fmt.Sprintf("change request %s is already %s", cr.DisplayID, cr.Status), nil)
	}
	if cr.DraftToken != in.DraftToken {
		return nil, newServiceError(http.StatusConflict, "REFDATA_STALE_DRAFT",
			"this draft was replaced by a newer one, reload before submitting", nil)
	}
	if !cr.CanEdit(actor.ID) {
		return nil, newServiceError(http.StatusForbidden, "REFDATA_FORBIDDEN",
			"only the draft owner or a contributor can submit", nil)
	}

	ref, err := s.refs.GetByID(ctx, cr.ReferenceID)
	if err != nil {
		return nil, mapPgError(err)
	}
	if ref.IsRetired() && !cr.OverrideFlag {
		return nil, newServiceError(http.StatusConflict, "REFDATA_RETIRED",
			fmt.Sprintf("reference %s is retired, set the override flag to submit anyway", ref.Name), nil)
	}

	errs, warnings := ValidatePayload(ref, cr)
	if len(errs) == 0 {
		baseline, err := s.approvedBaseline(ctx, ref)
		if err != nil {
			return nil, err
		}
		tErrs, tWarnings := ValidateUpdateTargets(baseline, cr)
		errs = append(errs, tErrs...)
		warnings = append(warnings, tWarnings...)
	}
	if len(errs) > 0 {
		recordTransition("submit", "rejected")
		return nil, newValidationError(errs, warnings)
	}

	submitted, err := inTx(ctx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		out, err := s.changes.MarkSubmitted(txCtx, id, in.LockVersion, time.Now().UTC())
		if err != nil {
			recordWriteConflict("submit")
			return nil, mapPgError(err)
		}
		if err := s.changes.InsertRowAudits(txCtx, BuildRowAudits(out)); err != nil {
			return nil, mapPgError(err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	recordTransition("submit", "ok")
	s.bus.Publish(changerequest.SubmittedEvent{
		ChangeRequestID: submitted.ID,
		ReferenceID:     submitted.ReferenceID,
		DisplayID:       submitted.DisplayID,
		RowCount:        len(payload.Parse(submitted.Payload).Values),
	})
	return &SubmitResult{ChangeRequest: submitted, Warnings: warnings}, nil
}

// DecideInput carries an approve/reject decision. Note is mandatory for
// both outcomes.
type DecideInput struct {
	Approve bool
	Note    string
}

// Decide resolves a submitted change request. Approval stamps the next
// version number and repoints the reference's baseline at this request in
// the same transaction, so readers never observe an approved request the
// reference does not yet point at. The deciding actor may not be the one
// who submitted.
func (s *ChangeRequestService) Decide(ctx context.Context, actor permissions.Actor, id uuid.UUID, in DecideInput) (*changerequest.ChangeRequest, error) {
	if err := s.requireCapability(ctx, actor, permissions.CapApprover); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Note) == "" {
		return nil, newServiceError(http.StatusUnprocessableEntity, "REFDATA_VALIDATION",
			"a decision note is required", nil)
	}

	cr, err := s.changes.GetByID(ctx, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	if !cr.IsSubmitted() {
		return nil, newServiceError(http.StatusConflict, "REFDATA_CONFLICT",
			fmt.Sprintf("change request %s is %s, only submitted requests can be decided", cr.DisplayID, cr.Status), nil)
	}
	if cr.CreatedBy == actor.ID {
		return nil, newServiceError(http.StatusForbidden, "REFDATA_FORBIDDEN",
			"the submitter cannot decide their own change request", nil)
	}

	status := changerequest.StatusRejected
	var version *int32
	decided, err := inTx(ctx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		if in.Approve {
			status = changerequest.StatusApproved
			maxV, err := s.changes.MaxApprovedVersion(txCtx, cr.ReferenceID)
			if err != nil {
				return nil, mapPgError(err)
			}
			next := maxV + 1
			version = &next
		}
		out, err := s.changes.MarkDecided(txCtx, id, status, version, time.Now().UTC(), actor.SID, strings.TrimSpace(in.Note))
		if err != nil {
			return nil, mapPgError(err)
		}
		if in.Approve {
			if err := s.refs.SetBaseline(txCtx, cr.ReferenceID, id); err != nil {
				return nil, mapPgError(err)
			}
		}
		return out, nil
	})
	if err != nil {
		recordTransition(status, "error")
		return nil, err
	}

	recordTransition(status, "ok")
	s.bus.Publish(changerequest.DecidedEvent{
		ChangeRequestID: decided.ID,
		ReferenceID:     decided.ReferenceID,
		DisplayID:       decided.DisplayID,
		Status:          decided.Status,
		Version:         decided.Version,
		DecidedBySID:    actor.SID,
	})
	return decided, nil
}

// DiscardDraft deletes a draft outright. Allowed for the creator, and for
// stewards or approvers cleaning up stale drafts on someone's behalf.
func (s *ChangeRequestService) DiscardDraft(ctx context.Context, actor permissions.Actor, id uuid.UUID) error {
	cr, err := s.changes.GetByID(ctx, id)
	if err != nil {
		return mapPgError(err)
	}
	if !cr.IsDraft() {
		return newServiceError(http.StatusConflict, "REFDATA_CONFLICT",
			fmt.Sprintf("change request %s is %s, only drafts can be discarded", cr.DisplayID, cr.Status), nil)
	}
	if cr.CreatedBy != actor.ID {
		ok, err := s.hasAnyCapability(ctx, actor, permissions.CapSteward, permissions.CapApprover)
		if err != nil {
			return newServiceError(http.StatusInternalServerError, "REFDATA_INTERNAL", "capability check failed", err)
		}
		if !ok {
			return newServiceError(http.StatusForbidden, "REFDATA_FORBIDDEN",
				"only the draft owner, a steward, or an approver can discard a draft", nil)
		}
	}
	if err := s.changes.Delete(ctx, id); err != nil {
		return mapPgError(err)
	}
	recordTransition("draft_discarded", "ok")
	return nil
}

// GetByID loads a single change request.
func (s *ChangeRequestService) GetByID(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	cr, err := s.changes.GetByID(ctx, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	return cr, nil
}

// List returns change requests matching the filter.
func (s *ChangeRequestService) List(ctx context.Context, f changerequest.Filter) ([]*changerequest.ChangeRequest, error) {
	out, err := s.changes.List(ctx, f)
	if err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

// BulkAppendCSV ingests an uploaded CSV into a draft as INSERT ROW values
// rows. The whole file lands or none of it does; a single unsupported
// column blocks the upload. Runs under the same lock discipline as
// SaveDraft.
func (s *ChangeRequestService) BulkAppendCSV(ctx context.Context, actor permissions.Actor, id uuid.UUID, lockVersion int32, csvText string) (*changerequest.ChangeRequest, int, error) {
	if err := s.requireCapability(ctx, actor, permissions.CapMaker); err != nil {
		return nil, 0, err
	}

	cr, err := s.changes.GetByID(ctx, id)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	if !cr.IsDraft() {
		return nil, 0, newServiceError(http.StatusConflict, "REFDATA_CONFLICT",
			fmt.Sprintf("change request %s is %s and can no longer be edited", cr.DisplayID, cr.Status), nil)
	}
	if !cr.CanEdit(actor.ID) && cr.Collaboration != changerequest.CollaborationCollaborative {
		return nil, 0, newServiceError(http.StatusForbidden, "REFDATA_FORBIDDEN",
			"only the draft owner can edit a single-owner draft", nil)
	}

	rs := payload.Parse(cr.Payload)
	merged, added, err := AppendFromCSV(rs, csvText, payload.VisibleColumns(rs))
	if err != nil {
		return nil, 0, newServiceError(http.StatusUnprocessableEntity, "REFDATA_VALIDATION", err.Error(), nil)
	}
	if added == 0 {
		return cr, 0, nil
	}

	updated, err := s.changes.UpdateDraft(ctx, id, lockVersion, changerequest.DraftUpdate{
		Payload:      payload.Encode(merged),
		TrackingID:   cr.TrackingID,
		ChangeReason: cr.ChangeReason,
		Category:     cr.Category,
		OverrideFlag: cr.OverrideFlag,
		BulkAddDelta: int32(added),
	})
	if err != nil {
		recordWriteConflict("bulk_append")
		return nil, 0, mapPgError(err)
	}
	return updated, added, nil
}

// ChangeRequestView bundles a change request with the editing context the
// UI needs: whether the caller may edit and which request blocks them.
type ChangeRequestView struct {
	ChangeRequest *changerequest.ChangeRequest `json:"change_request"`
	Reference     *reference.Reference         `json:"reference"`
	Editable      bool                         `json:"editable"`
}

func (s *ChangeRequestService) view(_ context.Context, ref *reference.Reference, cr *changerequest.ChangeRequest) (*ChangeRequestView, error) {
	return &ChangeRequestView{
		ChangeRequest: cr,
		Reference:     ref,
		Editable:      cr.IsDraft(),
	}, nil
}

func isNotFound(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Status == http.StatusNotFound
	}
	return errors.Is(err, changerequest.ErrNotFound) || errors.Is(err, reference.ErrNotFound)
}
