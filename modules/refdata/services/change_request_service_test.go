package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
	"github.com/JomsTrinidad/master-data-utility/pkg/eventbus"
)

var (
	maker    = permissions.Actor{ID: uuid.New(), SID: "S-MAKER-1"}
	maker2   = permissions.Actor{ID: uuid.New(), SID: "S-MAKER-2"}
	approver = permissions.Actor{ID: uuid.New(), SID: "S-APPROVER-1"}
	nobody   = permissions.Actor{ID: uuid.New(), SID: "S-NOBODY-1"}
)

func testChecker() permissions.StaticChecker {
	return permissions.StaticChecker{
		maker.ID:    {permissions.CapMaker: true},
		maker2.ID:   {permissions.CapMaker: true},
		approver.ID: {permissions.CapMaker: true, permissions.CapApprover: true, permissions.CapSteward: true},
	}
}

type fixture struct {
	refs    *memRefRepo
	changes *memChangeRepo
	bus     eventbus.EventBus
	svc     *ChangeRequestService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	f := &fixture{
		refs:    newMemRefRepo(),
		changes: newMemChangeRepo(),
		bus:     eventbus.NewEventPublisher(log),
	}
	f.svc = NewChangeRequestService(f.refs, f.changes, testChecker(), f.bus)
	return f
}

func (f *fixture) createReference(t *testing.T, collaboration string) *reference.Reference {
	t.Helper()
	ref, err := f.refs.Create(context.Background(), &reference.Reference{
		ID:            uuid.New(),
		Name:          fmt.Sprintf("country-codes-%s", uuid.NewString()[:8]),
		Kind:          reference.KindMap,
		Mode:          reference.ModeVersioning,
		Status:        reference.StatusActive,
		Collaboration: collaboration,
	})
	require.NoError(t, err)
	return ref
}

func buildNewPayload(values ...payload.Row) string {
	hdr := payload.Row{
		RowType:   payload.RowTypeHeader,
		Operation: "BUILD NEW",
		Fields:    map[string]string{"string_01": "Code", "string_02": "Name"},
	}
	return payload.Encode(payload.RowSet{Headers: []payload.Row{hdr}, Values: values})
}

func insertRow(code, name string) payload.Row {
	return payload.Row{
		RowType:   payload.RowTypeValues,
		Operation: "INSERT ROW",
		Fields:    map[string]string{"string_01": code, "string_02": name},
	}
}

// submitDraft walks a fresh draft through save and submit.
func (f *fixture) submitDraft(t *testing.T, actor permissions.Actor, ref *reference.Reference, payloadText string) *changerequest.ChangeRequest {
	t.Helper()
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, actor, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest

	saved, err := f.svc.SaveDraft(ctx, actor, cr.ID, cr.LockVersion, DraftUpdateInput{
		Payload:      payloadText,
		TrackingID:   cr.TrackingID,
		ChangeReason: "test change",
		Category:     changerequest.CategoryDataCorrection,
	})
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, actor, cr.ID, SubmitInput{DraftToken: saved.DraftToken, LockVersion: saved.LockVersion})
	require.NoError(t, err)
	return res.ChangeRequest
}

// approve pushes a submitted request through approval.
func (f *fixture) approve(t *testing.T, cr *changerequest.ChangeRequest) *changerequest.ChangeRequest {
	t.Helper()
	decided, err := f.svc.Decide(context.Background(), approver, cr.ID, DecideInput{Approve: true, Note: "looks good"})
	require.NoError(t, err)
	return decided
}

func requireServiceError(t *testing.T, err error, status int, code string) *ServiceError {
	t.Helper()
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, status, se.Status)
	require.Equal(t, code, se.Code)
	return se
}

func TestOpenDraft_NewReference(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	view, err := f.svc.OpenDraft(context.Background(), maker, ref.ID)
	require.NoError(t, err)

	cr := view.ChangeRequest
	require.True(t, view.Editable)
	require.Equal(t, changerequest.StatusDraft, cr.Status)
	require.Equal(t, fmt.Sprintf("CR-%d-0001", time.Now().Year()), cr.DisplayID)
	require.NotEqual(t, uuid.Nil, cr.DraftToken)
	require.Nil(t, cr.Version)
	require.Contains(t, cr.TrackingID, "SES")
	require.Contains(t, cr.TrackingID, "-REQ")

	rs := payload.Parse(cr.Payload)
	require.Len(t, rs.Headers, 1)
	require.Equal(t, "BUILD NEW", rs.Header().Operation)
	require.Empty(t, rs.Values)
}

func TestOpenDraft_RequiresMakerCapability(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	_, err := f.svc.OpenDraft(context.Background(), nobody, ref.ID)
	requireServiceError(t, err, http.StatusForbidden, "REFDATA_FORBIDDEN")
}

func TestOpenDraft_ResumesAlignedDraft(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	first, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	second, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	require.Equal(t, first.ChangeRequest.ID, second.ChangeRequest.ID)
}

func TestOpenDraft_ReturnsSubmittedRequest(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	submitted := f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States")))

	view, err := f.svc.OpenDraft(context.Background(), maker2, ref.ID)
	require.NoError(t, err)
	require.Equal(t, submitted.ID, view.ChangeRequest.ID)
	require.False(t, view.Editable)
}

func TestOpenDraft_StaleDraftConflicts(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	// maker2 parks a draft against the empty reference, then maker's
	// work is approved, moving the baseline underneath it.
	view, err := f.svc.OpenDraft(ctx, maker2, ref.ID)
	require.NoError(t, err)
	_, err = f.svc.SaveDraft(ctx, maker2, view.ChangeRequest.ID, view.ChangeRequest.LockVersion, DraftUpdateInput{
		Payload: buildNewPayload(insertRow("DE", "Germany")),
	})
	require.NoError(t, err)

	f.approve(t, f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States"))))

	_, err = f.svc.OpenDraft(ctx, maker2, ref.ID)
	requireServiceError(t, err, http.StatusConflict, "REFDATA_STALE_DRAFT")
}

func TestSaveDraft_LockConflict(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest

	_, err = f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{Payload: cr.Payload})
	require.NoError(t, err)

	// second save with the original lock version must lose
	_, err = f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{Payload: cr.Payload})
	requireServiceError(t, err, http.StatusConflict, "REFDATA_LOCK_CONFLICT")
}

func TestSaveDraft_SingleOwnerRejectsOtherEditors(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)

	_, err = f.svc.SaveDraft(ctx, maker2, view.ChangeRequest.ID, view.ChangeRequest.LockVersion, DraftUpdateInput{})
	requireServiceError(t, err, http.StatusForbidden, "REFDATA_FORBIDDEN")
}

func TestSaveDraft_CollaborativeRecordsContributor(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationCollaborative)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest

	updated, err := f.svc.SaveDraft(ctx, maker2, cr.ID, cr.LockVersion, DraftUpdateInput{Payload: cr.Payload})
	require.NoError(t, err)

	reloaded, err := f.svc.GetByID(ctx, updated.ID)
	require.NoError(t, err)
	require.Contains(t, reloaded.Contributors, maker2.ID)
}

func TestSubmit_BuildNewGate(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest

	// header without the build-new marker on a reference with no baseline
	hdr := payload.Row{RowType: payload.RowTypeHeader, Fields: map[string]string{"string_01": "Code"}}
	text := payload.Encode(payload.RowSet{
		Headers: []payload.Row{hdr},
		Values:  []payload.Row{insertRow("US", "United States")},
	})
	saved, err := f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{Payload: text})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, maker, cr.ID, SubmitInput{DraftToken: saved.DraftToken, LockVersion: saved.LockVersion})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	require.Contains(t, ve.Errors[0], "BUILD NEW")
}

func TestSubmit_LegacyVerbRejected(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest

	legacy := insertRow("US", "United States")
	legacy.Operation = "INSERT"
	saved, err := f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{
		Payload: buildNewPayload(legacy),
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, maker, cr.ID, SubmitInput{DraftToken: saved.DraftToken, LockVersion: saved.LockVersion})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	require.Contains(t, ve.Errors[0], "unsupported")
	require.Contains(t, ve.Errors[0], "'INSERT'")
}

func TestSubmit_IdempotentWithSameToken(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	submitted := f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States")))

	// a retried submit with the same token is a success, not a conflict
	res, err := f.svc.Submit(ctx, maker, submitted.ID, SubmitInput{DraftToken: submitted.DraftToken, LockVersion: submitted.LockVersion})
	require.NoError(t, err)
	require.Equal(t, submitted.ID, res.ChangeRequest.ID)
	require.Equal(t, changerequest.StatusSubmitted, res.ChangeRequest.Status)
}

func TestSubmit_MismatchedTokenConflicts(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	submitted := f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States")))

	_, err := f.svc.Submit(ctx, maker, submitted.ID, SubmitInput{DraftToken: uuid.New(), LockVersion: submitted.LockVersion})
	requireServiceError(t, err, http.StatusConflict, "REFDATA_CONFLICT")
}

func TestSubmit_WritesRowAudits(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	submitted := f.submitDraft(t, maker, ref,
		buildNewPayload(insertRow("US", "United States"), insertRow("DE", "Germany")))

	audits, err := f.changes.ListRowAudits(context.Background(), submitted.ID)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	require.Equal(t, "INSERT ROW", audits[0].Operation)
	require.Len(t, audits[0].RowDigest, 32)
}

func TestSubmit_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	var got []changerequest.SubmittedEvent
	f.bus.Subscribe(func(e changerequest.SubmittedEvent) { got = append(got, e) })

	submitted := f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States")))

	require.Len(t, got, 1)
	require.Equal(t, submitted.ID, got[0].ChangeRequestID)
	require.Equal(t, 1, got[0].RowCount)
}

func TestSubmit_RetiredReferenceRequiresOverride(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()
	require.NoError(t, f.refs.UpdateStatus(ctx, ref.ID, reference.StatusRetired))

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest
	saved, err := f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{
		Payload: buildNewPayload(insertRow("US", "United States")),
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, maker, cr.ID, SubmitInput{DraftToken: saved.DraftToken, LockVersion: saved.LockVersion})
	requireServiceError(t, err, http.StatusConflict, "REFDATA_RETIRED")

	// override flag unblocks
	saved2, err := f.svc.SaveDraft(ctx, maker, cr.ID, saved.LockVersion, DraftUpdateInput{
		Payload:      saved.Payload,
		OverrideFlag: true,
	})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, maker, cr.ID, SubmitInput{DraftToken: saved2.DraftToken, LockVersion: saved2.LockVersion})
	require.NoError(t, err)
}

func TestSubmit_SingleOwnerExclusivity(t *testing.T) {
	f := newFixture(t)
	refA := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	f.submitDraft(t, maker, refA, buildNewPayload(insertRow("US", "United States")))

	// force a second draft past OpenDraft by creating it directly, then
	// submit it; the store-level guard must fire.
	cr := &changerequest.ChangeRequest{
		ID:            uuid.New(),
		ReferenceID:   refA.ID,
		DisplayID:     "CR-2026-9999",
		DraftToken:    uuid.New(),
		Status:        changerequest.StatusDraft,
		Collaboration: changerequest.CollaborationSingleOwner,
		Payload:       buildNewPayload(insertRow("DE", "Germany")),
		CreatedBy:     maker2.ID,
	}
	_, err := f.changes.Create(ctx, cr)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, maker2, cr.ID, SubmitInput{DraftToken: cr.DraftToken, LockVersion: cr.LockVersion})
	requireServiceError(t, err, http.StatusConflict, "REFDATA_DUPLICATE_SUBMIT")
}

func TestDecide_ApprovePublishesBaseline(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	var events []changerequest.DecidedEvent
	f.bus.Subscribe(func(e changerequest.DecidedEvent) { events = append(events, e) })

	submitted := f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States")))
	decided := f.approve(t, submitted)

	require.Equal(t, changerequest.StatusApproved, decided.Status)
	require.NotNil(t, decided.Version)
	require.Equal(t, int32(1), *decided.Version)
	require.Equal(t, approver.SID, decided.DecidedBySID)

	reloaded, err := f.refs.GetByID(ctx, ref.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastApprovedChangeID)
	require.Equal(t, decided.ID, *reloaded.LastApprovedChangeID)

	require.Len(t, events, 1)
	require.Equal(t, changerequest.StatusApproved, events[0].Status)
}

func TestDecide_VersionsIncrement(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	first := f.approve(t, f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States"))))
	require.Equal(t, int32(1), *first.Version)

	// fork the new baseline and change it
	ctx := context.Background()
	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest
	rs := payload.Parse(cr.Payload)
	rs.Values = append(rs.Values, insertRow("DE", "Germany"))
	rs.Headers[0].Operation = ""
	saved, err := f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{Payload: payload.Encode(rs)})
	require.NoError(t, err)
	res, err := f.svc.Submit(ctx, maker, cr.ID, SubmitInput{DraftToken: saved.DraftToken, LockVersion: saved.LockVersion})
	require.NoError(t, err)

	second := f.approve(t, res.ChangeRequest)
	require.Equal(t, int32(2), *second.Version)
}

func TestDecide_RejectLeavesBaselineUntouched(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	submitted := f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States")))
	decided, err := f.svc.Decide(ctx, approver, submitted.ID, DecideInput{Approve: false, Note: "not like this"})
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusRejected, decided.Status)
	require.Nil(t, decided.Version)

	reloaded, err := f.refs.GetByID(ctx, ref.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.LastApprovedChangeID)
}

func TestDecide_RequiresNote(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	submitted := f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States")))
	_, err := f.svc.Decide(context.Background(), approver, submitted.ID, DecideInput{Approve: true, Note: "  "})
	requireServiceError(t, err, http.StatusUnprocessableEntity, "REFDATA_VALIDATION")
}

func TestDecide_SubmitterCannotSelfApprove(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)

	submitted := f.submitDraft(t, approver, ref, buildNewPayload(insertRow("US", "United States")))
	_, err := f.svc.Decide(context.Background(), approver, submitted.ID, DecideInput{Approve: true, Note: "mine"})
	requireServiceError(t, err, http.StatusForbidden, "REFDATA_FORBIDDEN")
}

func TestSubmit_BogusUpdateTargetSingleError(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	f.approve(t, f.submitDraft(t, maker, ref, buildNewPayload(insertRow("US", "United States"))))

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest

	rs := payload.Parse(cr.Payload)
	require.Len(t, rs.Values, 1)
	rs.Values[0].Operation = "UPDATE ROW"
	rs.Values[0].UpdateRowID = "deadbeefdeadbeefdeadbeefdeadbeef"
	saved, err := f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{Payload: payload.Encode(rs)})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, maker, cr.ID, SubmitInput{DraftToken: saved.DraftToken, LockVersion: saved.LockVersion})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	require.Contains(t, ve.Errors[0], "does not match any current row")
}

func TestDiscardDraft_Permissions(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	id := view.ChangeRequest.ID

	err = f.svc.DiscardDraft(ctx, maker2, id)
	requireServiceError(t, err, http.StatusForbidden, "REFDATA_FORBIDDEN")

	// a steward may clean up someone else's draft
	require.NoError(t, f.svc.DiscardDraft(ctx, approver, id))

	_, err = f.svc.GetByID(ctx, id)
	require.True(t, errors.Is(err, changerequest.ErrNotFound) || isNotFound(err))
}

func TestBulkAppendCSV(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest
	saved, err := f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{
		Payload: buildNewPayload(),
	})
	require.NoError(t, err)

	csvText := "string_01 (Code),string_02 (Name)\nUS,United States\nDE,Germany\n,\n"
	updated, added, err := f.svc.BulkAppendCSV(ctx, maker, cr.ID, saved.LockVersion, csvText)
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, int32(2), updated.BulkAddCount)

	rs := payload.Parse(updated.Payload)
	require.Len(t, rs.Values, 2)
	require.Equal(t, "INSERT ROW", rs.Values[0].Operation)
	require.Equal(t, "US", rs.Values[0].SlotTrimmed("string_01"))
}

func TestBulkAppendCSV_UnsupportedColumnBlocks(t *testing.T) {
	f := newFixture(t)
	ref := f.createReference(t, reference.CollaborationSingleOwner)
	ctx := context.Background()

	view, err := f.svc.OpenDraft(ctx, maker, ref.ID)
	require.NoError(t, err)
	cr := view.ChangeRequest
	saved, err := f.svc.SaveDraft(ctx, maker, cr.ID, cr.LockVersion, DraftUpdateInput{
		Payload: buildNewPayload(),
	})
	require.NoError(t, err)

	csvText := "string_01 (Code),string_07 (Mystery)\nUS,oops\n"
	_, _, err = f.svc.BulkAppendCSV(ctx, maker, cr.ID, saved.LockVersion, csvText)
	se := requireServiceError(t, err, http.StatusUnprocessableEntity, "REFDATA_VALIDATION")
	require.Contains(t, se.Message, "string_07")

	// nothing was appended
	reloaded, err := f.svc.GetByID(ctx, cr.ID)
	require.NoError(t, err)
	require.Empty(t, payload.Parse(reloaded.Payload).Values)
}
