package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/services"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/testkit"
	"github.com/JomsTrinidad/master-data-utility/pkg/eventbus"
)

var (
	apiMaker    = permissions.Actor{ID: uuid.New(), SID: "S-API-MAKER"}
	apiApprover = permissions.Actor{ID: uuid.New(), SID: "S-API-APPROVER"}
)

type apiFixture struct {
	router *mux.Router
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	refs := testkit.NewMemoryReferenceRepository()
	changes := testkit.NewMemoryChangeRequestRepository()
	caps := permissions.StaticChecker{
		apiMaker.ID: {permissions.CapMaker: true, permissions.CapSteward: true},
		apiApprover.ID: {
			permissions.CapMaker:    true,
			permissions.CapSteward:  true,
			permissions.CapApprover: true,
		},
	}
	bus := eventbus.NewEventPublisher(log)

	ctrl := NewRefdataAPIController(
		services.NewReferenceService(refs, caps),
		services.NewChangeRequestService(refs, changes, caps, bus),
		services.NewExportService(refs, changes),
		changes,
		1<<10, // small upload cap so the 413 path is testable
	)
	router := mux.NewRouter()
	ctrl.Register(router)
	return &apiFixture{router: router}
}

func (f *apiFixture) do(t *testing.T, actor *permissions.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/refdata/api"+path, &buf)
	if actor != nil {
		req.Header.Set("X-User-ID", actor.ID.String())
		req.Header.Set("X-User-SID", actor.SID)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (f *apiFixture) createReference(t *testing.T, name string) uuid.UUID {
	t.Helper()
	rec := f.do(t, &apiMaker, http.MethodPost, "/references", map[string]any{
		"name":               name,
		"kind":               "map",
		"mode":               "versioning",
		"collaboration_mode": "single_owner",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, err := uuid.Parse(decodeBody(t, rec)["id"].(string))
	require.NoError(t, err)
	return id
}

func apiPayload() string {
	return payload.Encode(payload.RowSet{
		Headers: []payload.Row{{
			RowType:   payload.RowTypeHeader,
			Operation: "BUILD NEW",
			Fields:    map[string]string{"string_01": "Code", "string_02": "Name"},
		}},
		Values: []payload.Row{{
			RowType:   payload.RowTypeValues,
			Operation: "INSERT ROW",
			Fields:    map[string]string{"string_01": "PH", "string_02": "Philippines"},
		}},
	})
}

func TestAPI_RequiresIdentityHeaders(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, nil, http.MethodPost, "/references", map[string]any{"name": "x"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "REFDATA_UNAUTHENTICATED", decodeBody(t, rec)["code"])

	req := httptest.NewRequest(http.MethodPost, "/refdata/api/references", strings.NewReader("{}"))
	req.Header.Set("X-User-ID", "not-a-uuid")
	req.Header.Set("X-User-SID", "S-1")
	rec2 := httptest.NewRecorder()
	f.router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestAPI_PathMustBeUUID(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, &apiMaker, http.MethodGet, "/references/nope", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "REFDATA_INVALID_BODY", decodeBody(t, rec)["code"])
}

func TestAPI_RejectsUnknownJSONFields(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, &apiMaker, http.MethodPost, "/references", map[string]any{
		"name":     "currencies",
		"kind":     "map",
		"mode":     "versioning",
		"mystery":  true,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_DraftLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	refID := f.createReference(t, "country-codes")

	rec := f.do(t, &apiMaker, http.MethodPost, fmt.Sprintf("/references/%s/draft", refID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	draft := decodeBody(t, rec)["change_request"].(map[string]any)
	crID := draft["id"].(string)
	token := draft["draft_token"].(string)
	require.Equal(t, changerequest.StatusDraft, draft["status"])

	rec = f.do(t, &apiMaker, http.MethodPatch, "/change-requests/"+crID, map[string]any{
		"lock_version":    draft["lock_version"],
		"payload":         apiPayload(),
		"tracking_id":     draft["tracking_id"],
		"change_reason":   "initial load",
		"change_category": changerequest.CategoryDataCorrection,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decodeBody(t, rec)

	rec = f.do(t, &apiMaker, http.MethodPost, "/change-requests/"+crID+":submit", map[string]any{
		"draft_token":  token,
		"lock_version": saved["lock_version"],
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	submitted := decodeBody(t, rec)["change_request"].(map[string]any)
	require.Equal(t, changerequest.StatusSubmitted, submitted["status"])

	rec = f.do(t, &apiApprover, http.MethodPost, "/change-requests/"+crID+":approve", map[string]any{
		"note": "approved over api",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decided := decodeBody(t, rec)
	require.Equal(t, changerequest.StatusApproved, decided["status"])
	require.EqualValues(t, 1, decided["version"])

	rec = f.do(t, &apiMaker, http.MethodGet, fmt.Sprintf("/references/%s/export.csv", refID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "country-codes_v1.csv")
	require.Contains(t, rec.Body.String(), "Philippines")
}

func TestAPI_ValidationErrorBody(t *testing.T) {
	f := newAPIFixture(t)
	refID := f.createReference(t, "iso-languages")

	rec := f.do(t, &apiMaker, http.MethodPost, fmt.Sprintf("/references/%s/draft", refID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decodeBody(t, rec)["change_request"].(map[string]any)
	crID := draft["id"].(string)

	// legacy verb must be rejected with a structured 422
	bad := payload.Encode(payload.RowSet{
		Headers: []payload.Row{{
			RowType:   payload.RowTypeHeader,
			Operation: "BUILD NEW",
			Fields:    map[string]string{"string_01": "Code"},
		}},
		Values: []payload.Row{{
			RowType:   payload.RowTypeValues,
			Operation: "INSERT",
			Fields:    map[string]string{"string_01": "tl"},
		}},
	})
	rec = f.do(t, &apiMaker, http.MethodPatch, "/change-requests/"+crID, map[string]any{
		"lock_version": draft["lock_version"],
		"payload":      bad,
		"tracking_id":  draft["tracking_id"],
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decodeBody(t, rec)

	rec = f.do(t, &apiMaker, http.MethodPost, "/change-requests/"+crID+":submit", map[string]any{
		"draft_token":  draft["draft_token"],
		"lock_version": saved["lock_version"],
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "REFDATA_VALIDATION", body["code"])
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].(string), "unsupported")
}

func TestAPI_BulkRowsUploadTooLarge(t *testing.T) {
	f := newAPIFixture(t)
	refID := f.createReference(t, "big-upload")

	rec := f.do(t, &apiMaker, http.MethodPost, fmt.Sprintf("/references/%s/draft", refID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decodeBody(t, rec)["change_request"].(map[string]any)
	crID := draft["id"].(string)

	huge := strings.Repeat("x", 2<<10)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/refdata/api/change-requests/%s/bulk-rows?lock_version=%v", crID, draft["lock_version"]),
		strings.NewReader(huge))
	req.Header.Set("X-User-ID", apiMaker.ID.String())
	req.Header.Set("X-User-SID", apiMaker.SID)
	rec2 := httptest.NewRecorder()
	f.router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec2.Code)
	require.Equal(t, "REFDATA_UPLOAD_TOO_LARGE", decodeBody(t, rec2)["code"])
}

func TestAPI_ExportRequiresBaseline(t *testing.T) {
	f := newAPIFixture(t)
	refID := f.createReference(t, "empty-reference")

	rec := f.do(t, &apiMaker, http.MethodGet, fmt.Sprintf("/references/%s/export.json", refID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "REFDATA_NOT_FOUND", decodeBody(t, rec)["code"])
}

func TestAPI_ArtifactsOnlyForApproved(t *testing.T) {
	f := newAPIFixture(t)
	refID := f.createReference(t, "pending-reference")

	rec := f.do(t, &apiMaker, http.MethodPost, fmt.Sprintf("/references/%s/draft", refID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	crID := decodeBody(t, rec)["change_request"].(map[string]any)["id"].(string)

	rec = f.do(t, &apiMaker, http.MethodGet, "/change-requests/"+crID+"/artifacts.zip", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_BulkTemplateDownload(t *testing.T) {
	f := newAPIFixture(t)
	refID := f.createReference(t, "template-reference")

	rec := f.do(t, &apiMaker, http.MethodGet, fmt.Sprintf("/references/%s/bulk-template.csv", refID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "template-reference_template.csv")
	require.Contains(t, rec.Body.String(), "string_01")
}
