package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/services"
)

// RefdataAPIController exposes the governed reference data API. Identity
// arrives on trusted headers set by the authenticating proxy; capability
// enforcement happens in the service layer.
type RefdataAPIController struct {
	references     *services.ReferenceService
	changeRequests *services.ChangeRequestService
	exports        *services.ExportService
	audits         changerequest.Repository
	maxUploadSize  int64
	apiPrefix      string
}

func NewRefdataAPIController(
	references *services.ReferenceService,
	changeRequests *services.ChangeRequestService,
	exports *services.ExportService,
	audits changerequest.Repository,
	maxUploadSize int64,
) *RefdataAPIController {
	return &RefdataAPIController{
		references:     references,
		changeRequests: changeRequests,
		exports:        exports,
		audits:         audits,
		maxUploadSize:  maxUploadSize,
		apiPrefix:      "/refdata/api",
	}
}

func (c *RefdataAPIController) Key() string {
	return c.apiPrefix
}

func (c *RefdataAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/references", c.instrumentAPI("references_create", c.CreateReference)).Methods(http.MethodPost)
	api.HandleFunc("/references", c.instrumentAPI("references_list", c.ListReferences)).Methods(http.MethodGet)
	api.HandleFunc("/references/{id}", c.instrumentAPI("references_get", c.GetReference)).Methods(http.MethodGet)
	api.HandleFunc("/references/{id}", c.instrumentAPI("references_update", c.UpdateReference)).Methods(http.MethodPatch)
	api.HandleFunc("/references/{id}:retire", c.instrumentAPI("references_retire", c.RetireReference)).Methods(http.MethodPost)
	api.HandleFunc("/references/{id}:reactivate", c.instrumentAPI("references_reactivate", c.ReactivateReference)).Methods(http.MethodPost)
	api.HandleFunc("/references/{id}/draft", c.instrumentAPI("draft_open", c.OpenDraft)).Methods(http.MethodPost)
	api.HandleFunc("/references/{id}/compare", c.instrumentAPI("versions_compare", c.CompareVersions)).Methods(http.MethodGet)
	api.HandleFunc("/references/{id}/bulk-template.csv", c.instrumentAPI("bulk_template", c.BulkTemplate)).Methods(http.MethodGet)
	api.HandleFunc("/references/{id}/export.csv", c.instrumentAPI("export_csv", c.ExportCSV)).Methods(http.MethodGet)
	api.HandleFunc("/references/{id}/export.json", c.instrumentAPI("export_json", c.ExportJSON)).Methods(http.MethodGet)
	api.HandleFunc("/references/{id}/export.xlsx", c.instrumentAPI("export_xlsx", c.ExportXLSX)).Methods(http.MethodGet)

	api.HandleFunc("/change-requests", c.instrumentAPI("change_requests_list", c.ListChangeRequests)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/{id}", c.instrumentAPI("change_requests_get", c.GetChangeRequest)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/{id}", c.instrumentAPI("draft_save", c.SaveDraft)).Methods(http.MethodPatch)
	api.HandleFunc("/change-requests/{id}:submit", c.instrumentAPI("submit", c.Submit)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}:approve", c.instrumentAPI("approve", c.Approve)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}:reject", c.instrumentAPI("reject", c.Reject)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}:discard", c.instrumentAPI("discard", c.Discard)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}/bulk-rows", c.instrumentAPI("bulk_rows", c.BulkRows)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}/diff", c.instrumentAPI("diff", c.Diff)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/{id}/audits", c.instrumentAPI("audits", c.ListRowAudits)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/{id}/artifacts.zip", c.instrumentAPI("artifacts", c.LoaderArtifacts)).Methods(http.MethodGet)
}

func requireActor(w http.ResponseWriter, r *http.Request) (permissions.Actor, bool) {
	rawID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	sid := strings.TrimSpace(r.Header.Get("X-User-SID"))
	if rawID == "" || sid == "" {
		writeAPIError(w, http.StatusUnauthorized, "REFDATA_UNAUTHENTICATED", "missing identity headers")
		return permissions.Actor{}, false
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, "REFDATA_UNAUTHENTICATED", "X-User-ID is not a valid uuid")
		return permissions.Actor{}, false
	}
	return permissions.Actor{ID: id, SID: sid}, true
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", "id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

type createReferenceRequest struct {
	Name               string `json:"name"`
	Kind               string `json:"kind"`
	Mode               string `json:"mode"`
	CollaborationMode  string `json:"collaboration_mode"`
	Description        string `json:"description"`
	OwnerGroup         string `json:"owner_group"`
	Tags               string `json:"tags"`
	Category           string `json:"category"`
	DataClassification string `json:"data_classification"`
}

func (c *RefdataAPIController) CreateReference(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createReferenceRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", err.Error())
		return
	}
	ref, err := c.references.Create(r.Context(), actor, services.CreateReferenceInput{
		Name:               req.Name,
		Kind:               req.Kind,
		Mode:               req.Mode,
		Collaboration:      req.CollaborationMode,
		Description:        req.Description,
		OwnerGroup:         req.OwnerGroup,
		Tags:               req.Tags,
		Category:           req.Category,
		DataClassification: req.DataClassification,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (c *RefdataAPIController) ListReferences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	refs, err := c.references.List(r.Context(), reference.Filter{
		Status: q.Get("status"),
		Kind:   q.Get("kind"),
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"references": refs})
}

func (c *RefdataAPIController) GetReference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	ref, err := c.references.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

type updateReferenceRequest struct {
	Description *string `json:"description"`
	OwnerGroup  *string `json:"owner_group"`
	Tags        *string `json:"tags"`
	Category    *string `json:"category"`
}

func (c *RefdataAPIController) UpdateReference(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req updateReferenceRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", err.Error())
		return
	}
	ref, err := c.references.Update(r.Context(), actor, id, services.UpdateReferenceInput{
		Description: req.Description,
		OwnerGroup:  req.OwnerGroup,
		Tags:        req.Tags,
		Category:    req.Category,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (c *RefdataAPIController) RetireReference(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := c.references.Retire(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RefdataAPIController) ReactivateReference(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := c.references.Reactivate(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RefdataAPIController) OpenDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	view, err := c.changeRequests.OpenDraft(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (c *RefdataAPIController) ListChangeRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := changerequest.Filter{Status: q.Get("status")}
	if raw := q.Get("reference_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", "reference_id must be a uuid")
			return
		}
		f.ReferenceID = &id
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	out, err := c.changeRequests.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"change_requests": out})
}

func (c *RefdataAPIController) GetChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	cr, err := c.changeRequests.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

type saveDraftRequest struct {
	LockVersion  int32  `json:"lock_version"`
	Payload      string `json:"payload"`
	TrackingID   string `json:"tracking_id"`
	ChangeReason string `json:"change_reason"`
	Category     string `json:"change_category"`
	OverrideFlag bool   `json:"override_retired"`
}

func (c *RefdataAPIController) SaveDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req saveDraftRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", err.Error())
		return
	}
	cr, err := c.changeRequests.SaveDraft(r.Context(), actor, id, req.LockVersion, services.DraftUpdateInput{
		Payload:      req.Payload,
		TrackingID:   req.TrackingID,
		ChangeReason: req.ChangeReason,
		Category:     req.Category,
		OverrideFlag: req.OverrideFlag,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

type submitRequest struct {
	DraftToken  uuid.UUID `json:"draft_token"`
	LockVersion int32     `json:"lock_version"`
}

func (c *RefdataAPIController) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", err.Error())
		return
	}
	res, err := c.changeRequests.Submit(r.Context(), actor, id, services.SubmitInput{
		DraftToken:  req.DraftToken,
		LockVersion: req.LockVersion,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"change_request": res.ChangeRequest,
		"warnings":       res.Warnings,
	})
}

type decideRequest struct {
	Note string `json:"note"`
}

func (c *RefdataAPIController) Approve(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, true)
}

func (c *RefdataAPIController) Reject(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, false)
}

func (c *RefdataAPIController) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req decideRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", err.Error())
		return
	}
	cr, err := c.changeRequests.Decide(r.Context(), actor, id, services.DecideInput{
		Approve: approve,
		Note:    req.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

func (c *RefdataAPIController) Discard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := c.changeRequests.DiscardDraft(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkRows accepts a raw CSV body and appends its rows to the draft. The
// client presents the lock version it last observed as a query parameter
// so a stale tab cannot clobber a newer payload.
func (c *RefdataAPIController) BulkRows(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	lockVersion, err := strconv.ParseInt(r.URL.Query().Get("lock_version"), 10, 32)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", "lock_version query parameter is required")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, c.maxUploadSize))
	if err != nil {
		writeAPIError(w, http.StatusRequestEntityTooLarge, "REFDATA_UPLOAD_TOO_LARGE",
			fmt.Sprintf("upload exceeds the %d byte limit", c.maxUploadSize))
		return
	}

	cr, added, err := c.changeRequests.BulkAppendCSV(r.Context(), actor, id, int32(lockVersion), string(body))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"change_request": cr,
		"rows_added":     added,
	})
}

func (c *RefdataAPIController) Diff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	changedOnly := r.URL.Query().Get("mode") == "changed"
	report, err := c.changeRequests.DiffAgainstBaseline(r.Context(), id, changedOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (c *RefdataAPIController) CompareVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	from, err1 := strconv.ParseInt(r.URL.Query().Get("from"), 10, 32)
	to, err2 := strconv.ParseInt(r.URL.Query().Get("to"), 10, 32)
	if err1 != nil || err2 != nil {
		writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", "from and to version query parameters are required")
		return
	}
	report, err := c.changeRequests.CompareVersions(r.Context(), id, int32(from), int32(to))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (c *RefdataAPIController) ListRowAudits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	audits, err := c.audits.ListRowAudits(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"row_audits": audits})
}

// BulkTemplate serves the CSV template for a reference's current draft
// columns, derived from the latest approved header when one exists.
func (c *RefdataAPIController) BulkTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	ref, err := c.references.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cols := payload.SlotNames()[:2]
	labels := map[string]string{}
	if ref.HasBaseline() {
		baseline, err := c.changeRequests.GetByID(r.Context(), *ref.LastApprovedChangeID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rs := payload.Parse(baseline.Payload)
		cols = payload.VisibleColumns(rs)
		labels = payload.ColumnLabels(rs)
	}

	serveDownload(w, []byte(services.BulkTemplateCSV(cols, labels)),
		fmt.Sprintf("%s_template.csv", ref.Name), "text/csv")
}

func (c *RefdataAPIController) ExportCSV(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, "text/csv", c.exports.ApprovedCSV)
}

func (c *RefdataAPIController) ExportJSON(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, "application/json", c.exports.ApprovedJSON)
}

func (c *RefdataAPIController) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	c.export(w, r,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		c.exports.ApprovedXLSX)
}

func (c *RefdataAPIController) export(
	w http.ResponseWriter,
	r *http.Request,
	contentType string,
	render func(ctx context.Context, referenceID uuid.UUID, version *int32, cols []string) ([]byte, string, error),
) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var version *int32
	if raw := r.URL.Query().Get("version"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 1 {
			writeAPIError(w, http.StatusBadRequest, "REFDATA_INVALID_BODY", "version must be a positive integer")
			return
		}
		v := int32(n)
		version = &v
	}
	var cols []string
	if raw := strings.TrimSpace(r.URL.Query().Get("cols")); raw != "" {
		for _, col := range strings.Split(raw, ",") {
			if col = strings.TrimSpace(col); col != "" {
				cols = append(cols, col)
			}
		}
	}
	data, name, err := render(r.Context(), id, version, cols)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	serveDownload(w, data, name, contentType)
}

func (c *RefdataAPIController) LoaderArtifacts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	data, name, err := c.exports.LoaderArtifacts(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	serveDownload(w, data, name, "application/zip")
}

func serveDownload(w http.ResponseWriter, data []byte, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
