package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/payload"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
)

// ExportService renders approved data and loader hand-off artifacts. It
// only ever reads from approved change requests; drafts and submissions
// are invisible to every export surface.
type ExportService struct {
	refs    reference.Repository
	changes changerequest.Repository
}

func NewExportService(refs reference.Repository, changes changerequest.Repository) *ExportService {
	return &ExportService{refs: refs, changes: changes}
}

// loader artifact column order, ahead of the 65 business slots
var loaderMetaColumns = []string{"operation", "start_dt", "end_dt", "version", "update_rowid"}

func (s *ExportService) approvedFor(ctx context.Context, referenceID uuid.UUID) (*reference.Reference, *changerequest.ChangeRequest, error) {
	ref, err := s.refs.GetByID(ctx, referenceID)
	if err != nil {
		return nil, nil, mapPgError(err)
	}
	if !ref.HasBaseline() {
		return nil, nil, newServiceError(http.StatusNotFound, "REFDATA_NOT_FOUND",
			fmt.Sprintf("reference %s has no approved version yet", ref.Name), nil)
	}
	cr, err := s.changes.GetByID(ctx, *ref.LastApprovedChangeID)
	if err != nil {
		return nil, nil, mapPgError(err)
	}
	return ref, cr, nil
}

func (s *ExportService) approvedVersion(ctx context.Context, referenceID uuid.UUID, version *int32) (*reference.Reference, *changerequest.ChangeRequest, error) {
	if version == nil {
		return s.approvedFor(ctx, referenceID)
	}
	ref, err := s.refs.GetByID(ctx, referenceID)
	if err != nil {
		return nil, nil, mapPgError(err)
	}
	cr, err := s.changes.GetApprovedByVersion(ctx, referenceID, *version)
	if err != nil {
		return nil, nil, mapPgError(err)
	}
	return ref, cr, nil
}

// LoaderArtifacts builds the hand-off zip for the downstream loader: one
// CSV with every values row in loader vocabulary, plus a meta CSV
// describing the batch. UPDATE ROW rows are emitted with the loader's
// REPLACE ROW verb; the loader has no in-place update.
func (s *ExportService) LoaderArtifacts(ctx context.Context, changeRequestID uuid.UUID) ([]byte, string, error) {
	cr, err := s.changes.GetByID(ctx, changeRequestID)
	if err != nil {
		return nil, "", mapPgError(err)
	}
	if cr.Status != changerequest.StatusApproved {
		return nil, "", newServiceError(http.StatusConflict, "REFDATA_CONFLICT",
			fmt.Sprintf("change request %s is %s, loader artifacts exist only for approved requests", cr.DisplayID, cr.Status), nil)
	}
	ref, err := s.refs.GetByID(ctx, cr.ReferenceID)
	if err != nil {
		return nil, "", mapPgError(err)
	}

	rs := payload.Parse(cr.Payload)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	valuesName := fmt.Sprintf("%s_values.csv", cr.DisplayID)
	vw, err := zw.Create(valuesName)
	if err != nil {
		return nil, "", err
	}
	if err := writeLoaderValuesCSV(vw, rs); err != nil {
		return nil, "", err
	}

	mw, err := zw.Create(fmt.Sprintf("%s_meta.csv", cr.DisplayID))
	if err != nil {
		return nil, "", err
	}
	if err := writeLoaderMetaCSV(mw, ref, cr, len(rs.Values)); err != nil {
		return nil, "", err
	}

	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("%s_artifacts.zip", cr.DisplayID), nil
}

func writeLoaderValuesCSV(w io.Writer, rs payload.RowSet) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, loaderMetaColumns...), payload.SlotNames()...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rs.Values {
		verb := row.Operation
		if op, err := changerequest.ParseOperation(row.Operation); err == nil {
			verb = op.LoaderVerb()
		}
		record := []string{verb, row.StartDt, row.EndDt, row.Version, row.UpdateRowID}
		for _, slot := range payload.SlotNames() {
			record = append(record, row.SlotTrimmed(slot))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeLoaderMetaCSV(w io.Writer, ref *reference.Reference, cr *changerequest.ChangeRequest, rowCount int) error {
	cw := csv.NewWriter(w)
	version := ""
	if cr.Version != nil {
		version = strconv.Itoa(int(*cr.Version))
	}
	records := [][]string{
		{"reference", ref.Name},
		{"display_id", cr.DisplayID},
		{"version", version},
		{"tracking_id", cr.TrackingID},
		{"row_count", strconv.Itoa(rowCount)},
		{"requested_by", cr.RequestedBySID},
		{"decided_by", cr.DecidedBySID},
		{"generated_at", time.Now().UTC().Format(time.RFC3339)},
	}
	for _, r := range records {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// selectColumns resolves the export column set. An empty request keeps
// every visible column; otherwise each requested name must match a visible
// slot or its business label.
func selectColumns(rs payload.RowSet, requested []string) ([]string, error) {
	visible := payload.VisibleColumns(rs)
	if len(requested) == 0 {
		return visible, nil
	}
	labels := payload.ColumnLabels(rs)
	byName := make(map[string]string, len(visible)*2)
	for _, c := range visible {
		byName[c] = c
		if labels[c] != "" {
			byName[labels[c]] = c
		}
	}
	cols := make([]string, 0, len(requested))
	for _, name := range requested {
		slot, ok := byName[name]
		if !ok {
			return nil, newServiceError(http.StatusBadRequest, "REFDATA_INVALID_BODY",
				fmt.Sprintf("unknown export column %q", name), nil)
		}
		cols = append(cols, slot)
	}
	return cols, nil
}

// ApprovedCSV renders the approved payload as CSV restricted to the
// reference's visible business columns, labeled with the header row's
// business names.
func (s *ExportService) ApprovedCSV(ctx context.Context, referenceID uuid.UUID, version *int32, requested []string) ([]byte, string, error) {
	ref, cr, err := s.approvedVersion(ctx, referenceID, version)
	if err != nil {
		return nil, "", err
	}
	rs := payload.Parse(cr.Payload)
	cols, err := selectColumns(rs, requested)
	if err != nil {
		return nil, "", err
	}
	labels := payload.ColumnLabels(rs)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	header := make([]string, 0, len(cols))
	for _, c := range cols {
		if labels[c] != "" {
			header = append(header, labels[c])
		} else {
			header = append(header, c)
		}
	}
	if err := cw.Write(header); err != nil {
		return nil, "", err
	}
	for _, row := range rs.Values {
		record := make([]string, 0, len(cols))
		for _, c := range cols {
			record = append(record, row.SlotTrimmed(c))
		}
		if err := cw.Write(record); err != nil {
			return nil, "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), exportFilename(ref, cr, "csv"), nil
}

// ApprovedJSON renders the approved payload as a JSON document of
// label-keyed objects.
func (s *ExportService) ApprovedJSON(ctx context.Context, referenceID uuid.UUID, version *int32, requested []string) ([]byte, string, error) {
	ref, cr, err := s.approvedVersion(ctx, referenceID, version)
	if err != nil {
		return nil, "", err
	}
	rs := payload.Parse(cr.Payload)
	cols, err := selectColumns(rs, requested)
	if err != nil {
		return nil, "", err
	}
	labels := payload.ColumnLabels(rs)

	rows := make([]map[string]string, 0, len(rs.Values))
	for _, row := range rs.Values {
		obj := make(map[string]string, len(cols))
		for _, c := range cols {
			key := labels[c]
			if key == "" {
				key = c
			}
			obj[key] = row.SlotTrimmed(c)
		}
		rows = append(rows, obj)
	}

	doc := map[string]any{
		"reference": ref.Name,
		"version":   cr.Version,
		"rows":      rows,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return b, exportFilename(ref, cr, "json"), nil
}

// ApprovedXLSX renders the approved payload into a one-sheet workbook with
// a frozen, bolded header row.
func (s *ExportService) ApprovedXLSX(ctx context.Context, referenceID uuid.UUID, version *int32, requested []string) ([]byte, string, error) {
	ref, cr, err := s.approvedVersion(ctx, referenceID, version)
	if err != nil {
		return nil, "", err
	}
	rs := payload.Parse(cr.Payload)
	cols, err := selectColumns(rs, requested)
	if err != nil {
		return nil, "", err
	}
	labels := payload.ColumnLabels(rs)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sheet1"
	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, "", err
		}
		label := labels[c]
		if label == "" {
			label = c
		}
		if err := f.SetCellValue(sheet, cell, label); err != nil {
			return nil, "", err
		}
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", err
	}
	if len(cols) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		if err := f.SetCellStyle(sheet, "A1", last, boldStyle); err != nil {
			return nil, "", err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, "", err
	}

	for r, row := range rs.Values {
		for i, c := range cols {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, "", err
			}
			if err := f.SetCellValue(sheet, cell, row.SlotTrimmed(c)); err != nil {
				return nil, "", err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), exportFilename(ref, cr, "xlsx"), nil
}

func exportFilename(ref *reference.Reference, cr *changerequest.ChangeRequest, ext string) string {
	version := "latest"
	if cr.Version != nil {
		version = fmt.Sprintf("v%d", *cr.Version)
	}
	return fmt.Sprintf("%s_%s.%s", ref.Name, version, ext)
}
