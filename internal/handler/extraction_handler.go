package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/locvowork/mzextract/internal/logger"
	"github.com/locvowork/mzextract/internal/service"
	"github.com/locvowork/mzextract/internal/service/serviceutils"
	"github.com/locvowork/mzextract/pkg/simpleexcel"
)

// HeaderExtractionWarnings carries the JSON encoded warnings of a file download.
const HeaderExtractionWarnings = "X-Extraction-Warnings"

// Output formats of POST /extractions.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

type ExtractionHandler struct {
	svc service.ExtractionService
}

func NewExtractionHandler(svc service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{svc: svc}
}

// TableResponse is the JSON rendering of a result table.
type TableResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

type ExtractionResponse struct {
	NoData        bool             `json:"no_data"`
	Table         *TableResponse   `json:"table,omitempty"`
	Warnings      []domain.Warning `json:"warnings"`
	MatchedSheets []string         `json:"matched_sheets"`
}

func (h *ExtractionHandler) HealthHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "ok", nil)
}

func (h *ExtractionHandler) PresetsHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Presets retrieved successfully", h.svc.Presets())
}

func (h *ExtractionHandler) InspectHandler(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("file")
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing workbook upload", err)
	}
	f, err := fh.Open()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to read upload", err)
	}
	defer f.Close()

	info, err := h.svc.Inspect(ctx, fh.Filename, f)
	if err != nil {
		return respondExtractionError(c, err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Workbook inspected successfully", info)
}

func (h *ExtractionHandler) ExtractHandler(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("file")
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing workbook upload", err)
	}

	format := strings.ToLower(strings.TrimSpace(c.FormValue("format")))
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV && format != FormatJSON {
		return serviceutils.ResponseError(c, http.StatusUnprocessableEntity, "Unsupported format",
			fmt.Errorf("%w: format must be xlsx, csv or json", domain.ErrInvalidRequest))
	}

	q, err := parseQuery(c)
	if err != nil {
		return respondExtractionError(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to read upload", err)
	}
	defer f.Close()

	result, err := h.svc.Extract(ctx, fh.Filename, f, q)
	if err != nil {
		return respondExtractionError(c, err)
	}

	if result.NoData() {
		return serviceutils.ResponseSuccess(c, http.StatusOK, "No data matched the selected ranges", ExtractionResponse{
			NoData:        true,
			Warnings:      nonNilWarnings(result.Warnings),
			MatchedSheets: []string{},
		})
	}

	switch format {
	case FormatJSON:
		return serviceutils.ResponseSuccess(c, http.StatusOK, "Extraction completed", ExtractionResponse{
			Table:         tableResponse(result.Table),
			Warnings:      nonNilWarnings(result.Warnings),
			MatchedSheets: result.MatchedSheets,
		})
	case FormatCSV:
		buf := new(bytes.Buffer)
		if err := simpleexcel.WriteCSV(buf, result.Table); err != nil {
			return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to generate CSV file", err)
		}
		return sendFile(c, result, simpleexcel.ContentTypeCSV, simpleexcel.OutputFilename(q.ValueColumn, FormatCSV), buf.Bytes())
	default:
		buf := new(bytes.Buffer)
		if err := simpleexcel.WriteXLSX(buf, q.ValueColumn, result.Table); err != nil {
			logger.ErrorLog(ctx, "write xlsx: %v", err)
			return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to generate Excel file", err)
		}
		return sendFile(c, result, simpleexcel.ContentTypeXLSX, simpleexcel.OutputFilename(q.ValueColumn, FormatXLSX), buf.Bytes())
	}
}

func (h *ExtractionHandler) RunsHandler(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid limit", fmt.Errorf("limit must be a positive integer"))
		}
		limit = n
	}

	runs, err := h.svc.RecentRuns(c.Request().Context(), limit)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to list runs", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Runs retrieved successfully", runs)
}

// parseQuery reads the multipart fields. Sheets are repeated fields; ranges
// may be repeated or joined with ';'.
func parseQuery(c echo.Context) (service.Query, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return service.Query{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	q := service.Query{
		ValueColumn: first(form.Value["value_column"]),
		Preset:      strings.TrimSpace(first(form.Value["preset"])),
	}

	for _, s := range form.Value["sheets"] {
		if s != "" {
			q.Sheets = append(q.Sheets, s)
		}
	}

	if v := strings.TrimSpace(first(form.Value["all_sheets"])); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return service.Query{}, fmt.Errorf("%w: all_sheets must be a boolean", domain.ErrInvalidRequest)
		}
		q.AllSheets = all
	}

	var raw []string
	for _, v := range form.Value["ranges"] {
		raw = append(raw, strings.Split(v, ";")...)
	}
	q.Ranges, err = domain.ParseRangeList(raw)
	if err != nil {
		return service.Query{}, err
	}
	return q, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func sendFile(c echo.Context, result *domain.ExtractionResult, contentType, filename string, data []byte) error {
	if len(result.Warnings) > 0 {
		encoded, err := json.Marshal(result.Warnings)
		if err == nil {
			c.Response().Header().Set(HeaderExtractionWarnings, string(encoded))
		}
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	return c.Blob(http.StatusOK, contentType, data)
}

func respondExtractionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrLoad):
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to load workbook", err)
	case errors.Is(err, domain.ErrInvalidRange):
		return serviceutils.ResponseError(c, http.StatusUnprocessableEntity, "Invalid m/z range", err)
	case errors.Is(err, domain.ErrInvalidRequest):
		return serviceutils.ResponseError(c, http.StatusUnprocessableEntity, "Invalid extraction request", err)
	default:
		logger.ErrorLog(c.Request().Context(), "extraction failed: %v", err)
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Extraction failed", err)
	}
}

func tableResponse(t *domain.Table) *TableResponse {
	rows := make([][]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		values := make([]interface{}, len(row))
		for j, cell := range row {
			values[j] = cell.Value()
		}
		rows[i] = values
	}
	return &TableResponse{Columns: t.Columns, Rows: rows}
}

func nonNilWarnings(w []domain.Warning) []domain.Warning {
	if w == nil {
		return []domain.Warning{}
	}
	return w
}
