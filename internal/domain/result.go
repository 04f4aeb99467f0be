package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Warning codes.
const (
	WarnMissingColumn = "missing_column"
	WarnSheetNotFound = "sheet_not_found"
)

// Warning is a non-fatal diagnostic about one sheet.
type Warning struct {
	Sheet   string   `json:"sheet"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

func MissingColumnWarning(sheet string, missing []string) Warning {
	return Warning{
		Sheet:   sheet,
		Code:    WarnMissingColumn,
		Message: fmt.Sprintf("Required columns not found in sheet: %s (%s)", sheet, strings.Join(missing, ", ")),
		Missing: missing,
	}
}

func SheetNotFoundWarning(sheet string) Warning {
	return Warning{
		Sheet:   sheet,
		Code:    WarnSheetNotFound,
		Message: fmt.Sprintf("Sheet not found in workbook: %s", sheet),
	}
}

// ExtractionResult is the outcome of a processed request. A nil Table means
// no sheet matched anything (no data), which is not an error.
type ExtractionResult struct {
	Table         *Table    `json:"-"`
	Warnings      []Warning `json:"warnings"`
	MatchedSheets []string  `json:"matched_sheets"`
}

func (r *ExtractionResult) NoData() bool {
	return r == nil || r.Table == nil
}

// Run outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeNoData         = "no_data"
	OutcomeLoadError      = "load_error"
	OutcomeInvalidRequest = "invalid_request"
)

// ExtractionRun is the audit record of one extraction call.
type ExtractionRun struct {
	ID            string        `json:"id"`
	Source        string        `json:"source"`
	KeyColumn     string        `json:"key_column"`
	ValueColumn   string        `json:"value_column"`
	Sheets        []string      `json:"sheets"`
	Ranges        []string      `json:"ranges"`
	MatchedSheets []string      `json:"matched_sheets"`
	Rows          int           `json:"rows"`
	Warnings      int           `json:"warnings"`
	Outcome       string        `json:"outcome"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RunRecorder persists extraction runs.
type RunRecorder interface {
	Name() string
	Record(ctx context.Context, run *ExtractionRun) error
}

// RunLister returns the most recent runs first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]ExtractionRun, error)
}
