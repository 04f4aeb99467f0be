package googlecloud

import (
	"time"

	"github.com/locvowork/mzextract/internal/domain"
)

// RunEntity is the Datastore representation of an extraction run.
type RunEntity struct {
	ID            string    `datastore:"-"` // Key Name
	Source        string    `datastore:"source"`
	KeyColumn     string    `datastore:"key_column,noindex"`
	ValueColumn   string    `datastore:"value_column"`
	Sheets        []string  `datastore:"sheets,noindex"`
	Ranges        []string  `datastore:"ranges,noindex"`
	MatchedSheets []string  `datastore:"matched_sheets,noindex"`
	Rows          int       `datastore:"rows"`
	Warnings      int       `datastore:"warnings"`
	Outcome       string    `datastore:"outcome"`
	Error         string    `datastore:"error,noindex"`
	DurationMS    int64     `datastore:"duration_ms"`
	CreatedAt     time.Time `datastore:"created_at"`
}

// NewRunEntity converts a run for storage.
func NewRunEntity(run *domain.ExtractionRun) *RunEntity {
	return &RunEntity{
		ID:            run.ID,
		Source:        run.Source,
		KeyColumn:     run.KeyColumn,
		ValueColumn:   run.ValueColumn,
		Sheets:        run.Sheets,
		Ranges:        run.Ranges,
		MatchedSheets: run.MatchedSheets,
		Rows:          run.Rows,
		Warnings:      run.Warnings,
		Outcome:       run.Outcome,
		Error:         run.Error,
		DurationMS:    run.Duration.Milliseconds(),
		CreatedAt:     run.CreatedAt,
	}
}

// Run converts the entity back into the domain type.
func (e *RunEntity) Run() domain.ExtractionRun {
	return domain.ExtractionRun{
		ID:            e.ID,
		Source:        e.Source,
		KeyColumn:     e.KeyColumn,
		ValueColumn:   e.ValueColumn,
		Sheets:        e.Sheets,
		Ranges:        e.Ranges,
		MatchedSheets: e.MatchedSheets,
		Rows:          e.Rows,
		Warnings:      e.Warnings,
		Outcome:       e.Outcome,
		Error:         e.Error,
		Duration:      time.Duration(e.DurationMS) * time.Millisecond,
		CreatedAt:     e.CreatedAt,
	}
}
