package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/locvowork/mzextract/internal/domain"
)

// CreateRunsTable is applied by EnsureSchema.
const CreateRunsTable = `CREATE TABLE IF NOT EXISTS extraction_runs (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	key_column     TEXT NOT NULL,
	value_column   TEXT NOT NULL,
	sheets         TEXT[] NOT NULL,
	ranges         TEXT[] NOT NULL,
	matched_sheets TEXT[] NOT NULL,
	rows           INTEGER NOT NULL,
	warnings       INTEGER NOT NULL,
	outcome        TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	duration_ms    BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
)`

const runColumns = "id, source, key_column, value_column, sheets, ranges, matched_sheets, rows, warnings, outcome, error, duration_ms, created_at"

type PostgresRunRepository struct {
	db *sql.DB
}

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) Name() string {
	return "postgres"
}

// EnsureSchema creates the extraction_runs table when it does not exist.
func (r *PostgresRunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, CreateRunsTable); err != nil {
		return fmt.Errorf("create extraction_runs: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) Record(ctx context.Context, run *domain.ExtractionRun) error {
	query := "INSERT INTO extraction_runs (" + runColumns + ") VALUES (" + placeholders(strings.Count(runColumns, ",")+1) + ")"
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Source,
		run.KeyColumn,
		run.ValueColumn,
		pq.Array(nonNil(run.Sheets)),
		pq.Array(nonNil(run.Ranges)),
		pq.Array(nonNil(run.MatchedSheets)),
		run.Rows,
		run.Warnings,
		run.Outcome,
		run.Error,
		run.Duration.Milliseconds(),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert extraction run %s: %w", run.ID, err)
	}
	return nil
}

func (r *PostgresRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.ExtractionRun, error) {
	query := "SELECT " + runColumns + " FROM extraction_runs ORDER BY created_at DESC LIMIT $1"
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list extraction runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ExtractionRun
	for rows.Next() {
		var run domain.ExtractionRun
		var durationMS int64
		var sheets, ranges, matched []string
		if err := rows.Scan(
			&run.ID,
			&run.Source,
			&run.KeyColumn,
			&run.ValueColumn,
			pq.Array(&sheets),
			pq.Array(&ranges),
			pq.Array(&matched),
			&run.Rows,
			&run.Warnings,
			&run.Outcome,
			&run.Error,
			&durationMS,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan extraction run: %w", err)
		}
		run.Sheets = sheets
		run.Ranges = ranges
		run.MatchedSheets = matched
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}
