package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/locvowork/mzextract/internal/config"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fragmentWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{"S1", [][]interface{}{{"m/z", "Ala"}, {90, 1}, {100, 2}, {150, 3}}},
		{"S2", [][]interface{}{{"m/z", "Ala"}, {100, 5}, {210, 6}}},
		{"S3", [][]interface{}{{"m/z", "Gly"}, {120, 7}}},
	}
	for _, s := range sheets {
		_, err := f.NewSheet(s.name)
		require.NoError(t, err)
		for i, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf.Bytes()
}

type recorderStub struct {
	mu   sync.Mutex
	name string
	runs []domain.ExtractionRun
	err  error
}

func (r *recorderStub) Name() string { return r.name }

func (r *recorderStub) Record(_ context.Context, run *domain.ExtractionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
	return r.err
}

func (r *recorderStub) ListRuns(_ context.Context, limit int) ([]domain.ExtractionRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.runs) {
		limit = len(r.runs)
	}
	return r.runs[:limit], r.err
}

func ranges(t *testing.T, pairs ...[2]float64) domain.RangeList {
	t.Helper()
	var out domain.RangeList
	for _, p := range pairs {
		var err error
		out, err = out.Add(p[0], p[1])
		require.NoError(t, err)
	}
	return out
}

func newTestService(t *testing.T, recorders ...domain.RunRecorder) ExtractionService {
	t.Helper()
	presets, err := config.ParsePresets([]byte("presets:\n  - name: low\n    ranges: [[80, 95]]\n"))
	require.NoError(t, err)
	return NewExtractionService(Options{
		TrimHeaders: true,
		Workers:     3,
		Presets:     presets,
		Recorders:   recorders,
	})
}

func TestExtract(t *testing.T) {
	rec := &recorderStub{name: "stub"}
	svc := newTestService(t, rec)

	res, err := svc.Extract(context.Background(), "frag.xlsx", bytes.NewReader(fragmentWorkbook(t)), Query{
		ValueColumn: "Ala",
		Sheets:      []string{"S1", "S2", "S3"},
		Ranges:      ranges(t, [2]float64{100, 200}),
	})
	require.NoError(t, err)
	require.False(t, res.NoData())

	assert.Equal(t, []string{"m/z", "Ala_S1", "Ala_S2"}, res.Table.Columns)
	assert.Equal(t, 2, res.Table.Len())
	assert.Equal(t, []string{"S1", "S2"}, res.MatchedSheets)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "S3", res.Warnings[0].Sheet)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, domain.OutcomeOK, run.Outcome)
	assert.Equal(t, "frag.xlsx", run.Source)
	assert.Equal(t, []string{"100-200"}, run.Ranges)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, 1, run.Warnings)
}

func TestExtractAllSheetsWithPreset(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Extract(context.Background(), "frag.xlsx", bytes.NewReader(fragmentWorkbook(t)), Query{
		ValueColumn: "Ala",
		AllSheets:   true,
		Ranges:      ranges(t, [2]float64{200, 220}),
		Preset:      "low",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"m/z", "Ala_S1", "Ala_S2"}, res.Table.Columns)
	require.Equal(t, 2, res.Table.Len())
	assert.Equal(t, domain.NumberCell(90), res.Table.Rows[0][0], "matched by the preset range")
	assert.Equal(t, domain.NumberCell(210), res.Table.Rows[1][0], "matched by the explicit range")
}

func TestExtractNoData(t *testing.T) {
	rec := &recorderStub{name: "stub"}
	svc := newTestService(t, rec)

	res, err := svc.Extract(context.Background(), "frag.xlsx", bytes.NewReader(fragmentWorkbook(t)), Query{
		ValueColumn: "Ala",
		Sheets:      []string{"S1"},
		Ranges:      ranges(t, [2]float64{500, 600}),
	})
	require.NoError(t, err)
	assert.True(t, res.NoData())
	assert.Equal(t, domain.OutcomeNoData, rec.runs[0].Outcome)
}

func TestExtractRejectsBeforeLoading(t *testing.T) {
	rec := &recorderStub{name: "stub"}
	svc := newTestService(t, rec)
	ctx := context.Background()
	garbage := strings.NewReader("not a workbook")

	tests := []struct {
		name  string
		query Query
	}{
		{"no value column", Query{Sheets: []string{"S1"}, Ranges: ranges(t, [2]float64{1, 2})}},
		{"no sheets", Query{ValueColumn: "Ala", Ranges: ranges(t, [2]float64{1, 2})}},
		{"no ranges", Query{ValueColumn: "Ala", Sheets: []string{"S1"}}},
		{"unknown preset", Query{ValueColumn: "Ala", Sheets: []string{"S1"}, Preset: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Extract(ctx, "x.xlsx", garbage, tt.query)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.NotErrorIs(t, err, domain.ErrLoad)
		})
	}

	for _, run := range rec.runs {
		assert.Equal(t, domain.OutcomeInvalidRequest, run.Outcome)
	}
}

func TestExtractLoadError(t *testing.T) {
	rec := &recorderStub{name: "stub", err: errors.New("recorder down")}
	svc := newTestService(t, rec)

	_, err := svc.Extract(context.Background(), "notes.txt", strings.NewReader("plain text"), Query{
		ValueColumn: "Ala",
		Sheets:      []string{"S1"},
		Ranges:      ranges(t, [2]float64{1, 2}),
	})
	assert.ErrorIs(t, err, domain.ErrLoad)
	require.Len(t, rec.runs, 1, "recorder failures do not change the outcome")
	assert.Equal(t, domain.OutcomeLoadError, rec.runs[0].Outcome)
}

func TestExtractFilesKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	data := fragmentWorkbook(t)

	var paths []string
	for _, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx", "d.xlsx"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0644))
		paths = append(paths, p)
	}
	broken := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(broken, []byte("nope"), 0644))
	paths = append(paths[:2], append([]string{broken, filepath.Join(dir, "missing.xlsx")}, paths[2:]...)...)

	svc := newTestService(t)
	results, err := svc.ExtractFiles(context.Background(), paths, Query{
		ValueColumn: "Ala",
		Sheets:      []string{"S1"},
		Ranges:      ranges(t, [2]float64{80, 120}),
	})
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2, results[0].Result.Table.Len())
	assert.ErrorIs(t, results[2].Err, domain.ErrLoad)
	assert.ErrorIs(t, results[3].Err, domain.ErrLoad)
	assert.NoError(t, results[5].Err)
}

func TestExtractFilesValidatesQuery(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ExtractFiles(context.Background(), []string{"a.xlsx"}, Query{ValueColumn: "Ala"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestInspect(t *testing.T) {
	svc := newTestService(t)
	info, err := svc.Inspect(context.Background(), "frag.xlsx", bytes.NewReader(fragmentWorkbook(t)))
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S3"}, info.SheetNames())
	assert.Equal(t, []string{"Ala"}, info.ValueColumns)

	_, err = svc.Inspect(context.Background(), "x", strings.NewReader("junk"))
	assert.ErrorIs(t, err, domain.ErrLoad)
}

func TestPresets(t *testing.T) {
	svc := newTestService(t)
	require.Len(t, svc.Presets(), 1)

	p, err := svc.Preset("low")
	require.NoError(t, err)
	assert.Equal(t, ranges(t, [2]float64{80, 95}), p.Ranges)

	_, err = svc.Preset("high")
	assert.ErrorIs(t, err, ErrPresetNotFound)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestRecentRuns(t *testing.T) {
	rec := &recorderStub{name: "stub"}
	svc := NewExtractionService(Options{Recorders: []domain.RunRecorder{rec}, Lister: rec})

	runs, err := svc.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)

	for i := 0; i < 3; i++ {
		_, _ = svc.Extract(context.Background(), "x", strings.NewReader("junk"), Query{})
	}
	runs, err = svc.RecentRuns(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	noLister := NewExtractionService(Options{})
	runs, err = noLister.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
