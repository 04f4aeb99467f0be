package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/gommon/random"
	"github.com/locvowork/mzextract/internal/config"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/locvowork/mzextract/internal/logger"
	"github.com/locvowork/mzextract/pkg/dataflow"
	"github.com/locvowork/mzextract/pkg/rangeextract"
	"github.com/locvowork/mzextract/pkg/simpleexcel"
)

const (
	DefaultRunsLimit = 20
	MaxRunsLimit     = 100

	recordTimeout = 5 * time.Second
)

// ErrPresetNotFound is returned for an unknown preset name.
var ErrPresetNotFound = errors.New("preset not found")

// Query is what a caller asks for before the workbook is known. Ranges and
// the preset's ranges are combined, explicit ranges first.
type Query struct {
	ValueColumn string
	Sheets      []string
	AllSheets   bool
	Ranges      domain.RangeList
	Preset      string
}

// FileResult is the outcome for one file of a batch.
type FileResult struct {
	Path   string
	Result *domain.ExtractionResult
	Err    error
}

type ExtractionService interface {
	Inspect(ctx context.Context, source string, r io.Reader) (*simpleexcel.WorkbookInfo, error)
	Extract(ctx context.Context, source string, r io.Reader, q Query) (*domain.ExtractionResult, error)
	ExtractFiles(ctx context.Context, paths []string, q Query) ([]FileResult, error)
	Presets() []config.Preset
	Preset(name string) (config.Preset, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.ExtractionRun, error)
}

// Options wires the service. Zero values fall back to the defaults.
type Options struct {
	KeyColumn   string
	TrimHeaders bool
	Workers     int
	Presets     config.Presets
	Recorders   []domain.RunRecorder
	Lister      domain.RunLister
}

type extractionService struct {
	keyColumn   string
	trimHeaders bool
	workers     int
	presets     config.Presets
	recorders   []domain.RunRecorder
	lister      domain.RunLister
	now         func() time.Time
}

func NewExtractionService(opts Options) ExtractionService {
	svc := &extractionService{
		keyColumn:   opts.KeyColumn,
		trimHeaders: opts.TrimHeaders,
		workers:     opts.Workers,
		presets:     opts.Presets,
		recorders:   opts.Recorders,
		lister:      opts.Lister,
		now:         time.Now,
	}
	if svc.keyColumn == "" {
		svc.keyColumn = domain.DefaultKeyColumn
	}
	if svc.workers < 1 {
		svc.workers = 1
	}
	if svc.presets == nil {
		svc.presets = config.Presets{}
	}
	return svc
}

func (s *extractionService) loadOptions(source string) simpleexcel.LoadOptions {
	return simpleexcel.LoadOptions{Source: source, TrimHeaders: s.trimHeaders}
}

func (s *extractionService) Inspect(ctx context.Context, source string, r io.Reader) (*simpleexcel.WorkbookInfo, error) {
	wb, err := simpleexcel.LoadWorkbook(r, s.loadOptions(source))
	if err != nil {
		logger.WarnLog(ctx, "inspect %s: %v", source, err)
		return nil, err
	}
	info := simpleexcel.Inspect(wb, s.keyColumn)
	logger.InfoLog(ctx, "inspected %s: %d sheets, %d value columns", source, len(info.Sheets), len(info.ValueColumns))
	return info, nil
}

func (s *extractionService) Extract(ctx context.Context, source string, r io.Reader, q Query) (*domain.ExtractionResult, error) {
	start := s.now()
	run := &domain.ExtractionRun{
		Source:      source,
		KeyColumn:   s.keyColumn,
		ValueColumn: q.ValueColumn,
		Sheets:      q.Sheets,
	}

	ranges, err := s.resolve(q)
	if err != nil {
		s.finish(ctx, run, start, nil, err)
		return nil, err
	}
	run.Ranges = rangeStrings(ranges)

	wb, err := simpleexcel.LoadWorkbook(r, s.loadOptions(source))
	if err != nil {
		s.finish(ctx, run, start, nil, err)
		return nil, err
	}

	sheets := q.Sheets
	if q.AllSheets {
		sheets = wb.SheetNames
		run.Sheets = sheets
	}

	req, err := domain.NewExtractionRequest(s.keyColumn, q.ValueColumn, sheets, ranges)
	if err != nil {
		s.finish(ctx, run, start, nil, err)
		return nil, err
	}

	result, err := rangeextract.Extract(wb, req)
	s.finish(ctx, run, start, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolve checks the query before any workbook is read and returns the
// ranges to apply.
func (s *extractionService) resolve(q Query) (domain.RangeList, error) {
	if q.ValueColumn == "" {
		return nil, fmt.Errorf("%w: value column is required", domain.ErrInvalidRequest)
	}
	if !q.AllSheets && len(q.Sheets) == 0 {
		return nil, fmt.Errorf("%w: select at least one sheet", domain.ErrInvalidRequest)
	}

	ranges := q.Ranges
	if q.Preset != "" {
		p, err := s.Preset(q.Preset)
		if err != nil {
			return nil, err
		}
		for _, iv := range p.Ranges {
			ranges = ranges.With(iv)
		}
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: add at least one m/z range", domain.ErrInvalidRequest)
	}
	return ranges, nil
}

func (s *extractionService) finish(ctx context.Context, run *domain.ExtractionRun, start time.Time, result *domain.ExtractionResult, err error) {
	run.ID = random.String(20, random.Lowercase, random.Numeric)
	run.CreatedAt = start.UTC()
	run.Duration = s.now().Sub(start)

	switch {
	case errors.Is(err, domain.ErrLoad):
		run.Outcome = domain.OutcomeLoadError
		run.Error = err.Error()
	case err != nil:
		run.Outcome = domain.OutcomeInvalidRequest
		run.Error = err.Error()
	case result.NoData():
		run.Outcome = domain.OutcomeNoData
	default:
		run.Outcome = domain.OutcomeOK
		run.Rows = result.Table.Len()
	}
	if result != nil {
		run.MatchedSheets = result.MatchedSheets
		run.Warnings = len(result.Warnings)
		for _, w := range result.Warnings {
			logger.WarnLog(ctx, "%s: %s", run.Source, w.Message)
		}
	}

	if err != nil {
		logger.WarnLog(ctx, "extraction %s from %s failed: %v", run.ID, run.Source, err)
	} else {
		logger.InfoLog(ctx, "extraction %s from %s: outcome=%s rows=%d sheets=%v", run.ID, run.Source, run.Outcome, run.Rows, run.MatchedSheets)
	}

	for _, rec := range s.recorders {
		recCtx, cancel := context.WithTimeout(ctx, recordTimeout)
		if recErr := rec.Record(recCtx, run); recErr != nil {
			logger.ErrorLog(ctx, "record run %s to %s: %v", run.ID, rec.Name(), recErr)
		}
		cancel()
	}
}

type batchItem struct {
	index int
	path  string
}

func (s *extractionService) ExtractFiles(ctx context.Context, paths []string, q Query) ([]FileResult, error) {
	if _, err := s.resolve(q); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make([]batchItem, len(paths))
	for i, p := range paths {
		items[i] = batchItem{index: i, path: p}
	}

	extracted := dataflow.Map(ctx, dataflow.From(ctx, items...), func(it batchItem) (batchResult, error) {
		return batchResult{index: it.index, FileResult: s.extractFile(ctx, it.path, q)}, nil
	}, dataflow.WithWorkers(s.workers))

	results := make([]FileResult, len(paths))
	err := dataflow.ForEach(ctx, extracted, func(r batchResult) error {
		results[r.index] = r.FileResult
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type batchResult struct {
	FileResult
	index int
}

func (s *extractionService) extractFile(ctx context.Context, path string, q Query) FileResult {
	f, err := os.Open(path)
	if err != nil {
		return FileResult{Path: path, Err: domain.NewLoadError(filepath.Base(path), err)}
	}
	defer f.Close()

	result, err := s.Extract(ctx, filepath.Base(path), f, q)
	return FileResult{Path: path, Result: result, Err: err}
}

func (s *extractionService) Presets() []config.Preset {
	return s.presets.List()
}

func (s *extractionService) Preset(name string) (config.Preset, error) {
	p, ok := s.presets[name]
	if !ok {
		return config.Preset{}, fmt.Errorf("%w: %w %q", domain.ErrInvalidRequest, ErrPresetNotFound, name)
	}
	return p, nil
}

func (s *extractionService) RecentRuns(ctx context.Context, limit int) ([]domain.ExtractionRun, error) {
	if limit <= 0 {
		limit = DefaultRunsLimit
	}
	if limit > MaxRunsLimit {
		limit = MaxRunsLimit
	}
	if s.lister == nil {
		return []domain.ExtractionRun{}, nil
	}
	runs, err := s.lister.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []domain.ExtractionRun{}
	}
	return runs, nil
}

func rangeStrings(ranges domain.RangeList) []string {
	out := make([]string, len(ranges))
	for i, iv := range ranges {
		out[i] = iv.String()
	}
	return out
}
