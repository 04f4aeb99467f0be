package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/locvowork/mzextract/internal/domain"
	"github.com/olivere/elastic/v7"
)

const runsMapping = `{
	"mappings": {
		"properties": {
			"source":         {"type": "keyword"},
			"key_column":     {"type": "keyword"},
			"value_column":   {"type": "keyword"},
			"sheets":         {"type": "keyword"},
			"ranges":         {"type": "keyword"},
			"matched_sheets": {"type": "keyword"},
			"rows":           {"type": "integer"},
			"warnings":       {"type": "integer"},
			"outcome":        {"type": "keyword"},
			"error":          {"type": "text"},
			"duration_ms":    {"type": "long"},
			"created_at":     {"type": "date"}
		}
	}
}`

// runDocument is the indexed form of an ExtractionRun.
type runDocument struct {
	Source        string    `json:"source"`
	KeyColumn     string    `json:"key_column"`
	ValueColumn   string    `json:"value_column"`
	Sheets        []string  `json:"sheets"`
	Ranges        []string  `json:"ranges"`
	MatchedSheets []string  `json:"matched_sheets"`
	Rows          int       `json:"rows"`
	Warnings      int       `json:"warnings"`
	Outcome       string    `json:"outcome"`
	Error         string    `json:"error,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

type ElasticRunRepository struct {
	client *elastic.Client
	index  string
}

// NewElasticClient connects without sniffing so single-node and proxied clusters work.
func NewElasticClient(url string) (*elastic.Client, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create elastic client: %w", err)
	}
	return client, nil
}

func NewElasticRunRepository(client *elastic.Client, index string) *ElasticRunRepository {
	return &ElasticRunRepository{client: client, index: index}
}

func (r *ElasticRunRepository) Name() string {
	return "elastic"
}

// EnsureIndex creates the runs index with its mapping if it is missing.
func (r *ElasticRunRepository) EnsureIndex(ctx context.Context) error {
	exists, err := r.client.IndexExists(r.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	if exists {
		return nil
	}
	if _, err := r.client.CreateIndex(r.index).BodyString(runsMapping).Do(ctx); err != nil {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	return nil
}

func (r *ElasticRunRepository) Record(ctx context.Context, run *domain.ExtractionRun) error {
	doc := runDocument{
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
	_, err := r.client.Index().
		Index(r.index).
		Id(run.ID).
		BodyJson(doc).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("index extraction run %s: %w", run.ID, err)
	}
	return nil
}

func (r *ElasticRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.ExtractionRun, error) {
	res, err := r.client.Search().
		Index(r.index).
		Query(elastic.NewMatchAllQuery()).
		Sort("created_at", false).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search extraction runs: %w", err)
	}
	if res.Hits == nil {
		return nil, nil
	}

	runs := make([]domain.ExtractionRun, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc runDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode extraction run %s: %w", hit.Id, err)
		}
		runs = append(runs, domain.ExtractionRun{
			ID:            hit.Id,
			Source:        doc.Source,
			KeyColumn:     doc.KeyColumn,
			ValueColumn:   doc.ValueColumn,
			Sheets:        doc.Sheets,
			Ranges:        doc.Ranges,
			MatchedSheets: doc.MatchedSheets,
			Rows:          doc.Rows,
			Warnings:      doc.Warnings,
			Outcome:       doc.Outcome,
			Error:         doc.Error,
			Duration:      time.Duration(doc.DurationMS) * time.Millisecond,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return runs, nil
}
