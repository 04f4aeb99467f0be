package repository

import (
	"context"

	"github.com/locvowork/mzextract/internal/domain"
	"github.com/locvowork/mzextract/pkg/googlecloud"
)

// DatastoreRunRepository stores runs as ExtractionRun entities.
type DatastoreRunRepository struct {
	client *googlecloud.Client
	retry  googlecloud.RetryConfig
}

func NewDatastoreRunRepository(client *googlecloud.Client) *DatastoreRunRepository {
	return &DatastoreRunRepository{client: client, retry: googlecloud.DefaultRetryConfig()}
}

func (r *DatastoreRunRepository) Name() string {
	return "datastore"
}

func (r *DatastoreRunRepository) Record(ctx context.Context, run *domain.ExtractionRun) error {
	entity := googlecloud.NewRunEntity(run)
	return googlecloud.WithRetry(ctx, r.retry, func() error {
		return r.client.SaveRun(ctx, entity)
	})
}

func (r *DatastoreRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.ExtractionRun, error) {
	entities, err := r.client.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, googlecloud.WrapDatastoreError(err)
	}
	runs := make([]domain.ExtractionRun, 0, len(entities))
	for i := range entities {
		runs = append(runs, entities[i].Run())
	}
	return runs, nil
}
