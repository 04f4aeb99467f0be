package googlecloud

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
)

const (
	KindExtractionRun = "ExtractionRun"
)

// SaveRun stores a run under its ID, overwriting any previous entity.
func (c *Client) SaveRun(ctx context.Context, run *RunEntity) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run ID cannot be empty", ErrInvalidKey)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	key := datastore.NameKey(KindExtractionRun, run.ID, nil)
	_, err := c.ds.Put(ctx, key, run)
	return err
}

// GetRun retrieves a run by ID.
func (c *Client) GetRun(ctx context.Context, id string) (*RunEntity, error) {
	key := datastore.NameKey(KindExtractionRun, id, nil)
	var run RunEntity
	if err := c.ds.Get(ctx, key, &run); err != nil {
		return nil, WrapDatastoreError(err)
	}
	run.ID = id
	return &run, nil
}

// ListRecentRuns returns up to limit runs, newest first.
func (c *Client) ListRecentRuns(ctx context.Context, limit int) ([]RunEntity, error) {
	query := datastore.NewQuery(KindExtractionRun).Order("-created_at").Limit(limit)

	var runs []RunEntity
	keys, err := c.ds.GetAll(ctx, query, &runs)
	if err != nil {
		return nil, err
	}

	for i, key := range keys {
		runs[i].ID = key.Name
	}
	return runs, nil
}
