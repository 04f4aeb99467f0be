package googlecloud

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRunEntityConversion(t *testing.T) {
	created := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	run := &domain.ExtractionRun{
		ID:            "run-1",
		Source:        "frag.xlsx",
		KeyColumn:     "m/z",
		ValueColumn:   "Ala",
		Sheets:        []string{"S1", "S2"},
		Ranges:        []string{"100-200"},
		MatchedSheets: []string{"S1"},
		Rows:          2,
		Warnings:      1,
		Outcome:       domain.OutcomeOK,
		Duration:      1500 * time.Millisecond,
		CreatedAt:     created,
	}

	entity := NewRunEntity(run)
	assert.Equal(t, int64(1500), entity.DurationMS)
	assert.Equal(t, *run, entity.Run())
}

func TestWrapDatastoreError(t *testing.T) {
	assert.Nil(t, WrapDatastoreError(nil))
	assert.ErrorIs(t, WrapDatastoreError(datastore.ErrNoSuchEntity), ErrNotFound)
	assert.True(t, IsNotFoundError(fmt.Errorf("get: %w", datastore.ErrNoSuchEntity)))

	other := errors.New("deadline")
	assert.Equal(t, other, WrapDatastoreError(other))
}

func TestWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	calls := 0
	err := WithRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = WithRetry(context.Background(), cfg, func() error {
		calls++
		return ErrInvalidKey
	})
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WithRetry(ctx, cfg, func() error { return errors.New("unavailable") })
	assert.ErrorIs(t, err, context.Canceled)
}
