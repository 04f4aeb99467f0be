package repository

import (
	"context"
	"sync"

	"github.com/locvowork/mzextract/internal/domain"
)

// MemoryRunRepository keeps the most recent runs in process. It backs
// GET /runs when no persistent recorder is configured.
type MemoryRunRepository struct {
	mu       sync.RWMutex
	capacity int
	runs     []domain.ExtractionRun
}

func NewMemoryRunRepository(capacity int) *MemoryRunRepository {
	if capacity < 1 {
		capacity = 100
	}
	return &MemoryRunRepository{capacity: capacity}
}

func (r *MemoryRunRepository) Name() string {
	return "memory"
}

func (r *MemoryRunRepository) Record(_ context.Context, run *domain.ExtractionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, *run)
	if len(r.runs) > r.capacity {
		r.runs = r.runs[len(r.runs)-r.capacity:]
	}
	return nil
}

func (r *MemoryRunRepository) ListRuns(_ context.Context, limit int) ([]domain.ExtractionRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.runs) {
		limit = len(r.runs)
	}
	out := make([]domain.ExtractionRun, 0, limit)
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}
