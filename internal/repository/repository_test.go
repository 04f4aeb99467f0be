package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/locvowork/mzextract/internal/database"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id string, created time.Time) *domain.ExtractionRun {
	return &domain.ExtractionRun{
		ID:            id,
		Source:        "frag.xlsx",
		KeyColumn:     "m/z",
		ValueColumn:   "Ala",
		Sheets:        []string{"S1", "S2"},
		Ranges:        []string{"100-200"},
		MatchedSheets: []string{"S1"},
		Rows:          3,
		Warnings:      1,
		Outcome:       domain.OutcomeOK,
		Duration:      250 * time.Millisecond,
		CreatedAt:     created,
	}
}

func TestMemoryRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRunRepository(2)
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Record(ctx, sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2, "capacity bounds the history")
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	runs, err = repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, []string{}, nonNil(nil))
}

// fakeElastic answers the index and search calls the repository makes.
type fakeElastic struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
	ids  []string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPut || (r.Method == http.MethodPost && r.URL.Path != "/runs/_search"):
		body, _ := io.ReadAll(r.Body)
		id := r.URL.Path[len("/runs/_doc/"):]
		f.docs[id] = body
		f.ids = append(f.ids, id)
		fmt.Fprintf(w, `{"_index":"runs","_id":%q,"_version":1,"result":"created"}`, id)
	case r.URL.Path == "/runs/_search":
		var hits []string
		for i := len(f.ids) - 1; i >= 0; i-- {
			hits = append(hits, fmt.Sprintf(`{"_index":"runs","_id":%q,"_source":%s}`, f.ids[i], f.docs[f.ids[i]]))
		}
		fmt.Fprintf(w, `{"took":1,"hits":{"total":{"value":%d,"relation":"eq"},"hits":[%s]}}`, len(hits), strings.Join(hits, ","))
	default:
		http.NotFound(w, r)
	}
}

func TestElasticRunRepository(t *testing.T) {
	fake := &fakeElastic{docs: map[string]json.RawMessage{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := NewElasticClient(srv.URL)
	require.NoError(t, err)
	repo := NewElasticRunRepository(client, "runs")
	assert.Equal(t, "elastic", repo.Name())

	ctx := context.Background()
	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, sampleRun("run-1", created)))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.docs["run-1"], &doc))
	assert.Equal(t, "Ala", doc["value_column"])
	assert.Equal(t, float64(250), doc["duration_ms"])

	runs, err := repo.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, *sampleRun("run-1", created), runs[0])
}

func TestPostgresRunRepository(t *testing.T) {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}

	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, database.Config{
		Host:     host,
		Port:     port,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
	})
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))

	id := fmt.Sprintf("test-%d", time.Now().UnixNano())
	created := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Record(ctx, sampleRun(id, created)))
	defer db.ExecContext(ctx, "DELETE FROM extraction_runs WHERE id = $1", id)

	runs, err := repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, []string{"S1", "S2"}, runs[0].Sheets)
	assert.True(t, created.Equal(runs[0].CreatedAt))
}
