package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"recipe-suggester/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resumedRecipe = `{"title":"Salsa","difficulty":"easy","preparation_time":10,"cooking_time":0,"ingredients":[],"procedure":["Chop"]}`

// resumeBackend 食譜 42 已偵測完成，食譜任務 8 仍在執行
type resumeBackend struct {
	mu         sync.Mutex
	recipeGets int
	creates    int
}

func (b *resumeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	job := func(id int, status string, payload interface{}) map[string]interface{} {
		return map[string]interface{}{
			"id": id, "recipe_id": 42, "status": status, "recipe_json": payload,
			"start_time": "2024-05-01T10:00:00Z",
		}
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/jobs/by-recipe/42":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ingredients_job": map[string]interface{}{
				"id": 1, "recipe_id": 42, "status": "completed",
				"ingredients_json": `{"ingredients":[{"name":"tomato","confidence":0.95}]}`,
				"start_time":       "2024-05-01T10:00:00Z",
			},
			"recipe_job": job(8, "running", nil),
		})
	case r.Method == http.MethodGet && r.URL.Path == "/jobs/recipe/8":
		b.recipeGets++
		if b.recipeGets < 2 {
			writeJSON(w, http.StatusOK, job(8, "running", nil))
			return
		}
		writeJSON(w, http.StatusOK, job(8, "completed", resumedRecipe))
	case r.Method == http.MethodPost && r.URL.Path == "/jobs/recipe/42":
		b.creates++
		writeJSON(w, http.StatusCreated, job(9, "running", nil))
	case r.Method == http.MethodGet && r.URL.Path == "/jobs/recipe/9":
		writeJSON(w, http.StatusOK, job(9, "completed", resumedRecipe))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(t *testing.T, backend http.Handler) *config.Config {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Client.BaseURL = srv.URL
	cfg.Client.Token = "tok"
	cfg.Client.Timeout = 5 * time.Second
	cfg.Poller.Interval = 5 * time.Millisecond
	cfg.Poller.CaptionInterval = time.Second
	return cfg
}

func TestRun_ResumeWaitsForRunningRecipeJob(t *testing.T) {
	backend := &resumeBackend{}
	cfg := testConfig(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, cfg, options{resume: 42}))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 0, backend.creates)
	assert.GreaterOrEqual(t, backend.recipeGets, 2)
}

func TestRun_ResumeWithEditsSubmitsNewJob(t *testing.T) {
	backend := &resumeBackend{}
	cfg := testConfig(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, cfg, options{resume: 42, add: "basil"}))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.creates)
}
