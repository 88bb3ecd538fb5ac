package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"recipe-suggester/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, staticToken("tok-123"))
}

func TestCreateIngredientsJob_AttachesBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/jobs/ingredients/42", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":               7,
			"recipe_id":        42,
			"status":           "running",
			"ingredients_json": nil,
			"start_time":       "2024-05-01T10:00:00Z",
			"end_time":         nil,
		})
	})

	job, err := c.CreateIngredientsJob(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, int64(42), job.RecipeID)
	assert.Equal(t, common.JobKindIngredients, job.Kind)
	assert.Equal(t, common.JobStatusRunning, job.Status)
	assert.Nil(t, job.Payload)
	assert.Nil(t, job.EndTime)
}

func TestGetRecipeJob_MapsPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/recipe/3", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":          3,
			"recipe_id":   42,
			"status":      "completed",
			"recipe_json": `{"title":"Omelette"}`,
			"start_time":  "2024-05-01T10:00:00Z",
			"end_time":    "2024-05-01T10:00:08Z",
		})
	})

	job, err := c.GetRecipeJob(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, common.JobKindRecipe, job.Kind)
	assert.Equal(t, common.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Payload)
	assert.Equal(t, `{"title":"Omelette"}`, *job.Payload)
	require.NotNil(t, job.EndTime)
}

func TestCreateRecipeJob_SendsIngredients(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body common.CreateRecipeJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Ingredients, 2)
		assert.Equal(t, "egg", body.Ingredients[0].Name)
		require.NotNil(t, body.Ingredients[0].Confidence)
		assert.InDelta(t, 0.9, *body.Ingredients[0].Confidence, 1e-9)
		assert.Nil(t, body.Ingredients[1].Confidence)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id": 1, "recipe_id": 42, "status": "running", "start_time": "2024-05-01T10:00:00Z",
		})
	})

	_, err := c.CreateRecipeJob(context.Background(), 42, []common.Ingredient{
		{Name: "egg", Confidence: common.Float64Ptr(0.9)},
		{Name: "salt"},
	})
	require.NoError(t, err)
}

func TestGetJobsByRecipe_OptionalJobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/by-recipe/42", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ingredients_job": map[string]interface{}{
				"id": 1, "recipe_id": 42, "status": "completed",
				"ingredients_json": `{"ingredients":[]}`, "start_time": "2024-05-01T10:00:00Z",
			},
			"recipe_job": nil,
		})
	})

	jobs, err := c.GetJobsByRecipe(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, jobs.IngredientsJob)
	assert.Equal(t, int64(1), jobs.IngredientsJob.ID)
	assert.Nil(t, jobs.RecipeJob)
}

func TestRejection_CarriesStatusAndDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
	}{
		{"unauthorized", http.StatusUnauthorized, common.ErrCodeUnauthorized},
		{"not found", http.StatusNotFound, common.ErrCodeNotFound},
		{"bad request", http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"server error", http.StatusInternalServerError, common.ErrCodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"detail": "boom"})
			})

			_, err := c.GetIngredientsJob(context.Background(), 1)
			require.Error(t, err)
			assert.Equal(t, tt.code, common.ErrorCode(err))
			assert.Equal(t, tt.status, common.ErrorStatus(err))
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestRejection_ValidationDetailList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]string{{"msg": "field required"}},
		})
	})

	_, err := c.CreateRecipe(context.Background())
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
	assert.Contains(t, err.Error(), "field required")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, staticToken("t"))
	_, err := c.GetIngredientsJob(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, common.IsTransportError(err))
	assert.Equal(t, 0, common.ErrorStatus(err))
}

func TestNoRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "down"})
	})

	_, err := c.CreateIngredientsJob(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetRecipeJob(ctx, 1)
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
	assert.False(t, common.IsTransportError(err))
}

func TestUploadImage_MultipartFileField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/5/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "fridge.jpg", header.Filename)
		assert.Equal(t, "image-bytes", string(data))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id": 5, "title": "Recipe of 01/05/24 10:00", "image": "abc.jpg", "user_id": 1,
		})
	})

	recipe, err := c.UploadImage(context.Background(), 5, "fridge.jpg", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	require.NotNil(t, recipe.Image)
	assert.Equal(t, "abc.jpg", *recipe.Image)
}

func TestListRecipes_CategoryFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9", r.URL.Query().Get("category_id"))
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 1, "title": "a"}, {"id": 2, "title": "b"}})
	})

	id := int64(9)
	recipes, err := c.ListRecipes(context.Background(), &id)
	require.NoError(t, err)
	assert.Len(t, recipes, 2)
}

func TestNoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, staticToken(""))
	require.NoError(t, c.Health(context.Background()))
}

func TestGoogleWrappers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/google":
			writeJSON(w, http.StatusOK, map[string]string{"authorization_url": "https://accounts.google.com/o/oauth2/auth?client_id=x"})
		case r.Method == http.MethodPost && r.URL.Path == "/auth/google/callback":
			var body common.GoogleAuthRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "auth-code", body.Code)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"access_token": "jwt",
				"token_type":   "bearer",
				"user":         map[string]interface{}{"id": 3, "email": "g@gmail.com"},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		}
	})

	authURL, err := c.GoogleAuthURL(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(authURL, "https://accounts.google.com/"))

	resp, err := c.GoogleCallback(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, int64(3), resp.User.ID)
}
