package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCustomError_IsComparesCode(t *testing.T) {
	wrapped := fmt.Errorf("create job: %w", ErrNotFound.WithMessage("Recipe not found"))

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrUnauthorized))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, ErrorStatus(wrapped))
	assert.Equal(t, "Recipe not found", errors.Unwrap(wrapped).Error())
}

func TestCustomError_WithErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrTransport.WithError(cause)

	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "backend is not reachable: connection refused", err.Error())
	assert.Nil(t, ErrTransport.Err, "predefined error must not be mutated")
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("bad")))
	assert.True(t, IsValidationError(ErrInvalidImageFormat))
	assert.True(t, IsValidationError(FromStatus(http.StatusUnprocessableEntity, "")))
	assert.False(t, IsValidationError(ErrNotFound))
	assert.False(t, IsValidationError(errors.New("plain")))
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, ErrCodeInvalidRequest},
		{http.StatusUnauthorized, ErrCodeUnauthorized},
		{http.StatusForbidden, ErrCodeForbidden},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusConflict, ErrCodeConflict},
		{http.StatusRequestEntityTooLarge, ErrCodeTooLarge},
		{http.StatusTooManyRequests, ErrCodeTooManyRequests},
		{http.StatusBadGateway, ErrCodeServiceUnavailable},
		{http.StatusTeapot, ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.NotEmpty(t, err.Message)
		})
	}

	assert.Equal(t, "Recipe job not found", FromStatus(http.StatusNotFound, "Recipe job not found").Message)
	assert.True(t, IsUnauthorized(FromStatus(http.StatusForbidden, "")))
}

func TestResponseFor(t *testing.T) {
	status, body := ResponseFor(NewValidationError("name cannot be empty"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrorResponse{Code: ErrCodeInvalidRequest, Detail: "name cannot be empty"}, body)

	status, body = ResponseFor(fmt.Errorf("wrap: %w", ErrQueueFull))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "job queue is full", body.Detail)

	// 沒有狀態碼的錯誤視為 500
	status, body = ResponseFor(ErrMalformedPayload.WithError(errors.New("eof")))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeMalformedPayload, body.Code)

	status, body = ResponseFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternalError, body.Code)
	assert.NotContains(t, body.Detail, "boom")
}

func TestJSONHelpers(t *testing.T) {
	var detected DetectedIngredients
	require.NoError(t, ParseJSON(`{"ingredients":[{"name":"Egg","confidence":0.9}]}`, &detected))
	require.Len(t, detected.Ingredients, 1)
	assert.Equal(t, "Egg", detected.Ingredients[0].Name)
	assert.InDelta(t, 0.9, *detected.Ingredients[0].Confidence, 1e-9)

	assert.Error(t, ParseJSON(`{"ingredients":[]} {}`, &detected))
	assert.NoError(t, ParseJSONBytes([]byte(`{"ingredients":[],"extra":1}`), &detected))

	assert.Equal(t, `{"title": "x"}`, ExtractJSONObject("Sure! Here it is:\n{\"title\": \"x\"}\nEnjoy"))
	assert.Equal(t, "no json", ExtractJSONObject("  no json "))
	assert.Equal(t, `{"title": "x", "steps": ["a"]}`, QuoteJSONKeys(`{title: "x", steps: ["a"]}`))

	out, err := ToJSON(Ingredient{Name: "Salt"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Salt"}`, out)
}

func TestFormatHelpers(t *testing.T) {
	items := []Ingredient{{Name: "Egg", Confidence: Float64Ptr(0.876)}, {Name: "Salt"}}
	assert.Equal(t, "1. Egg (88%)\n2. Salt\n", FormatIngredients(items))

	r := GeneratedRecipe{
		Title:           "Omelette",
		Difficulty:      "Easy",
		PreparationTime: 5,
		CookingTime:     10,
		Ingredients:     []RecipeIngredient{{Name: "Egg", QuantityNeeded: 2, Unit: "pcs"}},
		Procedure:       []string{"Beat the eggs", "Cook"},
	}
	assert.Equal(t, 15, r.TotalTime())
	formatted := FormatRecipe(r)
	assert.Contains(t, formatted, "Total: 15 min")
	assert.Contains(t, formatted, "- Egg: 2 pcs")
	assert.Contains(t, formatted, "2. Cook")
}

func TestJobWireConversion(t *testing.T) {
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.False(t, JobStatusRunning.Terminal())

	job := Job{ID: 3, RecipeID: 7, Kind: JobKindRecipe, Status: JobStatusCompleted, Payload: StringPtr("{}")}
	back := RecipeJobFrom(job).Job()
	assert.Equal(t, job, back)
	assert.Equal(t, "{}", back.PayloadString())
	assert.Equal(t, "", Job{}.PayloadString())
	assert.Equal(t, JobKindIngredients, IngredientsJobFrom(job).Job().Kind)
}

func TestLogger_FiltersSensitiveFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	t.Cleanup(func() { UseLogger(nil) })

	LogInfo("signed in", zap.String("email", "a@example.com"), zap.String("password", "secret"), zap.String("Authorization", "Bearer x"))
	LogJobTransition(JobKindIngredients, 9, "running", "completed")

	entries := logs.All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a@example.com", fields["email"])
	assert.NotContains(t, fields, "password")
	assert.NotContains(t, fields, "Authorization")
	assert.Equal(t, "completed", entries[1].ContextMap()["to"])
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}
