package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "calculation/pkg/domain-errors"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	t.Run("internal error hides message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorAt(w, dErrors.New(dErrors.CodeInternal, "db failed"), now)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, http.StatusInternalServerError, body.Status)
		assert.Equal(t, internalErrorMessage, body.Message)
		assert.Equal(t, "2024-05-01T12:30:00Z", body.Timestamp)
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorAt(w, errors.New("pq: connection refused"), now)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, internalErrorMessage, decodeEnvelope(t, w).Message)
	})

	t.Run("invalid argument includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorAt(w, dErrors.New(dErrors.CodeInvalidArgument, "num1 must be a non-negative integer"), now)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, http.StatusBadRequest, body.Status)
		assert.Equal(t, "num1 must be a non-negative integer", body.Message)
	})

	t.Run("wrapped unavailable maps to 503", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := fmt.Errorf("calculate: %w", dErrors.New(dErrors.CodeUnavailable, "percentage temporarily unavailable"))
		WriteErrorAt(w, err, now)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "percentage temporarily unavailable", decodeEnvelope(t, w).Message)
	})
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]int{"result": 11})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"result": 11}`, w.Body.String())
}
