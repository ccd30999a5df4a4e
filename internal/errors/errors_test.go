package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError_AppError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, logger, Validation("start must not be after end"), "req-1")

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.False(t, body.Success)
	require.Equal(t, string(CodeValidation), body.Error.Code)
	require.Equal(t, "req-1", body.Error.RequestID)
}

func TestWriteError_PlainErrorIsInternal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, logger, fmt.Errorf("disk on fire"), "")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "disk on fire", "causes are not exposed")
}

func TestAppError_Wrap(t *testing.T) {
	cause := fmt.Errorf("root")
	err := ServiceUnavailableWrap(cause, "dataset not loaded")

	require.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "caused by: root")
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]int{"rows": 3}, map[string]string{"Cache-Control": "no-store"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"success":true,"data":{"rows":3}}`, w.Body.String())
}

func TestFrom_FindsWrappedAppError(t *testing.T) {
	inner := Validation("bad date")
	wrapped := fmt.Errorf("resolve range: %w", inner)

	got := From(wrapped)
	require.Equal(t, CodeValidation, got.Code)
	require.Equal(t, http.StatusBadRequest, got.StatusCode)

	got.RequestID = "changed"
	require.Empty(t, inner.RequestID, "From returns a copy")
}
