package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorPendingApproval(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/roles", nil)

	RespondError(w, r, &PendingApproval{Message: "Pending review", Payload: json.RawMessage(`{"id":1}`)})

	require.Equal(t, http.StatusAccepted, w.Code)
	var body PendingBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pending_approval", body.Status)
	require.Equal(t, "Pending review", body.Message)
}

func TestRespondErrorSessionExpiredRedirects(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/users", nil)

	RespondError(w, r, ErrSessionExpired)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, LoginPath, w.Header().Get("Location"))
}

func TestRespondErrorSessionExpiredInsideAuthFlow(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)

	RespondError(w, r, ErrSessionExpired)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, w.Header().Get("Location"), "no redirect loop inside the auth flow")
}

func TestRespondErrorUpstreamKeepsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/roles", nil)

	RespondError(w, r, &UpstreamError{Status: http.StatusConflict, Title: "Duplicate", Detail: "name taken"})

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestRespondErrorFallback(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/roles", nil)

	RespondError(w, r, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
