package jobs

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestHealthRouteAnswersWithoutAnInspector(t *testing.T) {
	handler := NewHandler(nil, slog.Default())
	router := chi.NewRouter()
	router.Route("/api/jobs", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}
