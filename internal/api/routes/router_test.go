package routes_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/events"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/memory"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/handlers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/middleware"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/routes"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/services"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

var signingKey = []byte("router-test-key")

func bearer(t *testing.T, subject string, role entities.Role) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: string(role),
	}).SignedString(signingKey)
	require.NoError(t, err)
	return "Bearer " + token
}

type noDocuments struct{}

func (noDocuments) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return key, nil
}

func (noDocuments) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (noDocuments) Delete(ctx context.Context, ref string) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewReportStore()
	reportService := services.NewReportService(store, nil, nil, noDocuments{})
	router := routes.NewRouter(
		handlers.NewReportHandler(reportService, nil, 1<<20),
		handlers.NewReviewHandler(services.NewReviewService(store)),
		handlers.NewCompareHandler(services.NewComparisonService(store, nil)),
		handlers.NewSSEHandler(events.NewLocalEventBus()),
		middleware.AuthMiddleware(middleware.AuthConfig{SigningKey: signingKey}),
		[]string{"https://app.example"},
		nil,
	)
	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)
	return server
}

func TestRouter_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/reports/r1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_MissingReportIsNotFound(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/reports/r1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(t, "S1", entities.RolePatient))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_CompareRejectsDoctors(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/reports/compare", strings.NewReader(`{"reportId1":"A","reportId2":"B"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(t, "D1", entities.RoleDoctor))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/reports", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, http.StatusUnauthorized, resp.StatusCode)
}
