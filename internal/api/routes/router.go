package routes

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/handlers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/middleware"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	reportHandler  *handlers.ReportHandler
	reviewHandler  *handlers.ReviewHandler
	compareHandler *handlers.CompareHandler
	sseHandler     *handlers.SSEHandler

	auth        func(http.Handler) http.Handler
	corsOrigins []string
	metrics     *observability.Metrics
}

// NewRouter creates a new router. auth guards every /api route.
func NewRouter(
	reportHandler *handlers.ReportHandler,
	reviewHandler *handlers.ReviewHandler,
	compareHandler *handlers.CompareHandler,
	sseHandler *handlers.SSEHandler,
	auth func(http.Handler) http.Handler,
	corsOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		reportHandler:  reportHandler,
		reviewHandler:  reviewHandler,
		compareHandler: compareHandler,
		sseHandler:     sseHandler,
		auth:           auth,
		corsOrigins:    corsOrigins,
		metrics:        metrics,
	}
}

func (r *Router) protected(pattern string, handler http.HandlerFunc) {
	r.mux.Handle(pattern, r.auth(handler))
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Report endpoints
	r.protected("POST /api/reports", r.reportHandler.UploadReport)
	r.protected("POST /api/reports/compare", r.compareHandler.CompareReports)
	r.protected("GET /api/reports/{id}", r.reportHandler.GetReport)
	r.protected("GET /api/reports/{id}/download", r.reportHandler.DownloadReport)

	// Review endpoints
	r.protected("POST /api/reports/{id}/review-request", r.reviewHandler.RequestReview)
	r.protected("POST /api/reports/{id}/review", r.reviewHandler.SubmitReview)

	// Real-time review notifications
	if r.sseHandler != nil {
		r.protected("GET /api/stream/reviews", r.sseHandler.StreamReviewUpdates)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight requests skip authentication
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   r.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})(handler)

	return handler
}
