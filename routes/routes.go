package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"p9e.in/energydesk/handlers"
	"p9e.in/energydesk/middleware"
	"p9e.in/energydesk/pkg/authz"
)

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Records           handlers.RecordService
	Store             handlers.Pinger
	Verifier          *middleware.TokenVerifier
	Logger            *zap.Logger
	Version           string
	CORSAllowedOrigin string
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(middleware.Authenticate(d.Verifier, logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)

	// =====================================================
	// Operational routes (no authentication)
	// =====================================================
	health := handlers.NewHealthHandler(d.Store, d.Version, logger)
	r.HandleFunc("/health", health.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", health.HandleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// =====================================================
	// Client records, mounted at the root and under /api
	// =====================================================
	recordHandler := handlers.NewClientRecordHandler(d.Records, logger)
	registerClientRecordRoutes(r, recordHandler)
	registerClientRecordRoutes(r.PathPrefix("/api").Subrouter(), recordHandler)

	return middleware.Recovery(logger)(middleware.CORS(d.CORSAllowedOrigin)(r))
}

func registerClientRecordRoutes(r *mux.Router, h *handlers.ClientRecordHandler) {
	read := middleware.RequireAccess(authz.ActionRead)
	write := middleware.RequireAccess(authz.ActionWrite)

	r.Handle("/client-records", read(http.HandlerFunc(h.List))).Methods(http.MethodGet)
	r.Handle("/client-records", write(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	r.Handle("/client-records/{id}", write(http.HandlerFunc(h.Update))).Methods(http.MethodPut)
	r.Handle("/client-records/{id}", write(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
}
