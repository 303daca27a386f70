package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pbaille/tripplan/internal/assistant"
	"github.com/pbaille/tripplan/internal/checklist"
	"github.com/pbaille/tripplan/internal/domain"
	"github.com/pbaille/tripplan/internal/fetcher"
	"github.com/pbaille/tripplan/internal/rates"
	"github.com/pbaille/tripplan/internal/resolver"
	"github.com/pbaille/tripplan/internal/store"
	"github.com/pbaille/tripplan/internal/weather"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server handles HTTP requests for the trip planner API
type Server struct {
	store     *store.Store
	resolver  *resolver.Resolver
	checklist *checklist.Reconciler
	rates     *rates.Client
	weather   *weather.Client
	fetcher   *fetcher.Fetcher
	assistant assistant.Completer
	logger    *zap.Logger
}

// Deps are the services a Server dispatches to. Rates, Weather, Fetcher
// and Assistant may be nil; their routes then answer 503.
type Deps struct {
	Store     *store.Store
	Resolver  *resolver.Resolver
	Checklist *checklist.Reconciler
	Rates     *rates.Client
	Weather   *weather.Client
	Fetcher   *fetcher.Fetcher
	Assistant assistant.Completer
	Logger    *zap.Logger
}

// New creates a new API server
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:     d.Store,
		resolver:  d.Resolver,
		checklist: d.Checklist,
		rates:     d.Rates,
		weather:   d.Weather,
		fetcher:   d.Fetcher,
		assistant: d.Assistant,
		logger:    logger,
	}
}

// Handler returns the routed handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Trips and plan versions
	mux.HandleFunc("GET /trips", s.listTrips)
	mux.HandleFunc("POST /trips", s.createTrip)
	mux.HandleFunc("GET /trips/{id}", s.getTrip)
	mux.HandleFunc("GET /trips/{id}/export", s.exportTrip)
	mux.HandleFunc("GET /trips/{id}/plan-versions", s.listPlanVersions)
	mux.HandleFunc("POST /trips/{id}/plan-versions", s.createPlanVersion)
	mux.HandleFunc("GET /plan-versions/{id}", s.getPlanVersion)
	mux.HandleFunc("POST /plan-versions/{id}/clone", s.clonePlanVersion)

	// Itinerary
	mux.HandleFunc("GET /plan-versions/{id}/days", s.listDays)
	mux.HandleFunc("POST /plan-versions/{id}/days", s.addDay)
	mux.HandleFunc("POST /plan-versions/{id}/geocode-missing", s.geocodeMissing)
	mux.HandleFunc("GET /itinerary-days/{id}", s.getDay)
	mux.HandleFunc("PATCH /itinerary-days/{id}", s.patchDay)

	// Bookings and costs
	mux.HandleFunc("GET /plan-versions/{id}/accommodations", s.listAccommodations)
	mux.HandleFunc("POST /plan-versions/{id}/accommodations", s.addAccommodation)
	mux.HandleFunc("GET /plan-versions/{id}/transport", s.listTransport)
	mux.HandleFunc("POST /plan-versions/{id}/transport", s.addTransport)
	mux.HandleFunc("GET /plan-versions/{id}/costs", s.listCosts)
	mux.HandleFunc("POST /plan-versions/{id}/costs", s.addCost)

	// Checklist
	mux.HandleFunc("GET /plan-versions/{id}/checklist", s.listChecklist)
	mux.HandleFunc("POST /plan-versions/{id}/checklist", s.addChecklistItem)
	mux.HandleFunc("POST /plan-versions/{id}/checklist/seed", s.seedChecklist)
	mux.HandleFunc("GET /plan-versions/{id}/checklist/duplicates", s.checklistDuplicates)
	mux.HandleFunc("POST /plan-versions/{id}/checklist/cleanup", s.cleanupChecklist)
	mux.HandleFunc("POST /plan-versions/{id}/checklist/reset", s.resetChecklist)
	mux.HandleFunc("PATCH /checklist-items/{id}", s.patchChecklistItem)
	mux.HandleFunc("POST /checklist-items/{id}/cycle", s.cycleChecklistItem)

	// Tools
	mux.HandleFunc("GET /exchange-rate", s.exchangeRate)
	mux.HandleFunc("GET /weather", s.forecast)
	mux.HandleFunc("POST /ai/extract-link", s.extractLink)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return s.withLogging(c.Handler(mux))
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Geocoding a full batch takes ~11s of throttle alone.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return srv.ListenAndServe()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checklist.ErrConfirmationRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
