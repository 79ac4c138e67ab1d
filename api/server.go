package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"apartment-tracker/models"
	"apartment-tracker/services"
	"apartment-tracker/storage"
	"apartment-tracker/utils"
)

// CycleRunner triggers one synchronous reconciliation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleOutcome, error)
}

// Server exposes the reconciled listing data over HTTP. It only reads the
// store; all mutation goes through the reconciler.
type Server struct {
	store      storage.ListingStore
	reconciler CycleRunner
	insights   *services.InsightService
	logger     *utils.Logger
}

func NewServer(store storage.ListingStore, reconciler CycleRunner, insights *services.InsightService, logger *utils.Logger) *Server {
	return &Server{
		store:      store,
		reconciler: reconciler,
		insights:   insights,
		logger:     logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/apartments", s.handleActive).Methods("GET")
	r.HandleFunc("/api/v1/apartments/archived", s.handleArchived).Methods("GET")
	r.HandleFunc("/api/v1/update", s.handleUpdate).Methods("POST")
	r.HandleFunc("/api/v1/insights", s.handleInsights).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	return r
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.GetAllActive(r.Context())
	if err != nil {
		s.logger.Error("[api] Fetching active listings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch apartment data")
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleArchived(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.GetAllArchived(r.Context())
	if err != nil {
		s.logger.Error("[api] Fetching archived listings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch archive data")
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// handleUpdate runs one reconciliation cycle synchronously and returns its
// outcome. A concurrent scheduled cycle makes this request wait its turn.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("[api] Manual update triggered")

	outcome, err := s.reconciler.RunCycle(r.Context())
	if err != nil {
		s.logger.Error("[api] Manual update failed: %v", err)
		writeError(w, http.StatusInternalServerError, "update failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	active, err := s.store.GetAllActive(r.Context())
	if err != nil {
		s.logger.Error("[api] Fetching active listings for insights: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch apartment data")
		return
	}
	archived, err := s.store.GetAllArchived(r.Context())
	if err != nil {
		s.logger.Error("[api] Fetching archived listings for insights: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch archive data")
		return
	}
	writeJSON(w, http.StatusOK, s.insights.Generate(active, archived))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
