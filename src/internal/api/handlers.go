package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/state"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/update"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// DefaultHistoryLimit is how many journal records GET /api/v1/history returns
const DefaultHistoryLimit = 20

// Updater starts background tasks
type Updater interface {
	StartCheck() error
	StartUpdate(full bool) error
}

// HistoryLister lists journal records, newest first
type HistoryLister interface {
	List(limit int) ([]models.HistoryRecord, error)
}

// Server represents the REST API server the observer talks to
type Server struct {
	state   *state.Manager
	updater Updater
	history HistoryLister
	mux     *http.ServeMux
}

// NewServer creates a new API server. history may be nil.
func NewServer(st *state.Manager, updater Updater, history HistoryLister) *Server {
	s := &Server{
		state:   st,
		updater: updater,
		history: history,
		mux:     http.NewServeMux(),
	}

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/v1/state", s.handleState)
	s.mux.HandleFunc("/api/v1/check", s.handleCheck)
	s.mux.HandleFunc("/api/v1/update", s.handleUpdate)
	s.mux.HandleFunc("/api/v1/selection", s.handleSelection)
	s.mux.HandleFunc("/api/v1/error/clear", s.handleClearError)
	s.mux.HandleFunc("/api/v1/quit", s.handleQuit)
	s.mux.HandleFunc("/api/v1/history", s.handleHistory)

	// Health check
	s.mux.HandleFunc("/health", s.handleHealth)
}

// handleState handles GET /api/v1/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// handleCheck handles POST /api/v1/check
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.updater.StartCheck(); err != nil {
		s.writeTaskError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "release check started",
	})
}

// UpdateRequest is the body of POST /api/v1/update
type UpdateRequest struct {
	Full bool `json:"full"`
}

// handleUpdate handles POST /api/v1/update
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req UpdateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := s.updater.StartUpdate(req.Full); err != nil {
		s.writeTaskError(w, err)
		return
	}

	mode := "quick"
	if req.Full {
		mode = "full"
	}
	log.Infof("API: %s update started", mode)

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "update started",
		"mode":    mode,
	})
}

// SelectionRequest is the body of POST /api/v1/selection. Absent fields are left unchanged.
type SelectionRequest struct {
	Index           *int  `json:"index,omitempty"`
	Move            *int  `json:"move,omitempty"`
	Open            *bool `json:"open,omitempty"`
	AcceptDowngrade *bool `json:"accept_downgrade,omitempty"`
}

// handleSelection handles POST /api/v1/selection
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	selection, err := s.state.UpdateSelection(state.SelectionChange{
		Open:            req.Open,
		Index:           req.Index,
		Move:            req.Move,
		AcceptDowngrade: req.AcceptDowngrade,
	})
	if err != nil {
		s.writeTaskError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, selection)
}

// handleClearError handles POST /api/v1/error/clear
func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.state.ClearError()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "error cleared",
	})
}

// handleQuit handles POST /api/v1/quit
func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.state.SetShouldQuit(true)
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "quit requested",
		"busy":    s.state.Busy(),
	})
}

// handleHistory handles GET /api/v1/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records := []models.HistoryRecord{}
	if s.history != nil {
		var err error
		records, err = s.history.List(limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list history: %v", err))
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	response := map[string]interface{}{
		"status": "healthy",
		"busy":   s.state.Busy(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, update.ErrBusy):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, update.ErrNoRelease):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, update.ErrDowngradeNotAccepted):
		s.writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
