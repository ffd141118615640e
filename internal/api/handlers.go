package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pokethrow/pokethrow-desktop/internal/history"
	"github.com/pokethrow/pokethrow-desktop/internal/pokeapi"
	"github.com/pokethrow/pokethrow-desktop/internal/sim"
)

// GET /api/v1/odds?forces=10,30,50&accuracies=0.3,0.9
func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	forces, err := floatList(r.URL.Query().Get("forces"))
	if err != nil {
		s.errors.validation(w, r, "forces", err.Error())
		return
	}
	accuracies, err := floatList(r.URL.Query().Get("accuracies"))
	if err != nil {
		s.errors.validation(w, r, "accuracies", err.Error())
		return
	}
	table, err := s.tuning.OddsTable(forces, accuracies)
	if err != nil {
		s.errors.validation(w, r, "odds", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// POST /api/v1/simulate
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req sim.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.errors.validation(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if req.Tuning == nil {
		t := s.tuning
		req.Tuning = &t
	}

	res, err := sim.Run(r.Context(), req)
	switch {
	case errors.Is(err, sim.ErrInvalidRequest):
		s.errors.validation(w, r, "request", err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.errors.write(w, r, http.StatusRequestTimeout, ErrTypeTimeout, "simulation interrupted", nil)
		return
	case err != nil:
		s.errors.write(w, r, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/pokemon/{id}
func (s *Server) handlePokemon(w http.ResponseWriter, r *http.Request) {
	if s.metadata == nil {
		s.errors.write(w, r, http.StatusServiceUnavailable, ErrTypeUnavailable, "metadata lookups are disabled", nil)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.errors.validation(w, r, "id", "id must be a positive integer")
		return
	}

	rec, err := s.metadata.GetPokemon(r.Context(), id)
	if err != nil {
		var httpErr *pokeapi.HTTPError
		var malformed *pokeapi.MalformedError
		switch {
		case errors.As(err, &httpErr) && httpErr.IsNotFound():
			s.errors.write(w, r, http.StatusNotFound, ErrTypeNotFound, "no pokemon with that id", map[string]any{"id": id})
		case errors.As(err, &malformed):
			s.errors.write(w, r, http.StatusBadGateway, ErrTypeUpstream, err.Error(), map[string]any{"field": malformed.Field})
		case errors.Is(err, context.DeadlineExceeded):
			s.errors.write(w, r, http.StatusGatewayTimeout, ErrTypeTimeout, "metadata lookup timed out", nil)
		default:
			s.errors.write(w, r, http.StatusBadGateway, ErrTypeUpstream, err.Error(), nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /api/v1/history?page=1&perPage=20
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w, r) {
		return
	}
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 20)
	out, err := s.history.List(r.Context(), page, perPage)
	if err != nil {
		s.errors.write(w, r, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/v1/history/{localID}
func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w, r) {
		return
	}
	localID := chi.URLParam(r, "localID")
	entry, err := s.history.Get(r.Context(), localID)
	if errors.Is(err, history.ErrNotFound) {
		s.errors.write(w, r, http.StatusNotFound, ErrTypeNotFound, "history entry not found", map[string]any{"localId": localID})
		return
	}
	if err != nil {
		s.errors.write(w, r, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DELETE /api/v1/history
func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w, r) {
		return
	}
	n, err := s.history.Clear(r.Context())
	if err != nil {
		s.errors.write(w, r, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) historyEnabled(w http.ResponseWriter, r *http.Request) bool {
	if s.history == nil {
		s.errors.write(w, r, http.StatusServiceUnavailable, ErrTypeUnavailable, "history is disabled", nil)
		return false
	}
	return true
}

func floatList(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) > 64 {
		return nil, errors.New("at most 64 values")
	}
	return out, nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
