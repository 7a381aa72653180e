package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/pipeline"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
	defaultAuditLimit  = 20
	maxAuditLimit      = 200
	lookupTimeout      = 3 * time.Second
)

// search handles POST /v1/search. Invalid requests get a 400 JSON error;
// everything after validation is reported on the NDJSON stream.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req prospect.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, _, err := pipeline.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	searchID := s.deps.IDs.MustRawID()
	logger := s.logger.With(zap.String("search_id", searchID.String()))

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Debug("clear write deadline failed", zap.Error(err))
	}
	h := w.Header()
	h.Set("Content-Type", "application/x-ndjson")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set(searchIDHeader, searchID.String())
	w.WriteHeader(http.StatusOK)

	stream := NewStreamEmitter(w, logger)
	if _, err := s.deps.Searches.Run(r.Context(), searchID, req, stream); err != nil {
		logger.Info("search finished with error", zap.Error(err))
	}
}

// listSearches handles GET /v1/searches?status=&limit=&offset=.
func (s *Server) listSearches(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		writeError(w, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultSearchLimit, maxSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status *store.SearchStatus
	if statusParam := strings.TrimSpace(r.URL.Query().Get("status")); statusParam != "" {
		statusVal, parseErr := parseStatus(statusParam)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		status = &statusVal
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.lookup)
	defer cancel()

	runs, err := s.deps.Records.ListSearches(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("list searches failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list searches")
		return
	}
	if runs == nil {
		runs = []store.SearchRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": runs})
}

// getSearch handles GET /v1/searches/{search_id}.
func (s *Server) getSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		writeError(w, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	searchID, err := parseUUIDParam(r, "search_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.lookup)
	defer cancel()

	run, err := s.deps.Records.GetSearch(ctx, searchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "search not found")
			return
		}
		s.logger.Error("get search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load search")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"search": run})
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.UUID{}, errors.New(name + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid " + name)
	}
	return id, nil
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func parseStatus(input string) (store.SearchStatus, error) {
	switch strings.ToLower(input) {
	case "running":
		return store.SearchRunning, nil
	case "success", "done":
		return store.SearchSuccess, nil
	case "error", "failed", "failure":
		return store.SearchError, nil
	default:
		return "", errors.New("invalid status")
	}
}
