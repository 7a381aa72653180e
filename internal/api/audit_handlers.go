package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/audit"
	"github.com/walt0white1/prospectflow-sub000/internal/audit/runner"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/scoring"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

const publishTimeout = 5 * time.Second

// AuditResponse is the body returned by POST /v1/audits.
type AuditResponse struct {
	AuditID   uuid.UUID                 `json:"auditId"`
	Audit     prospect.AuditResult      `json:"audit"`
	Score     scoring.AuditScore        `json:"score"`
	Candidate *prospect.ScoredCandidate `json:"candidate,omitempty"`
}

// CreateAuditRequest is the POST /v1/audits body. A candidate from a previous
// search, when given, is rescored from the audit and returned.
type CreateAuditRequest struct {
	prospect.AuditRequest
	Candidate *prospect.ScoredCandidate `json:"candidate,omitempty"`
}

// AuditCompleted is published on the audit topic after an audit is stored.
type AuditCompleted struct {
	AuditID          string            `json:"auditId"`
	ProspectID       string            `json:"prospectId,omitempty"`
	URL              string            `json:"url"`
	ProspectScore    int               `json:"prospectScore"`
	SiteQualityScore int               `json:"siteQualityScore"`
	Priority         prospect.Priority `json:"priority"`
	IssueCount       int               `json:"issueCount"`
	CompletedAt      time.Time         `json:"completedAt"`
}

// createAudit handles POST /v1/audits.
func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	var body CreateAuditRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req := body.AuditRequest
	target, err := audit.NormalizeURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.URL = target
	if req.ProspectID == "" && body.Candidate != nil {
		req.ProspectID = body.Candidate.ID
	}
	logger := s.logger.With(zap.String("url", req.URL), zap.String("request_id", requestID(r.Context())))

	result, err := s.deps.Audits.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, prospect.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Warn("audit failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, auditFailureMessage(err))
		return
	}

	var rescored *prospect.ScoredCandidate
	var score scoring.AuditScore
	if body.Candidate != nil {
		c := s.rescore(*body.Candidate, &result, req)
		rescored = &c
		score = scoring.AuditScore{
			ProspectScore:    c.ProspectScore,
			SiteQualityScore: *c.SiteQualityScore,
			Priority:         c.Priority,
			Breakdown:        *c.Breakdown,
		}
	} else {
		score = s.score(&result, req.GoogleRating)
	}
	rec := store.AuditRecord{
		ID:               s.deps.IDs.MustRawID(),
		ProspectID:       req.ProspectID,
		URL:              result.URL,
		CreatedAt:        s.now(),
		ProspectScore:    score.ProspectScore,
		SiteQualityScore: score.SiteQualityScore,
		Priority:         score.Priority,
		Result:           result,
	}
	if s.deps.Records != nil {
		if err := s.deps.Records.CreateAudit(r.Context(), rec); err != nil {
			logger.Error("store audit failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store audit")
			return
		}
	}
	s.publishAudit(r.Context(), rec, logger)

	writeJSON(w, http.StatusCreated, AuditResponse{AuditID: rec.ID, Audit: result, Score: score, Candidate: rescored})
}

func (s *Server) score(result *prospect.AuditResult, rating *float64) scoring.AuditScore {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return scoring.ScoreAudit(true, result, rating, s.deps.Rand)
}

// rescore fills the candidate's site and rating from the request when the
// candidate lacks them.
func (s *Server) rescore(c prospect.ScoredCandidate, result *prospect.AuditResult, req prospect.AuditRequest) prospect.ScoredCandidate {
	if !c.HasWebsite() {
		site := req.URL
		c.Website = &site
	}
	if c.GoogleRating == nil {
		c.GoogleRating = req.GoogleRating
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return scoring.Rescore(c, result, s.deps.Rand)
}

func (s *Server) now() time.Time {
	if s.deps.Clock != nil {
		return s.deps.Clock.Now()
	}
	return time.Now().UTC()
}

// publishAudit notifies subscribers. Failures are logged and never fail the
// request.
func (s *Server) publishAudit(ctx context.Context, rec store.AuditRecord, logger *zap.Logger) {
	if s.deps.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	msg := AuditCompleted{
		AuditID:          rec.ID.String(),
		ProspectID:       rec.ProspectID,
		URL:              rec.URL,
		ProspectScore:    rec.ProspectScore,
		SiteQualityScore: rec.SiteQualityScore,
		Priority:         rec.Priority,
		IssueCount:       len(rec.Result.Issues),
		CompletedAt:      rec.CreatedAt,
	}
	if _, err := s.deps.Publisher.Publish(ctx, s.auditTopic, msg); err != nil {
		logger.Warn("publish audit failed", zap.String("topic", s.auditTopic), zap.Error(err))
	}
}

func auditFailureMessage(err error) string {
	var childErr *runner.AuditError
	if errors.As(err, &childErr) {
		return childErr.Message
	}
	return err.Error()
}

// getAudit handles GET /v1/audits/{audit_id}.
func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		writeError(w, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	auditID, err := parseUUIDParam(r, "audit_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.lookup)
	defer cancel()

	rec, err := s.deps.Records.GetAudit(ctx, auditID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		s.logger.Error("get audit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load audit")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": rec})
}

// listProspectAudits handles GET /v1/prospects/{prospect_id}/audits.
func (s *Server) listProspectAudits(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		writeError(w, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	prospectID, err := url.PathUnescape(chi.URLParam(r, "prospect_id"))
	if err != nil || strings.TrimSpace(prospectID) == "" {
		writeError(w, http.StatusBadRequest, "prospect_id is required")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultAuditLimit, maxAuditLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.lookup)
	defer cancel()

	recs, err := s.deps.Records.ListAudits(ctx, prospectID, limit, offset)
	if err != nil {
		s.logger.Error("list audits failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list audits")
		return
	}
	if recs == nil {
		recs = []store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"audits": recs})
}
