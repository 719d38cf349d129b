package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/storage"
	"github.com/hyperjump/fypmatch/internal/suggest"
	"go.uber.org/zap"
)

const defaultListLimit = 50

// Multipart field names of the upload form.
const (
	fieldProposal    = "proposal_pdf"
	fieldPriorTitles = "previous_fyps_pdf"
	fieldTitle       = "project_title"
	fieldExpertise   = "teacher_expertise_json"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := CollectStatus(r.Context(), s.storage, s.corpus, s.config)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.review(w, r, &req)
}

func (s *Server) handleReviewUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	proposal, proposalExt, err := readUpload(r, fieldProposal)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	priors, priorsExt, err := readUpload(r, fieldPriorTitles)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	text, err := s.extractor.ExtractBytes(proposal, proposalExt)
	if err != nil {
		s.respondFailure(w, fmt.Errorf("%w: %s: %v", models.ErrInvalidInput, fieldProposal, err))
		return
	}
	titles, err := s.extractor.TitlesBytes(priors, priorsExt)
	if err != nil {
		s.respondFailure(w, fmt.Errorf("%w: %s: %v", models.ErrInvalidInput, fieldPriorTitles, err))
		return
	}
	var expertise models.ExpertiseMap
	if raw := strings.TrimSpace(r.FormValue(fieldExpertise)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &expertise); err != nil {
			s.respondError(w, http.StatusBadRequest, fieldExpertise+" must be a JSON object of id -> keywords")
			return
		}
	}
	s.review(w, r, &models.ReviewRequest{
		Title:        r.FormValue(fieldTitle),
		ProposalText: text,
		PriorTitles:  titles,
		Expertise:    expertise,
	})
}

func (s *Server) review(w http.ResponseWriter, r *http.Request, req *models.ReviewRequest) {
	s.logger.Debug("review request",
		zap.String("title", req.Title),
		zap.Int("prior_titles", len(req.PriorTitles)),
		zap.Int("supervisors", len(req.Expertise)))
	verdict, err := s.reviewer.Evaluate(r.Context(), req)
	if err != nil {
		s.logger.Warn("review failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, verdict)
}

// readUpload returns the bytes and lower-cased extension of a multipart file.
// Files without an extension are treated as PDF, the form's documented type.
func readUpload(r *http.Request, field string) ([]byte, string, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s is required", models.ErrInvalidInput, field)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", field, err)
	}
	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if ext == "" {
		ext = ".pdf"
	}
	return content, ext, nil
}

type suggestBody struct {
	Theme string          `json:"theme"`
	Tags  json.RawMessage `json:"tags"`
	K     int             `json:"k"`
}

// decodeTags accepts a JSON list of strings or a single comma-separated string.
func decodeTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, errors.New("tags must be a list of strings or a comma-separated string")
	}
	return suggest.ParseTags(joined), nil
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var body suggestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tags, err := decodeTags(body.Tags)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	results, err := s.suggester.SuggestTitles(r.Context(), body.Theme, tags, body.K)
	if err != nil {
		s.logger.Warn("suggestions failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.SuggestResponse{
		Suggestions: results,
		QueryTime:   time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleCorpusReload(w http.ResponseWriter, r *http.Request) {
	if s.vectorizer == nil {
		s.respondError(w, http.StatusNotImplemented, "corpus rebuild not enabled")
		return
	}
	stats, err := s.vectorizer.Rebuild(r.Context())
	if err != nil {
		s.logger.Error("corpus reload failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": s.corpus.Len(),
		"stats":   stats,
	})
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if source := q.Get("source"); source != "" {
		p, err := s.storage.GetProposalBySource(r.Context(), source)
		if err != nil {
			s.respondFailure(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"proposals": []*models.Proposal{p}})
		return
	}
	status := models.ProposalStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown status")
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	proposals, err := s.storage.ListProposals(r.Context(), status, max(offset, 0), limit)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	if proposals == nil {
		proposals = []*models.Proposal{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"proposals": proposals})
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	if s.vectorizer == nil {
		s.respondError(w, http.StatusNotImplemented, "proposal ingest not enabled")
		return
	}
	var input models.ProposalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.vectorizer.IngestText(r.Context(), &input)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": p.ID, "status": string(p.Status)})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.storage.GetProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.ProposalStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Status.Valid() {
		s.respondError(w, http.StatusBadRequest, "status must be pending, approved or rejected")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.storage.SetStatus(r.Context(), id, body.Status); err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(body.Status)})
}

func (s *Server) handleDeleteProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.storage.DeleteProposal(r.Context(), id); err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, corpus.ErrModelMismatch):
		return http.StatusConflict
	case errors.Is(err, embedding.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	s.respondError(w, statusFor(err), err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
