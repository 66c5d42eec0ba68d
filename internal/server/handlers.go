package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diffgrader/diffgrader/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFromError maps service errors to HTTP status codes.
func statusFromError(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /api/files
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Server.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".zip") {
		writeError(w, http.StatusBadRequest, "only zip archives are accepted")
		return
	}

	up, err := s.svc.SaveUpload(r.Context(), header.Filename, strings.ToLower(r.FormValue("type")), file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

type createSessionRequest struct {
	StudentUploadID   string `json:"student_upload_id"`
	ReferenceUploadID string `json:"reference_upload_id"`
}

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if req.StudentUploadID == "" || req.ReferenceUploadID == "" {
		writeError(w, http.StatusBadRequest, "student_upload_id and reference_upload_id are required")
		return
	}

	sess, err := s.svc.CreateSession(r.Context(), req.StudentUploadID, req.ReferenceUploadID)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// GET /api/sessions/{sessionID}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GET /api/sessions/{sessionID}/comparison
func (s *Server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.GetComparison(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/sessions/{sessionID}/elements/{elementID}/suggestion
func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	suggestion, err := s.svc.SuggestFeedback(r.Context(),
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "elementID"))
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError && strings.Contains(err.Error(), "invalid element id") {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

type completeSessionRequest struct {
	Score    int    `json:"score"`
	Comments string `json:"comments"`
}

// POST /api/sessions/{sessionID}/complete
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	sess, err := s.svc.CompleteSession(r.Context(), chi.URLParam(r, "sessionID"), req.Score, req.Comments)
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError {
			if strings.Contains(err.Error(), "outside") {
				status = http.StatusBadRequest
			} else {
				status = http.StatusConflict
			}
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type feedbackRequest struct {
	ElementName   string `json:"element_name"`
	Score         int    `json:"score"`
	Comments      string `json:"comments"`
	DesignPattern string `json:"design_pattern_feedback"`
	BestPractices string `json:"best_practices_feedback"`
}

// POST /api/sessions/{sessionID}/feedback
func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	fb, err := s.svc.SubmitFeedback(r.Context(), &store.Feedback{
		SessionID:     chi.URLParam(r, "sessionID"),
		ElementName:   req.ElementName,
		Score:         req.Score,
		Comments:      req.Comments,
		DesignPattern: req.DesignPattern,
		BestPractices: req.BestPractices,
	})
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// GET /api/sessions/{sessionID}/feedback
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListFeedback(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	if list == nil {
		list = []store.Feedback{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/sessions/{sessionID}/feedback/average
func (s *Server) handleFeedbackAverage(w http.ResponseWriter, r *http.Request) {
	avg, err := s.svc.AverageFeedbackScore(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"average_score": avg})
}

// PUT /api/feedback/{feedbackID}
func (s *Server) handleUpdateFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "feedbackID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid feedback id")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	if err := s.svc.UpdateFeedback(r.Context(), id, req.Score, req.Comments, req.DesignPattern, req.BestPractices); err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/feedback/{feedbackID}
func (s *Server) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "feedbackID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid feedback id")
		return
	}
	if err := s.svc.DeleteFeedback(r.Context(), id); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
