// Package handlers provides HTTP handlers for the survey API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vinayak1844/Statathon-Project/internal/filters"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
	"github.com/Vinayak1844/Statathon-Project/internal/session"
	"github.com/Vinayak1844/Statathon-Project/internal/survey"
)

// Service is the survey facade the handlers call.
type Service interface {
	Filter(ctx context.Context, set filters.Set) (*survey.Result, error)
	Chat(ctx context.Context, req survey.ChatRequest) (*survey.ChatResponse, error)
	History(ctx context.Context, userID string) (*session.Session, error)
	Forget(ctx context.Context, userID string) error
}

// SurveyHandler serves filter queries and chat.
type SurveyHandler struct {
	logger  *observability.Logger
	service Service
}

// NewSurveyHandler creates a new survey handler.
func NewSurveyHandler(logger *observability.Logger, service Service) *SurveyHandler {
	return &SurveyHandler{
		logger:  logger,
		service: service,
	}
}

// Filter handles GET /api/filter. Each filter key is an optional query
// parameter; unknown parameters are ignored.
func (h *SurveyHandler) Filter(w http.ResponseWriter, r *http.Request) {
	set := filters.FromValues(r.URL.Query())

	res, err := h.service.Filter(r.Context(), set)
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Str("filters", set.String()).Msg("Filter query failed")
		h.writeError(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// Chat handles POST /chat.
func (h *SurveyHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req survey.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.service.Chat(r.Context(), req)
	if errors.Is(err, survey.ErrEmptyMessage) {
		h.writeError(w, http.StatusBadRequest, "message is required", "")
		return
	}
	if errors.Is(err, survey.ErrChatUnavailable) {
		h.writeError(w, http.StatusServiceUnavailable, "chat is not configured", "")
		return
	}
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("Chat failed")
		h.writeError(w, http.StatusInternalServerError, "chat failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// History handles GET /chat/{userID}/history.
func (h *SurveyHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sess, err := h.service.History(r.Context(), userID)
	if errors.Is(err, session.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "session not found", "")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", userID).Msg("Failed to load session")
		h.writeError(w, http.StatusInternalServerError, "failed to load session", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, sess)
}

// Forget handles DELETE /chat/{userID}.
func (h *SurveyHandler) Forget(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.service.Forget(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Str("session_id", userID).Msg("Failed to evict session")
		h.writeError(w, http.StatusInternalServerError, "failed to evict session", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SurveyHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *SurveyHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	h.writeJSON(w, status, resp)
}
