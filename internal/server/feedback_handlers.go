package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"altarmaker/internal/store"
)

type feedbackRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Rating  *int   `json:"rating"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Message == "" || req.Rating == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if *req.Rating < 1 || *req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	fb := &store.Feedback{
		Name:     req.Name,
		Email:    req.Email,
		Message:  req.Message,
		Rating:   *req.Rating,
		Date:     time.Now().UTC(),
		Approved: false,
	}
	if _, err := s.Feedback.Insert(r.Context(), fb); err != nil {
		log.Error().Err(err).Msg("failed to submit feedback")
		writeError(w, http.StatusInternalServerError, "Failed to submit feedback")
		return
	}

	// The Feedback type never serializes its email field.
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    fb,
	})
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Feedback.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list feedback")
		writeError(w, http.StatusInternalServerError, "Failed to fetch feedback")
		return
	}
	if entries == nil {
		entries = []store.Feedback{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    entries,
	})
}
