package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/studymate/backend/internal/service"
)

type createShareRequest struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Content  string `json:"content"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		s.writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	id, err := s.share.Create(r.Context(), service.ShareInput{
		Type:     req.Type,
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Content:  req.Content,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetShare(w http.ResponseWriter, r *http.Request) {
	doc, err := s.share.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}
