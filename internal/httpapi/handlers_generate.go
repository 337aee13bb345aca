package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/service"
)

type generateRequest struct {
	Mode          models.GenerationMode `json:"mode"`
	Subject       string                `json:"subject"`
	Grade         string                `json:"grade"`
	Chapter       string                `json:"chapter"`
	Extra         string                `json:"extra,omitempty"`
	IncludeImages bool                  `json:"includeImages,omitempty"`
	QuestionCount int                   `json:"questionCount,omitempty"`
	Difficulty    models.QuizDifficulty `json:"difficulty,omitempty"`
}

func (r generateRequest) input(identity string) service.GenerateInput {
	return service.GenerateInput{
		Identity: identity,
		Mode:     r.Mode,
		Study: models.StudyRequest{
			Subject: r.Subject,
			Grade:   r.Grade,
			Chapter: r.Chapter,
			Extra:   r.Extra,
		},
		QuestionCount: r.QuestionCount,
		Difficulty:    r.Difficulty,
		IncludeImages: r.IncludeImages,
	}
}

// handleGenerate streams a text generation (summary, essay, notes) as
// server-sent events: "delta" events carry content as it arrives, one final
// "done" event carries the persisted result. Failures before the first delta
// are plain JSON errors; failures mid-stream become an "error" event.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Subject == "" {
		s.writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.internalError(w, fmt.Errorf("response writer does not support streaming"))
		return
	}

	// The event-stream headers go out with the first delta. Failures before
	// that point (insufficient credits, busy slot, upstream refusal) stay
	// ordinary JSON errors with their proper status codes.
	started := false
	startStream := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}

	result, err := s.generation.GenerateText(r.Context(), req.input(identityFrom(r)), func(delta string) {
		startStream()
		writeSSE(w, "delta", map[string]string{"content": delta})
		flusher.Flush()
	})
	if err != nil {
		if !started {
			s.serviceError(w, err)
			return
		}
		writeSSE(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}

	startStream()
	writeSSE(w, "done", map[string]any{
		"item":    result.Item,
		"cost":    result.Cost,
		"credits": result.Balance,
	})
	flusher.Flush()
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Subject == "" {
		s.writeError(w, http.StatusBadRequest, "subject is required")
		return
	}
	if req.QuestionCount <= 0 {
		s.writeError(w, http.StatusBadRequest, "questionCount must be positive")
		return
	}

	result, err := s.generation.GenerateQuiz(r.Context(), req.input(identityFrom(r)))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"item":    result.Item,
		"cost":    result.Cost,
		"credits": result.Balance,
	})
}

func (s *Server) handleGenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Subject == "" {
		s.writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	result, timetable, err := s.generation.GenerateSchedule(r.Context(), req.input(identityFrom(r)))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"item":      result.Item,
		"timetable": timetable,
		"cost":      result.Cost,
		"credits":   result.Balance,
	})
}

type completeQuizRequest struct {
	Score int `json:"score"`
}

func (s *Server) handleCompleteQuiz(w http.ResponseWriter, r *http.Request) {
	var req completeQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	historyID := chi.URLParam(r, "historyID")
	completion, err := s.quiz.Complete(r.Context(), identityFrom(r), historyID, req.Score)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"item":    completion.Item,
		"bonus":   completion.Bonus,
		"credits": completion.Balance,
	})
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
