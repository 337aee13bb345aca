package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studymate/backend/internal/models"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.collections.History(identityFrom(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	if history == nil {
		history = []models.HistoryItem{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetHistoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.collections.HistoryItem(identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.DeleteHistoryItem(identityFrom(r), chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.collections.Notes(identityFrom(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	s.writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleSaveNotes(w http.ResponseWriter, r *http.Request) {
	var notes []models.Note
	if err := json.NewDecoder(r.Body).Decode(&notes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.collections.SaveNotes(identityFrom(r), notes); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.collections.Reminders(identityFrom(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	s.writeJSON(w, http.StatusOK, reminders)
}

type addReminderRequest struct {
	Task     string    `json:"task"`
	DueTime  time.Time `json:"dueTime"`
	Priority string    `json:"priority"`
}

func (s *Server) handleAddReminder(w http.ResponseWriter, r *http.Request) {
	var req addReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Task == "" || req.DueTime.IsZero() {
		s.writeError(w, http.StatusBadRequest, "task and dueTime are required")
		return
	}
	reminder, err := s.collections.AddReminder(identityFrom(r), req.Task, req.DueTime, req.Priority)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, reminder)
}

func (s *Server) handleToggleReminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := s.collections.ToggleReminder(identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reminder)
}

func (s *Server) handleGetTimetable(w http.ResponseWriter, r *http.Request) {
	timetable, err := s.collections.Timetable(identityFrom(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	if timetable == nil {
		timetable = []models.TimetableEntry{}
	}
	s.writeJSON(w, http.StatusOK, timetable)
}

func (s *Server) handleSaveTimetable(w http.ResponseWriter, r *http.Request) {
	var timetable []models.TimetableEntry
	if err := json.NewDecoder(r.Body).Decode(&timetable); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.collections.SaveTimetable(identityFrom(r), timetable); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.collections.Settings(identityFrom(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.collections.SaveSettings(identityFrom(r), settings); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	timer, err := s.collections.Timer(identityFrom(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, timer)
}

func (s *Server) handleSaveTimer(w http.ResponseWriter, r *http.Request) {
	var timer models.TimerState
	if err := json.NewDecoder(r.Body).Decode(&timer); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.collections.SaveTimer(identityFrom(r), timer); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
