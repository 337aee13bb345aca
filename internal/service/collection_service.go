package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/store"
)

// CollectionService is the thin surface over the per-identity document
// collections. Each call touches exactly one document; there is no
// atomicity across collections.
type CollectionService struct {
	store *store.Store
}

func NewCollectionService(st *store.Store) *CollectionService {
	return &CollectionService{store: st}
}

func (s *CollectionService) History(identity string) ([]models.HistoryItem, error) {
	var history []models.HistoryItem
	if err := s.store.Load(store.CollectionHistory, identity, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *CollectionService) HistoryItem(identity, id string) (*models.HistoryItem, error) {
	history, err := s.History(identity)
	if err != nil {
		return nil, err
	}
	for i := range history {
		if history[i].ID == id {
			return &history[i], nil
		}
	}
	return nil, fmt.Errorf("%w: history item %s", ErrNotFound, id)
}

func (s *CollectionService) DeleteHistoryItem(identity, id string) error {
	history, err := s.History(identity)
	if err != nil {
		return err
	}
	kept := history[:0]
	found := false
	for _, item := range history {
		if item.ID == id {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return fmt.Errorf("%w: history item %s", ErrNotFound, id)
	}
	return s.store.Save(store.CollectionHistory, identity, kept)
}

func (s *CollectionService) Notes(identity string) ([]models.Note, error) {
	var notes []models.Note
	if err := s.store.Load(store.CollectionNotes, identity, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *CollectionService) SaveNotes(identity string, notes []models.Note) error {
	return s.store.Save(store.CollectionNotes, identity, notes)
}

func (s *CollectionService) Reminders(identity string) ([]models.Reminder, error) {
	var reminders []models.Reminder
	if err := s.store.Load(store.CollectionReminders, identity, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// AddReminder appends a user- or AI-suggested reminder.
func (s *CollectionService) AddReminder(identity, task string, dueTime time.Time, priority string) (*models.Reminder, error) {
	reminders, err := s.Reminders(identity)
	if err != nil {
		return nil, err
	}
	reminder := models.Reminder{
		ID:       uuid.NewString(),
		Task:     task,
		DueTime:  dueTime,
		Priority: priority,
	}
	reminders = append(reminders, reminder)
	if err := s.store.Save(store.CollectionReminders, identity, reminders); err != nil {
		return nil, err
	}
	return &reminder, nil
}

// ToggleReminder flips a reminder's completed flag.
func (s *CollectionService) ToggleReminder(identity, id string) (*models.Reminder, error) {
	reminders, err := s.Reminders(identity)
	if err != nil {
		return nil, err
	}
	for i := range reminders {
		if reminders[i].ID == id {
			reminders[i].Completed = !reminders[i].Completed
			if err := s.store.Save(store.CollectionReminders, identity, reminders); err != nil {
				return nil, err
			}
			return &reminders[i], nil
		}
	}
	return nil, fmt.Errorf("%w: reminder %s", ErrNotFound, id)
}

func (s *CollectionService) Timetable(identity string) ([]models.TimetableEntry, error) {
	var timetable []models.TimetableEntry
	if err := s.store.Load(store.CollectionTimetable, identity, &timetable); err != nil {
		return nil, err
	}
	return timetable, nil
}

func (s *CollectionService) SaveTimetable(identity string, timetable []models.TimetableEntry) error {
	return s.store.Save(store.CollectionTimetable, identity, timetable)
}

// Settings loads preferences, filling defaults for fields a stored document
// predates.
func (s *CollectionService) Settings(identity string) (models.Settings, error) {
	settings := models.Settings{Theme: "light", Language: "en", Notifications: true}
	if err := s.store.Load(store.CollectionSettings, identity, &settings); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func (s *CollectionService) SaveSettings(identity string, settings models.Settings) error {
	return s.store.Save(store.CollectionSettings, identity, settings)
}

func (s *CollectionService) Timer(identity string) (models.TimerState, error) {
	var timer models.TimerState
	if err := s.store.Load(store.CollectionTimer, identity, &timer); err != nil {
		return models.TimerState{}, err
	}
	return timer, nil
}

func (s *CollectionService) SaveTimer(identity string, timer models.TimerState) error {
	return s.store.Save(store.CollectionTimer, identity, timer)
}
