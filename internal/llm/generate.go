package llm

import (
	"context"
	"fmt"

	"github.com/studymate/backend/internal/models"
)

// GenerateQuiz produces a validated question set for the requested
// configuration. Shape violations (wrong count, bad option arrays,
// out-of-range answers) fail loudly as malformed responses.
func (c *Client) GenerateQuiz(ctx context.Context, req models.StudyRequest, count int, difficulty models.QuizDifficulty) ([]models.QuizQuestion, error) {
	var env quizEnvelope
	if err := c.GenerateStructured(ctx, QuizRequest(req, count, difficulty), &env); err != nil {
		return nil, err
	}
	if len(env.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrMalformedResponse)
	}
	for i, q := range env.Questions {
		if q.Question == "" || len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d incomplete", ErrMalformedResponse, i)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d answer index out of range", ErrMalformedResponse, i)
		}
	}
	return env.Questions, nil
}

// GenerateSchedule produces a validated study timetable.
func (c *Client) GenerateSchedule(ctx context.Context, req models.StudyRequest) ([]models.TimetableEntry, error) {
	var env scheduleEnvelope
	if err := c.GenerateStructured(ctx, ScheduleRequest(req), &env); err != nil {
		return nil, err
	}
	if len(env.Timetable) == 0 {
		return nil, fmt.Errorf("%w: empty timetable", ErrMalformedResponse)
	}
	return env.Timetable, nil
}
