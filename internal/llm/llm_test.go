package llm

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/studymate/backend/internal/models"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	unauthorized := &openai.APIError{HTTPStatusCode: 401, Message: "invalid key"}
	assert.ErrorIs(t, classify(unauthorized), ErrInvalidAPIKey)

	forbidden := &openai.APIError{HTTPStatusCode: 403, Message: "no access"}
	assert.ErrorIs(t, classify(forbidden), ErrInvalidAPIKey)

	quota := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	assert.ErrorIs(t, classify(quota), ErrQuotaExceeded)

	// Unrelated errors pass through unchanged.
	plain := errors.New("connection refused")
	got := classify(plain)
	assert.NotErrorIs(t, got, ErrInvalidAPIKey)
	assert.NotErrorIs(t, got, ErrQuotaExceeded)
	assert.Equal(t, plain, got)
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(ErrInvalidAPIKey), "re-configure")
	assert.Contains(t, UserMessage(ErrQuotaExceeded), "quota")
	assert.Contains(t, UserMessage(ErrMalformedResponse), "unexpected response")
	assert.Equal(t, "Generation failed. Please try again.", UserMessage(errors.New("boom")))
}

func TestPromptBuilders(t *testing.T) {
	req := models.StudyRequest{Subject: "Physics", Grade: "9", Chapter: "Waves", Extra: "focus on sound"}

	summary := SummaryRequest(req)
	assert.Contains(t, summary.Prompt, "Waves")
	assert.Contains(t, summary.Prompt, "grade 9")
	assert.Contains(t, summary.Prompt, "focus on sound")

	quiz := QuizRequest(req, 10, models.DifficultyHard)
	assert.Contains(t, quiz.Prompt, "exactly 10 questions")
	assert.Contains(t, quiz.Prompt, "hard-difficulty")
	assert.Contains(t, quiz.Prompt, "correctIndex")

	schedule := ScheduleRequest(req)
	assert.Contains(t, schedule.Prompt, "timetable")

	tutor := TutorSystemPrompt(req)
	assert.Contains(t, tutor, "Physics")
	assert.Contains(t, tutor, "Waves")
}

func TestTutorSystemPromptWithoutContext(t *testing.T) {
	got := TutorSystemPrompt(models.StudyRequest{})
	assert.Contains(t, got, "personal tutor")
	assert.NotContains(t, got, "chapter")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("  short  ", 10))
	long := truncate("aaaaaaaaaaaaaaa", 5)
	assert.Equal(t, "aaaaa…", long)
}
