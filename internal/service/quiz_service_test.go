package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate/backend/internal/credits"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/store"
	"github.com/studymate/backend/pkg/logger"
)

func fiveQuestions() []models.QuizQuestion {
	questions := make([]models.QuizQuestion, 5)
	for i := range questions {
		questions[i] = models.QuizQuestion{
			Question:     "q",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
		}
	}
	return questions
}

func TestQuizSessionWalksToCompletion(t *testing.T) {
	questions := fiveQuestions()
	session, err := NewQuizSession(questions)
	require.NoError(t, err)

	// Answer 3 of 5 correctly.
	for i := range questions {
		answer := questions[i].CorrectIndex
		if i >= 3 {
			answer = (answer + 1) % len(questions[i].Options)
		}
		require.NoError(t, session.Select(answer))
		assert.Equal(t, QuizAnswerRevealed, session.State())
		require.NoError(t, session.Advance())
	}

	assert.Equal(t, QuizCompleted, session.State())
	assert.Equal(t, 3, session.Score())
}

func TestQuizSessionScoresEachQuestionOnce(t *testing.T) {
	session, err := NewQuizSession(fiveQuestions())
	require.NoError(t, err)

	correct := session.Current().CorrectIndex
	require.NoError(t, session.Select(correct))
	assert.Equal(t, 1, session.Score())

	// A second reveal for the same question is rejected and does not re-score.
	assert.ErrorIs(t, session.Select(correct), ErrAnswerAlreadyRevealed)
	assert.Equal(t, 1, session.Score())
}

func TestQuizSessionAdvanceNeedsRevealedAnswer(t *testing.T) {
	session, err := NewQuizSession(fiveQuestions())
	require.NoError(t, err)

	assert.ErrorIs(t, session.Advance(), ErrNoAnswerSelected)
	require.NoError(t, session.Select(0))
	require.NoError(t, session.Advance())
	assert.Equal(t, 1, session.Index())
	assert.Equal(t, QuizInProgress, session.State())
}

func TestQuizSessionRejectsOutOfRangeAnswer(t *testing.T) {
	session, err := NewQuizSession(fiveQuestions())
	require.NoError(t, err)

	assert.Error(t, session.Select(-1))
	assert.Error(t, session.Select(4))
	assert.Equal(t, QuizInProgress, session.State())
}

func TestQuizSessionFinishedIsTerminal(t *testing.T) {
	session, err := NewQuizSession(fiveQuestions()[:1])
	require.NoError(t, err)

	require.NoError(t, session.Select(0))
	require.NoError(t, session.Advance())
	assert.Equal(t, QuizCompleted, session.State())
	assert.ErrorIs(t, session.Select(0), ErrQuizFinished)
	assert.ErrorIs(t, session.Advance(), ErrQuizFinished)
}

func TestReplaySessionTrustsStoredScore(t *testing.T) {
	score := 4
	item := models.HistoryItem{
		ID:        "h1",
		Type:      models.ModeQuiz,
		Questions: fiveQuestions(),
		Score:     &score,
	}
	session, err := ReplaySession(item)
	require.NoError(t, err)
	assert.Equal(t, QuizCompleted, session.State())
	assert.Equal(t, 4, session.Score())
}

func TestReplaySessionWithoutScoreStartsFresh(t *testing.T) {
	item := models.HistoryItem{ID: "h1", Type: models.ModeQuiz, Questions: fiveQuestions()}
	session, err := ReplaySession(item)
	require.NoError(t, err)
	assert.Equal(t, QuizInProgress, session.State())
	assert.Equal(t, 0, session.Score())
}

// ---

func newQuizHarness(t *testing.T, item models.HistoryItem, balance int) (*QuizService, *mockBalances, *store.Store) {
	t.Helper()
	log := logger.New()
	st, err := store.New(t.TempDir(), log)
	require.NoError(t, err)
	require.NoError(t, st.Save(store.CollectionHistory, "u1", []models.HistoryItem{item}))

	balances := newMockBalances(map[string]int{"u1": balance})
	cfg := testConfig()
	svc := NewQuizService(credits.NewPolicy(cfg), credits.NewLedger(balances, log), st, log)
	return svc, balances, st
}

func challengeItem() models.HistoryItem {
	questions := make([]models.QuizQuestion, 10)
	for i := range questions {
		questions[i] = models.QuizQuestion{Question: "q", Options: []string{"a", "b"}, CorrectIndex: 0}
	}
	return models.HistoryItem{
		ID:         "h1",
		Type:       models.ModeQuiz,
		Timestamp:  time.Now().UTC(),
		Questions:  questions,
		Difficulty: models.DifficultyHard,
	}
}

func TestCompleteRecordsScore(t *testing.T) {
	item := models.HistoryItem{
		ID:         "h1",
		Type:       models.ModeQuiz,
		Questions:  fiveQuestions(),
		Difficulty: models.DifficultyMedium,
	}
	svc, balances, st := newQuizHarness(t, item, 20)

	completion, err := svc.Complete(context.Background(), "u1", "h1", 3)
	require.NoError(t, err)
	require.NotNil(t, completion.Item.Score)
	assert.Equal(t, 3, *completion.Item.Score)
	assert.Equal(t, 0, completion.Bonus)
	assert.Equal(t, 20, balances.balances["u1"])

	var history []models.HistoryItem
	require.NoError(t, st.Load(store.CollectionHistory, "u1", &history))
	require.NotNil(t, history[0].Score)
	assert.Equal(t, 3, *history[0].Score)
}

func TestCompletePaysChallengeBonusOnce(t *testing.T) {
	svc, balances, _ := newQuizHarness(t, challengeItem(), 0)

	// 8/10 on a hard 10-question quiz clears the 75% bar.
	completion, err := svc.Complete(context.Background(), "u1", "h1", 8)
	require.NoError(t, err)
	assert.Equal(t, 50, completion.Bonus)
	assert.Equal(t, 50, completion.Balance)
	assert.True(t, completion.Item.BonusGranted)

	// Re-submitting keeps the stored score and pays nothing.
	again, err := svc.Complete(context.Background(), "u1", "h1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Bonus)
	require.NotNil(t, again.Item.Score)
	assert.Equal(t, 8, *again.Item.Score)
	assert.Equal(t, 50, balances.balances["u1"])
}

func TestCompleteFailedSaveNeverPaysBonus(t *testing.T) {
	log := logger.New()
	dir := t.TempDir()
	st, err := store.New(dir, log)
	require.NoError(t, err)
	require.NoError(t, st.Save(store.CollectionHistory, "u1", []models.HistoryItem{challengeItem()}))

	balances := newMockBalances(map[string]int{"u1": 0})
	cfg := testConfig()
	svc := NewQuizService(credits.NewPolicy(cfg), credits.NewLedger(balances, log), st, log)

	// Squat a directory on the temp-file path so the atomic write cannot land.
	tmp := filepath.Join(dir, store.CollectionHistory, "u1.json.tmp")
	require.NoError(t, os.Mkdir(tmp, 0o755))

	_, err = svc.Complete(context.Background(), "u1", "h1", 8)
	require.Error(t, err)
	assert.Equal(t, 0, balances.balances["u1"])

	// Once the write path clears, the retry pays the bonus exactly once.
	require.NoError(t, os.Remove(tmp))
	completion, err := svc.Complete(context.Background(), "u1", "h1", 8)
	require.NoError(t, err)
	assert.Equal(t, 50, completion.Bonus)
	assert.Equal(t, 50, balances.balances["u1"])

	again, err := svc.Complete(context.Background(), "u1", "h1", 8)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Bonus)
	assert.Equal(t, 50, balances.balances["u1"])
}

func TestCompleteBelowThresholdPaysNothing(t *testing.T) {
	svc, balances, _ := newQuizHarness(t, challengeItem(), 0)

	completion, err := svc.Complete(context.Background(), "u1", "h1", 7)
	require.NoError(t, err)
	assert.Equal(t, 0, completion.Bonus)
	assert.Equal(t, 0, balances.balances["u1"])
}

func TestCompleteValidates(t *testing.T) {
	item := models.HistoryItem{ID: "h1", Type: models.ModeQuiz, Questions: fiveQuestions()}
	svc, _, _ := newQuizHarness(t, item, 0)

	_, err := svc.Complete(context.Background(), "u1", "missing", 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Complete(context.Background(), "u1", "h1", 6)
	assert.Error(t, err)

	_, err = svc.Complete(context.Background(), "u1", "h1", -1)
	assert.Error(t, err)
}

func TestCompleteRejectsNonQuizItem(t *testing.T) {
	item := models.HistoryItem{ID: "h1", Type: models.ModeSummary, Content: "text"}
	svc, _, _ := newQuizHarness(t, item, 0)

	_, err := svc.Complete(context.Background(), "u1", "h1", 0)
	assert.Error(t, err)
}
