package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/credits"
	"github.com/studymate/backend/internal/llm"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/session"
	"github.com/studymate/backend/internal/store"
	"github.com/studymate/backend/pkg/logger"
)

// ---------------------------------------------------------------------------
// In-memory mocks for the balance store and the generation client. These let
// us test the real money-path logic without a database or a network.
// ---------------------------------------------------------------------------

type mockBalances struct {
	mu       sync.Mutex
	balances map[string]int
}

func newMockBalances(seed map[string]int) *mockBalances {
	return &mockBalances{balances: seed}
}

func (m *mockBalances) Balance(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id], nil
}

func (m *mockBalances) DebitCredits(_ context.Context, id string, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[id] < amount {
		return false, nil
	}
	m.balances[id] -= amount
	return true, nil
}

func (m *mockBalances) AddCredits(_ context.Context, id string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] += amount
	return nil
}

type fakeGenerator struct {
	deltas      []string
	streamErr   error
	quiz        []models.QuizQuestion
	quizErr     error
	schedule    []models.TimetableEntry
	scheduleErr error
	image       string
	imageErr    error

	streamCalls int
	quizCalls   int
}

func (f *fakeGenerator) StreamText(ctx context.Context, _ llm.Request) (<-chan string, <-chan error) {
	f.streamCalls++
	deltas := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(deltas)
		defer close(errc)
		for _, d := range f.deltas {
			deltas <- d
		}
		if f.streamErr != nil {
			errc <- f.streamErr
		}
	}()
	return deltas, errc
}

func (f *fakeGenerator) GenerateText(_ context.Context, _ llm.Request) (string, error) {
	return strings.Join(f.deltas, ""), f.streamErr
}

func (f *fakeGenerator) GenerateQuiz(_ context.Context, _ models.StudyRequest, _ int, _ models.QuizDifficulty) ([]models.QuizQuestion, error) {
	f.quizCalls++
	return f.quiz, f.quizErr
}

func (f *fakeGenerator) GenerateSchedule(_ context.Context, _ models.StudyRequest) ([]models.TimetableEntry, error) {
	return f.schedule, f.scheduleErr
}

func (f *fakeGenerator) GenerateImage(_ context.Context, _ string) (string, error) {
	return f.image, f.imageErr
}

func testConfig() config.Config {
	return config.Config{
		SummaryCost:           10,
		EssayCost:             10,
		EssayImageSurcharge:   5,
		QuizBaseCost:          10,
		QuizLongSurcharge:     5,
		QuizLongThreshold:     10,
		QuizHardSurcharge:     5,
		ChallengeMinQuestions: 10,
		ChallengeBonus:        50,
		ChallengeBonusPercent: 75,
	}
}

func newGenerationHarness(t *testing.T, balance int, gen *fakeGenerator) (*GenerationService, *mockBalances, *store.Store) {
	t.Helper()
	log := logger.New()
	st, err := store.New(t.TempDir(), log)
	require.NoError(t, err)

	balances := newMockBalances(map[string]int{"u1": balance})
	cfg := testConfig()
	svc := NewGenerationService(cfg, log, credits.NewPolicy(cfg), credits.NewLedger(balances, log),
		gen, st, session.NewSlot(), nil)
	return svc, balances, st
}

func summaryInput() GenerateInput {
	return GenerateInput{
		Identity: "u1",
		Mode:     models.ModeSummary,
		Study:    models.StudyRequest{Subject: "Physics", Grade: "9", Chapter: "Waves"},
	}
}

func TestGenerateTextDebitsAndPersistsOnSuccess(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"Waves ", "carry ", "energy."}}
	svc, balances, st := newGenerationHarness(t, 100, gen)

	var streamed strings.Builder
	result, err := svc.GenerateText(context.Background(), summaryInput(), func(d string) {
		streamed.WriteString(d)
	})
	require.NoError(t, err)

	assert.Equal(t, "Waves carry energy.", result.Item.Content)
	assert.Equal(t, "Waves carry energy.", streamed.String())
	assert.Equal(t, 10, result.Cost)
	assert.Equal(t, 90, result.Balance)
	assert.Equal(t, 90, balances.balances["u1"])

	var history []models.HistoryItem
	require.NoError(t, st.Load(store.CollectionHistory, "u1", &history))
	require.Len(t, history, 1)
	assert.Equal(t, models.ModeSummary, history[0].Type)
}

func TestGenerateTextFailureLeavesBalanceAndHistoryUntouched(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"partial "}, streamErr: errors.New("upstream reset")}
	svc, balances, st := newGenerationHarness(t, 100, gen)

	_, err := svc.GenerateText(context.Background(), summaryInput(), nil)
	require.Error(t, err)

	assert.Equal(t, 100, balances.balances["u1"])
	var history []models.HistoryItem
	require.NoError(t, st.Load(store.CollectionHistory, "u1", &history))
	assert.Empty(t, history)
}

func TestGenerateBlocksBeforeExternalCallWhenBroke(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"never"}}
	svc, balances, _ := newGenerationHarness(t, 5, gen)

	_, err := svc.GenerateText(context.Background(), summaryInput(), nil)
	assert.ErrorIs(t, err, credits.ErrInsufficientCredits)
	assert.Contains(t, err.Error(), "need 10")
	assert.Contains(t, err.Error(), "have 5")

	// The guard fires pre-flight: the client was never invoked.
	assert.Equal(t, 0, gen.streamCalls)
	assert.Equal(t, 5, balances.balances["u1"])
}

func TestGenerateFailedSaveChargesNothing(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"Waves carry energy."}}
	log := logger.New()
	dir := t.TempDir()
	st, err := store.New(dir, log)
	require.NoError(t, err)

	balances := newMockBalances(map[string]int{"u1": 100})
	cfg := testConfig()
	svc := NewGenerationService(cfg, log, credits.NewPolicy(cfg), credits.NewLedger(balances, log),
		gen, st, session.NewSlot(), nil)

	// Squat a directory on the temp-file path so the history write fails.
	tmp := filepath.Join(dir, store.CollectionHistory, "u1.json.tmp")
	require.NoError(t, os.MkdirAll(tmp, 0o755))

	_, err = svc.GenerateText(context.Background(), summaryInput(), nil)
	require.Error(t, err)
	assert.Equal(t, 100, balances.balances["u1"])
}

func TestGenerateQuizChargesTable(t *testing.T) {
	questions := []models.QuizQuestion{
		{Question: "q1", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1},
		{Question: "q2", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2},
	}
	gen := &fakeGenerator{quiz: questions}
	svc, balances, _ := newGenerationHarness(t, 100, gen)

	input := summaryInput()
	input.QuestionCount = 5
	input.Difficulty = models.DifficultyEasy
	result, err := svc.GenerateQuiz(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Cost)
	assert.Equal(t, 90, balances.balances["u1"])
	assert.Len(t, result.Item.Questions, 2)
	assert.Equal(t, models.DifficultyEasy, result.Item.Difficulty)
}

func TestChallengeQuizIsFreeEvenAtZeroBalance(t *testing.T) {
	questions := make([]models.QuizQuestion, 10)
	for i := range questions {
		questions[i] = models.QuizQuestion{Question: "q", Options: []string{"a", "b"}, CorrectIndex: 0}
	}
	gen := &fakeGenerator{quiz: questions}
	svc, balances, _ := newGenerationHarness(t, 0, gen)

	input := summaryInput()
	input.QuestionCount = 10
	input.Difficulty = models.DifficultyHard
	result, err := svc.GenerateQuiz(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Cost)
	assert.Equal(t, 0, balances.balances["u1"])
}

func TestQuizFailureChargesNothing(t *testing.T) {
	gen := &fakeGenerator{quizErr: llm.ErrMalformedResponse}
	svc, balances, st := newGenerationHarness(t, 100, gen)

	input := summaryInput()
	input.QuestionCount = 5
	_, err := svc.GenerateQuiz(context.Background(), input)
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
	assert.Equal(t, 100, balances.balances["u1"])

	var history []models.HistoryItem
	require.NoError(t, st.Load(store.CollectionHistory, "u1", &history))
	assert.Empty(t, history)
}

func TestEssayImageFailureDegradesGracefully(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"An essay."}, imageErr: errors.New("image backend down")}
	svc, balances, _ := newGenerationHarness(t, 100, gen)

	input := summaryInput()
	input.Mode = models.ModeEssay
	input.IncludeImages = true
	result, err := svc.GenerateText(context.Background(), input, nil)
	require.NoError(t, err)

	// Essay is kept and charged (15 = 10 + 5 image surcharge) with a note.
	assert.Contains(t, result.Item.Content, "Image generation failed")
	assert.Equal(t, 15, result.Cost)
	assert.Equal(t, 85, balances.balances["u1"])
}

func TestEssayImageInlineWithoutUploader(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"An essay."}, image: "aW1hZ2U="}
	svc, _, _ := newGenerationHarness(t, 100, gen)

	input := summaryInput()
	input.Mode = models.ModeEssay
	input.IncludeImages = true
	result, err := svc.GenerateText(context.Background(), input, nil)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aW1hZ2U=", result.Item.ImageURL)
}

func TestSingleInFlightGenerationPerIdentity(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"x"}}
	svc, _, _ := newGenerationHarness(t, 100, gen)

	started := make(chan struct{})
	proceed := make(chan struct{})
	var firstErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, firstErr = svc.GenerateText(context.Background(), summaryInput(), func(string) {
			close(started)
			<-proceed
		})
	}()

	<-started
	_, err := svc.GenerateText(context.Background(), summaryInput(), nil)
	assert.ErrorIs(t, err, ErrGenerationBusy)

	close(proceed)
	<-done
	require.NoError(t, firstErr)

	// Slot is released after completion.
	_, err = svc.GenerateText(context.Background(), summaryInput(), nil)
	require.NoError(t, err)
}

func TestGenerateScheduleMirrorsTimetable(t *testing.T) {
	entries := []models.TimetableEntry{
		{Day: "Monday", Time: "17:00", Subject: "Physics", Activity: "Revise waves"},
	}
	gen := &fakeGenerator{schedule: entries}
	svc, _, st := newGenerationHarness(t, 100, gen)

	result, timetable, err := svc.GenerateSchedule(context.Background(), summaryInput())
	require.NoError(t, err)
	assert.Len(t, timetable, 1)
	assert.Contains(t, result.Item.Content, "Revise waves")

	var stored []models.TimetableEntry
	require.NoError(t, st.Load(store.CollectionTimetable, "u1", &stored))
	assert.Equal(t, entries, stored)
}
