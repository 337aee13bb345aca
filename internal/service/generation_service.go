package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/credits"
	"github.com/studymate/backend/internal/llm"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/session"
	"github.com/studymate/backend/internal/store"
)

// Generator is the slice of the generation client this service consumes.
type Generator interface {
	StreamText(ctx context.Context, req llm.Request) (<-chan string, <-chan error)
	GenerateText(ctx context.Context, req llm.Request) (string, error)
	GenerateQuiz(ctx context.Context, req models.StudyRequest, count int, difficulty models.QuizDifficulty) ([]models.QuizQuestion, error)
	GenerateSchedule(ctx context.Context, req models.StudyRequest) ([]models.TimetableEntry, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ImageUploader publishes an essay illustration and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, b64 string) (string, error)
}

// GenerateInput describes one generation request.
type GenerateInput struct {
	Identity      string
	Mode          models.GenerationMode
	Study         models.StudyRequest
	QuestionCount int
	Difficulty    models.QuizDifficulty
	IncludeImages bool
}

// GenerateResult reports the persisted outcome of a successful generation.
type GenerateResult struct {
	Item    models.HistoryItem
	Cost    int
	Balance int
}

// GenerationService enforces the money-path invariant: credits are deducted
// and history written only after the AI call (or the full stream) succeeds.
// A failed call leaves both untouched.
type GenerationService struct {
	cfg      config.Config
	log      *slog.Logger
	policy   credits.Policy
	ledger   *credits.Ledger
	client   Generator
	store    *store.Store
	slot     *session.Slot
	uploader ImageUploader
	now      func() time.Time
}

func NewGenerationService(cfg config.Config, log *slog.Logger, policy credits.Policy, ledger *credits.Ledger, client Generator, st *store.Store, slot *session.Slot, uploader ImageUploader) *GenerationService {
	return &GenerationService{
		cfg:      cfg,
		log:      log,
		policy:   policy,
		ledger:   ledger,
		client:   client,
		store:    st,
		slot:     slot,
		uploader: uploader,
		now:      time.Now,
	}
}

// Cost exposes the price the guard will apply, so clients can show it.
func (s *GenerationService) Cost(input GenerateInput) int {
	return s.policy.Cost(input.Mode, credits.CostParams{
		QuestionCount: input.QuestionCount,
		Difficulty:    input.Difficulty,
		IncludeImages: input.IncludeImages,
	})
}

// Balance reads the identity's current credit balance.
func (s *GenerationService) Balance(ctx context.Context, identity string) (int, error) {
	return s.ledger.Balance(ctx, identity)
}

// GenerateText runs a streamed text generation (summary, essay, notes),
// forwarding deltas to onDelta as they arrive. Nothing is charged or
// persisted until the stream finishes cleanly.
func (s *GenerationService) GenerateText(ctx context.Context, input GenerateInput, onDelta func(string)) (*GenerateResult, error) {
	req, err := textRequest(input)
	if err != nil {
		return nil, err
	}

	cost, release, err := s.guard(ctx, input)
	if err != nil {
		return nil, err
	}
	defer release()

	deltas, errc := s.client.StreamText(ctx, req)
	var content strings.Builder
	for delta := range deltas {
		content.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := <-errc; err != nil {
		s.log.Error("text generation failed", "mode", input.Mode, "err", err)
		return nil, err
	}

	item := s.newHistoryItem(input)
	item.Content = content.String()

	if input.Mode == models.ModeEssay && input.IncludeImages {
		s.attachEssayImage(ctx, input, &item)
	}

	return s.settle(ctx, input.Identity, cost, item)
}

// GenerateQuiz produces a structured question set. Challenge-mode quizzes
// (>=10 questions, hard) enter free.
func (s *GenerationService) GenerateQuiz(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	input.Mode = models.ModeQuiz
	if input.QuestionCount <= 0 {
		return nil, fmt.Errorf("question count must be positive")
	}
	if input.Difficulty == "" {
		input.Difficulty = models.DifficultyMedium
	}

	cost, release, err := s.guard(ctx, input)
	if err != nil {
		return nil, err
	}
	defer release()

	questions, err := s.client.GenerateQuiz(ctx, input.Study, input.QuestionCount, input.Difficulty)
	if err != nil {
		s.log.Error("quiz generation failed", "err", err)
		return nil, err
	}

	item := s.newHistoryItem(input)
	item.Questions = questions
	item.Difficulty = input.Difficulty
	item.Subtitle = fmt.Sprintf("%d questions · %s", len(questions), input.Difficulty)

	return s.settle(ctx, input.Identity, cost, item)
}

// GenerateSchedule produces a study timetable and mirrors it into the
// identity's timetable collection for the planner view.
func (s *GenerationService) GenerateSchedule(ctx context.Context, input GenerateInput) (*GenerateResult, []models.TimetableEntry, error) {
	input.Mode = models.ModeSchedule

	cost, release, err := s.guard(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	timetable, err := s.client.GenerateSchedule(ctx, input.Study)
	if err != nil {
		s.log.Error("schedule generation failed", "err", err)
		return nil, nil, err
	}

	item := s.newHistoryItem(input)
	item.Content = renderTimetable(timetable)

	result, err := s.settle(ctx, input.Identity, cost, item)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Save(store.CollectionTimetable, input.Identity, timetable); err != nil {
		s.log.Error("save timetable", "identity", input.Identity, "err", err)
	}
	return result, timetable, nil
}

// guard runs the pre-flight checks shared by every mode: price the request,
// refuse it before any external call when the balance cannot cover it, and
// claim the identity's single in-flight slot.
func (s *GenerationService) guard(ctx context.Context, input GenerateInput) (int, func(), error) {
	cost := s.Cost(input)
	balance, err := s.ledger.Balance(ctx, input.Identity)
	if err != nil {
		return 0, nil, err
	}
	if balance < cost {
		return 0, nil, fmt.Errorf("%w: need %d, have %d", credits.ErrInsufficientCredits, cost, balance)
	}
	release, ok := s.slot.TryAcquire(input.Identity)
	if !ok {
		return 0, nil, ErrGenerationBusy
	}
	return cost, release, nil
}

// settle is the only place the money path commits: append the history item,
// then debit. It runs strictly after a successful AI call. A failed save
// charges nothing; a failed debit after the save leaves the item delivered
// unpaid and is logged for reconciliation.
func (s *GenerationService) settle(ctx context.Context, identity string, cost int, item models.HistoryItem) (*GenerateResult, error) {
	var history []models.HistoryItem
	if err := s.store.Load(store.CollectionHistory, identity, &history); err != nil {
		return nil, err
	}
	history = append([]models.HistoryItem{item}, history...)
	if err := s.store.Save(store.CollectionHistory, identity, history); err != nil {
		return nil, err
	}

	if err := s.ledger.Debit(ctx, identity, cost); err != nil {
		s.log.Error("debit failed after delivery",
			"identity", identity, "item", item.ID, "cost", cost, "err", err)
		return nil, err
	}

	balance, err := s.ledger.Balance(ctx, identity)
	if err != nil {
		return nil, err
	}
	s.log.Info("generation completed",
		"identity", identity, "mode", item.Type, "cost", cost, "balance", balance)
	return &GenerateResult{Item: item, Cost: cost, Balance: balance}, nil
}

// attachEssayImage adds an illustration to an essay. Image failure degrades
// gracefully: a note is appended and the essay is kept.
func (s *GenerationService) attachEssayImage(ctx context.Context, input GenerateInput, item *models.HistoryItem) {
	b64, err := s.client.GenerateImage(ctx, llm.EssayImagePrompt(input.Study))
	if err != nil {
		s.log.Warn("essay image generation failed", "err", err)
		item.Content += "\n\n_(Image generation failed; the essay is complete without it.)_"
		return
	}
	if s.uploader == nil {
		item.ImageURL = "data:image/png;base64," + b64
		return
	}
	url, err := s.uploader.UploadImage(ctx, b64)
	if err != nil {
		s.log.Warn("essay image upload failed", "err", err)
		item.ImageURL = "data:image/png;base64," + b64
		return
	}
	item.ImageURL = url
}

func (s *GenerationService) newHistoryItem(input GenerateInput) models.HistoryItem {
	return models.HistoryItem{
		ID:        uuid.NewString(),
		Type:      input.Mode,
		Title:     titleFor(input),
		Subtitle:  fmt.Sprintf("%s · grade %s", input.Study.Subject, input.Study.Grade),
		Timestamp: s.now().UTC(),
		FormData:  input.Study,
	}
}

func textRequest(input GenerateInput) (llm.Request, error) {
	switch input.Mode {
	case models.ModeSummary:
		return llm.SummaryRequest(input.Study), nil
	case models.ModeEssay:
		return llm.EssayRequest(input.Study), nil
	case models.ModeNotes:
		return llm.NotesRequest(input.Study), nil
	default:
		return llm.Request{}, fmt.Errorf("unsupported text mode: %s", input.Mode)
	}
}

func titleFor(input GenerateInput) string {
	chapter := input.Study.Chapter
	if chapter == "" {
		chapter = input.Study.Subject
	}
	switch input.Mode {
	case models.ModeSummary:
		return "Summary: " + chapter
	case models.ModeEssay:
		return "Essay: " + chapter
	case models.ModeQuiz:
		return "Quiz: " + chapter
	case models.ModeNotes:
		return "Notes template: " + chapter
	case models.ModeSchedule:
		return "Study schedule: " + chapter
	default:
		return chapter
	}
}

func renderTimetable(entries []models.TimetableEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s | %s: %s\n", e.Day, e.Time, e.Subject, e.Activity)
	}
	return b.String()
}
