package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studymate/backend/internal/credits"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/store"
)

// QuizState is the phase of an attempt.
type QuizState int

const (
	QuizInProgress QuizState = iota
	QuizAnswerRevealed
	QuizCompleted
)

var (
	ErrAnswerAlreadyRevealed = errors.New("answer already revealed for this question")
	ErrNoAnswerSelected      = errors.New("select an answer before advancing")
	ErrQuizFinished          = errors.New("quiz already completed")
)

// QuizSession walks an attempt through
// InProgress -> AnswerRevealed -> InProgress(next) | Completed.
// Each question is scored exactly once, on the transition to AnswerRevealed.
type QuizSession struct {
	questions []models.QuizQuestion
	index     int
	score     int
	selected  int
	state     QuizState
}

func NewQuizSession(questions []models.QuizQuestion) (*QuizSession, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("quiz needs at least one question")
	}
	return &QuizSession{questions: questions, selected: -1}, nil
}

// ReplaySession rebuilds a finished attempt from a stored history item. The
// stored score is trusted; answers are never re-evaluated.
func ReplaySession(item models.HistoryItem) (*QuizSession, error) {
	if item.Type != models.ModeQuiz {
		return nil, fmt.Errorf("history item %s is not a quiz", item.ID)
	}
	if item.Score == nil {
		return NewQuizSession(item.Questions)
	}
	return &QuizSession{
		questions: item.Questions,
		index:     len(item.Questions) - 1,
		score:     *item.Score,
		selected:  -1,
		state:     QuizCompleted,
	}, nil
}

// Select reveals the answer for the current question and scores it. Further
// selections for the same question are rejected so a reveal can never
// double-count.
func (s *QuizSession) Select(answer int) error {
	switch s.state {
	case QuizCompleted:
		return ErrQuizFinished
	case QuizAnswerRevealed:
		return ErrAnswerAlreadyRevealed
	}
	q := s.questions[s.index]
	if answer < 0 || answer >= len(q.Options) {
		return fmt.Errorf("answer index %d out of range", answer)
	}
	s.selected = answer
	if answer == q.CorrectIndex {
		s.score++
	}
	s.state = QuizAnswerRevealed
	return nil
}

// Advance moves past a revealed answer, finishing the quiz on the last
// question.
func (s *QuizSession) Advance() error {
	switch s.state {
	case QuizCompleted:
		return ErrQuizFinished
	case QuizInProgress:
		return ErrNoAnswerSelected
	}
	if s.index == len(s.questions)-1 {
		s.state = QuizCompleted
		return nil
	}
	s.index++
	s.selected = -1
	s.state = QuizInProgress
	return nil
}

func (s *QuizSession) State() QuizState { return s.state }
func (s *QuizSession) Index() int      { return s.index }
func (s *QuizSession) Score() int      { return s.score }

// Current returns the question under review.
func (s *QuizSession) Current() models.QuizQuestion {
	return s.questions[s.index]
}

// ---

// QuizCompletion reports the outcome of recording a finished attempt.
type QuizCompletion struct {
	Item    models.HistoryItem
	Bonus   int
	Balance int
}

// QuizService records completed attempts on their history items and pays the
// challenge bonus.
type QuizService struct {
	policy credits.Policy
	ledger *credits.Ledger
	store  *store.Store
	log    *slog.Logger
}

func NewQuizService(policy credits.Policy, ledger *credits.Ledger, st *store.Store, log *slog.Logger) *QuizService {
	return &QuizService{policy: policy, ledger: ledger, store: st, log: log}
}

// Complete attaches the score to the quiz's history item and credits the
// challenge bonus when earned. The bonus is paid at most once per item: a
// replayed or re-submitted attempt keeps the stored score and pays nothing.
func (s *QuizService) Complete(ctx context.Context, identity, historyID string, score int) (*QuizCompletion, error) {
	var history []models.HistoryItem
	if err := s.store.Load(store.CollectionHistory, identity, &history); err != nil {
		return nil, err
	}

	idx := -1
	for i := range history {
		if history[i].ID == historyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: history item %s", ErrNotFound, historyID)
	}
	item := &history[idx]
	if item.Type != models.ModeQuiz {
		return nil, fmt.Errorf("history item %s is not a quiz", historyID)
	}

	questionCount := len(item.Questions)
	if score < 0 || score > questionCount {
		return nil, fmt.Errorf("score %d out of range for %d questions", score, questionCount)
	}

	// Replays keep the original score and never re-trigger the bonus.
	if item.Score != nil {
		balance, err := s.ledger.Balance(ctx, identity)
		if err != nil {
			return nil, err
		}
		return &QuizCompletion{Item: *item, Bonus: 0, Balance: balance}, nil
	}

	item.Score = &score

	bonus := 0
	if !item.BonusGranted {
		bonus = s.policy.ChallengeReward(questionCount, item.Difficulty, score)
	}
	if bonus > 0 {
		item.BonusGranted = true
	}

	// The grant is recorded before it is paid: a failed save pays nothing and
	// a retry starts clean, while a failed credit after the save under-pays,
	// which the at-most-once rule allows.
	if err := s.store.Save(store.CollectionHistory, identity, history); err != nil {
		return nil, err
	}
	if bonus > 0 {
		if err := s.ledger.Credit(ctx, identity, bonus); err != nil {
			s.log.Error("challenge bonus credit failed after save",
				"identity", identity, "item", historyID, "bonus", bonus, "err", err)
			return nil, err
		}
		s.log.Info("challenge bonus credited", "identity", identity, "item", historyID, "bonus", bonus)
	}

	balance, err := s.ledger.Balance(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &QuizCompletion{Item: *item, Bonus: bonus, Balance: balance}, nil
}
