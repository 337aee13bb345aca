package credits

import (
	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/models"
)

// CostParams carries the request attributes that influence pricing.
type CostParams struct {
	QuestionCount int
	Difficulty    models.QuizDifficulty
	IncludeImages bool
}

// Policy prices generation requests and defines the challenge-mode rules.
// All thresholds come from configuration, not literals.
type Policy struct {
	SummaryCost           int
	EssayCost             int
	EssayImageSurcharge   int
	QuizBaseCost          int
	QuizLongSurcharge     int
	QuizLongThreshold     int
	QuizHardSurcharge     int
	ChallengeMinQuestions int
	ChallengeBonus        int
	ChallengeBonusPercent int
}

// NewPolicy builds the pricing policy from runtime configuration.
func NewPolicy(cfg config.Config) Policy {
	return Policy{
		SummaryCost:           cfg.SummaryCost,
		EssayCost:             cfg.EssayCost,
		EssayImageSurcharge:   cfg.EssayImageSurcharge,
		QuizBaseCost:          cfg.QuizBaseCost,
		QuizLongSurcharge:     cfg.QuizLongSurcharge,
		QuizLongThreshold:     cfg.QuizLongThreshold,
		QuizHardSurcharge:     cfg.QuizHardSurcharge,
		ChallengeMinQuestions: cfg.ChallengeMinQuestions,
		ChallengeBonus:        cfg.ChallengeBonus,
		ChallengeBonusPercent: cfg.ChallengeBonusPercent,
	}
}

// Cost returns the non-negative credit price of a generation request.
// It is pure and deterministic. Chat, notes and schedule generations are
// free; summaries, essays and quizzes are priced from the table, except
// that a challenge-mode quiz waives its entry fee entirely.
func (p Policy) Cost(mode models.GenerationMode, params CostParams) int {
	switch mode {
	case models.ModeSummary:
		return p.SummaryCost
	case models.ModeEssay:
		cost := p.EssayCost
		if params.IncludeImages {
			cost += p.EssayImageSurcharge
		}
		return cost
	case models.ModeQuiz:
		if p.IsChallenge(params.QuestionCount, params.Difficulty) {
			return 0
		}
		cost := p.QuizBaseCost
		if params.QuestionCount > p.QuizLongThreshold {
			cost += p.QuizLongSurcharge
		}
		if params.Difficulty == models.DifficultyHard {
			cost += p.QuizHardSurcharge
		}
		return cost
	default:
		return 0
	}
}

// IsChallenge reports whether a quiz configuration qualifies as challenge
// mode: at least ChallengeMinQuestions questions at hard difficulty.
func (p Policy) IsChallenge(questionCount int, difficulty models.QuizDifficulty) bool {
	return questionCount >= p.ChallengeMinQuestions && difficulty == models.DifficultyHard
}

// ChallengeReward returns the bonus credited after a completed challenge
// quiz, or 0 when the configuration or score does not qualify. The score
// must strictly exceed ChallengeBonusPercent of the question count.
func (p Policy) ChallengeReward(questionCount int, difficulty models.QuizDifficulty, score int) int {
	if !p.IsChallenge(questionCount, difficulty) {
		return 0
	}
	if questionCount <= 0 {
		return 0
	}
	if score*100 > p.ChallengeBonusPercent*questionCount {
		return p.ChallengeBonus
	}
	return 0
}

// TryDebit attempts to take amount from balance. When the balance is too
// low it reports ok=false and returns the balance unchanged; it never
// produces a negative balance.
func TryDebit(balance, amount int) (int, bool) {
	if amount < 0 || amount > balance {
		return balance, false
	}
	return balance - amount, true
}

// Credit adds amount to balance. Top-ups and challenge bonuses always succeed.
func Credit(balance, amount int) int {
	if amount < 0 {
		return balance
	}
	return balance + amount
}
