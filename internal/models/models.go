package models

import "time"

// GenerationMode identifies one kind of AI generation the product sells.
type GenerationMode string

const (
	ModeSummary  GenerationMode = "summary"
	ModeEssay    GenerationMode = "essay"
	ModeQuiz     GenerationMode = "quiz"
	ModeChat     GenerationMode = "chat"
	ModeNotes    GenerationMode = "notes"
	ModeSchedule GenerationMode = "schedule"
)

// QuizDifficulty is the requested difficulty of a generated quiz.
type QuizDifficulty string

const (
	DifficultyEasy   QuizDifficulty = "easy"
	DifficultyMedium QuizDifficulty = "medium"
	DifficultyHard   QuizDifficulty = "hard"
)

// PlanType is the subscription tier a user is on.
type PlanType string

const (
	PlanFree     PlanType = "Free"
	PlanStarter  PlanType = "Starter"
	PlanScholar  PlanType = "Scholar"
	PlanAchiever PlanType = "Achiever"
)

// User is a profile keyed by the external identity provider's opaque id.
// Credits never go negative; debits are conditional at the store.
type User struct {
	ID         int64
	IdentityID string
	Name       string
	Email      string
	PhotoURL   string
	Plan       PlanType
	Credits    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Plan is a purchasable credit tier.
type Plan struct {
	ID              int64
	Name            PlanType
	Description     string
	Currency        string
	PriceMinorUnits int
	Credits         int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StudyRequest is the subject/grade/chapter metadata every generation starts from.
type StudyRequest struct {
	Subject string `json:"subject"`
	Grade   string `json:"grade"`
	Chapter string `json:"chapter"`
	Extra   string `json:"extra,omitempty"`
}

// HistoryItem is an immutable record of one completed generation, replayable
// without re-invoking the AI. Score is attached later for quiz items.
type HistoryItem struct {
	ID        string         `json:"id"`
	Type      GenerationMode `json:"type"`
	Title     string         `json:"title"`
	Subtitle  string         `json:"subtitle"`
	Timestamp time.Time      `json:"timestamp"`
	Content   string         `json:"content"`
	FormData  StudyRequest   `json:"formData"`
	Score     *int           `json:"score,omitempty"`

	// Quiz items carry their questions so a replay never re-generates.
	Questions  []QuizQuestion `json:"questions,omitempty"`
	Difficulty QuizDifficulty `json:"difficulty,omitempty"`
	// BonusGranted marks that the challenge reward was already paid out.
	BonusGranted bool `json:"bonusGranted,omitempty"`
	// ImageURL is set when an essay illustration was uploaded.
	ImageURL string `json:"imageUrl,omitempty"`
}

// QuizQuestion is the structured shape the generation client must return.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty"`
}

// TimetableEntry is one slot of a generated study schedule.
type TimetableEntry struct {
	Day      string `json:"day"`
	Time     string `json:"time"`
	Subject  string `json:"subject"`
	Activity string `json:"activity"`
}

// Reminder fires a notification once when its due time is crossed.
type Reminder struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	DueTime   time.Time `json:"dueTime"`
	Completed bool      `json:"completed"`
	Priority  string    `json:"priority"`
}

// Note is a free-form study note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Settings holds per-user cosmetic preferences.
type Settings struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
}

// TimerState persists the study timer across sessions.
type TimerState struct {
	Running     bool      `json:"running"`
	StartedAt   time.Time `json:"startedAt"`
	ElapsedSecs int       `json:"elapsedSecs"`
}

// SharedDoc is an ephemeral shared generation, readable until ExpiresAt.
type SharedDoc struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPCode stores a hashed one-time password with its attempt counter.
type OTPCode struct {
	Phone     string
	Hash      string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}
