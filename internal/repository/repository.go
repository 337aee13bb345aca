package repository

import (
	"context"
	"time"

	"github.com/studymate/backend/internal/models"
)

// The repositories come in two flavours behind the same interfaces: MySQL
// when a database is reachable, and in-memory fallbacks when it is not. The
// backend is chosen once at startup; there is no migration between the two.

// UserStore persists profiles and their credit balances.
type UserStore interface {
	FindByIdentity(ctx context.Context, identityID string) (*models.User, error)
	Ensure(ctx context.Context, identityID, name, email, photoURL string, plan models.PlanType, defaultCredits int) (*models.User, bool, error)
	UpdateProfile(ctx context.Context, identityID, name, email, photoURL string) error
	SetPlan(ctx context.Context, identityID string, plan models.PlanType) error
	Balance(ctx context.Context, identityID string) (int, error)
	DebitCredits(ctx context.Context, identityID string, amount int) (bool, error)
	AddCredits(ctx context.Context, identityID string, amount int) error
}

// PlanStore persists the purchasable credit tiers.
type PlanStore interface {
	List(ctx context.Context) ([]models.Plan, error)
	GetByName(ctx context.Context, name models.PlanType) (*models.Plan, error)
	Create(ctx context.Context, plan *models.Plan) (*models.Plan, error)
}

// OTPStore persists hashed one-time passwords keyed by phone number.
type OTPStore interface {
	Upsert(ctx context.Context, code *models.OTPCode) error
	Get(ctx context.Context, phone string) (*models.OTPCode, error)
	IncrementAttempts(ctx context.Context, phone string) (int, error)
	Delete(ctx context.Context, phone string) error
}

// ShareStore persists ephemeral shared documents. It has no in-memory
// fallback: sharing is refused outright while the database is down.
type ShareStore interface {
	Insert(ctx context.Context, doc *models.SharedDoc) error
	GetActive(ctx context.Context, id string, now time.Time) (*models.SharedDoc, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
