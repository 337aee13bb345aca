package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/studymate/backend/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

var _ UserStore = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByIdentity(ctx context.Context, identityID string) (*models.User, error) {
	const query = `
SELECT id, identity_id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(photo_url, ''), plan, credits, created_at, updated_at
FROM users WHERE identity_id = ?`
	row := r.db.QueryRowContext(ctx, query, identityID)
	var u models.User
	if err := row.Scan(&u.ID, &u.IdentityID, &u.Name, &u.Email, &u.PhotoURL, &u.Plan, &u.Credits, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) create(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (identity_id, name, email, photo_url, plan, credits)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?)`
	res, err := r.db.ExecContext(ctx, query, user.IdentityID, user.Name, user.Email, user.PhotoURL, user.Plan, user.Credits)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	return user, nil
}

// Ensure finds the profile for an identity or creates it with the default
// credit grant for its plan. First login is the only moment default credits
// are handed out.
func (r *UserRepository) Ensure(ctx context.Context, identityID, name, email, photoURL string, plan models.PlanType, defaultCredits int) (*models.User, bool, error) {
	user, err := r.FindByIdentity(ctx, identityID)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if name != "" || email != "" || photoURL != "" {
			if err := r.UpdateProfile(ctx, identityID, name, email, photoURL); err != nil {
				return nil, false, err
			}
			user, err = r.FindByIdentity(ctx, identityID)
			if err != nil {
				return nil, false, err
			}
		}
		return user, false, nil
	}
	newUser := &models.User{
		IdentityID: identityID,
		Name:       name,
		Email:      email,
		PhotoURL:   photoURL,
		Plan:       plan,
		Credits:    defaultCredits,
	}
	created, err := r.create(ctx, newUser)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// UpdateProfile refreshes the provided fields; empty values keep what is
// already stored.
func (r *UserRepository) UpdateProfile(ctx context.Context, identityID, name, email, photoURL string) error {
	const query = `
UPDATE users SET
    name = COALESCE(NULLIF(?, ''), name),
    email = COALESCE(NULLIF(?, ''), email),
    photo_url = COALESCE(NULLIF(?, ''), photo_url),
    updated_at = NOW()
WHERE identity_id = ?`
	if _, err := r.db.ExecContext(ctx, query, name, email, photoURL, identityID); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *UserRepository) SetPlan(ctx context.Context, identityID string, plan models.PlanType) error {
	const query = `UPDATE users SET plan = ?, updated_at = NOW() WHERE identity_id = ?`
	if _, err := r.db.ExecContext(ctx, query, plan, identityID); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

func (r *UserRepository) Balance(ctx context.Context, identityID string) (int, error) {
	const query = `SELECT credits FROM users WHERE identity_id = ?`
	row := r.db.QueryRowContext(ctx, query, identityID)
	var credits int
	if err := row.Scan(&credits); err != nil {
		return 0, fmt.Errorf("read credits: %w", err)
	}
	return credits, nil
}

// DebitCredits deducts conditionally: the WHERE clause guards the balance so
// a concurrent overdraw is impossible. ok=false means insufficient credits.
func (r *UserRepository) DebitCredits(ctx context.Context, identityID string, amount int) (bool, error) {
	const query = `
UPDATE users SET credits = credits - ?, updated_at = NOW()
WHERE identity_id = ? AND credits >= ?`
	res, err := r.db.ExecContext(ctx, query, amount, identityID, amount)
	if err != nil {
		return false, fmt.Errorf("debit credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *UserRepository) AddCredits(ctx context.Context, identityID string, amount int) error {
	const query = `UPDATE users SET credits = credits + ?, updated_at = NOW() WHERE identity_id = ?`
	if _, err := r.db.ExecContext(ctx, query, amount, identityID); err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	return nil
}
