package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/studymate/backend/internal/models"
)

type OTPRepository struct {
	db *sql.DB
}

var _ OTPStore = (*OTPRepository)(nil)

func NewOTPRepository(db *sql.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Upsert replaces any previous code for the phone: re-requesting an OTP
// invalidates the old one and resets the attempt counter.
func (r *OTPRepository) Upsert(ctx context.Context, code *models.OTPCode) error {
	const query = `
INSERT INTO otp_codes (phone, hash, attempts, expires_at)
VALUES (?, ?, 0, ?)
ON DUPLICATE KEY UPDATE hash = VALUES(hash), attempts = 0, expires_at = VALUES(expires_at), created_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, code.Phone, code.Hash, code.ExpiresAt); err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (r *OTPRepository) Get(ctx context.Context, phone string) (*models.OTPCode, error) {
	const query = `SELECT phone, hash, attempts, expires_at, created_at FROM otp_codes WHERE phone = ?`
	row := r.db.QueryRowContext(ctx, query, phone)
	var code models.OTPCode
	if err := row.Scan(&code.Phone, &code.Hash, &code.Attempts, &code.ExpiresAt, &code.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan otp: %w", err)
	}
	return &code, nil
}

func (r *OTPRepository) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	const update = `UPDATE otp_codes SET attempts = attempts + 1 WHERE phone = ?`
	if _, err := r.db.ExecContext(ctx, update, phone); err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	const query = `SELECT attempts FROM otp_codes WHERE phone = ?`
	var attempts int
	if err := r.db.QueryRowContext(ctx, query, phone).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("read otp attempts: %w", err)
	}
	return attempts, nil
}

func (r *OTPRepository) Delete(ctx context.Context, phone string) error {
	const query = `DELETE FROM otp_codes WHERE phone = ?`
	if _, err := r.db.ExecContext(ctx, query, phone); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
