package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/studymate/backend/internal/models"
)

type ShareRepository struct {
	db *sql.DB
}

var _ ShareStore = (*ShareRepository)(nil)

func NewShareRepository(db *sql.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Insert(ctx context.Context, doc *models.SharedDoc) error {
	const query = `
INSERT INTO shared_docs (id, doc_type, title, subtitle, content, expires_at)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, doc.ID, doc.Type, doc.Title, doc.Subtitle, doc.Content, doc.ExpiresAt); err != nil {
		return fmt.Errorf("insert shared doc: %w", err)
	}
	return nil
}

// GetActive returns nil,nil for absent and expired documents alike; an
// expired share is indistinguishable from one that never existed.
func (r *ShareRepository) GetActive(ctx context.Context, id string, now time.Time) (*models.SharedDoc, error) {
	const query = `
SELECT id, doc_type, title, COALESCE(subtitle, ''), content, created_at, expires_at
FROM shared_docs WHERE id = ? AND expires_at > ?`
	row := r.db.QueryRowContext(ctx, query, id, now)
	var doc models.SharedDoc
	if err := row.Scan(&doc.ID, &doc.Type, &doc.Title, &doc.Subtitle, &doc.Content, &doc.CreatedAt, &doc.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan shared doc: %w", err)
	}
	return &doc, nil
}

func (r *ShareRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM shared_docs WHERE expires_at <= ?`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired shares: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired shares rows affected: %w", err)
	}
	return affected, nil
}
