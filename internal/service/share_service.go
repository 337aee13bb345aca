package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/repository"
)

// ShareService publishes generations under short-lived public ids. It is the
// one feature that strictly needs the database: without it, shares are
// refused rather than silently kept in memory and lost.
type ShareService struct {
	shares repository.ShareStore
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time
}

type ShareInput struct {
	Type     string
	Title    string
	Subtitle string
	Content  string
}

func NewShareService(cfg config.Config, shares repository.ShareStore, log *slog.Logger) *ShareService {
	return &ShareService{shares: shares, ttl: cfg.ShareTTL, log: log, now: time.Now}
}

// Create persists a shared document and returns its id.
func (s *ShareService) Create(ctx context.Context, input ShareInput) (string, error) {
	if s.shares == nil {
		return "", ErrUnavailable
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return "", fmt.Errorf("title and content are required")
	}

	now := s.now().UTC()
	doc := &models.SharedDoc{
		ID:        uuid.NewString(),
		Type:      input.Type,
		Title:     input.Title,
		Subtitle:  input.Subtitle,
		Content:   input.Content,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.shares.Insert(ctx, doc); err != nil {
		return "", err
	}
	s.log.Info("share created", "id", doc.ID, "type", doc.Type, "expires_at", doc.ExpiresAt)
	return doc.ID, nil
}

// Get returns an unexpired shared document or ErrNotFound.
func (s *ShareService) Get(ctx context.Context, id string) (*models.SharedDoc, error) {
	if s.shares == nil {
		return nil, ErrUnavailable
	}
	doc, err := s.shares.GetActive(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// RunSweeper deletes expired documents periodically until ctx is cancelled.
func (s *ShareService) RunSweeper(ctx context.Context, interval time.Duration) {
	if s.shares == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.shares.DeleteExpired(ctx, s.now().UTC())
			if err != nil {
				s.log.Error("share sweep failed", "err", err)
				continue
			}
			if deleted > 0 {
				s.log.Info("expired shares removed", "count", deleted)
			}
		}
	}
}
