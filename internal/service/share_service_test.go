package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/pkg/logger"
)

type mockShareStore struct {
	mu   sync.Mutex
	docs map[string]*models.SharedDoc
}

func newMockShareStore() *mockShareStore {
	return &mockShareStore{docs: make(map[string]*models.SharedDoc)}
}

func (m *mockShareStore) Insert(_ context.Context, doc *models.SharedDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *mockShareStore) GetActive(_ context.Context, id string, now time.Time) (*models.SharedDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok || !doc.ExpiresAt.After(now) {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (m *mockShareStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, doc := range m.docs {
		if !doc.ExpiresAt.After(now) {
			delete(m.docs, id)
			deleted++
		}
	}
	return deleted, nil
}

func newShareHarness(store *mockShareStore) *ShareService {
	cfg := config.Config{ShareTTL: 30 * 24 * time.Hour}
	var svc *ShareService
	if store == nil {
		svc = NewShareService(cfg, nil, logger.New())
	} else {
		svc = NewShareService(cfg, store, logger.New())
	}
	return svc
}

func TestShareCreateAndGet(t *testing.T) {
	store := newMockShareStore()
	svc := newShareHarness(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, ShareInput{
		Type:    "summary",
		Title:   "Summary: Waves",
		Content: "Waves carry energy.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Summary: Waves", doc.Title)
	assert.Equal(t, "Waves carry energy.", doc.Content)
	assert.WithinDuration(t, doc.CreatedAt.Add(30*24*time.Hour), doc.ExpiresAt, time.Second)
}

func TestShareExpiresAfterTTL(t *testing.T) {
	store := newMockShareStore()
	svc := newShareHarness(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, ShareInput{Type: "essay", Title: "t", Content: "c"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareUnknownID(t *testing.T) {
	svc := newShareHarness(newMockShareStore())
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareRequiresTitleAndContent(t *testing.T) {
	svc := newShareHarness(newMockShareStore())
	_, err := svc.Create(context.Background(), ShareInput{Type: "summary", Title: " ", Content: "c"})
	assert.Error(t, err)
	_, err = svc.Create(context.Background(), ShareInput{Type: "summary", Title: "t", Content: ""})
	assert.Error(t, err)
}

func TestShareUnavailableWithoutStore(t *testing.T) {
	svc := newShareHarness(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, ShareInput{Type: "summary", Title: "t", Content: "c"})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.Get(ctx, "any")
	assert.ErrorIs(t, err, ErrUnavailable)
}
