package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/studymate/backend/internal/models"
)

// In-memory fallbacks used when the database is unreachable at startup.
// State is lost on restart, which is acceptable for OTPs (5-minute TTL) and
// a degraded mode for profiles. Sharing intentionally has no fallback.

type MemoryUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
}

var _ UserStore = (*MemoryUserStore)(nil)

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{nextID: 1, users: make(map[string]*models.User)}
}

func (m *MemoryUserStore) FindByIdentity(_ context.Context, identityID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[identityID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUserStore) Ensure(_ context.Context, identityID, name, email, photoURL string, plan models.PlanType, defaultCredits int) (*models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[identityID]; ok {
		applyProfile(u, name, email, photoURL)
		cp := *u
		return &cp, false, nil
	}
	now := time.Now().UTC()
	u := &models.User{
		ID:         m.nextID,
		IdentityID: identityID,
		Name:       name,
		Email:      email,
		PhotoURL:   photoURL,
		Plan:       plan,
		Credits:    defaultCredits,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.nextID++
	m.users[identityID] = u
	cp := *u
	return &cp, true, nil
}

func (m *MemoryUserStore) UpdateProfile(_ context.Context, identityID, name, email, photoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[identityID]; ok {
		applyProfile(u, name, email, photoURL)
	}
	return nil
}

// applyProfile refreshes the provided fields; empty values keep what is
// already stored.
func applyProfile(u *models.User, name, email, photoURL string) {
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if photoURL != "" {
		u.PhotoURL = photoURL
	}
	u.UpdatedAt = time.Now().UTC()
}

func (m *MemoryUserStore) SetPlan(_ context.Context, identityID string, plan models.PlanType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[identityID]; ok {
		u.Plan = plan
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MemoryUserStore) Balance(_ context.Context, identityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[identityID]
	if !ok {
		return 0, fmt.Errorf("user %s not found", identityID)
	}
	return u.Credits, nil
}

func (m *MemoryUserStore) DebitCredits(_ context.Context, identityID string, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[identityID]
	if !ok {
		return false, fmt.Errorf("user %s not found", identityID)
	}
	if u.Credits < amount {
		return false, nil
	}
	u.Credits -= amount
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryUserStore) AddCredits(_ context.Context, identityID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[identityID]
	if !ok {
		return fmt.Errorf("user %s not found", identityID)
	}
	u.Credits += amount
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ---

type MemoryPlanStore struct {
	mu     sync.Mutex
	nextID int64
	plans  map[models.PlanType]*models.Plan
}

var _ PlanStore = (*MemoryPlanStore)(nil)

func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{nextID: 1, plans: make(map[models.PlanType]*models.Plan)}
}

func (m *MemoryPlanStore) List(_ context.Context) ([]models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var plans []models.Plan
	for _, p := range m.plans {
		if p.IsActive {
			plans = append(plans, *p)
		}
	}
	return plans, nil
}

func (m *MemoryPlanStore) GetByName(_ context.Context, name models.PlanType) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[name]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryPlanStore) Create(_ context.Context, plan *models.Plan) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan.ID = m.nextID
	m.nextID++
	cp := *plan
	m.plans[plan.Name] = &cp
	return plan, nil
}

// ---

type MemoryOTPStore struct {
	mu    sync.Mutex
	codes map[string]*models.OTPCode
}

var _ OTPStore = (*MemoryOTPStore)(nil)

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{codes: make(map[string]*models.OTPCode)}
}

func (m *MemoryOTPStore) Upsert(_ context.Context, code *models.OTPCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *code
	cp.Attempts = 0
	cp.CreatedAt = time.Now().UTC()
	m.codes[code.Phone] = &cp
	return nil
}

func (m *MemoryOTPStore) Get(_ context.Context, phone string) (*models.OTPCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[phone]
	if !ok {
		return nil, nil
	}
	cp := *code
	return &cp, nil
}

func (m *MemoryOTPStore) IncrementAttempts(_ context.Context, phone string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[phone]
	if !ok {
		return 0, fmt.Errorf("otp for %s not found", phone)
	}
	code.Attempts++
	return code.Attempts, nil
}

func (m *MemoryOTPStore) Delete(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, phone)
	return nil
}
