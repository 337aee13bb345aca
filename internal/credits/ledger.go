package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrInsufficientCredits is returned when a debit would overdraw a balance.
// It is a guard outcome, never a panic path: nothing is mutated.
var ErrInsufficientCredits = errors.New("insufficient credits")

// BalanceStore is the minimal persistence surface the ledger mutates.
// DebitCredits must be conditional at the store (compare-and-deduct) so the
// non-negative invariant holds even under concurrent requests.
type BalanceStore interface {
	Balance(ctx context.Context, identityID string) (int, error)
	DebitCredits(ctx context.Context, identityID string, amount int) (bool, error)
	AddCredits(ctx context.Context, identityID string, amount int) error
}

// Ledger is the single mutation entry point for user credit balances.
type Ledger struct {
	store BalanceStore
	log   *slog.Logger
}

func NewLedger(store BalanceStore, log *slog.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Balance reads the current balance for an identity.
func (l *Ledger) Balance(ctx context.Context, identityID string) (int, error) {
	balance, err := l.store.Balance(ctx, identityID)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// Debit removes amount from the identity's balance, failing with
// ErrInsufficientCredits when the balance cannot cover it. A zero amount
// is a no-op so challenge-mode quizzes never touch the store.
func (l *Ledger) Debit(ctx context.Context, identityID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}
	if amount == 0 {
		return nil
	}
	ok, err := l.store.DebitCredits(ctx, identityID, amount)
	if err != nil {
		return fmt.Errorf("debit credits: %w", err)
	}
	if !ok {
		return ErrInsufficientCredits
	}
	l.log.Info("credits debited", "identity", identityID, "amount", amount)
	return nil
}

// Credit adds amount to the identity's balance. Used for plan top-ups and
// challenge-completion bonuses.
func (l *Ledger) Credit(ctx context.Context, identityID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	if amount == 0 {
		return nil
	}
	if err := l.store.AddCredits(ctx, identityID, amount); err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	l.log.Info("credits granted", "identity", identityID, "amount", amount)
	return nil
}
