package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/studymate/backend/internal/auth"
	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/repository"
	"github.com/studymate/backend/internal/sms"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

// OTPService issues and verifies one-time passwords. Codes are stored hashed
// with a short TTL; verification fails permanently after the attempt limit.
type OTPService struct {
	codes       repository.OTPStore
	sms         sms.Provider
	tokens      *auth.Manager
	ttl         time.Duration
	maxAttempts int
	log         *slog.Logger
	now         func() time.Time
}

func NewOTPService(cfg config.Config, codes repository.OTPStore, provider sms.Provider, tokens *auth.Manager, log *slog.Logger) *OTPService {
	return &OTPService{
		codes:       codes,
		sms:         provider,
		tokens:      tokens,
		ttl:         cfg.OTPTTL,
		maxAttempts: cfg.OTPMaxAttempts,
		log:         log,
		now:         time.Now,
	}
}

// Send generates a 6-digit code, stores its hash and relays it by SMS.
func (s *OTPService) Send(ctx context.Context, phone string) error {
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("invalid phone number")
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	code := &models.OTPCode{
		Phone:     phone,
		Hash:      string(hash),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.codes.Upsert(ctx, code); err != nil {
		return err
	}

	message := fmt.Sprintf("Your studymate verification code is %s. It expires in %d minutes.",
		otp, int(s.ttl.Minutes()))
	if err := s.sms.Send(ctx, phone, message); err != nil {
		return fmt.Errorf("relay otp: %w", err)
	}
	s.log.Info("otp sent", "phone", phone)
	return nil
}

// Verify checks a submitted code. Success consumes the code and returns a
// session token; expiry and attempt exhaustion are terminal for the code.
func (s *OTPService) Verify(ctx context.Context, phone, otp string) (string, error) {
	code, err := s.codes.Get(ctx, phone)
	if err != nil {
		return "", err
	}
	if code == nil {
		return "", ErrOTPInvalid
	}
	if s.now().After(code.ExpiresAt) {
		_ = s.codes.Delete(ctx, phone)
		return "", ErrOTPExpired
	}
	if code.Attempts >= s.maxAttempts {
		return "", ErrOTPMaxAttempts
	}

	if err := bcrypt.CompareHashAndPassword([]byte(code.Hash), []byte(otp)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", fmt.Errorf("compare otp: %w", err)
		}
		attempts, incErr := s.codes.IncrementAttempts(ctx, phone)
		if incErr != nil {
			return "", incErr
		}
		if attempts >= s.maxAttempts {
			return "", ErrOTPMaxAttempts
		}
		return "", ErrOTPInvalid
	}

	if err := s.codes.Delete(ctx, phone); err != nil {
		s.log.Error("delete consumed otp", "phone", phone, "err", err)
	}
	token, err := s.tokens.Mint(phone)
	if err != nil {
		return "", err
	}
	s.log.Info("otp verified", "phone", phone)
	return token, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
