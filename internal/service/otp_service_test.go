package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate/backend/internal/auth"
	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/repository"
	"github.com/studymate/backend/internal/sms"
	"github.com/studymate/backend/pkg/logger"
)

var codePattern = regexp.MustCompile(`[0-9]{6}`)

func newOTPHarness(t *testing.T) (*OTPService, *sms.RecorderProvider, *auth.Manager) {
	t.Helper()
	cfg := config.Config{
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 5,
	}
	recorder := &sms.RecorderProvider{}
	tokens := auth.NewManager("test-secret", time.Hour)
	svc := NewOTPService(cfg, repository.NewMemoryOTPStore(), recorder, tokens, logger.New())
	return svc, recorder, tokens
}

// sentCode pulls the 6-digit code out of the recorded SMS text.
func sentCode(t *testing.T, recorder *sms.RecorderProvider) string {
	t.Helper()
	msg, ok := recorder.Last()
	require.True(t, ok, "no sms recorded")
	code := codePattern.FindString(msg.Message)
	require.Len(t, code, 6)
	return code
}

func TestOTPSendAndVerify(t *testing.T) {
	svc, recorder, tokens := newOTPHarness(t)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "+97150000001"))
	msg, ok := recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "+97150000001", msg.Phone)

	token, err := svc.Verify(ctx, "+97150000001", sentCode(t, recorder))
	require.NoError(t, err)

	subject, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "+97150000001", subject)
}

func TestOTPRejectsInvalidPhone(t *testing.T) {
	svc, _, _ := newOTPHarness(t)
	assert.Error(t, svc.Send(context.Background(), "not-a-phone"))
	assert.Error(t, svc.Send(context.Background(), "+1"))
}

func TestOTPCodeIsSingleUse(t *testing.T) {
	svc, recorder, _ := newOTPHarness(t)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "+97150000001"))
	code := sentCode(t, recorder)

	_, err := svc.Verify(ctx, "+97150000001", code)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "+97150000001", code)
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestOTPWrongCodeCountsAttempts(t *testing.T) {
	svc, recorder, _ := newOTPHarness(t)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "+97150000001"))
	code := sentCode(t, recorder)

	for i := 0; i < 4; i++ {
		_, err := svc.Verify(ctx, "+97150000001", "000000")
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}
	// Fifth wrong guess exhausts the allowance.
	_, err := svc.Verify(ctx, "+97150000001", "000000")
	assert.ErrorIs(t, err, ErrOTPMaxAttempts)

	// Even the right code is refused afterwards.
	_, err = svc.Verify(ctx, "+97150000001", code)
	assert.ErrorIs(t, err, ErrOTPMaxAttempts)
}

func TestOTPExpires(t *testing.T) {
	svc, recorder, _ := newOTPHarness(t)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "+97150000001"))
	code := sentCode(t, recorder)

	svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	_, err := svc.Verify(ctx, "+97150000001", code)
	assert.ErrorIs(t, err, ErrOTPExpired)

	// The expired code was consumed; a retry is just an unknown code.
	svc.now = time.Now
	_, err = svc.Verify(ctx, "+97150000001", code)
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestOTPResendResetsAttempts(t *testing.T) {
	svc, recorder, _ := newOTPHarness(t)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "+97150000001"))
	for i := 0; i < 3; i++ {
		_, err := svc.Verify(ctx, "+97150000001", "000000")
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}

	require.NoError(t, svc.Send(ctx, "+97150000001"))
	code := sentCode(t, recorder)
	_, err := svc.Verify(ctx, "+97150000001", code)
	require.NoError(t, err)
}

func TestOTPVerifyUnknownPhone(t *testing.T) {
	svc, _, _ := newOTPHarness(t)
	_, err := svc.Verify(context.Background(), "+97150000009", "123456")
	assert.ErrorIs(t, err, ErrOTPInvalid)
}
