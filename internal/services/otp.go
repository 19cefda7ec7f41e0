package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/pixelfolio/apiserver/internal/apierr"
	"github.com/pixelfolio/apiserver/internal/store"
	"github.com/pixelfolio/apiserver/types"
	"go.uber.org/zap"
)

// OTPRepository defines persistence operations for one-time passcodes.
type OTPRepository interface {
	Upsert(ctx context.Context, email, code string, purpose types.OTPPurpose) (types.OTP, error)
	FindValid(ctx context.Context, email, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error)
	FindValidByCode(ctx context.Context, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error)
	Delete(ctx context.Context, id int) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier queues delivery of an issued passcode. Implementations must not
// block and must swallow delivery failures.
type Notifier interface {
	Dispatch(email, code string, purpose types.OTPPurpose)
}

// purposePolicy captures how a purpose consumes its record.
// Adding a purpose means adding a variant here.
type purposePolicy struct {
	// consumeOnVerify deletes the record on successful Verify. Purposes
	// that leave it false retain the record until Validate consumes it.
	consumeOnVerify bool
}

var purposePolicies = map[types.OTPPurpose]purposePolicy{
	types.PurposeSignup:         {consumeOnVerify: true},
	types.PurposeForgotPassword: {consumeOnVerify: false},
}

// OTPService generates, persists, delivers, and validates one-time
// passcodes scoped by (email, purpose).
type OTPService struct {
	repo     OTPRepository
	notifier Notifier
	ttl      time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewOTPService(repo OTPRepository, notifier Notifier, ttl time.Duration, logger *zap.SugaredLogger) *OTPService {
	return &OTPService{
		repo:     repo,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Send issues a fresh code for the (email, purpose) pair, overwriting any
// prior code, and queues notification. The code is considered issued once
// persisted regardless of delivery outcome.
func (s *OTPService) Send(ctx context.Context, email string, purpose types.OTPPurpose) error {
	if _, ok := purposePolicies[purpose]; !ok {
		return fmt.Errorf("unknown otp purpose %q", purpose)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	if _, err := s.repo.Upsert(ctx, email, code, purpose); err != nil {
		return err
	}

	s.logger.Infow("otp issued", "email", email, "purpose", purpose)
	s.notifier.Dispatch(email, code, purpose)
	return nil
}

// Resend re-issues a fresh code, invalidating the previous one. There is
// no throttling; repeated resends are always accepted.
func (s *OTPService) Resend(ctx context.Context, email string, purpose types.OTPPurpose) error {
	return s.Send(ctx, email, purpose)
}

// Verify checks a code against the (email, purpose) pair within the
// validity window. Whether the record survives depends on the purpose's
// policy: signup codes are single use, forgot-password codes stay until
// Validate consumes them.
func (s *OTPService) Verify(ctx context.Context, email, code string, purpose types.OTPPurpose) error {
	otp, err := s.repo.FindValid(ctx, email, code, purpose, s.now().Add(-s.ttl))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.ErrInvalidOTP
		}
		return err
	}

	if purposePolicies[purpose].consumeOnVerify {
		if err := s.repo.Delete(ctx, otp.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Validate checks a code by (code, purpose) alone, consumes the record,
// and returns the owning email. It serves the password-reset step, where
// the caller knows only the code.
func (s *OTPService) Validate(ctx context.Context, code string, purpose types.OTPPurpose) (string, error) {
	otp, err := s.repo.FindValidByCode(ctx, code, purpose, s.now().Add(-s.ttl))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apierr.ErrInvalidOTP
		}
		return "", err
	}

	if err := s.repo.Delete(ctx, otp.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	return otp.Email, nil
}

// PurgeExpired sweeps records past the validity window. The lookup cutoff
// makes this a backstop rather than a correctness requirement.
func (s *OTPService) PurgeExpired(ctx context.Context) error {
	purged, err := s.repo.DeleteExpired(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Debugw("purged expired otps", "count", purged)
	}
	return nil
}

// generateCode draws a 6-digit code uniformly from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
