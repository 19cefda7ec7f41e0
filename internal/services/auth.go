package services

import (
	"context"
	"errors"

	"github.com/pixelfolio/apiserver/internal/apierr"
	"github.com/pixelfolio/apiserver/internal/auth"
	"github.com/pixelfolio/apiserver/internal/store"
	"github.com/pixelfolio/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateRegistration(ctx context.Context, id int, phone, passwordHash string) error
	SetVerified(ctx context.Context, id int) error
	SetPassword(ctx context.Context, id int, passwordHash string) error
}

// AuthService orchestrates registration, login, password reset, and
// OTP-triggered state changes.
type AuthService struct {
	users     UserRepository
	otp       *OTPService
	tokens    *auth.TokenIssuer
	passwords *auth.PasswordHasher
}

func NewAuthService(users UserRepository, otp *OTPService, tokens *auth.TokenIssuer, passwords *auth.PasswordHasher) *AuthService {
	return &AuthService{
		users:     users,
		otp:       otp,
		tokens:    tokens,
		passwords: passwords,
	}
}

// Register creates an unverified account and issues a signup OTP. An
// existing unverified account resumes registration: its phone and password
// are overwritten and a fresh OTP is sent. A verified account fails.
func (s *AuthService) Register(ctx context.Context, email, phone, password string) (types.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	found := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}
	if found && existing.Verified {
		return types.User{}, apierr.ErrUserExists
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	if found {
		if err := s.users.UpdateRegistration(ctx, existing.ID, phone, hashed); err != nil {
			return types.User{}, err
		}
		user = existing
		user.Phone = phone
		user.PasswordHash = hashed
	} else {
		user, err = s.users.Create(ctx, types.User{
			Email:        email,
			Phone:        phone,
			PasswordHash: hashed,
			Verified:     false,
		})
		if err != nil {
			return types.User{}, err
		}
	}

	if err := s.otp.Send(ctx, email, types.PurposeSignup); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Verification
// status is checked before the password, so an unverified account is
// reported as such regardless of password correctness.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, types.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", types.User{}, apierr.ErrInvalidCredentials
		}
		return "", types.User{}, err
	}

	if !user.Verified {
		return "", types.User{}, apierr.ErrEmailNotVerified
	}

	if !s.passwords.Compare(password, user.PasswordHash) {
		return "", types.User{}, apierr.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", types.User{}, err
	}
	return token, user, nil
}

// ForgotPassword issues a password-reset OTP to an existing account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.ErrUserNotFound
		}
		return err
	}
	return s.otp.Send(ctx, email, types.PurposeForgotPassword)
}

// ResetPassword consumes a forgot-password OTP, resolves the owning
// account from it, and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, code, newPassword string) error {
	email, err := s.otp.Validate(ctx, code, types.PurposeForgotPassword)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.ErrUserNotFound
		}
		return err
	}

	hashed, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, user.ID, hashed)
}

// VerifyOTP checks a code for the given purpose. A successful signup
// verification additionally marks the account verified. Forgot-password
// verification is a non-consuming pre-check; the record stays usable by
// the subsequent ResetPassword call.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string, purpose types.OTPPurpose) error {
	if err := s.otp.Verify(ctx, email, code, purpose); err != nil {
		return err
	}

	if purpose == types.PurposeSignup {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apierr.ErrUserNotFound
			}
			return err
		}
		return s.users.SetVerified(ctx, user.ID)
	}
	return nil
}

// ResendOTP re-issues a code for the given purpose.
func (s *AuthService) ResendOTP(ctx context.Context, email string, purpose types.OTPPurpose) error {
	return s.otp.Resend(ctx, email, purpose)
}
