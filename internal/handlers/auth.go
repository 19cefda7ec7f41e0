package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pixelfolio/apiserver/internal/auth"
	"github.com/pixelfolio/apiserver/internal/services"
	"github.com/pixelfolio/apiserver/types"
	"go.uber.org/zap"
)

// AuthHandler provides the identity endpoints.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	logger      *zap.SugaredLogger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, logger *zap.SugaredLogger) {
	handler := NewAuthHandler(authService, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password", handler.ResetPassword)
	r.Post("/verify-otp", handler.VerifyOTP)
	r.Post("/resend-otp", handler.ResendOTP)
}

// RequireAuth enforces bearer-token authentication and injects the user
// identifier into context. Missing and malformed tokens are not
// distinguished; both yield a generic 401.
func RequireAuth(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized access")
				return
			}

			userID, err := issuer.Verify(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized access")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,min=10"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTP     string `json:"otp" validate:"required,len=6,numeric"`
	Purpose string `json:"purpose" validate:"required,oneof=signup forgot-password"`
}

type ResendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=signup forgot-password"`
}

// MessageResponse is the bare acknowledgment payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse pairs a message with the user's public projection.
type UserResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

// AuthResponse pairs a session token with the user's public projection.
type AuthResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    types.User `json:"user"`
}

// Register creates a new account and issues a signup OTP.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.ContainsAny(req.Password, " \t") {
		writeError(w, http.StatusBadRequest, "Password cannot contain spaces")
		return
	}

	user, err := h.authService.Register(r.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone), req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{Message: msgRegisterSuccess, User: user})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, user, err := h.authService.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Message: msgLoginSuccess, Token: token, User: user})
}

// ForgotPassword issues a password-reset OTP.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msgOTPSent})
}

// ResetPassword consumes a reset OTP and replaces the password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.ContainsAny(req.NewPassword, " \t") {
		writeError(w, http.StatusBadRequest, "Password cannot contain spaces")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.OTP, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msgPasswordResetSuccess})
}

// VerifyOTP checks a code and, for signup, marks the account verified.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authService.VerifyOTP(r.Context(), strings.TrimSpace(req.Email), req.OTP, types.OTPPurpose(req.Purpose)); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msgOTPVerified})
}

// ResendOTP re-issues a code for the given purpose.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req ResendOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authService.ResendOTP(r.Context(), strings.TrimSpace(req.Email), types.OTPPurpose(req.Purpose)); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msgOTPResent})
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Errorw("auth request failed", "path", r.URL.Path, "error", err)
	writeServiceError(w, err)
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fieldErr := validationErrs[0]
		switch fieldErr.Tag() {
		case "email":
			return "Invalid email format"
		case "min":
			if fieldErr.Field() == "Password" || fieldErr.Field() == "NewPassword" {
				return "Password must be at least 6 characters"
			}
		case "eqfield":
			return "Passwords don't match"
		case "oneof":
			return "Invalid OTP purpose"
		case "len", "numeric":
			if fieldErr.Field() == "OTP" {
				return "OTP must be 6 digits"
			}
		}
		return "Invalid value for " + fieldErr.Field()
	}
	return "Invalid request"
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
