package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pixelfolio/apiserver/internal/auth"
	"github.com/pixelfolio/apiserver/internal/services"
	"github.com/pixelfolio/apiserver/internal/store"
	"github.com/pixelfolio/apiserver/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memUserRepo and memOTPRepo back the handlers with in-memory state so the
// tests exercise the full decode/validate/service/respond path.
type memUserRepo struct {
	users  map[int]types.User
	nextID int
}

func (m *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) UpdateRegistration(_ context.Context, id int, phone, passwordHash string) error {
	user := m.users[id]
	user.Phone = phone
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

func (m *memUserRepo) SetVerified(_ context.Context, id int) error {
	user := m.users[id]
	user.Verified = true
	m.users[id] = user
	return nil
}

func (m *memUserRepo) SetPassword(_ context.Context, id int, passwordHash string) error {
	user := m.users[id]
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

type memOTPRepo struct {
	records map[string]types.OTP
	nextID  int
}

func (m *memOTPRepo) key(email string, purpose types.OTPPurpose) string {
	return email + "|" + string(purpose)
}

func (m *memOTPRepo) Upsert(_ context.Context, email, code string, purpose types.OTPPurpose) (types.OTP, error) {
	key := m.key(email, purpose)
	record, ok := m.records[key]
	if !ok {
		m.nextID++
		record = types.OTP{ID: m.nextID, Email: email, Purpose: purpose}
	}
	record.Code = code
	record.CreatedAt = time.Now()
	m.records[key] = record
	return record, nil
}

func (m *memOTPRepo) FindValid(_ context.Context, email, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error) {
	record, ok := m.records[m.key(email, purpose)]
	if !ok || record.Code != code || !record.CreatedAt.After(cutoff) {
		return types.OTP{}, store.ErrNotFound
	}
	return record, nil
}

func (m *memOTPRepo) FindValidByCode(_ context.Context, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error) {
	for _, record := range m.records {
		if record.Purpose == purpose && record.Code == code && record.CreatedAt.After(cutoff) {
			return record, nil
		}
	}
	return types.OTP{}, store.ErrNotFound
}

func (m *memOTPRepo) Delete(_ context.Context, id int) error {
	for key, record := range m.records {
		if record.ID == id {
			delete(m.records, key)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memOTPRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for key, record := range m.records {
		if !record.CreatedAt.After(cutoff) {
			delete(m.records, key)
			purged++
		}
	}
	return purged, nil
}

type captureNotifier struct {
	last string
}

func (n *captureNotifier) Dispatch(_, code string, _ types.OTPPurpose) {
	n.last = code
}

type authTestEnv struct {
	router   *chi.Mux
	notifier *captureNotifier
	issuer   *auth.TokenIssuer
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	logger := zap.NewNop().Sugar()
	notifier := &captureNotifier{}
	otpService := services.NewOTPService(&memOTPRepo{records: make(map[string]types.OTP)}, notifier, time.Minute, logger)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	authService := services.NewAuthService(&memUserRepo{users: make(map[int]types.User)}, otpService, issuer, auth.NewPasswordHasher())

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authService, logger)
	})
	return &authTestEnv{router: router, notifier: notifier, issuer: issuer}
}

func (e *authTestEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *authTestEnv) register(t *testing.T, email string) {
	t.Helper()
	rec := e.post(t, "/auth/register", map[string]string{
		"email":           email,
		"phone":           "0123456789",
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (e *authTestEnv) verify(t *testing.T, email string) {
	t.Helper()
	rec := e.post(t, "/auth/verify-otp", map[string]string{
		"email":   email,
		"otp":     e.notifier.last,
		"purpose": "signup",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestAuthEndpoints_RegisterValidation(t *testing.T) {
	env := newAuthTestEnv(t)

	cases := []struct {
		name string
		body map[string]string
		want string
	}{
		{
			name: "bad email",
			body: map[string]string{"email": "nope", "phone": "0123456789", "password": "hunter22", "confirmPassword": "hunter22"},
			want: "Invalid email format",
		},
		{
			name: "short password",
			body: map[string]string{"email": "a@example.com", "phone": "0123456789", "password": "abc", "confirmPassword": "abc"},
			want: "Password must be at least 6 characters",
		},
		{
			name: "mismatched confirmation",
			body: map[string]string{"email": "a@example.com", "phone": "0123456789", "password": "hunter22", "confirmPassword": "hunter23"},
			want: "Passwords don't match",
		},
		{
			name: "password with spaces",
			body: map[string]string{"email": "a@example.com", "phone": "0123456789", "password": "hunter 22", "confirmPassword": "hunter 22"},
			want: "Password cannot contain spaces",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.post(t, "/auth/register", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			require.Equal(t, tc.want, resp.Error)
		})
	}
}

func TestAuthEndpoints_RegisterVerifyLogin(t *testing.T) {
	env := newAuthTestEnv(t)

	env.register(t, "a@example.com")
	require.Len(t, env.notifier.last, 6)

	// Login before verification is rejected with 403.
	rec := env.post(t, "/auth/login", map[string]string{"email": "a@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	env.verify(t, "a@example.com")

	rec = env.post(t, "/auth/login", map[string]string{"email": "a@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "Login successful", resp.Message)

	userID, err := env.issuer.Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, userID)
}

func TestAuthEndpoints_DuplicateRegister(t *testing.T) {
	env := newAuthTestEnv(t)

	env.register(t, "a@example.com")
	env.verify(t, "a@example.com")

	rec := env.post(t, "/auth/register", map[string]string{
		"email":           "a@example.com",
		"phone":           "0123456789",
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "User already exists", resp.Error)
}

func TestAuthEndpoints_BadCredentials(t *testing.T) {
	env := newAuthTestEnv(t)

	env.register(t, "a@example.com")
	env.verify(t, "a@example.com")

	rec := env.post(t, "/auth/login", map[string]string{"email": "a@example.com", "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.post(t, "/auth/login", map[string]string{"email": "nobody@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthEndpoints_ForgotAndResetPassword(t *testing.T) {
	env := newAuthTestEnv(t)

	env.register(t, "a@example.com")
	env.verify(t, "a@example.com")

	rec := env.post(t, "/auth/forgot-password", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.post(t, "/auth/forgot-password", map[string]string{"email": "a@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	code := env.notifier.last

	rec = env.post(t, "/auth/reset-password", map[string]string{"otp": code, "newPassword": "new-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.post(t, "/auth/login", map[string]string{"email": "a@example.com", "password": "new-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The consumed code is rejected on reuse.
	rec = env.post(t, "/auth/reset-password", map[string]string{"otp": code, "newPassword": "another-password"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthEndpoints_InvalidPurpose(t *testing.T) {
	env := newAuthTestEnv(t)

	rec := env.post(t, "/auth/resend-otp", map[string]string{"email": "a@example.com", "purpose": "password-hint"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, "Invalid OTP purpose", resp.Error)
}

func TestRequireAuth(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	router := chi.NewRouter()
	router.With(RequireAuth(issuer)).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		require.NoError(t, err)
		writeJSON(w, http.StatusOK, map[string]int{"id": userID})
	})

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer " + token, want: http.StatusOK},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}
