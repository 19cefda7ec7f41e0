package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pixelfolio/apiserver/internal/apierr"
)

// Response messages surfaced to the client.
const (
	msgLoginSuccess         = "Login successful"
	msgRegisterSuccess      = "Registration successful"
	msgOTPSent              = "OTP sent successfully"
	msgOTPVerified          = "OTP verified successfully"
	msgOTPResent            = "OTP resent successfully"
	msgPasswordResetSuccess = "Password reset successful"
	msgUploadSuccess        = "Images uploaded successfully"
	msgUpdateSuccess        = "Item updated successfully"
	msgDeleteSuccess        = "Item deleted successfully"
	msgOrderSaved           = "Order saved successfully"
	msgInternalError        = "Internal server error"
)

type contextKey string

const contextUserIDKey contextKey = "userID"

func userIDFromContext(ctx context.Context) (int, error) {
	userID, ok := ctx.Value(contextUserIDKey).(int)
	if !ok || userID < 1 {
		return 0, errors.New("missing user id")
	}
	return userID, nil
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps typed API errors to their status and message;
// everything else collapses to a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, msgInternalError)
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
