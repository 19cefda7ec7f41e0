package apierr

import "net/http"

// Error is a client-facing failure carrying the HTTP status it maps to.
// The message is surfaced verbatim in the response body.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New constructs an Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

var (
	// ErrUserExists is returned when registering an already-verified email.
	ErrUserExists = New(http.StatusConflict, "User already exists")

	// ErrInvalidCredentials is returned for a login with a wrong email or password.
	ErrInvalidCredentials = New(http.StatusUnauthorized, "Invalid email or password")

	// ErrEmailNotVerified is returned for a login before signup OTP completion.
	ErrEmailNotVerified = New(http.StatusForbidden, "Please verify your email first")

	// ErrUserNotFound is returned when a flow references an absent account.
	ErrUserNotFound = New(http.StatusNotFound, "User not found")

	// ErrInvalidOTP is returned when no matching, unexpired OTP record exists.
	ErrInvalidOTP = New(http.StatusBadRequest, "Invalid or expired OTP")

	// ErrInvalidToken is returned for a missing, malformed, or expired session token.
	ErrInvalidToken = New(http.StatusUnauthorized, "Unauthorized access")

	// ErrItemNotFound is returned when a gallery item is absent or owned by
	// a different user.
	ErrItemNotFound = New(http.StatusNotFound, "Item not found")
)
