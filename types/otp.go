package types

import "time"

// OTPPurpose scopes a one-time passcode to the flow it was issued for.
// A code issued for one purpose is never valid for another.
type OTPPurpose string

const (
	// PurposeSignup gates email verification after registration.
	PurposeSignup OTPPurpose = "signup"

	// PurposeForgotPassword gates the password-reset flow.
	PurposeForgotPassword OTPPurpose = "forgot-password"
)

// Valid reports whether the purpose is one of the known values.
func (p OTPPurpose) Valid() bool {
	return p == PurposeSignup || p == PurposeForgotPassword
}

// OTP is a one-time passcode issued to an email address for a purpose.
// At most one live record exists per (email, purpose) pair.
type OTP struct {
	// ID is the unique identifier of the record.
	ID int `json:"id" db:"id"`

	// Email is the address the code was issued to.
	Email string `json:"email" db:"email"`

	// Code is the fixed-length numeric passcode.
	Code string `json:"otp" db:"code"`

	// Purpose is the flow the code was issued for.
	Purpose OTPPurpose `json:"purpose" db:"purpose"`

	// CreatedAt anchors the validity window; a code is valid for a fixed
	// duration after this timestamp.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
