package types

import "time"

// User represents an account in the system.
// It contains identity, verification state, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. It is unique across accounts
	// and doubles as the login name.
	Email string `json:"email" db:"email"`

	// Phone is the user's contact phone number.
	Phone string `json:"phone" db:"phone"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Verified reports whether the user has completed signup OTP
	// verification. Login is blocked until it becomes true.
	Verified bool `json:"verified" db:"verified"`

	// ResetOTP and ResetOTPExpires are legacy password-reset fields kept
	// for older records. New flows track reset codes in the otps table.
	ResetOTP        string     `json:"-" db:"reset_otp"`
	ResetOTPExpires *time.Time `json:"-" db:"reset_otp_expires"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
