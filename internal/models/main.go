// Package models defines the core data structures exchanged with the
// AuthMatrix backend and cached by the client.
package models

// UserProfile represents the account profile returned by the backend.
type UserProfile struct {
	// UserID is the unique identifier for the account.
	UserID string `json:"userId"`
	// Name is the display name chosen at registration.
	Name string `json:"name"`
	// Email is the address the account is registered under.
	Email string `json:"email"`
	// IsAccountVerified reports whether the email address has been
	// confirmed with a one-time passcode.
	IsAccountVerified bool `json:"isAccountVerified"`
}

// AuthRequest is the JSON payload for the login endpoint.
type AuthRequest struct {
	// Email is the login identifier.
	Email string `json:"email"`
	// Password is the plaintext password, sent over TLS only.
	Password string `json:"password"`
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	// Email echoes the authenticated address.
	Email string `json:"email"`
	// Token is the opaque bearer credential for subsequent calls.
	Token string `json:"token"`
}

// RegisterRequest is the JSON payload for account creation.
type RegisterRequest struct {
	// Name is the display name for the new account.
	Name string `json:"name"`
	// Email is the address to register.
	Email string `json:"email"`
	// Password is the plaintext password for the new account.
	Password string `json:"password"`
}

// VerifyOTPRequest carries the assembled passcode for email verification.
type VerifyOTPRequest struct {
	// OTP is the six-digit code received by email.
	OTP string `json:"otp"`
}

// ResetPasswordRequest carries the combined code-plus-password submission
// that completes a password reset.
type ResetPasswordRequest struct {
	// Email is the address the reset code was sent to.
	Email string `json:"email"`
	// OTP is the six-digit reset code.
	OTP string `json:"otp"`
	// NewPassword replaces the forgotten password.
	NewPassword string `json:"newPassword"`
}
