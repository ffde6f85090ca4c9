package service

import (
	"errors"

	apperrors "github.com/yourusername/krishcart-api/internal/pkg/errors"
)

// Auth and OTP flow specific errors used by handlers for stable error_type mapping.
var (
	ErrEmailTaken         = errors.New("email_already_registered")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailNotVerified   = errors.New("email_not_verified")
	ErrAlreadyVerified    = errors.New("email_already_verified")

	ErrInvalidOTP      = errors.New("invalid_otp")
	ErrOTPNotFound     = errors.New("otp_not_found")
	ErrOTPExpired      = errors.New("otp_expired")
	ErrTooManyAttempts = errors.New("otp_attempts_exceeded")
)

// OTPLockedError means the email is temporarily banned from verification
// after exhausting the attempt budget. Carries seconds until the ban lifts.
type OTPLockedError struct {
	RetryAfterSeconds int
}

func (e *OTPLockedError) Error() string {
	return "otp_locked"
}

func (e *OTPLockedError) Unwrap() error {
	return apperrors.ErrRateLimited
}

// ResendCooldownError means a fresh code was issued too recently.
// Carries seconds until a new code may be requested.
type ResendCooldownError struct {
	RetryAfterSeconds int
}

func (e *ResendCooldownError) Error() string {
	return "otp_resend_cooldown"
}

func (e *ResendCooldownError) Unwrap() error {
	return apperrors.ErrRateLimited
}
