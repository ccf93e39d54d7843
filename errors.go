package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes are the stable, machine readable codes callers can branch on.
// Note that INVALID_TOKEN deliberately covers not-found, expired, consumed,
// and signature-invalid tokens so callers cannot probe for token existence.
const (
	TextCodeAlreadyExists = "ALREADY_EXISTS"
	TextCodeNotFound      = "NOT_FOUND"
	TextCodeInvalidToken  = "INVALID_TOKEN"
	TextCodeInvalidCreds  = "INVALID_CREDENTIALS"
	TextCodeUnauthorized  = "UNAUTHORIZED"
	TextCodeInvalidInput  = "INVALID_INPUT"
	TextCodeInvalidReq    = "INVALID_REQUEST"
	TextCodeInternal      = "INTERNAL_ERROR"
)

// ErrEmailTaken is returned on signup when the email is already registered
var ErrEmailTaken = goerrors.New("email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyExists)

// ErrAccountNotFound is returned when no account matches the given email
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound)

// ErrInvalidToken covers missing, expired, consumed, and signature-invalid
// tokens uniformly
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken)

// ErrTokenExpired is the structured error for expired signed tokens. It
// shares the INVALID_TOKEN text code on purpose.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken)

// ErrInvalidCredentials is intentionally indistinguishable from "no such
// account" to avoid account enumeration
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrEmailNotVerified is returned on login before email verification
var ErrEmailNotVerified = goerrors.New("please verify your email before logging in", goerrors.CategoryAuthz).
	WithTextCode(TextCodeUnauthorized)

// ErrInvalidInput is returned for malformed caller arguments
var ErrInvalidInput = goerrors.New("invalid input", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidInput)

// ErrAlreadyVerified is returned when re-requesting verification for a
// verified account
var ErrAlreadyVerified = goerrors.New("email is already verified", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidReq)

// ErrMismatchedHashAndPassword is the hasher level mismatch error
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty plaintext input to the hasher
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidInput)

// wrapInternal hides the underlying failure behind a stable internal error;
// store and crypto details must never reach the caller payload.
func wrapInternal(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(TextCodeInternal)
}

// invalidInput wraps a validation failure with the caller facing code
func invalidInput(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, msg).
		WithTextCode(TextCodeInvalidInput)
}
