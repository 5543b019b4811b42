// Package common defines the sentinel errors shared by the storage, core and
// HTTP layers. Callers match them with errors.Is.
package common

import "errors"

var (
	// Storage-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Input rejected at the boundary or by the core.
	ErrValidation = errors.New("validation error")

	// Credential errors.
	ErrDuplicateCredential = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")

	// Token verification errors. All three are presented to clients as a
	// single unauthorized outcome.
	ErrMalformedOrTamperedToken = errors.New("malformed or tampered token")
	ErrExpiredToken             = errors.New("token expired")
	ErrUnknownSubject           = errors.New("unknown token subject")
)

// AuthFailureKind names a token verification failure for diagnostics.
// It returns "" for errors that are not token failures.
func AuthFailureKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedOrTamperedToken):
		return "malformed"
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	default:
		return ""
	}
}

// IsUnauthorized reports whether err is one of the token verification failures.
func IsUnauthorized(err error) bool {
	return AuthFailureKind(err) != ""
}
