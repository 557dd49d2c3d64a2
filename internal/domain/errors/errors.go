// Package errors defines the domain error taxonomy shared by the usecase layer
// and the identity/profile adapters.
package errors

import (
	"fmt"

	"beacon/internal/domain/entity"
	"beacon/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	ErrorCode() string // Stable business error code
	Message() string   // User-friendly error message
	Details() string   // Underlying provider code or diagnostic detail (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(errorCode, message, details string) *BaseError {
	return &BaseError{
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns the underlying provider code or diagnostic detail
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails returns a copy of the error carrying the given detail. The copy
// still matches the original through errors.Is, so taxonomy checks keep
// working while the raw provider code is preserved for diagnostics.
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Is matches any BaseError sharing the same business code, so detail-carrying
// copies produced by WithDetails still satisfy errors.Is against the sentinel.
func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return e.errorCode == other.errorCode
}

// Predefined error types
var (
	// Credential and authentication errors
	ErrInvalidCredential = NewBaseError(
		"INVALID_CREDENTIAL",
		"The email or password is incorrect.",
		"",
	)

	ErrAccountAlreadyExists = NewBaseError(
		"ACCOUNT_ALREADY_EXISTS",
		"An account already exists for this email. Sign in with your password to link it.",
		"",
	)

	ErrEmailInUse = NewBaseError(
		"EMAIL_IN_USE",
		"That email is already in use.",
		"",
	)

	ErrInvalidEmail = NewBaseError(
		"INVALID_EMAIL",
		"Please enter a valid email address.",
		"",
	)

	ErrEmailNotVerified = NewBaseError(
		"EMAIL_NOT_VERIFIED",
		"Please verify your email address before signing in.",
		"",
	)

	ErrRequiresReauthentication = NewBaseError(
		"REQUIRES_REAUTHENTICATION",
		"Please sign in again and then retry this change.",
		"",
	)

	ErrWeakPassword = NewBaseError(
		"WEAK_PASSWORD",
		"Please use a stronger password.",
		"",
	)

	ErrTooManyRequests = NewBaseError(
		"TOO_MANY_REQUESTS",
		"Too many attempts. Please wait a moment and try again.",
		"",
	)

	ErrNoActiveUser = NewBaseError(
		"NO_ACTIVE_USER",
		"You are not signed in.",
		"",
	)

	ErrCredentialAlreadyInUse = NewBaseError(
		"CREDENTIAL_ALREADY_IN_USE",
		"That sign-in method is already linked to another account.",
		"",
	)

	ErrPopupCancelled = NewBaseError(
		"POPUP_CANCELLED",
		"Sign-in was cancelled.",
		"",
	)

	// Linking state machine errors
	ErrNoPendingLink = NewBaseError(
		"NO_PENDING_LINK",
		"There is no pending account link to complete.",
		"",
	)

	ErrLinkInProgress = NewBaseError(
		"LINK_IN_PROGRESS",
		"An account link is already in progress.",
		"",
	)

	// Infrastructure errors
	ErrNetworkFailure = NewBaseError(
		"NETWORK_FAILURE",
		"Network error. Please check your connection and try again.",
		"",
	)

	ErrStoreUnavailable = NewBaseError(
		"STORE_UNAVAILABLE",
		"Your profile could not be loaded. Please try again.",
		"",
	)

	ErrValidationFailed = NewBaseError(
		"VALIDATION_FAILED",
		"Please check the entered values and try again.",
		"",
	)

	// Fallback for provider codes with no dedicated mapping; the raw code is
	// attached through WithDetails for diagnostics.
	ErrUnknown = NewBaseError(
		"UNKNOWN",
		"Something went wrong. Please try again.",
		"",
	)
)

// AccountCollisionError reports that a federated sign-in failed because the
// target email already has a different sign-in method registered. It carries
// what the linking coordinator needs to offer the user a merge.
type AccountCollisionError struct {
	Email      string
	Credential *entity.FederatedCredential
	// PhotoURL is the photo the federated provider offered, when known, so a
	// completed link can optionally adopt it.
	PhotoURL string
}

// Error implements the error interface
func (e *AccountCollisionError) Error() string {
	return fmt.Sprintf("account for %s already exists with a different credential", e.Email)
}

// Unwrap lets errors.Is treat a collision as ErrAccountAlreadyExists.
func (e *AccountCollisionError) Unwrap() error {
	return ErrAccountAlreadyExists
}
