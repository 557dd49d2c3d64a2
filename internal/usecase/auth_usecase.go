// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"beacon/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new password account.
type RegisterInput struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required"`
}

// PasswordSignInInput defines the data required for a password sign-in.
type PasswordSignInInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// FederatedSignInInput carries a device-obtained federated credential.
type FederatedSignInInput struct {
	IDToken     string `validate:"required"`
	AccessToken string
}

// AuthUsecase defines the interface for authentication flows. Sign-in methods
// return the new session; observing the resulting application user is the
// reconciliation engine's job.
type AuthUsecase interface {
	// Register creates a password account, names it, and best-effort seeds the
	// profile record and verification email.
	Register(ctx context.Context, input *RegisterInput) (*entity.Session, error)

	// SignInWithPassword authenticates a password account, enforcing the
	// verified-email policy: an unverified account is signed out again and
	// ErrEmailNotVerified returned.
	SignInWithPassword(ctx context.Context, input *PasswordSignInInput) (*entity.Session, error)

	// SignInWithGoogle authenticates with a Google credential. A collision
	// with an existing password account opens a pending link on the linking
	// coordinator and returns ErrAccountAlreadyExists.
	SignInWithGoogle(ctx context.Context, input *FederatedSignInInput) (*entity.Session, error)

	// SignInWithMicrosoft behaves like SignInWithGoogle and additionally
	// attempts a best-effort link of an available Google method for the same
	// email after a successful sign-in.
	SignInWithMicrosoft(ctx context.Context, input *FederatedSignInInput) (*entity.Session, error)

	// SignOut destroys the current session.
	SignOut(ctx context.Context) error
}
