package usecase

import "context"

// UpdateNameInput defines the data required to rename the current user.
type UpdateNameInput struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
}

// ChangePasswordInput defines the data required to change the current user's password.
type ChangePasswordInput struct {
	CurrentPassword string `validate:"required"`
	NewPassword     string `validate:"required"`
}

// ProfileUsecase applies profile mutations, keeping the identity provider's
// fields and the profile record consistent. Operations are idempotent with
// respect to re-applying the same values and never retry on failure.
type ProfileUsecase interface {
	// UpdateName updates the provider display name and the record's name
	// fields. Fails with ErrNoActiveUser without a session.
	UpdateName(ctx context.Context, input *UpdateNameInput) error

	// ChangePassword re-authenticates with the current password before
	// applying the new one. A wrong current password surfaces as
	// ErrInvalidCredential, distinct from a rejected new password
	// (ErrWeakPassword). Fails with ErrNoActiveUser without a session or for
	// a federated-only account with no email.
	ChangePassword(ctx context.Context, input *ChangePasswordInput) error

	// UpdatePhoto updates only the record's photo URL. A missing session is a
	// no-op, not an error.
	UpdatePhoto(ctx context.Context, photoURL string) error
}
