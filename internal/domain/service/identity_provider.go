// Package service defines interfaces for external services the domain depends on.
package service

import (
	"context"

	"beacon/internal/domain/entity"
)

// ProfileUpdate describes a partial update of the identity provider's own
// profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// IdentityProvider wraps the managed identity provider's client surface:
// credential verification, token issuance and session persistence happen on
// the provider side; this interface only exposes what the coordination layer
// consumes.
//
// Implementations track the device's current session and publish every session
// transition (sign-in, sign-out, profile update) to observers.
type IdentityProvider interface {
	// RegisterWithPassword creates a new password account and signs it in.
	// Fails with ErrEmailInUse, ErrWeakPassword, ErrInvalidEmail or
	// ErrNetworkFailure.
	RegisterWithPassword(ctx context.Context, email, password string) (*entity.Session, error)

	// SignInWithPassword authenticates an existing password account.
	// Fails with ErrInvalidCredential, ErrTooManyRequests, ErrInvalidEmail or
	// ErrNetworkFailure.
	SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error)

	// SignInWithFederatedCredential authenticates with a device-obtained
	// federated credential. When the credential's email already has a
	// different sign-in method registered, it fails with an
	// *AccountCollisionError carrying the email and the pending credential.
	SignInWithFederatedCredential(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error)

	// SignOut destroys the current session. Provider-plugin sign-out errors on
	// the way are swallowed; the local session is always cleared.
	SignOut(ctx context.Context) error

	// Reauthenticate re-verifies the current user's password without replacing
	// the session. Fails with ErrInvalidCredential.
	Reauthenticate(ctx context.Context, email, password string) error

	// UpdatePassword applies a new password to the current session's account.
	// Fails with ErrWeakPassword or ErrRequiresReauthentication.
	UpdatePassword(ctx context.Context, newPassword string) error

	// UpdateProfile applies provider-side profile fields to the current
	// session's account and re-publishes the updated session.
	UpdateProfile(ctx context.Context, update *ProfileUpdate) error

	// ListSignInMethods returns the sign-in methods registered for an email.
	ListSignInMethods(ctx context.Context, email string) ([]entity.ProviderID, error)

	// LinkCredential links a federated credential to the current session's
	// account. Fails with ErrCredentialAlreadyInUse.
	LinkCredential(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error)

	// SendVerificationEmail asks the provider to email a verification link to
	// the current session's address.
	SendVerificationEmail(ctx context.Context) error

	// CurrentSession returns the latest session, or nil when signed out.
	CurrentSession() *entity.Session

	// ObserveSession subscribes to session transitions. The latest value is
	// replayed immediately; the cancel func releases the subscription.
	ObserveSession() (<-chan *entity.Session, func())
}

// FederatedCredentialSource abstracts the device-side provider SDK that can
// prompt the user for a federated credential (e.g. the native Google sign-in
// sheet). It is optional; the opportunistic reverse-link step is skipped when
// no source is available.
type FederatedCredentialSource interface {
	// Credential prompts for a credential from the given provider, hinting the
	// expected account email.
	Credential(ctx context.Context, provider entity.ProviderID, loginHint string) (*entity.FederatedCredential, error)
}
