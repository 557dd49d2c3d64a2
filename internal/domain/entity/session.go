// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "slices"

// ProviderID identifies a sign-in method registered with the identity provider.
type ProviderID string

const (
	// ProviderPassword is the email/password sign-in method.
	ProviderPassword ProviderID = "password"
	// ProviderGoogle is the Google federated sign-in method.
	ProviderGoogle ProviderID = "google.com"
	// ProviderMicrosoft is the Microsoft federated sign-in method.
	ProviderMicrosoft ProviderID = "microsoft.com"
)

// Session is the live authenticated state owned by the identity provider for the
// current device. It is observed, never mutated, by the reconciliation engine.
type Session struct {
	UID           string       // The provider's stable, opaque subject identifier.
	Email         string       // The email the session authenticated with, if any.
	EmailVerified bool         // Whether the provider has verified the email.
	DisplayName   string       // The provider-side display name.
	PhotoURL      string       // The provider-side profile photo URL.
	Providers     []ProviderID // Sign-in methods currently linked to this account.
}

// HasProvider reports whether the given sign-in method is linked to the session's account.
func (s *Session) HasProvider(provider ProviderID) bool {
	return slices.Contains(s.Providers, provider)
}

// Equal reports whether two sessions describe the same provider state.
// Either side may be nil.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}

	return s.UID == other.UID &&
		s.Email == other.Email &&
		s.EmailVerified == other.EmailVerified &&
		s.DisplayName == other.DisplayName &&
		s.PhotoURL == other.PhotoURL &&
		slices.Equal(s.Providers, other.Providers)
}

// FederatedCredential is a credential obtained from a federated provider on the
// device (e.g. a Google or Microsoft ID token) that can authenticate or be
// linked to an account.
type FederatedCredential struct {
	Provider    ProviderID // Which federated provider issued the credential.
	IDToken     string     // The provider's ID token.
	AccessToken string     // Optional OAuth access token (Microsoft requires it).
}
