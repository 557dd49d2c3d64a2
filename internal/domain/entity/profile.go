package entity

import "time"

// ProfileRecord is the durable per-user document keyed by the identity
// provider's subject identifier. It is created exactly once on first sign-in
// and never deleted by this system.
type ProfileRecord struct {
	UID         string    // Subject identifier; also the document key.
	Email       string    // Email captured at creation, kept for display.
	DisplayName string    // Full display name.
	FirstName   string    // First name, parsed from the display name when unknown.
	LastName    string    // Last name, empty when unparseable.
	PhotoURL    string    // Profile photo URL.
	CreatedAt   time.Time // Set by the store when the record is created.
	UpdatedAt   time.Time // Set by the store on every write.
}

// ProfilePatch describes a merge write against a profile record. Nil fields are
// left untouched so concurrent updates to unrelated fields are never clobbered.
type ProfilePatch struct {
	Email       *string
	DisplayName *string
	FirstName   *string
	LastName    *string
	PhotoURL    *string
	// SetCreatedAt marks this patch as the record's initial write, stamping
	// createdAt alongside the always-stamped updatedAt.
	SetCreatedAt bool
}

// StringPtr is a convenience for building patches from literal values.
func StringPtr(s string) *string {
	return &s
}
