// Package repository defines the persistence interfaces the domain depends on.
package repository

import (
	"context"

	"beacon/internal/domain/entity"
	"beacon/internal/errors"
)

// ErrProfileNotFound is returned when no profile record exists for a subject
// identifier. First-time reconciliation treats it as the signal to create one.
var ErrProfileNotFound = errors.New("profile record not found")

// ProfileRepository wraps the document store holding one profile record per
// subject identifier.
type ProfileRepository interface {
	// Find returns the profile record for a subject identifier, or
	// ErrProfileNotFound when the document does not exist.
	Find(ctx context.Context, uid string) (*entity.ProfileRecord, error)

	// Watch streams the profile record on every change until the context is
	// cancelled or the returned cancel func is called. A nil emission means
	// the document does not (or no longer) exist.
	Watch(ctx context.Context, uid string) (<-chan *entity.ProfileRecord, func(), error)

	// Upsert merge-writes the given fields into the record, creating it when
	// absent. Fields not named by the patch are never overwritten.
	Upsert(ctx context.Context, uid string, patch *entity.ProfilePatch) error
}
