package usecase

import (
	"context"

	"beacon/internal/domain/entity"
)

// UserUpdate is one emission of the current-user stream. A nil User with a nil
// Err means no one is signed in. A non-nil Err is terminal: the stream closes
// after delivering it.
type UserUpdate struct {
	User *entity.AccountUser
	Err  error
}

// UserStreamUsecase is the reconciliation engine's contract: a multicast,
// replay-latest stream of the current application user derived from the
// identity provider's session stream and the profile store.
type UserStreamUsecase interface {
	// Run drives the reconciliation loop until the context is cancelled or a
	// profile read for an existing record fails terminally.
	Run(ctx context.Context) error

	// Subscribe registers an observer. The latest value is replayed
	// immediately and consecutive identical values are suppressed.
	Subscribe() (<-chan UserUpdate, func())

	// SubscribeAuthState reduces the user stream to a deduplicated boolean
	// "is authenticated" signal for fast guard checks.
	SubscribeAuthState() (<-chan bool, func())

	// CurrentUser returns the latest derived user, or nil when signed out.
	CurrentUser() *entity.AccountUser
}
