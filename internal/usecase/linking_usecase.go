package usecase

import (
	"context"

	"beacon/internal/domain/entity"
)

// LinkState is the account-linking coordinator's explicit state. It is
// serializable so partial-failure points can be asserted in isolation.
type LinkState string

const (
	// LinkStateIdle means no link flow is active.
	LinkStateIdle LinkState = "idle"
	// LinkStatePending means a federated sign-in collided with a password
	// account and the captured credential awaits the account's password.
	LinkStatePending LinkState = "pending"
	// LinkStateLinking means a password was submitted and the re-authenticate
	// plus link steps are in flight.
	LinkStateLinking LinkState = "linking"
	// LinkStateResolved means the last link flow completed successfully.
	LinkStateResolved LinkState = "resolved"
)

// CompleteLinkInput defines the data required to finish a pending link.
type CompleteLinkInput struct {
	Password string `validate:"required"`
	// AdoptFederatedPhoto opts in to copying the federated provider's photo
	// onto the profile record after a successful link.
	AdoptFederatedPhoto bool
}

// LinkingUsecase coordinates merging a colliding federated credential into an
// existing password account.
type LinkingUsecase interface {
	// Begin captures a pending link after a sign-in collision. It fails with
	// ErrLinkInProgress while a Complete call is in flight.
	Begin(pending *entity.PendingLink) error

	// Complete re-authenticates the password account and links the captured
	// federated credential to it. On failure the pending link is preserved so
	// the user may retry without repeating the federated sign-in.
	Complete(ctx context.Context, input *CompleteLinkInput) (*entity.Session, error)

	// Cancel discards the pending link and returns to idle without side effects.
	Cancel()

	// State returns the coordinator's current state.
	State() LinkState

	// Pending returns the captured pending link, or nil.
	Pending() *entity.PendingLink
}
