package impl

import (
	"context"
	"log/slog"
	"sync"

	"beacon/internal/appcontext"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// linkingService implements the LinkingUsecase interface as an explicit state
// machine. The mutex guards the state and pending link; the provider calls
// themselves run outside the lock so a slow link cannot block Cancel or State.
type linkingService struct {
	identity service.IdentityProvider
	profiles repository.ProfileRepository
	logger   *slog.Logger

	mu      sync.Mutex
	state   usecase.LinkState
	pending *entity.PendingLink
}

// LinkingServiceParams holds dependencies for the linking coordinator, injected by Fx.
type LinkingServiceParams struct {
	fx.In

	Identity service.IdentityProvider
	Profiles repository.ProfileRepository
	Logger   *slog.Logger
}

// NewLinkingService is the constructor for linkingService.
func NewLinkingService(params LinkingServiceParams) usecase.LinkingUsecase {
	return &linkingService{
		identity: params.Identity,
		profiles: params.Profiles,
		logger:   params.Logger,
		state:    usecase.LinkStateIdle,
	}
}

func (srv *linkingService) log(ctx context.Context) *slog.Logger {
	return appcontext.GetLoggerOrDefault(ctx, srv.logger)
}

// State returns the coordinator's current state.
func (srv *linkingService) State() usecase.LinkState {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.state
}

// Pending returns the captured pending link, or nil.
func (srv *linkingService) Pending() *entity.PendingLink {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.pending
}

// Begin captures a pending link after a federated sign-in collision.
func (srv *linkingService) Begin(pending *entity.PendingLink) error {
	if pending == nil || pending.Credential == nil || pending.Email == "" {
		return errors.Wrap(domainerrors.ErrValidationFailed, "pending link requires a credential and an email")
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.state == usecase.LinkStateLinking {
		return errors.Wrap(domainerrors.ErrLinkInProgress, "cannot capture a new pending link while linking")
	}

	srv.state = usecase.LinkStatePending
	srv.pending = pending
	srv.logger.Info("Captured pending account link",
		slog.String("email", pending.Email),
		slog.String("provider", string(pending.Credential.Provider)))

	return nil
}

// Cancel discards the pending link without side effects.
func (srv *linkingService) Cancel() {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.state != usecase.LinkStatePending {
		return
	}

	srv.state = usecase.LinkStateIdle
	srv.pending = nil
	srv.logger.Info("Cancelled pending account link")
}

// Complete re-authenticates the colliding password account and links the
// captured federated credential to it. Any step failing leaves the machine in
// the pending state with the link preserved, so the user may retry with
// another password without repeating the federated sign-in.
func (srv *linkingService) Complete(ctx context.Context, input *usecase.CompleteLinkInput) (*entity.Session, error) {
	pending, err := srv.enterLinking()
	if err != nil {
		return nil, err
	}

	if input == nil || input.Password == "" {
		srv.failLinking(pending)

		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "password is required to complete the link")
	}

	session, err := srv.identity.SignInWithPassword(ctx, pending.Email, input.Password)
	if err != nil {
		srv.failLinking(pending)
		srv.log(ctx).Warn("Re-authentication failed during account link",
			slog.String("email", pending.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to re-authenticate password account for linking")
	}

	linked, err := srv.identity.LinkCredential(ctx, pending.Credential)
	if err != nil {
		srv.failLinking(pending)
		srv.log(ctx).Warn("Credential link failed",
			slog.String("email", pending.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to link federated credential")
	}
	if linked != nil {
		session = linked
	}

	// The link is already durable; adopting the federated photo must not
	// unwind it on failure.
	if input.AdoptFederatedPhoto && pending.PhotoURL != "" {
		srv.adoptPhoto(ctx, session.UID, pending.PhotoURL)
	}

	srv.resolve()
	srv.log(ctx).Info("Linked federated credential to password account",
		slog.String("email", pending.Email),
		slog.String("provider", string(pending.Credential.Provider)))

	return session, nil
}

// enterLinking moves pending -> linking, rejecting concurrent attempts.
func (srv *linkingService) enterLinking() (*entity.PendingLink, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	switch srv.state {
	case usecase.LinkStateLinking:
		return nil, errors.Wrap(domainerrors.ErrLinkInProgress, "a linking attempt is already in flight")
	case usecase.LinkStatePending:
		srv.state = usecase.LinkStateLinking

		return srv.pending, nil
	default:
		return nil, errors.Wrap(domainerrors.ErrNoPendingLink, "no pending link to complete")
	}
}

// failLinking returns to pending, preserving the captured link for a retry.
func (srv *linkingService) failLinking(pending *entity.PendingLink) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.state = usecase.LinkStatePending
	srv.pending = pending
}

func (srv *linkingService) resolve() {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.state = usecase.LinkStateResolved
	srv.pending = nil
}

func (srv *linkingService) adoptPhoto(ctx context.Context, uid, photoURL string) {
	patch := &entity.ProfilePatch{PhotoURL: entity.StringPtr(photoURL)}
	if err := srv.profiles.Upsert(ctx, uid, patch); err != nil {
		srv.log(ctx).Warn("Failed to adopt federated photo after link",
			slog.String("uid", uid), slog.Any("error", err))

		return
	}

	update := &service.ProfileUpdate{PhotoURL: &photoURL}
	if err := srv.identity.UpdateProfile(ctx, update); err != nil {
		srv.log(ctx).Warn("Failed to set provider photo after link",
			slog.String("uid", uid), slog.Any("error", err))
	}
}
