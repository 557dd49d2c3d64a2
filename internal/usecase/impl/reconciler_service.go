// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	"beacon/internal/appcontext"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/stream"
	"beacon/internal/usecase"
	"beacon/internal/util"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// reconcilerService implements the UserStreamUsecase interface. It owns the
// single goroutine that merges session transitions with profile documents, so
// emissions always follow session order even when store lookups are slow.
type reconcilerService struct {
	identity service.IdentityProvider
	profiles repository.ProfileRepository
	users    *stream.Replay[usecase.UserUpdate]
	auth     *stream.Replay[bool]
	logger   *slog.Logger
}

// ReconcilerServiceParams holds dependencies for the reconciler, injected by Fx.
type ReconcilerServiceParams struct {
	fx.In

	Identity service.IdentityProvider
	Profiles repository.ProfileRepository
	Logger   *slog.Logger
}

// NewReconcilerService is the constructor for reconcilerService.
func NewReconcilerService(params ReconcilerServiceParams) usecase.UserStreamUsecase {
	return &reconcilerService{
		identity: params.Identity,
		profiles: params.Profiles,
		users: stream.NewReplay[usecase.UserUpdate](func(a, b usecase.UserUpdate) bool {
			return a.Err == nil && b.Err == nil && a.User.Equal(b.User)
		}),
		auth:   stream.NewReplay[bool](func(a, b bool) bool { return a == b }),
		logger: params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *reconcilerService) log(ctx context.Context) *slog.Logger {
	return appcontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Subscribe registers an observer of the current-user stream.
func (srv *reconcilerService) Subscribe() (<-chan usecase.UserUpdate, func()) {
	return srv.users.Subscribe()
}

// SubscribeAuthState registers an observer of the boolean authentication signal.
func (srv *reconcilerService) SubscribeAuthState() (<-chan bool, func()) {
	return srv.auth.Subscribe()
}

// CurrentUser returns the latest derived user, or nil when signed out.
func (srv *reconcilerService) CurrentUser() *entity.AccountUser {
	update, ok := srv.users.Latest()
	if !ok || update.Err != nil {
		return nil
	}

	return update.User
}

// Run drives the reconciliation loop. It returns nil when the context ends and
// an error when a profile read for an existing record fails, after delivering
// that error to subscribers as the stream's terminal emission.
func (srv *reconcilerService) Run(ctx context.Context) error {
	sessions, cancelSessions := srv.identity.ObserveSession()
	defer cancelSessions()

	defer srv.users.Close()
	defer srv.auth.Close()

	var (
		current     *entity.Session
		profileCh   <-chan *entity.ProfileRecord
		cancelWatch func()
	)
	stopWatch := func() {
		if cancelWatch != nil {
			cancelWatch()
			cancelWatch = nil
			profileCh = nil
		}
	}
	defer stopWatch()

	for {
		select {
		case <-ctx.Done():
			return nil

		case session, ok := <-sessions:
			if !ok {
				return nil
			}
			// The previous session's profile watch must not leak emissions
			// into the new session's view.
			stopWatch()
			current = session

			if session == nil {
				srv.publish(nil)

				continue
			}

			record, err := srv.loadOrCreateProfile(ctx, session)
			if err != nil {
				terminal := errors.Wrap(err, "profile read failed for active session")
				srv.log(ctx).Error("Terminating user stream", slog.String("uid", session.UID), slog.Any("error", err))
				srv.users.Publish(usecase.UserUpdate{Err: terminal})

				return terminal
			}
			if record == nil {
				// First-time creation failed; the next session emission retries.
				continue
			}

			srv.publish(entity.NewAccountUser(session, record))

			watchCh, cancel, watchErr := srv.profiles.Watch(ctx, session.UID)
			if watchErr != nil {
				srv.log(ctx).Warn("Profile watch unavailable, serving last read value",
					slog.String("uid", session.UID), slog.Any("error", watchErr))

				continue
			}
			profileCh, cancelWatch = watchCh, cancel

		case record, ok := <-profileCh:
			if !ok {
				profileCh = nil

				continue
			}
			if current == nil || record == nil {
				// Records are never deleted by this system; a nil snapshot is
				// a transient store artifact and keeps the last view.
				continue
			}
			srv.publish(entity.NewAccountUser(current, record))
		}
	}
}

func (srv *reconcilerService) publish(user *entity.AccountUser) {
	srv.users.Publish(usecase.UserUpdate{User: user})
	srv.auth.Publish(user != nil)
}

// loadOrCreateProfile returns the profile record for a session, creating it on
// first sign-in from the session's best-available fields. A failed creation is
// logged and returns (nil, nil) so the stream survives; a failed read of an
// existing record returns the error unwrapped for terminal propagation.
func (srv *reconcilerService) loadOrCreateProfile(ctx context.Context, session *entity.Session) (*entity.ProfileRecord, error) {
	record, err := srv.profiles.Find(ctx, session.UID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, errors.Wrap(domainerrors.ErrStoreUnavailable.WithDetails(err.Error()), "failed to read profile record")
	}

	srv.log(ctx).Info("First sign-in, creating profile record", slog.String("uid", session.UID))

	firstName, lastName := util.SplitDisplayName(session.DisplayName)
	patch := &entity.ProfilePatch{
		Email:        entity.StringPtr(session.Email),
		DisplayName:  entity.StringPtr(session.DisplayName),
		FirstName:    entity.StringPtr(firstName),
		LastName:     entity.StringPtr(lastName),
		PhotoURL:     entity.StringPtr(session.PhotoURL),
		SetCreatedAt: true,
	}

	if err := srv.profiles.Upsert(ctx, session.UID, patch); err != nil {
		srv.log(ctx).Error("Failed to create profile record on first sign-in",
			slog.String("uid", session.UID), slog.Any("error", err))

		return nil, nil
	}

	record, err = srv.profiles.Find(ctx, session.UID)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrStoreUnavailable.WithDetails(err.Error()), "failed to read profile record after creation")
	}

	return record, nil
}
