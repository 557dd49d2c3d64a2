package impl

import (
	"context"
	"log/slog"

	"beacon/internal/appcontext"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/usecase"
	"beacon/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// profileService implements the ProfileUsecase interface. Each mutation is
// sequenced against the external services and never retried here; callers
// decide whether to retry.
type profileService struct {
	identity service.IdentityProvider
	profiles repository.ProfileRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// ProfileServiceParams holds dependencies for ProfileService, injected by Fx.
type ProfileServiceParams struct {
	fx.In

	Identity service.IdentityProvider
	Profiles repository.ProfileRepository
	Logger   *slog.Logger
}

// NewProfileService is the constructor for profileService.
func NewProfileService(params ProfileServiceParams) usecase.ProfileUsecase {
	return &profileService{
		identity: params.Identity,
		profiles: params.Profiles,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *profileService) log(ctx context.Context) *slog.Logger {
	return appcontext.GetLoggerOrDefault(ctx, srv.logger)
}

// UpdateName updates the provider display name and the profile record's name
// fields in a merge write.
func (srv *profileService) UpdateName(ctx context.Context, input *usecase.UpdateNameInput) error {
	if err := srv.validate.Struct(input); err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "first and last name are required")
	}

	session := srv.identity.CurrentSession()
	if session == nil {
		return errors.Wrap(domainerrors.ErrNoActiveUser, "cannot update name")
	}

	displayName := util.JoinName(input.FirstName, input.LastName)
	srv.log(ctx).Info("Updating profile name", slog.String("uid", session.UID))

	if err := srv.identity.UpdateProfile(ctx, &service.ProfileUpdate{DisplayName: &displayName}); err != nil {
		return errors.Wrap(err, "failed to update provider display name")
	}

	patch := &entity.ProfilePatch{
		FirstName:   entity.StringPtr(input.FirstName),
		LastName:    entity.StringPtr(input.LastName),
		DisplayName: entity.StringPtr(displayName),
	}
	if err := srv.profiles.Upsert(ctx, session.UID, patch); err != nil {
		return errors.Wrap(err, "failed to update profile record name fields")
	}

	return nil
}

// ChangePassword re-authenticates with the current password before applying
// the new one. The provider rejects sensitive mutations on stale sessions, so
// the re-authentication is mandatory, and its failure must stay
// distinguishable from a rejected new password.
func (srv *profileService) ChangePassword(ctx context.Context, input *usecase.ChangePasswordInput) error {
	if err := srv.validate.Struct(input); err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "current and new password are required")
	}

	session := srv.identity.CurrentSession()
	if session == nil || session.Email == "" {
		return errors.Wrap(domainerrors.ErrNoActiveUser, "cannot change password")
	}

	srv.log(ctx).Info("Changing password", slog.String("uid", session.UID))

	if err := srv.identity.Reauthenticate(ctx, session.Email, input.CurrentPassword); err != nil {
		srv.log(ctx).Warn("Re-authentication failed during password change",
			slog.String("uid", session.UID), slog.Any("error", err))

		return errors.Wrap(err, "current password rejected")
	}

	if err := srv.identity.UpdatePassword(ctx, input.NewPassword); err != nil {
		srv.log(ctx).Warn("Password update rejected",
			slog.String("uid", session.UID), slog.Any("error", err))

		return errors.Wrap(err, "failed to apply new password")
	}

	srv.log(ctx).Info("Password changed", slog.String("uid", session.UID))

	return nil
}

// UpdatePhoto merge-writes only the photo URL and timestamp. Without a session
// it is a no-op, not an error.
func (srv *profileService) UpdatePhoto(ctx context.Context, photoURL string) error {
	session := srv.identity.CurrentSession()
	if session == nil {
		return nil
	}

	srv.log(ctx).Debug("Updating profile photo", slog.String("uid", session.UID))

	patch := &entity.ProfilePatch{PhotoURL: entity.StringPtr(photoURL)}
	if err := srv.profiles.Upsert(ctx, session.UID, patch); err != nil {
		return errors.Wrap(err, "failed to update profile photo")
	}

	return nil
}
