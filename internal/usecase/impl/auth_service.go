package impl

import (
	"context"
	"fmt"
	"log/slog"

	"beacon/config"
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

// authService implements the AuthUsecase interface.
type authService struct {
	identity          service.IdentityProvider
	profiles          repository.ProfileRepository
	linking           usecase.LinkingUsecase
	credentialSource  service.FederatedCredentialSource
	validate          *validator.Validate
	passwordMinLength int
	logger            *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Identity         service.IdentityProvider
	Profiles         repository.ProfileRepository
	Linking          usecase.LinkingUsecase
	CredentialSource service.FederatedCredentialSource `optional:"true"`
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	passwordMinLength := 0
	if params.Config != nil && params.Config.Auth != nil {
		passwordMinLength = params.Config.Auth.PasswordMinLength
	}

	return &authService{
		identity:          params.Identity,
		profiles:          params.Profiles,
		linking:           params.Linking,
		credentialSource:  params.CredentialSource,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		passwordMinLength: passwordMinLength,
		logger:            params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return appcontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a password account, names it in the provider, and
// best-effort seeds the profile record and verification email. The seeding
// steps are logged, never fatal: the session already exists by then.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*entity.Session, error) {
	input.Email = util.NormalizeEmail(input.Email)
	if err := srv.validateInput(input); err != nil {
		return nil, err
	}
	if err := srv.checkPasswordLength(input.Password); err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Registering password account", slog.String("email", input.Email))

	session, err := srv.identity.RegisterWithPassword(ctx, input.Email, input.Password)
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to register password account")
	}

	displayName := util.JoinName(input.FirstName, input.LastName)
	if err := srv.identity.UpdateProfile(ctx, &service.ProfileUpdate{DisplayName: &displayName}); err != nil {
		return nil, errors.Wrap(err, "failed to set display name after registration")
	}

	if err := srv.profiles.Upsert(ctx, session.UID, &entity.ProfilePatch{
		Email:        entity.StringPtr(input.Email),
		DisplayName:  entity.StringPtr(displayName),
		FirstName:    entity.StringPtr(input.FirstName),
		LastName:     entity.StringPtr(input.LastName),
		PhotoURL:     entity.StringPtr(session.PhotoURL),
		SetCreatedAt: true,
	}); err != nil {
		srv.log(ctx).Error("Failed to create profile record during registration",
			slog.String("uid", session.UID), slog.Any("error", err))
	}

	if err := srv.identity.SendVerificationEmail(ctx); err != nil {
		srv.log(ctx).Error("Failed to send verification email",
			slog.String("uid", session.UID), slog.Any("error", err))
	}

	if current := srv.identity.CurrentSession(); current != nil {
		session = current
	}
	srv.log(ctx).Debug("Registration completed", slog.String("uid", session.UID))

	return session, nil
}

// SignInWithPassword authenticates a password account and enforces the
// verified-email policy: an unverified account must not leak a half-usable
// session into the reconciliation engine.
func (srv *authService) SignInWithPassword(ctx context.Context, input *usecase.PasswordSignInInput) (*entity.Session, error) {
	input.Email = util.NormalizeEmail(input.Email)
	if err := srv.validateInput(input); err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("Starting password sign-in", slog.String("email", input.Email))

	session, err := srv.identity.SignInWithPassword(ctx, input.Email, input.Password)
	if err != nil {
		srv.log(ctx).Warn("Password sign-in failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "password sign-in failed")
	}

	if !session.EmailVerified {
		if signOutErr := srv.identity.SignOut(ctx); signOutErr != nil {
			srv.log(ctx).Warn("Forced sign-out after unverified sign-in failed", slog.Any("error", signOutErr))
		}
		srv.log(ctx).Info("Rejected sign-in with unverified email", slog.String("email", input.Email))

		return nil, errors.Wrap(domainerrors.ErrEmailNotVerified, "sign-in rejected")
	}

	srv.log(ctx).Debug("Password sign-in completed", slog.String("uid", session.UID))

	return session, nil
}

// SignInWithGoogle authenticates with a device-obtained Google credential.
func (srv *authService) SignInWithGoogle(ctx context.Context, input *usecase.FederatedSignInInput) (*entity.Session, error) {
	if err := srv.validateInput(input); err != nil {
		return nil, err
	}

	credential := &entity.FederatedCredential{
		Provider:    entity.ProviderGoogle,
		IDToken:     input.IDToken,
		AccessToken: input.AccessToken,
	}

	return srv.signInFederated(ctx, credential)
}

// SignInWithMicrosoft authenticates with a device-obtained Microsoft
// credential, then opportunistically links an available Google method for the
// same email. The link step is best-effort and never affects the sign-in.
func (srv *authService) SignInWithMicrosoft(ctx context.Context, input *usecase.FederatedSignInInput) (*entity.Session, error) {
	if err := srv.validateInput(input); err != nil {
		return nil, err
	}

	credential := &entity.FederatedCredential{
		Provider:    entity.ProviderMicrosoft,
		IDToken:     input.IDToken,
		AccessToken: input.AccessToken,
	}

	session, err := srv.signInFederated(ctx, credential)
	if err != nil {
		return nil, err
	}

	srv.maybeLinkGoogle(ctx, session)

	return session, nil
}

// SignOut destroys the current session.
func (srv *authService) SignOut(ctx context.Context) error {
	srv.log(ctx).Info("Signing out")

	if err := srv.identity.SignOut(ctx); err != nil {
		return errors.Wrap(err, "failed to sign out")
	}

	return nil
}

func (srv *authService) signInFederated(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error) {
	srv.log(ctx).Info("Starting federated sign-in", slog.String("provider", string(credential.Provider)))

	session, err := srv.identity.SignInWithFederatedCredential(ctx, credential)
	if err != nil {
		var collision *domainerrors.AccountCollisionError
		if errors.As(err, &collision) {
			return nil, srv.suspendForLinking(ctx, collision)
		}
		srv.log(ctx).Warn("Federated sign-in failed",
			slog.String("provider", string(credential.Provider)), slog.Any("error", err))

		return nil, errors.Wrap(err, "federated sign-in failed")
	}

	srv.log(ctx).Debug("Federated sign-in completed", slog.String("uid", session.UID))

	return session, nil
}

// suspendForLinking captures the colliding credential on the linking
// coordinator and surfaces the collision to the caller.
func (srv *authService) suspendForLinking(ctx context.Context, collision *domainerrors.AccountCollisionError) error {
	pending := &entity.PendingLink{
		Credential: collision.Credential,
		Email:      collision.Email,
		PhotoURL:   collision.PhotoURL,
	}

	if err := srv.linking.Begin(pending); err != nil {
		srv.log(ctx).Warn("Could not capture pending link", slog.Any("error", err))

		return errors.Wrap(err, "failed to suspend federated sign-in for linking")
	}

	srv.log(ctx).Info("Federated sign-in suspended for account linking", slog.String("email", collision.Email))

	return errors.Wrap(collision, "federated sign-in collided with an existing account")
}

// maybeLinkGoogle links an existing Google sign-in method to the freshly
// authenticated account when one is registered for the same email and not yet
// linked. Every failure is swallowed: this step must never break the sign-in.
func (srv *authService) maybeLinkGoogle(ctx context.Context, session *entity.Session) {
	if srv.credentialSource == nil || session.Email == "" || session.HasProvider(entity.ProviderGoogle) {
		return
	}

	methods, err := srv.identity.ListSignInMethods(ctx, session.Email)
	if err != nil {
		srv.log(ctx).Warn("Could not list sign-in methods for opportunistic link", slog.Any("error", err))

		return
	}
	hasGoogle := false
	for _, method := range methods {
		if method == entity.ProviderGoogle {
			hasGoogle = true

			break
		}
	}
	if !hasGoogle {
		return
	}

	credential, err := srv.credentialSource.Credential(ctx, entity.ProviderGoogle, session.Email)
	if err != nil {
		srv.log(ctx).Warn("Google credential prompt failed for opportunistic link", slog.Any("error", err))

		return
	}

	if _, err := srv.identity.LinkCredential(ctx, credential); err != nil {
		srv.log(ctx).Warn("Opportunistic Google link failed", slog.Any("error", err))

		return
	}

	srv.log(ctx).Info("Opportunistically linked Google sign-in method", slog.String("uid", session.UID))
}

func (srv *authService) validateInput(input any) error {
	if err := srv.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				if fieldErr.Tag() == "email" {
					return errors.Wrap(domainerrors.ErrInvalidEmail, "input validation failed")
				}
			}
		}

		return errors.Wrap(domainerrors.ErrValidationFailed, "input validation failed")
	}

	return nil
}

func (srv *authService) checkPasswordLength(password string) error {
	if srv.passwordMinLength <= 0 {
		return nil
	}

	if err := srv.validate.Var(password, fmt.Sprintf("min=%d", srv.passwordMinLength)); err != nil {
		return errors.Wrapf(domainerrors.ErrWeakPassword, "password shorter than %d characters", srv.passwordMinLength)
	}

	return nil
}
