package firebase

import (
	"context"
	"log/slog"
	"sync"

	"beacon/config"
	"beacon/internal/appcontext"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/service"
	"beacon/internal/stream"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Provider implements service.IdentityProvider on top of the Identity Toolkit
// client. It owns the device's current session: every sign-in, sign-out and
// profile mutation goes through it and is published to session observers.
type Provider struct {
	client *Client
	logger *slog.Logger

	sessions *stream.Replay[*entity.Session]

	mu           sync.Mutex
	current      *entity.Session
	idToken      string
	refreshToken string
}

// ProviderParams holds dependencies for the identity provider, injected by Fx.
type ProviderParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewProvider is the constructor for Provider.
func NewProvider(params ProviderParams) (service.IdentityProvider, error) {
	if params.Config == nil || params.Config.Firebase == nil {
		return nil, errors.New("firebase configuration is required")
	}

	return &Provider{
		client:   NewClient(params.Config.Firebase),
		logger:   params.Logger,
		sessions: stream.NewReplay[*entity.Session](sessionEqual),
	}, nil
}

func sessionEqual(a, b *entity.Session) bool {
	return a.Equal(b)
}

func (p *Provider) log(ctx context.Context) *slog.Logger {
	return appcontext.GetLoggerOrDefault(ctx, p.logger)
}

// RegisterWithPassword creates a password account and signs it in.
func (p *Provider) RegisterWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	result, err := p.client.SignUp(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create password account")
	}

	return p.adoptTokens(ctx, result.IDToken, result.RefreshToken)
}

// SignInWithPassword authenticates an existing password account.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	result, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "password verification failed")
	}

	return p.adoptTokens(ctx, result.IDToken, result.RefreshToken)
}

// SignInWithFederatedCredential authenticates with a device-obtained federated
// credential. An account collision surfaces as *AccountCollisionError instead
// of a session.
func (p *Provider) SignInWithFederatedCredential(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error) {
	result, err := p.client.SignInWithIDP(ctx, credential, "")
	if err != nil {
		return nil, errors.Wrap(err, "federated credential exchange failed")
	}

	if result.NeedConfirmation {
		return nil, p.collisionError(ctx, credential, result)
	}

	return p.adoptTokens(ctx, result.IDToken, result.RefreshToken)
}

// collisionError assembles the collision report for the linking coordinator.
// The federated photo is taken from the provider response when present, and
// from the credential's own token claims otherwise.
func (p *Provider) collisionError(ctx context.Context, credential *entity.FederatedCredential, result *idpResult) error {
	photoURL := result.PhotoURL
	email := result.Email
	if credential.IDToken != "" && (photoURL == "" || email == "") {
		if claims, err := parseFederatedClaims(credential.IDToken); err == nil {
			if photoURL == "" {
				photoURL = claims.Picture
			}
			if email == "" {
				email = claims.Email
			}
		}
	}

	p.log(ctx).Info("Federated sign-in collided with an existing account",
		slog.String("email", email), slog.String("provider", string(credential.Provider)))

	return &domainerrors.AccountCollisionError{
		Email:      email,
		Credential: credential,
		PhotoURL:   photoURL,
	}
}

// SignOut clears the local session. There is no provider-side call to make;
// dropping the tokens is what signing out means here.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.idToken = ""
	p.refreshToken = ""
	p.mu.Unlock()

	p.log(ctx).Debug("Session cleared")
	p.sessions.Publish(nil)

	return nil
}

// Reauthenticate re-verifies the password without replacing the session. The
// fresh ID token is kept so a following sensitive mutation does not trip the
// provider's credential-age check.
func (p *Provider) Reauthenticate(ctx context.Context, email, password string) error {
	result, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return errors.Wrap(err, "re-authentication failed")
	}

	p.mu.Lock()
	if p.current != nil && p.current.UID == result.LocalID {
		p.idToken = result.IDToken
		p.refreshToken = result.RefreshToken
	}
	p.mu.Unlock()

	return nil
}

// UpdatePassword applies a new password to the current account.
func (p *Provider) UpdatePassword(ctx context.Context, newPassword string) error {
	idToken, err := p.currentToken()
	if err != nil {
		return err
	}

	result, err := p.client.Update(ctx, &updateRequest{IDToken: idToken, Password: newPassword})
	if err != nil {
		return errors.Wrap(err, "password update rejected")
	}

	p.mu.Lock()
	if result.IDToken != "" {
		p.idToken = result.IDToken
		p.refreshToken = result.RefreshToken
	}
	p.mu.Unlock()

	return nil
}

// UpdateProfile applies display name and photo changes to the current account
// and republishes the refreshed session.
func (p *Provider) UpdateProfile(ctx context.Context, update *service.ProfileUpdate) error {
	idToken, err := p.currentToken()
	if err != nil {
		return err
	}

	request := &updateRequest{IDToken: idToken}
	if update.DisplayName != nil {
		request.DisplayName = *update.DisplayName
		if *update.DisplayName == "" {
			request.DeleteAttribute = append(request.DeleteAttribute, "DISPLAY_NAME")
		}
	}
	if update.PhotoURL != nil {
		request.PhotoURL = *update.PhotoURL
		if *update.PhotoURL == "" {
			request.DeleteAttribute = append(request.DeleteAttribute, "PHOTO_URL")
		}
	}

	if _, err := p.client.Update(ctx, request); err != nil {
		return errors.Wrap(err, "profile update rejected")
	}

	if _, err := p.refreshSession(ctx); err != nil {
		return errors.Wrap(err, "failed to refresh session after profile update")
	}

	return nil
}

// ListSignInMethods returns the sign-in methods registered for an email.
func (p *Provider) ListSignInMethods(ctx context.Context, email string) ([]entity.ProviderID, error) {
	methods, err := p.client.SignInMethods(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sign-in methods")
	}

	return methods, nil
}

// LinkCredential links a federated credential to the current account.
func (p *Provider) LinkCredential(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error) {
	idToken, err := p.currentToken()
	if err != nil {
		return nil, err
	}

	result, err := p.client.SignInWithIDP(ctx, credential, idToken)
	if err != nil {
		return nil, errors.Wrap(err, "credential link rejected")
	}

	return p.adoptTokens(ctx, result.IDToken, result.RefreshToken)
}

// SendVerificationEmail asks the provider to mail a verification link.
func (p *Provider) SendVerificationEmail(ctx context.Context) error {
	idToken, err := p.currentToken()
	if err != nil {
		return err
	}

	if err := p.client.SendVerificationEmail(ctx, idToken); err != nil {
		return errors.Wrap(err, "failed to send verification email")
	}

	return nil
}

// CurrentSession returns the latest session, or nil when signed out.
func (p *Provider) CurrentSession() *entity.Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}

// ObserveSession subscribes to session transitions with replay of the latest.
func (p *Provider) ObserveSession() (<-chan *entity.Session, func()) {
	return p.sessions.Subscribe()
}

func (p *Provider) currentToken() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.idToken == "" {
		return "", errors.Wrap(domainerrors.ErrNoActiveUser, "no session token available")
	}

	return p.idToken, nil
}

// adoptTokens installs a fresh credential pair and loads the session behind it.
func (p *Provider) adoptTokens(ctx context.Context, idToken, refreshToken string) (*entity.Session, error) {
	p.mu.Lock()
	p.idToken = idToken
	p.refreshToken = refreshToken
	p.mu.Unlock()

	return p.refreshSession(ctx)
}

// refreshSession re-reads the account behind the stored ID token and publishes
// the resulting session.
func (p *Provider) refreshSession(ctx context.Context) (*entity.Session, error) {
	idToken, err := p.currentToken()
	if err != nil {
		return nil, err
	}

	info, err := p.client.Lookup(ctx, idToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load account")
	}

	providers := make([]entity.ProviderID, 0, len(info.ProviderUserInfo))
	for _, providerInfo := range info.ProviderUserInfo {
		providers = append(providers, entity.ProviderID(providerInfo.ProviderID))
	}

	session := &entity.Session{
		UID:           info.LocalID,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		DisplayName:   info.DisplayName,
		PhotoURL:      info.PhotoURL,
		Providers:     providers,
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.sessions.Publish(session)
	p.log(ctx).Debug("Session refreshed", slog.String("uid", session.UID))

	return session, nil
}
