// Package firebase implements the identity provider against the Firebase
// Identity Toolkit REST endpoints. The Go Admin SDK only covers server-side
// administration; credential sign-in goes through the same REST surface the
// client SDKs use.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"beacon/config"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"

	"github.com/pkg/errors"
)

const (
	identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

	// requestURI is required by the signInWithIdp endpoint even though the
	// credential was obtained on-device rather than via a redirect.
	requestURI = "http://localhost"

	defaultTimeout = 15 * time.Second
)

// Client is a thin wrapper over the Identity Toolkit accounts endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a REST client from the Firebase configuration. When an
// emulator host is configured, requests are routed to it over plain HTTP.
func NewClient(cfg *config.FirebaseConfig) *Client {
	baseURL := identityToolkitURL
	if cfg.AuthEmulatorHost != "" {
		baseURL = "http://" + cfg.AuthEmulatorHost + "/identitytoolkit.googleapis.com/v1"
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// tokenResult carries the credentials returned by the token-issuing endpoints.
type tokenResult struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

// idpResult extends tokenResult with the federated sign-in fields.
type idpResult struct {
	tokenResult

	ProviderID       string   `json:"providerId"`
	EmailVerified    bool     `json:"emailVerified"`
	NeedConfirmation bool     `json:"needConfirmation"`
	VerifiedProvider []string `json:"verifiedProvider"`
}

// accountInfo is one user entry of the accounts:lookup response.
type accountInfo struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	EmailVerified    bool   `json:"emailVerified"`
	DisplayName      string `json:"displayName"`
	PhotoURL         string `json:"photoUrl"`
	ProviderUserInfo []struct {
		ProviderID string `json:"providerId"`
	} `json:"providerUserInfo"`
}

// updateRequest covers the accounts:update payload variants. Zero fields are
// omitted from the request body.
type updateRequest struct {
	IDToken           string   `json:"idToken"`
	Password          string   `json:"password,omitempty"`
	DisplayName       string   `json:"displayName,omitempty"`
	PhotoURL          string   `json:"photoUrl,omitempty"`
	DeleteAttribute   []string `json:"deleteAttribute,omitempty"`
	ReturnSecureToken bool     `json:"returnSecureToken"`
}

// SignUp creates a new email/password account and returns its credentials.
func (c *Client) SignUp(ctx context.Context, email, password string) (*tokenResult, error) {
	result := new(tokenResult)
	err := c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, result)

	return result, err
}

// SignInWithPassword verifies an email/password pair.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*tokenResult, error) {
	result := new(tokenResult)
	err := c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, result)

	return result, err
}

// SignInWithIDP exchanges a federated credential for provider credentials.
// When idToken is non-empty the federated credential is linked to that
// account instead of signing in a separate one.
func (c *Client) SignInWithIDP(ctx context.Context, credential *entity.FederatedCredential, idToken string) (*idpResult, error) {
	postBody := url.Values{}
	postBody.Set("providerId", string(credential.Provider))
	if credential.IDToken != "" {
		postBody.Set("id_token", credential.IDToken)
	}
	if credential.AccessToken != "" {
		postBody.Set("access_token", credential.AccessToken)
	}

	payload := map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	if idToken != "" {
		payload["idToken"] = idToken
	}

	result := new(idpResult)
	err := c.post(ctx, "accounts:signInWithIdp", payload, result)

	return result, err
}

// Lookup fetches the account behind an ID token.
func (c *Client) Lookup(ctx context.Context, idToken string) (*accountInfo, error) {
	var response struct {
		Users []accountInfo `json:"users"`
	}
	if err := c.post(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &response); err != nil {
		return nil, err
	}
	if len(response.Users) == 0 {
		return nil, errors.Wrap(domainerrors.ErrNoActiveUser, "token resolved to no account")
	}

	return &response.Users[0], nil
}

// Update applies account mutations (password, display name, photo).
func (c *Client) Update(ctx context.Context, request *updateRequest) (*tokenResult, error) {
	request.ReturnSecureToken = true
	result := new(tokenResult)
	err := c.post(ctx, "accounts:update", request, result)

	return result, err
}

// SignInMethods returns the sign-in methods registered for an email address.
func (c *Client) SignInMethods(ctx context.Context, email string) ([]entity.ProviderID, error) {
	var response struct {
		SigninMethods []string `json:"signinMethods"`
		Registered    bool     `json:"registered"`
	}
	err := c.post(ctx, "accounts:createAuthUri", map[string]any{
		"identifier":  email,
		"continueUri": requestURI,
	}, &response)
	if err != nil {
		return nil, err
	}

	methods := make([]entity.ProviderID, 0, len(response.SigninMethods))
	for _, method := range response.SigninMethods {
		methods = append(methods, entity.ProviderID(method))
	}

	return methods, nil
}

// SendVerificationEmail requests a VERIFY_EMAIL out-of-band code email.
func (c *Client) SendVerificationEmail(ctx context.Context, idToken string) error {
	return c.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}, &struct{}{})
}

func (c *Client) post(ctx context.Context, endpoint string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s request", endpoint)
	}

	requestURL := c.baseURL + "/" + endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to create %s request", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(domainerrors.ErrNetworkFailure.WithDetails(err.Error()), "%s request failed", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeError(endpoint, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", endpoint)
	}

	return nil
}

func (c *Client) decodeError(endpoint string, resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var response struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &response); err != nil || response.Error.Message == "" {
		return errors.Errorf("%s failed with status %d: %s", endpoint, resp.StatusCode, string(raw))
	}

	return errors.Wrapf(mapErrorCode(response.Error.Message), "%s rejected", endpoint)
}

// mapErrorCode translates Identity Toolkit error codes into the domain error
// taxonomy. The raw code is preserved in the error details.
func mapErrorCode(code string) error {
	// WEAK_PASSWORD arrives with a trailing description, e.g.
	// "WEAK_PASSWORD : Password should be at least 6 characters".
	head, _, _ := strings.Cut(code, " ")

	var base *domainerrors.BaseError
	switch head {
	case "EMAIL_EXISTS":
		base = domainerrors.ErrEmailInUse
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		base = domainerrors.ErrInvalidCredential
	case "INVALID_EMAIL", "MISSING_EMAIL":
		base = domainerrors.ErrInvalidEmail
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		base = domainerrors.ErrWeakPassword
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		base = domainerrors.ErrTooManyRequests
	case "CREDENTIAL_TOO_OLD_LOGIN_AGAIN", "TOKEN_EXPIRED", "INVALID_ID_TOKEN":
		base = domainerrors.ErrRequiresReauthentication
	case "FEDERATED_USER_ID_ALREADY_LINKED":
		base = domainerrors.ErrCredentialAlreadyInUse
	default:
		base = domainerrors.ErrUnknown
	}

	return base.WithDetails(code)
}
