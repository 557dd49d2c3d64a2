package firebase

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// federatedClaims are the profile claims a federated provider puts into its
// ID tokens.
type federatedClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// parseFederatedClaims extracts profile claims from a federated ID token
// without verifying its signature. Signature verification is the Identity
// Toolkit's job; these claims only serve as display hints, e.g. the photo
// offered during an account-collision merge.
func parseFederatedClaims(idToken string) (*federatedClaims, error) {
	claims := new(federatedClaims)
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, errors.Wrap(err, "failed to parse federated id token claims")
	}

	return claims, nil
}
