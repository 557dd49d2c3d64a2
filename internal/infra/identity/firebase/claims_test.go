package firebase

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + "."
}

func TestParseFederatedClaims(t *testing.T) {
	token := makeIDToken(t, map[string]any{
		"sub":     "google-subject",
		"email":   "ada@example.com",
		"name":    "Ada Lovelace",
		"picture": "https://example.com/ada.png",
	})

	claims, err := parseFederatedClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.Name)
	assert.Equal(t, "https://example.com/ada.png", claims.Picture)
}

func TestParseFederatedClaimsRejectsGarbage(t *testing.T) {
	_, err := parseFederatedClaims("not-a-jwt")
	assert.Error(t, err)
}
