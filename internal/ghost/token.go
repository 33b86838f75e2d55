package ghost

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hpungsan/ghostmcp/internal/errors"
)

// tokenTTL is the lifetime of each Admin API token. Ghost rejects anything over 5 minutes.
const tokenTTL = 5 * time.Minute

// adminAudience is the audience Ghost expects on Admin API tokens.
const adminAudience = "/admin/"

// adminKey is a parsed Admin API key.
type adminKey struct {
	id     string
	secret []byte
}

// parseAdminKey splits "<id>:<hex secret>" and decodes the secret.
func parseAdminKey(key string) (adminKey, error) {
	id, secretHex, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok || id == "" || secretHex == "" {
		return adminKey{}, errors.NewInvalidRequest("admin API key must have the form <id>:<secret>")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return adminKey{}, errors.NewInvalidRequest("admin API key secret is not valid hex")
	}
	return adminKey{id: id, secret: secret}, nil
}

// sign mints a short-lived HS256 token for the Admin API.
func (k adminKey) sign(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
		"aud": adminAudience,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = k.id
	return token.SignedString(k.secret)
}
