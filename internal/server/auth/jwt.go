// Package auth issues and validates the service's access tokens and
// generates the opaque refresh tokens that accompany them.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cuppie/cuppie-auth/internal/common"
	"github.com/cuppie/cuppie-auth/internal/server/models"
)

// Claims is the access-token payload: the registered claims plus the
// username and optional email embedded at issue time.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"name"`
	Email    string `json:"email,omitempty"`
}

// Issuer mints and validates tokens. It is stateless: everything it
// produces is a pure function of its configuration and the input.
type Issuer struct {
	key             []byte
	issuer          string
	audience        string
	accessValidity  time.Duration
	refreshValidity time.Duration
}

func NewIssuer(key []byte, issuer, audience string, accessValidity, refreshValidity time.Duration) *Issuer {
	return &Issuer{
		key:             key,
		issuer:          issuer,
		audience:        audience,
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
	}
}

// AccessToken mints a signed HS256 token for the user and reports its
// lifetime in minutes.
func (i *Issuer) AccessToken(user *models.User) (string, int, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessValidity)),
		},
		Username: user.Username,
		Email:    user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", 0, err
	}

	return signed, int(i.accessValidity.Minutes()), nil
}

// RefreshToken generates size cryptographically secure random bytes and
// returns them base64-encoded together with the configured refresh lifetime
// in minutes. The token is opaque: it carries no embedded structure.
func (i *Issuer) RefreshToken(size int) (string, int, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", 0, err
	}

	return base64.StdEncoding.EncodeToString(b), int(i.refreshValidity.Minutes()), nil
}

// ParseAccessToken verifies signature, signing method, issuer, audience and
// lifetime. Every failure collapses into a single Unauthorized error so
// callers cannot probe which check rejected the token; the cause stays in
// the wrapped error for server-side logs.
func (i *Issuer) ParseAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, common.Wrap(common.KindUnauthorized, "invalid access token", err)
	}
	if !token.Valid {
		return nil, common.New(common.KindUnauthorized, "invalid access token")
	}

	return claims, nil
}
