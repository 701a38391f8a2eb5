// Package services contains the application logic of the auth service.
// The AuthService orchestrates credential verification, token issuance and
// refresh token rotation on top of the repository layer.
package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/cuppie/cuppie-auth/internal/common"
	"github.com/cuppie/cuppie-auth/internal/cryptox"
	"github.com/cuppie/cuppie-auth/internal/dbx"
	"github.com/cuppie/cuppie-auth/internal/logging"
	"github.com/cuppie/cuppie-auth/internal/server/auth"
	"github.com/cuppie/cuppie-auth/internal/server/models"
	"github.com/cuppie/cuppie-auth/internal/server/repositories/repomanager"
)

// PasswordHasher derives and verifies password digests.
type PasswordHasher interface {
	DeriveKey(password string, salt []byte) string
	VerifyPassword(password string, hash string, salt []byte) bool
	GenerateSalt(size int) []byte
}

// TokenIssuer mints and validates tokens for authenticated users.
type TokenIssuer interface {
	AccessToken(user *models.User) (string, int, error)
	RefreshToken(size int) (string, int, error)
	ParseAccessToken(tokenString string) (*auth.Claims, error)
}

// RegisterRequest carries the fields of a registration attempt.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	IP       string `json:"-"`
}

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks the field shapes: username 1-30 chars from a restricted
// alphabet, email a plausible address.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 30), validation.Match(usernameRe)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

// LoginRequest carries the fields of a login attempt.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IP       string `json:"-"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// SafeUser is a user snapshot with credential material stripped.
type SafeUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenData is a minted token together with its lifetime in minutes.
type TokenData struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// AuthResult is the outcome of a successful register, login or refresh.
type AuthResult struct {
	User         SafeUser  `json:"user"`
	AccessToken  TokenData `json:"access_token"`
	RefreshToken TokenData `json:"refresh_token"`
}

// AuthService implements registration, login, token refresh and account
// removal. Refresh token rotation runs inside a single transaction so the
// revocation of the old token and the insertion of its replacement commit or
// roll back together.
type AuthService struct {
	db                 *sql.DB
	repos              repomanager.RepositoryManager
	issuer             TokenIssuer
	hasher             PasswordHasher
	logger             logging.Logger
	refreshTokenLength int
}

// NewAuthService wires an AuthService from its collaborators.
func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, issuer TokenIssuer,
	hasher PasswordHasher, logger logging.Logger, refreshTokenLength int) *AuthService {
	return &AuthService{
		db:                 db,
		repos:              repos,
		issuer:             issuer,
		hasher:             hasher,
		logger:             logger,
		refreshTokenLength: refreshTokenLength,
	}
}

func safeUser(u *models.User) SafeUser {
	return SafeUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Register creates a new account and signs the user in. Blank or malformed
// input is rejected before any storage access. An existing username yields
// a conflict; storage errors other than "not found" from the pre-check are
// propagated as-is.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.New(common.KindBadRequest, "invalid input data")
	}
	if err := req.Validate(); err != nil {
		return nil, common.Wrap(common.KindBadRequest, "invalid input data", err)
	}

	users := s.repos.Users(s.db)

	_, err := users.GetByUsername(ctx, req.Username)
	if err == nil {
		return nil, common.New(common.KindConflict, "username already taken")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	salt := s.hasher.GenerateSalt(cryptox.SaltSize)
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: s.hasher.DeriveKey(req.Password, salt),
		Salt:         salt,
	}

	created, err := users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID, "username", created.Username)

	return s.issueTokens(ctx, req.IP, created.ID, "")
}

// Login verifies the credentials and signs the user in. A missing user and a
// wrong password produce the same unauthorized error so the response does not
// reveal which usernames exist.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, common.Wrap(common.KindValidation, "invalid input data", err)
	}

	user, err := s.repos.Users(s.db).GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.New(common.KindUnauthorized, "invalid login or password")
		}
		return nil, err
	}

	if !s.hasher.VerifyPassword(req.Password, user.PasswordHash, user.Salt) {
		return nil, common.New(common.KindUnauthorized, "invalid login or password")
	}

	return s.issueTokens(ctx, req.IP, user.ID, "")
}

// Refresh exchanges a live refresh token for a fresh token pair, revoking the
// presented token in the same transaction. An unknown token is not found, an
// expired one is unauthorized, and a token that was already revoked is a bad
// request; the last case is also logged, since a replayed token is a signal
// of either a leaked token or a misbehaving client.
func (s *AuthService) Refresh(ctx context.Context, token string, ip string) (*AuthResult, error) {
	rt, err := s.repos.RefreshTokens(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.New(common.KindNotFound, "refresh token not found")
		}
		return nil, err
	}

	if time.Now().After(rt.Expires) {
		return nil, common.New(common.KindUnauthorized, "refresh token expired")
	}

	if rt.Revoked {
		s.logger.Warn(ctx, "revoked refresh token presented",
			"user_id", rt.UserID, "ip", ip)
		return nil, common.New(common.KindBadRequest, "refresh token already revoked")
	}

	return s.issueTokens(ctx, ip, rt.UserID, token)
}

// Identify resolves the user snapshot encoded in an access token. Signature,
// expiry, issuer and audience failures are unauthorized; a token that
// validates but carries malformed identity claims is a validation error.
func (s *AuthService) Identify(ctx context.Context, accessToken string) (*SafeUser, error) {
	claims, err := s.issuer.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, common.New(common.KindValidation, "invalid user id in token")
	}
	if claims.Username == "" || claims.Email == "" {
		return nil, common.New(common.KindValidation, "missing identity claims in token")
	}

	return &SafeUser{ID: id, Username: claims.Username, Email: claims.Email}, nil
}

// DeleteUser removes the account and returns a sanitized snapshot of it.
// Refresh tokens go with the account via the FK cascade.
func (s *AuthService) DeleteUser(ctx context.Context, id int64) (*SafeUser, error) {
	user, err := s.repos.Users(s.db).Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user deleted", "user_id", user.ID, "username", user.Username)

	u := safeUser(user)
	return &u, nil
}

// issueTokens mints an access/refresh token pair for the user and persists
// the refresh token. When oldToken is set the old record is revoked in the
// same transaction as the insert, so a crash between the two cannot leave
// the rotation half-done.
func (s *AuthService) issueTokens(ctx context.Context, ip string, userID int64, oldToken string) (*AuthResult, error) {
	user, err := s.repos.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.New(common.KindInternal, "identity disappeared during token issuance")
		}
		return nil, err
	}

	accessToken, accessMins, err := s.issuer.AccessToken(user)
	if err != nil || accessToken == "" {
		return nil, common.Wrap(common.KindInternal, "minting access token", err)
	}

	refreshToken, refreshMins, err := s.issuer.RefreshToken(s.refreshTokenLength)
	if err != nil || refreshToken == "" {
		return nil, common.Wrap(common.KindInternal, "minting refresh token", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repos.RefreshTokens(tx)

		if oldToken != "" {
			if err := tokens.Revoke(ctx, oldToken, ip); err != nil {
				return err
			}
		}

		return tokens.Create(ctx, &models.RefreshToken{
			UserID:      user.ID,
			Token:       refreshToken,
			CreatedByIP: ip,
			Expires:     time.Now().Add(time.Duration(refreshMins) * time.Minute),
		})
	})
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         safeUser(user),
		AccessToken:  TokenData{Token: accessToken, ExpiresIn: accessMins},
		RefreshToken: TokenData{Token: refreshToken, ExpiresIn: refreshMins},
	}, nil
}
