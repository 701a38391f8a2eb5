// Package refreshtokens declares the repository contract for refresh-token
// records. The store reports state; judging whether a token is still usable
// is the caller's job.
package refreshtokens

import (
	"context"

	"github.com/cuppie/cuppie-auth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke marks the token revoked. The update is conditional on the
	// token not being revoked yet, so concurrent rotations of the same
	// token resolve to exactly one winner; the loser gets Conflict.
	Revoke(ctx context.Context, token string, revokedByIP string) error

	GetAllByUserID(ctx context.Context, userID int64) ([]*models.RefreshToken, error)
}
