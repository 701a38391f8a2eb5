package models

import "time"

// RefreshToken is one issued refresh token. A row is either live (not
// revoked, not expired) or dead; revocation is permanent. Rows are never
// deleted so the chain stays available for replay detection.
type RefreshToken struct {
	ID          int64
	UserID      int64
	Token       string
	CreatedByIP string
	RevokedByIP *string
	Revoked     bool
	CreatedAt   time.Time
	RevokedAt   *time.Time
	Expires     time.Time
}
