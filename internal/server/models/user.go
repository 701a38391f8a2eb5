package models

import "time"

// User is a registered principal. Username and Email are unique across the
// table; PasswordHash and Salt never leave the repository and service
// layers.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Salt         []byte
	CreatedAt    time.Time
}
