package refreshtokens

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cuppie/cuppie-auth/internal/common"
	"github.com/cuppie/cuppie-auth/internal/dbx"
	"github.com/cuppie/cuppie-auth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {

	query :=
		`INSERT INTO refresh_tokens (user_id, token, created_by_ip, expires_at)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		token.UserID, token.Token, token.CreatedByIP, token.Expires).Scan(&token.ID, &token.CreatedAt)

	if err != nil {
		return common.Wrap(common.KindInternal, "db error", err)
	}

	return nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {

	query :=
		`SELECT id, user_id, token, created_by_ip, revoked_by_ip, revoked, created_at, revoked_at, expires_at
		 FROM refresh_tokens
		 WHERE token = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

// Revoke flips the revoked flag with a conditional update. Zero rows
// affected means the token is either absent or already revoked; a follow-up
// read disambiguates the two.
func (r *PostgresRepository) Revoke(ctx context.Context, token string, revokedByIP string) error {

	query :=
		`UPDATE refresh_tokens
		 SET revoked = true, revoked_by_ip = $2, revoked_at = now()
		 WHERE token = $1 AND NOT revoked
		 `

	res, err := r.db.ExecContext(ctx, query, token, revokedByIP)
	if err != nil {
		return common.Wrap(common.KindInternal, "db error", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return common.Wrap(common.KindInternal, "db error", err)
	}
	if affected > 0 {
		return nil
	}

	existing, err := r.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if existing.Revoked {
		return common.New(common.KindConflict, "refresh token already revoked")
	}
	return common.New(common.KindInternal, "refresh token revocation did not apply")
}

func (r *PostgresRepository) GetAllByUserID(ctx context.Context, userID int64) ([]*models.RefreshToken, error) {

	query :=
		`SELECT id, user_id, token, created_by_ip, revoked_by_ip, revoked, created_at, revoked_at, expires_at
		 FROM refresh_tokens
		 WHERE user_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, "db error", err)
	}
	defer rows.Close()

	var tokens []*models.RefreshToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, common.Wrap(common.KindInternal, "db error", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Wrap(common.KindInternal, "db error", err)
	}
	if len(tokens) == 0 {
		return nil, common.New(common.KindNotFound, "no refresh tokens for user")
	}

	return tokens, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.RefreshToken, error) {
	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.Wrap(common.KindNotFound, "refresh token not found", err)
		}
		return nil, common.Wrap(common.KindInternal, "db error", err)
	}
	return token, nil
}

func scanToken(s scanner) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	var revokedByIP sql.NullString
	var revokedAt sql.NullTime

	err := s.Scan(
		&token.ID, &token.UserID, &token.Token, &token.CreatedByIP,
		&revokedByIP, &token.Revoked, &token.CreatedAt, &revokedAt, &token.Expires)
	if err != nil {
		return nil, err
	}

	if revokedByIP.Valid {
		token.RevokedByIP = &revokedByIP.String
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		token.RevokedAt = &t
	}

	return token, nil
}
