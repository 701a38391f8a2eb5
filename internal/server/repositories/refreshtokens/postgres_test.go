package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cuppie/cuppie-auth/internal/common"
	"github.com/cuppie/cuppie-auth/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var tokenColumns = []string{
	"id", "user_id", "token", "created_by_ip", "revoked_by_ip",
	"revoked", "created_at", "revoked_at", "expires_at",
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*token,\s*created_by_ip,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at\s*$`

	expires := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), time.Now())
	mock.ExpectQuery(q).
		WithArgs(int64(1), "tok", "1.2.3.4", expires).
		WillReturnRows(rows)

	token := &models.RefreshToken{UserID: 1, Token: "tok", CreatedByIP: "1.2.3.4", Expires: expires}
	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if token.ID != 5 {
		t.Fatalf("expected assigned id, got %+v", token)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+refresh_tokens`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.RefreshToken{UserID: 1, Token: "tok", CreatedByIP: "ip", Expires: time.Now()})
	if !errors.Is(err, common.ErrInternal) {
		t.Fatalf("want Internal, got %v", err)
	}
}

func TestGetByToken_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	revokedAt := time.Now()
	rows := sqlmock.NewRows(tokenColumns).
		AddRow(int64(5), int64(1), "tok", "1.2.3.4", "5.6.7.8", true, time.Now(), revokedAt, time.Now().Add(time.Hour))
	mock.ExpectQuery(`SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+token`).
		WithArgs("tok").
		WillReturnRows(rows)

	got, err := repo.GetByToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetByToken error: %v", err)
	}
	if !got.Revoked || got.RevokedByIP == nil || *got.RevokedByIP != "5.6.7.8" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.RevokedAt == nil {
		t.Fatalf("expected revoked_at to be set")
	}
}

func TestGetByToken_LiveTokenHasNullableFieldsUnset(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(tokenColumns).
		AddRow(int64(5), int64(1), "tok", "1.2.3.4", nil, false, time.Now(), nil, time.Now().Add(time.Hour))
	mock.ExpectQuery(`SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+token`).
		WithArgs("tok").
		WillReturnRows(rows)

	got, err := repo.GetByToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetByToken error: %v", err)
	}
	if got.Revoked || got.RevokedByIP != nil || got.RevokedAt != nil {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGetByToken_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+token`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByToken(context.Background(), "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestRevoke_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*true,\s*revoked_by_ip\s*=\s*\$2,\s*revoked_at\s*=\s*now\(\)\s+WHERE\s+token\s*=\s*\$1\s+AND\s+NOT\s+revoked\s*$`

	mock.ExpectExec(q).
		WithArgs("tok", "1.2.3.4").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Revoke(context.Background(), "tok", "1.2.3.4"); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
}

func TestRevoke_AlreadyRevoked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+refresh_tokens`).
		WithArgs("tok", "1.2.3.4").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows(tokenColumns).
		AddRow(int64(5), int64(1), "tok", "1.2.3.4", "9.9.9.9", true, time.Now(), time.Now(), time.Now().Add(time.Hour))
	mock.ExpectQuery(`SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+token`).
		WithArgs("tok").
		WillReturnRows(rows)

	err := repo.Revoke(context.Background(), "tok", "1.2.3.4")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want Conflict for double revocation, got %v", err)
	}
}

func TestRevoke_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+refresh_tokens`).
		WithArgs("ghost", "1.2.3.4").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(`SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+token`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	err := repo.Revoke(context.Background(), "ghost", "1.2.3.4")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestGetAllByUserID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(tokenColumns).
		AddRow(int64(1), int64(7), "tok1", "ip", nil, false, time.Now(), nil, time.Now().Add(time.Hour)).
		AddRow(int64(2), int64(7), "tok2", "ip", nil, true, time.Now(), time.Now(), time.Now().Add(time.Hour))
	mock.ExpectQuery(`SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+user_id`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := repo.GetAllByUserID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetAllByUserID error: %v", err)
	}
	if len(got) != 2 || got[0].Token != "tok1" || !got[1].Revoked {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestGetAllByUserID_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+user_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(tokenColumns))

	_, err := repo.GetAllByUserID(context.Background(), 7)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want NotFound for empty set, got %v", err)
	}
}
