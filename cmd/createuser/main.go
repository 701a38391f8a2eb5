// Command createuser provisions an account directly in the database. It is
// meant for bootstrapping and operations, bypassing the REST endpoint.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/cuppie/cuppie-auth/internal/cryptox"
	"github.com/cuppie/cuppie-auth/internal/server/models"
	"github.com/cuppie/cuppie-auth/internal/server/repositories/users"
)

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func run() error {
	dsn := flag.String("d", os.Getenv("DATABASE_DSN"), "PostgreSQL DSN")
	username := flag.String("u", "", "username")
	email := flag.String("e", "", "email")
	flag.Parse()

	if *dsn == "" || *username == "" {
		return fmt.Errorf("usage: createuser -d <dsn> -u <username> [-e <email>]")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	salt := cryptox.GenerateSalt(cryptox.SaltSize)
	user := &models.User{
		Username:     *username,
		Email:        *email,
		PasswordHash: cryptox.DeriveKey(password, salt),
		Salt:         salt,
	}

	created, err := users.NewPostgresRepository(db).Create(context.Background(), user)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("created user %q (id %d)\n", created.Username, created.ID)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
