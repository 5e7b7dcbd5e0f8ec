// Package postgres implements the persistent user store on PostgreSQL.
// Uniqueness of email and username is enforced case-insensitively by
// functional unique indexes, so insert races surface as constraint
// violations instead of needing application-level locking.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/devteamer/authd"
)

//go:embed migrations/*.sql
var migrations embed.FS

const pgUniqueViolation = "23505"

// Store is a UserStore backed by PostgreSQL via the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

var _ authd.UserStore = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const userColumns = "id, email, username, first_name, last_name, password_hash, verified"

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (*authd.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($1)`
	return s.findOne(ctx, query, identifier)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*authd.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.findOne(ctx, query, email)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*authd.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	return s.findOne(ctx, query, username)
}

func (s *Store) findOne(ctx context.Context, query, arg string) (*authd.UserRecord, error) {
	user := &authd.UserRecord{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Username,
		&user.FirstName, &user.LastName,
		&user.PasswordHash, &user.Verified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authd.ErrNoUser
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (s *Store) Insert(ctx context.Context, user *authd.UserRecord) (*authd.UserRecord, error) {
	query := `INSERT INTO users (email, username, first_name, last_name, password_hash, verified)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`

	stored := *user
	err := s.db.QueryRowContext(ctx, query,
		user.Email, user.Username, user.FirstName, user.LastName,
		user.PasswordHash, user.Verified,
	).Scan(&stored.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, authd.ErrDuplicateUser
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &stored, nil
}

func (s *Store) MarkVerified(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return authd.ErrNoUser
	}
	return nil
}
