package repository

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresCredentialRepository implements credential storage using a PostgreSQL database.
type PostgresCredentialRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresCredentialRepository creates a new PostgresCredentialRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresCredentialRepository(db *sql.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{DB: db}
}

// Lookup returns the stored password for username.
// found is false when no such user exists.
func (s *PostgresCredentialRepository) Lookup(ctx context.Context, username string) (string, bool, error) {
	var password string
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT password FROM credentials WHERE username = $1`,
		username,
	).Scan(&password)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError("Lookup failed", err)
	}
	return password, true, nil
}

// Insert attempts to register username with password.
// If the username already exists, the ON CONFLICT DO NOTHING clause leaves the stored
// password untouched and inserted is false.
func (s *PostgresCredentialRepository) Insert(ctx context.Context, username, password string) (bool, error) {
	res, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO credentials (username, password) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		username, password,
	)
	if err != nil {
		return false, ioError("Insert failed", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, ioError("Insert failed", err)
	}
	return rows == 1, nil
}

// Usernames returns all registered usernames ordered lexically.
func (s *PostgresCredentialRepository) Usernames(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT username FROM credentials ORDER BY username`)
	if err != nil {
		return nil, ioError("Usernames failed", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ioError("scan", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("Usernames failed", err)
	}
	return names, nil
}
