package repository

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	lookupQuery    = `SELECT password FROM credentials WHERE username = $1`
	insertQuery    = `INSERT INTO credentials (username, password) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	usernamesQuery = `SELECT username FROM credentials ORDER BY username`
)

func setupCredentialMock(t *testing.T) (*PostgresCredentialRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresCredentialRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestLookup_Found(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(lookupQuery)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"password"}).AddRow("pw1"))

	password, found, err := repo.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || password != "pw1" {
		t.Errorf("Lookup = (%q, %v); want (%q, true)", password, found, "pw1")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLookup_NotFound(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(lookupQuery)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, found, err := repo.Lookup(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected user to be absent")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLookup_Error(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(lookupQuery)).
		WithArgs("alice").
		WillReturnError(errors.New("connection reset"))

	_, _, err := repo.Lookup(context.Background(), "alice")
	if !errors.Is(err, ErrIO) {
		t.Errorf("Lookup error = %v; want ErrIO", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"new user", 1, true},
		{"conflict", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCredentialMock(t)
			defer cleanup()

			mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
				WithArgs("alice", "pw1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			inserted, err := repo.Insert(context.Background(), "alice", "pw1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inserted != tt.want {
				t.Errorf("Insert = %v; want %v", inserted, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestInsert_Error(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("alice", "pw1").
		WillReturnError(errors.New("disk full"))

	if _, err := repo.Insert(context.Background(), "alice", "pw1"); !errors.Is(err, ErrIO) {
		t.Errorf("Insert error = %v; want ErrIO", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUsernames(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(usernamesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("alice").AddRow("bob"))

	names, err := repo.Usernames(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"alice", "bob"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Usernames = %v; want %v", names, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUsernames_QueryError(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(usernamesQuery)).
		WillReturnError(errors.New("boom"))

	if _, err := repo.Usernames(context.Background()); !errors.Is(err, ErrIO) {
		t.Errorf("Usernames error = %v; want ErrIO", err)
	}
}
