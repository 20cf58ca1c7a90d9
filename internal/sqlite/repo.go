package sqlite

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

// Ensure Repo implements the Repository interface
var _ quantumwatch.Repository = (*Repo)(nil)

// SQLITE_CONSTRAINT_UNIQUE
const uniqueViolation = 2067

type Repo struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) Repo {
	return Repo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// DSN builds the connection string for a database file: WAL, immediate write
// transactions, a busy timeout and sqlite formatted timestamps.
func DSN(path string) string {
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Set("_time_format", "sqlite")

	return fmt.Sprintf("file:%s?%s", path, params.Encode())
}

// Open connects to the database file at path. Importing this package
// registers the "sqlite" driver.
func Open(path string) (*sqlx.DB, error) {
	dbx, err := sqlx.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite: %s", err)
	}
	// A single writer keeps busy errors away from concurrent stages
	dbx.SetMaxOpenConns(1)

	return dbx, nil
}

func isUniqueViolation(err error) bool {
	sqliteErr := &sqlite.Error{}
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == uniqueViolation
}

func newID(namespace string) string {
	return fmt.Sprintf("%s%s", uuid.NewString(), namespace)
}
