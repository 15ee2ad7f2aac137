// Package storage provides the database connection, SQL dialect handling and
// dataset access for the survey service.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Common errors
var (
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Config holds connection settings.
type Config struct {
	Driver          string // mysql, sqlite or postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens a connection pool for the configured driver and verifies it
// with a ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Dialect captures the per-engine differences the query layer cares about:
// placeholder style and identifier quoting.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	driverName  string
	quote       byte
}

var (
	MySQL    = Dialect{Name: "mysql", Placeholder: sq.Question, driverName: "mysql", quote: '`'}
	SQLite   = Dialect{Name: "sqlite", Placeholder: sq.Question, driverName: "sqlite3", quote: '`'}
	Postgres = Dialect{Name: "postgres", Placeholder: sq.Dollar, driverName: "postgres", quote: '"'}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Quote returns ident quoted for the dialect. Identifiers may contain
// spaces ("State Name"); an embedded quote character is doubled.
func (d Dialect) Quote(ident string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// QuoteTable quotes a possibly schema-qualified table name.
func (d Dialect) QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, ".")
}

// ValidateIdentifier rejects identifiers that cannot come from trusted
// configuration: empty names and names carrying control characters.
func ValidateIdentifier(ident string) error {
	if strings.TrimSpace(ident) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	for _, r := range ident {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, ident)
		}
	}
	return nil
}
