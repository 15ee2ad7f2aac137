// Package reference resolves human-readable state and district names to the
// codes used by the survey dataset, via the read-only codes table.
package reference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Vinayak1844/Statathon-Project/internal/observability"
	"github.com/Vinayak1844/Statathon-Project/internal/storage"
)

// ErrReferenceNotFound is matched by every *NotFoundError.
var ErrReferenceNotFound = errors.New("reference not found")

// Kind selects which name/code column pair of the codes table to use.
type Kind string

const (
	KindState    Kind = "state"
	KindDistrict Kind = "district"
)

// Columns names the lookup and code columns of a kind.
type Columns struct {
	Name string
	Code string
}

// DefaultColumns are the codes table columns of the survey reference data.
var DefaultColumns = map[Kind]Columns{
	KindState:    {Name: "State Name", Code: "state_code"},
	KindDistrict: {Name: "DISTRICT NAME", Code: "DISTRICT CODE"},
}

// Label is the capitalised kind used in user-facing messages.
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Code is a resolved reference code in the driver's native type (int64 or
// string) so it compares correctly against the dataset column.
type Code = any

// NotFoundError reports a name with no row in the codes table.
type NotFoundError struct {
	Kind Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found in codes table", e.Kind.Label(), e.Name)
}

// Is makes errors.Is(err, ErrReferenceNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrReferenceNotFound
}

// Resolver maps a name of the given kind to its code.
type Resolver interface {
	Resolve(ctx context.Context, kind Kind, name string) (Code, error)
}

// SQLResolver looks names up in the codes table. Matching is exact and
// case-sensitive as far as the column collation allows. When a name appears
// on several rows (a state repeats once per district) the first row in the
// store's default order wins; duplicates are not reconciled.
type SQLResolver struct {
	db      storage.DB
	dialect storage.Dialect
	table   string
	columns map[Kind]Columns
	logger  *observability.Logger
}

// SQLResolverConfig configures an SQLResolver.
type SQLResolverConfig struct {
	Table   string
	Dialect storage.Dialect
	// Columns overrides DefaultColumns per kind.
	Columns map[Kind]Columns
}

// NewSQLResolver creates a resolver over db.
func NewSQLResolver(db storage.DB, logger *observability.Logger, cfg SQLResolverConfig) (*SQLResolver, error) {
	if err := storage.ValidateIdentifier(cfg.Table); err != nil {
		return nil, fmt.Errorf("codes table: %w", err)
	}
	columns := make(map[Kind]Columns, len(DefaultColumns))
	for k, c := range DefaultColumns {
		columns[k] = c
	}
	for k, c := range cfg.Columns {
		columns[k] = c
	}
	for k, c := range columns {
		if err := storage.ValidateIdentifier(c.Name); err != nil {
			return nil, fmt.Errorf("%s name column: %w", k, err)
		}
		if err := storage.ValidateIdentifier(c.Code); err != nil {
			return nil, fmt.Errorf("%s code column: %w", k, err)
		}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &SQLResolver{
		db:      db,
		dialect: cfg.Dialect,
		table:   cfg.Table,
		columns: columns,
		logger:  logger.WithOperation("reference.resolve"),
	}, nil
}

// Resolve returns the code for name or a *NotFoundError.
func (r *SQLResolver) Resolve(ctx context.Context, kind Kind, name string) (Code, error) {
	cols, ok := r.columns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}

	query, args, err := sq.Select(r.dialect.Quote(cols.Code)).
		From(r.dialect.QuoteTable(r.table)).
		Where(sq.Eq{r.dialect.Quote(cols.Name): name}).
		Limit(1).
		PlaceholderFormat(r.dialect.Placeholder).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", kind, err)
	}

	var code any
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ReferenceLookups.WithLabelValues(string(kind), "not_found").Inc()
		r.logger.Debug().Str("kind", string(kind)).Str("name", name).Msg("Reference not found")
		return nil, &NotFoundError{Kind: kind, Name: name}
	}
	if err != nil {
		observability.ReferenceLookups.WithLabelValues(string(kind), "error").Inc()
		return nil, fmt.Errorf("lookup %s %q: %w", kind, name, err)
	}
	if code == nil {
		// a NULL code cannot match any dataset row
		observability.ReferenceLookups.WithLabelValues(string(kind), "not_found").Inc()
		return nil, &NotFoundError{Kind: kind, Name: name}
	}

	observability.ReferenceLookups.WithLabelValues(string(kind), "found").Inc()
	if b, ok := code.([]byte); ok {
		return string(b), nil
	}
	return code, nil
}
