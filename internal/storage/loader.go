package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Loader seeds dataset and codes tables from CSV exports. It is a
// development aid, not a migration tool: columns are typed by inspecting the
// data and the table is created if missing.
type Loader struct {
	db      *sql.DB
	dialect Dialect
}

// NewLoader creates a CSV loader.
func NewLoader(db *sql.DB, dialect Dialect) *Loader {
	return &Loader{db: db, dialect: dialect}
}

// LoadOptions controls a single CSV import.
type LoadOptions struct {
	// Replace drops the table before loading.
	Replace bool
	// Progress, when set, is called after every inserted row.
	Progress func(done, total int)
}

type columnType int

const (
	columnInteger columnType = iota
	columnReal
	columnText
)

func (t columnType) sqlType() string {
	switch t {
	case columnInteger:
		return "BIGINT"
	case columnReal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// LoadCSV reads a CSV with a header row into table and returns the number
// of rows inserted. All inserts run in one transaction.
func (l *Loader) LoadCSV(ctx context.Context, table string, r io.Reader, opts LoadOptions) (int, error) {
	if err := ValidateIdentifier(table); err != nil {
		return 0, err
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("read csv: missing header row")
	}

	header := records[0]
	body := records[1:]
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if err := ValidateIdentifier(header[i]); err != nil {
			return 0, fmt.Errorf("column %d: %w", i+1, err)
		}
	}
	types := inferColumnTypes(len(header), body)

	quotedTable := l.dialect.QuoteTable(table)
	defs := make([]string, len(header))
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = l.dialect.Quote(h)
		defs[i] = cols[i] + " " + types[i].sqlType()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if opts.Replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quotedTable); err != nil {
			return 0, fmt.Errorf("drop %s: %w", table, err)
		}
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quotedTable, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	insert, _, err := sq.Insert(quotedTable).
		Columns(cols...).
		Values(make([]any, len(cols))...).
		PlaceholderFormat(l.dialect.Placeholder).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for n, rec := range body {
		args := make([]any, len(header))
		for i := range header {
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			args[i] = convertCell(cell, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", n+2, err)
		}
		if opts.Progress != nil {
			opts.Progress(n+1, len(body))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(body), nil
}

// inferColumnTypes picks the narrowest type every non-empty cell parses as.
func inferColumnTypes(n int, rows [][]string) []columnType {
	types := make([]columnType, n)
	seen := make([]bool, n)
	for _, row := range rows {
		for i := 0; i < n && i < len(row); i++ {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			seen[i] = true
			switch types[i] {
			case columnInteger:
				if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
					continue
				}
				if _, err := strconv.ParseFloat(cell, 64); err == nil {
					types[i] = columnReal
					continue
				}
				types[i] = columnText
			case columnReal:
				if _, err := strconv.ParseFloat(cell, 64); err != nil {
					types[i] = columnText
				}
			}
		}
	}
	for i := range types {
		if !seen[i] {
			types[i] = columnText
		}
	}
	return types
}

func convertCell(cell string, t columnType) any {
	if cell == "" {
		return nil
	}
	switch t {
	case columnInteger:
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
	case columnReal:
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	}
	return cell
}
