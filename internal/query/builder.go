// Package query compiles a filter set into a parameterized SELECT over the
// survey dataset table.
package query

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Vinayak1844/Statathon-Project/internal/filters"
	"github.com/Vinayak1844/Statathon-Project/internal/reference"
	"github.com/Vinayak1844/Statathon-Project/internal/storage"
)

// Binding ties a filter key to the dataset column it constrains. Indirect
// bindings carry the reference kind used to turn the supplied name into the
// column's code.
type Binding struct {
	Key    filters.Key
	Column string
	Kind   reference.Kind
}

// Indirect reports whether the binding needs a reference lookup.
func (b Binding) Indirect() bool { return b.Kind != "" }

// DefaultBindings maps every filter key onto the survey table schema, in
// filter declaration order.
var DefaultBindings = []Binding{
	{Key: filters.StateName, Column: "StateUt_Code", Kind: reference.KindState},
	{Key: filters.Sector, Column: "Sector"},
	{Key: filters.DistrictName, Column: "District_Code", Kind: reference.KindDistrict},
	{Key: filters.Religion, Column: "Religion"},
	{Key: filters.SocialGroup, Column: "Social_Group"},
	{Key: filters.HouseholdSize, Column: "Household_Size"},
	{Key: filters.Panel, Column: "Panel"},
	{Key: filters.Quarter, Column: "Quarter"},
	{Key: filters.Visit, Column: "Visit"},
}

// Predicate is one column = value constraint of a compiled query.
type Predicate struct {
	Key    filters.Key
	Column string
	Value  any
}

// Compiled is a ready-to-run statement with its bound arguments.
type Compiled struct {
	SQL        string
	Args       []any
	Predicates []Predicate
}

// Options configures a Builder.
type Options struct {
	Table   string
	Dialect storage.Dialect
	// ResolveNames makes state_name and district_name go through the
	// resolver. When false their values are used as literal codes.
	ResolveNames bool
	// Bindings overrides DefaultBindings.
	Bindings []Binding
}

// Builder compiles filter sets. It is safe for concurrent use.
type Builder struct {
	resolver reference.Resolver
	table    string
	dialect  storage.Dialect
	resolve  bool
	bindings []Binding
}

// NewBuilder creates a builder. resolver may be nil only when
// opts.ResolveNames is false.
func NewBuilder(resolver reference.Resolver, opts Options) (*Builder, error) {
	if err := storage.ValidateIdentifier(opts.Table); err != nil {
		return nil, fmt.Errorf("dataset table: %w", err)
	}
	if opts.ResolveNames && resolver == nil {
		return nil, fmt.Errorf("name resolution enabled without a resolver")
	}
	bindings := opts.Bindings
	if len(bindings) == 0 {
		bindings = DefaultBindings
	}
	for _, b := range bindings {
		if err := storage.ValidateIdentifier(b.Column); err != nil {
			return nil, fmt.Errorf("column for %s: %w", b.Key, err)
		}
	}
	return &Builder{
		resolver: resolver,
		table:    opts.Table,
		dialect:  opts.Dialect,
		resolve:  opts.ResolveNames,
		bindings: bindings,
	}, nil
}

// Build compiles set into a SELECT * with one equality predicate per present
// key, AND-ed in binding order. An empty set compiles to an unfiltered
// SELECT. The first name that fails to resolve aborts the build with the
// resolver's error; no partial query is returned.
func (b *Builder) Build(ctx context.Context, set filters.Set) (*Compiled, error) {
	stmt := sq.Select("*").
		From(b.dialect.QuoteTable(b.table)).
		PlaceholderFormat(b.dialect.Placeholder)

	var preds []Predicate
	for _, binding := range b.bindings {
		raw, ok := set.Get(binding.Key)
		if !ok {
			continue
		}

		var value any = raw
		if binding.Indirect() && b.resolve {
			code, err := b.resolver.Resolve(ctx, binding.Kind, raw)
			if err != nil {
				return nil, err
			}
			value = code
		}

		// one Where per predicate keeps declaration order; sq.Eq with
		// several keys would sort them
		stmt = stmt.Where(sq.Eq{b.dialect.Quote(binding.Column): value})
		preds = append(preds, Predicate{Key: binding.Key, Column: binding.Column, Value: value})
	}

	sqlText, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	return &Compiled{SQL: sqlText, Args: args, Predicates: preds}, nil
}
