package storage_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vinayak1844/Statathon-Project/internal/storage"
	"github.com/Vinayak1844/Statathon-Project/internal/storage/storagetest"
)

func TestDataset_ExecutePreservesColumnOrder(t *testing.T) {
	db := storagetest.NewSQLite(t)
	ds := storage.NewDataset(db)

	rows, err := ds.Execute(context.Background(), "SELECT * FROM `microdata_op` WHERE HHID = ?", []any{"H004"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, []string{
		"HHID", "StateUt_Code", "Sector", "District_Code", "Religion", "Social_Group",
		"Household_Size", "Panel", "Quarter", "Visit", "Monthly_Expenditure",
	}, rows[0].Columns)

	code, ok := rows[0].Get("StateUt_Code")
	require.True(t, ok)
	assert.Equal(t, int64(33), code)

	b, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `{"HHID":"H004","StateUt_Code":33,"Sector":"Urban"`), string(b))
}

func TestDataset_ExecuteEmptyResultIsNotNil(t *testing.T) {
	db := storagetest.NewSQLite(t)
	ds := storage.NewDataset(db)

	rows, err := ds.Execute(context.Background(), "SELECT * FROM `microdata_op` WHERE Sector = ?", []any{"Suburban"})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	b, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestDataset_ExecuteReportsQueryErrors(t *testing.T) {
	db := storagetest.NewSQLite(t)
	ds := storage.NewDataset(db)

	_, err := ds.Execute(context.Background(), "SELECT * FROM missing_table", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query dataset")
}

func TestRow_Get(t *testing.T) {
	r := storage.Row{Columns: []string{"a", "b"}, Values: []any{1, "x"}}
	v, ok := r.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = r.Get("c")
	assert.False(t, ok)
}

func TestDialect_Quote(t *testing.T) {
	tests := []struct {
		dialect storage.Dialect
		ident   string
		want    string
	}{
		{storage.MySQL, "State Name", "`State Name`"},
		{storage.SQLite, "DISTRICT CODE", "`DISTRICT CODE`"},
		{storage.Postgres, "State Name", `"State Name"`},
		{storage.MySQL, "we`ird", "`we``ird`"},
		{storage.Postgres, `we"ird`, `"we""ird"`},
	}
	for _, tc := range tests {
		t.Run(tc.dialect.Name+"/"+tc.ident, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.dialect.Quote(tc.ident))
		})
	}

	assert.Equal(t, `"survey"."microdata_op"`, storage.Postgres.QuoteTable("survey.microdata_op"))
}

func TestDialectFor(t *testing.T) {
	d, err := storage.DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name)

	d, err = storage.DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name)

	_, err = storage.DialectFor("oracle")
	assert.ErrorIs(t, err, storage.ErrUnsupportedDriver)
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, storage.ValidateIdentifier("State Name"))
	assert.ErrorIs(t, storage.ValidateIdentifier(" "), storage.ErrInvalidIdentifier)
	assert.ErrorIs(t, storage.ValidateIdentifier("bad\x00name"), storage.ErrInvalidIdentifier)
}
