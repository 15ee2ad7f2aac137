package storage

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferColumnTypes(t *testing.T) {
	rows := [][]string{
		{"1", "1.5", "x", "", "7"},
		{"2", "2", "3", "", "7.25"},
	}
	got := inferColumnTypes(5, rows)
	assert.Equal(t, []columnType{columnInteger, columnReal, columnText, columnText, columnReal}, got)
}

func TestLoader_LoadCSV(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	csv := "State Name,state_code\nBihar,10\nKerala,32\n"
	var progress []int

	n, err := NewLoader(db, SQLite).LoadCSV(context.Background(), "codes", strings.NewReader(csv), LoadOptions{
		Progress: func(done, total int) {
			assert.Equal(t, 2, total)
			progress = append(progress, done)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, progress)

	var code int64
	require.NoError(t, db.QueryRow("SELECT `state_code` FROM `codes` WHERE `State Name` = ?", "Kerala").Scan(&code))
	assert.Equal(t, int64(32), code)

	// reload without replace appends
	n, err = NewLoader(db, SQLite).LoadCSV(context.Background(), "codes", strings.NewReader(csv), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM `codes`").Scan(&count))
	assert.Equal(t, 4, count)
}

func TestLoader_LoadCSVRejectsEmptyInput(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewLoader(db, SQLite).LoadCSV(context.Background(), "codes", strings.NewReader(""), LoadOptions{})
	assert.Error(t, err)
}
