// Package storagetest seeds an in-memory SQLite database with a small survey
// extract and codes table for package tests.
package storagetest

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vinayak1844/Statathon-Project/internal/storage"
)

const (
	DatasetTable = "microdata_op"
	CodesTable   = "codes"
)

// DatasetCSV is the fixture survey extract. H007 carries SQL metacharacters
// in Social_Group so parameterization can be checked end to end.
const DatasetCSV = `HHID,StateUt_Code,Sector,District_Code,Religion,Social_Group,Household_Size,Panel,Quarter,Visit,Monthly_Expenditure
H001,10,Urban,28,Hindu,General,4,1,Q1,1,12000
H002,10,Rural,32,Hindu,OBC,6,1,Q1,1,8000
H003,10,Urban,28,Muslim,General,3,2,Q2,1,15000
H004,33,Urban,2,Hindu,SC,5,2,Q2,2,11000
H005,32,Rural,7,Christian,ST,2,1,Q3,1,9000
H006,10,Urban,32,Hindu,General,4,2,Q3,2,10000
H007,32,Urban,7,Hindu,"O'Neil""; DROP TABLE microdata_op;--",1,1,Q4,1,7000
`

// CodesCSV is the fixture reference table. Bihar appears once per district.
const CodesCSV = `State Name,state_code,DISTRICT NAME,DISTRICT CODE
Bihar,10,Patna,28
Bihar,10,Gaya,32
Tamil Nadu,33,Chennai,2
Kerala,32,Ernakulam,7
`

// DatasetRows is the number of rows in DatasetCSV.
const DatasetRows = 7

// NewSQLite returns a seeded in-memory database closed at test cleanup.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	Seed(t, db, storage.SQLite)
	return db
}

// Seed loads the fixture tables into db.
func Seed(t testing.TB, db *sql.DB, dialect storage.Dialect) {
	t.Helper()

	ctx := context.Background()
	loader := storage.NewLoader(db, dialect)

	n, err := loader.LoadCSV(ctx, DatasetTable, strings.NewReader(DatasetCSV), storage.LoadOptions{Replace: true})
	require.NoError(t, err)
	require.Equal(t, DatasetRows, n)

	_, err = loader.LoadCSV(ctx, CodesTable, strings.NewReader(CodesCSV), storage.LoadOptions{Replace: true})
	require.NoError(t, err)
}
