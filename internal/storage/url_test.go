package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantDriver string
		wantPrefix string
	}{
		{"mysql", "mysql://root:secret@db:3307/nss", "mysql", "root:secret@tcp(db:3307)/nss"},
		{"mysql default port", "mysql+pymysql://app:pw@localhost/survey", "mysql", "app:pw@tcp(localhost:3306)/survey"},
		{"postgres", "postgres://u:p@localhost:5432/nss?sslmode=disable", "postgres", "postgres://u:p@localhost:5432/nss?sslmode=disable"},
		{"postgresql", "postgresql://u@h/db", "postgres", "postgresql://u@h/db"},
		{"sqlite", "sqlite:/tmp/nss.db", "sqlite", "/tmp/nss.db"},
		{"sqlite slashes", "sqlite:///var/nss.db", "sqlite", "/var/nss.db"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			driver, dsn, err := ParseURL(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDriver, driver)
			assert.True(t, strings.HasPrefix(dsn, tc.wantPrefix), dsn)
		})
	}
}

func TestParseURL_Errors(t *testing.T) {
	_, _, err := ParseURL("oracle://x")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	_, _, err = ParseURL("no-scheme")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	_, _, err = ParseURL("sqlite:")
	assert.Error(t, err)
}
