package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(&Config{Driver: "sqlite", FilePath: "file::memory:", MaxIdleConns: 1, MaxOpenConns: 1})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
	assert.NoError(t, Close(db))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&Config{Driver: "oracle"})
	assert.EqualError(t, err, "unsupported database driver: oracle")
}
