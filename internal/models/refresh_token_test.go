package models

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newTokenTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestRevokeUserRefreshTokensFlipsActiveTokens(t *testing.T) {
	db, mock := newTokenTestDB(t)

	mock.ExpectExec(`UPDATE .refresh_tokens. SET`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, RevokeUserRefreshTokens(db, "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeStaleRefreshTokensReportsRowCount(t *testing.T) {
	db, mock := newTokenTestDB(t)

	mock.ExpectExec(`DELETE FROM .refresh_tokens. WHERE expires_at < \? OR is_revoked = \?`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	purged, err := PurgeStaleRefreshTokens(db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
