package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyRemoteError(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"record not found", gorm.ErrRecordNotFound, IsNotFound},
		{"wrapped record not found", fmt.Errorf("query: %w", gorm.ErrRecordNotFound), IsNotFound},
		{"deadline exceeded", context.DeadlineExceeded, IsNetworkError},
		{"context canceled", context.Canceled, IsNetworkError},
		{"bad connection", driver.ErrBadConn, IsNetworkError},
		{"dial failure", dialErr, IsNetworkError},
		{"pg insufficient privilege", &pgconn.PgError{Code: "42501"}, IsOwnershipError},
		{"pg invalid authorization", &pgconn.PgError{Code: "28000"}, IsOwnershipError},
		{"pg invalid password", &pgconn.PgError{Code: "28P01"}, IsOwnershipError},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, IsNetworkError},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, IsNetworkError},
		{"pg too many connections", &pgconn.PgError{Code: "53300"}, IsNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyRemoteError("op", "d-1", tt.err)
			assert.True(t, tt.check(classified), "got %T: %v", classified, classified)
		})
	}
}

func TestClassifyRemoteErrorPassesThroughUnknown(t *testing.T) {
	plain := errors.New("constraint violated")
	classified := ClassifyRemoteError("op", "d-1", plain)
	require.Error(t, classified)
	assert.False(t, IsNetworkError(classified))
	assert.False(t, IsNotFound(classified))
	assert.False(t, IsOwnershipError(classified))
	assert.ErrorIs(t, classified, plain)
}

func TestClassifyRemoteErrorNil(t *testing.T) {
	assert.NoError(t, ClassifyRemoteError("op", "d-1", nil))
}

func TestErrOfflineIsNetworkError(t *testing.T) {
	err := ErrOffline("sync")
	assert.True(t, IsNetworkError(err))
	assert.Contains(t, err.Error(), "sync")
}

func TestTaxonomyUnwrap(t *testing.T) {
	inner := errors.New("boom")
	assert.ErrorIs(t, &NetworkError{Op: "op", Err: inner}, inner)
	assert.ErrorIs(t, &OwnershipError{Op: "op", ID: "d", Err: inner}, inner)
	assert.ErrorIs(t, &LocalStorageError{Op: "op", Err: inner}, inner)
}
