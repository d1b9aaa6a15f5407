package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"cancelled", fmt.Errorf("wrapped: %w", context.Canceled), errs.ErrKindTimeout},
		{"no rows", pgx.ErrNoRows, errs.ErrKindNotFound},
		{"undefined table", &pgconn.PgError{Code: "42P01", Message: `relation "x" does not exist`}, errs.ErrKindQueryFailed},
		{"syntax", &pgconn.PgError{Code: "42601", Message: "syntax error"}, errs.ErrKindQueryFailed},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, errs.ErrKindTimeout},
		{"privileges", &pgconn.PgError{Code: "42501"}, errs.ErrKindPermissionDenied},
		{"bad password", &pgconn.PgError{Code: "28P01"}, errs.ErrKindPermissionDenied},
		{"connection class", &pgconn.PgError{Code: "08006"}, errs.ErrKindConnectionFailed},
		{"unknown database", &pgconn.PgError{Code: "3D000"}, errs.ErrKindConnectionFailed},
		{"network", errors.New("dial tcp: connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "query failed")
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, mapError(nil, "unused"))
}

func TestMapError_IncludesServerMessage(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "42703", Message: `column "nope" does not exist`}, "query failed")
	assert.Contains(t, err.Error(), `query failed: column "nope" does not exist`)
}

func TestPlainValue(t *testing.T) {
	var n pgtype.Numeric
	require.NoError(t, n.Scan("12.5"))
	assert.Equal(t, 12.5, plainValue(n))

	id := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", plainValue(id))

	assert.Equal(t, "plain", plainValue("plain"))
	assert.Nil(t, plainValue(pgtype.Numeric{}))
}
