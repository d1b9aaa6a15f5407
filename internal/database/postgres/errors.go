package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/datamodeler/internal/database"
	"github.com/koustreak/datamodeler/internal/errs"
)

var _ database.DB = (*Driver)(nil)

// PostgreSQL SQLSTATE codes the preview cares about.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrQueryCanceled       = "57014"
	pgErrInsufficientPrivs   = "42501"
	pgErrUndefinedTable      = "42P01"
	pgErrUndefinedColumn     = "42703"
	pgErrClassConnection     = "08"
	pgErrClassInvalidAuth    = "28"
	pgErrClassInvalidCatalog = "3D"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
// A nil err maps to nil.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifyCode(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Network, TLS and handshake failures.
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyCode maps a SQLSTATE onto an error kind.
func classifyCode(code string) errs.ErrKind {
	switch code {
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	case pgErrInsufficientPrivs:
		return errs.ErrKindPermissionDenied
	case pgErrUndefinedTable, pgErrUndefinedColumn:
		return errs.ErrKindQueryFailed
	}
	if len(code) >= 2 {
		switch code[:2] {
		case pgErrClassConnection, pgErrClassInvalidCatalog:
			return errs.ErrKindConnectionFailed
		case pgErrClassInvalidAuth:
			return errs.ErrKindPermissionDenied
		}
	}
	return errs.ErrKindQueryFailed
}
