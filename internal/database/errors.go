package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/protomem/credit-bank/internal/validator"
)

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, pgerrcode.ForeignKeyViolation)
}

// ConstraintName returns the name of the violated constraint, if err carries one.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// InvalidValue converts a value the store rejected (numeric overflow or a
// failed CHECK constraint) into a *validator.Error. It returns nil for any
// other error.
func InvalidValue(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}

	var v validator.Validator
	switch pgErr.Code {
	case pgerrcode.NumericValueOutOfRange:
		v.AddError("numeric value is out of range")
	case pgerrcode.CheckViolation:
		if field := checkedField(pgErr.ConstraintName); field != "" {
			v.AddFieldError(field, "is out of the allowed range")
		} else {
			v.AddError("value is out of the allowed range")
		}
	default:
		return nil
	}

	return v.Err()
}

// checkedField extracts the column from a "<table>_<column>_check" constraint name.
func checkedField(constraint string) string {
	name, ok := strings.CutSuffix(constraint, "_check")
	if !ok {
		return ""
	}

	_, field, _ := strings.Cut(name, "_")
	return field
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
