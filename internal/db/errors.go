package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound — запрошенной записи нет.
var ErrNotFound = errors.New("not found")

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func IsUniqueViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeCheckViolation
}

// Constraint — имя нарушенного ограничения или "".
func Constraint(err error) string {
	_, name := pgCode(err)
	return name
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
