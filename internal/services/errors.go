package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFailed   = "unique constraint failed"
	userEmailIndexSuffix = "email"
	userPhoneIndexSuffix = "phone_number"
)

// isUniqueConstraintError reports whether err is a uniqueness violation. NOT NULL, CHECK and
// foreign key failures are not.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, sqliteUniqueFailed) ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

// uniqueViolationField names the users column behind a uniqueness violation, or "" when the
// driver error does not say (gorm's translated ErrDuplicatedKey carries no detail).
//
// Postgres reports the index in ConstraintName, MySQL quotes it in the message as
// 'users.idx_users_phone_number', and SQLite lists the columns ("users.phone_number").
func uniqueViolationField(err error) string {
	if !isUniqueConstraintError(err) {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fieldFromIndex(pgErr.ConstraintName)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		msg := myErr.Message
		if i := strings.LastIndex(msg, "for key "); i >= 0 {
			return fieldFromIndex(strings.Trim(msg[i+len("for key "):], "'`\" "))
		}
		return ""
	}

	lower := strings.ToLower(err.Error())
	if i := strings.Index(lower, sqliteUniqueFailed); i >= 0 {
		cols := strings.Split(lower[i+len(sqliteUniqueFailed):], ",")
		return fieldFromIndex(strings.TrimSpace(cols[0]))
	}
	return ""
}

func fieldFromIndex(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(name, userPhoneIndexSuffix):
		return "phone_number"
	case strings.HasSuffix(name, userEmailIndexSuffix):
		return "email"
	}
	return ""
}
