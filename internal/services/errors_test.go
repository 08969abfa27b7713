package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUniqueViolationDetection(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		unique bool
		field  string
	}{
		{name: "nil", err: nil},
		{name: "translated", err: gorm.ErrDuplicatedKey, unique: true},
		{name: "postgres phone", err: &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_phone_number"}, unique: true, field: "phone_number"},
		{name: "postgres email wrapped", err: fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}), unique: true, field: "email"},
		{name: "postgres not null", err: &pgconn.PgError{Code: "23502", Message: "null value violates not-null constraint"}},
		{name: "postgres foreign key", err: &pgconn.PgError{Code: "23503", ConstraintName: "fk_users_profile"}},
		{name: "mysql phone", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '+15551234567' for key 'users.idx_users_phone_number'"}, unique: true, field: "phone_number"},
		{name: "mysql email", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'idx_users_email'"}, unique: true, field: "email"},
		{name: "mysql not null", err: &mysql.MySQLError{Number: 1048, Message: "Column 'email' cannot be null"}},
		{name: "sqlite phone", err: errors.New("UNIQUE constraint failed: users.phone_number"), unique: true, field: "phone_number"},
		{name: "sqlite email", err: errors.New("UNIQUE constraint failed: users.email"), unique: true, field: "email"},
		{name: "sqlite not null", err: errors.New("NOT NULL constraint failed: users.email")},
		{name: "sqlite check", err: errors.New("CHECK constraint failed: gender")},
		{name: "sqlite foreign key", err: errors.New("FOREIGN KEY constraint failed")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.unique, isUniqueConstraintError(tc.err))
			require.Equal(t, tc.field, uniqueViolationField(tc.err))
		})
	}
}

func TestNotNullFailureIsNotReportedAsUnique(t *testing.T) {
	db := openTestDB(t)

	err := db.Exec("INSERT INTO users (id, email) VALUES (?, NULL)", "missing-email").Error
	require.Error(t, err)
	require.False(t, isUniqueConstraintError(err))
}

func TestConflictingFieldFallsBackToLookup(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	existing := createUser(t, svc.db, userFixture{Email: "taken@example.com", Phone: "+15550001111"})

	require.Equal(t, "phone_number", svc.conflictingField(ctx, gorm.ErrDuplicatedKey, "fresh@example.com", strPtr("+15550001111"), ""))
	require.Equal(t, "email", svc.conflictingField(ctx, gorm.ErrDuplicatedKey, "taken@example.com", strPtr("+15559998888"), ""))
	require.Equal(t, "email", svc.conflictingField(ctx, gorm.ErrDuplicatedKey, "", nil, ""))

	// The row being updated never conflicts with itself.
	require.Equal(t, "email", svc.conflictingField(ctx, gorm.ErrDuplicatedKey, "", strPtr("+15550001111"), existing.ID))

	// A driver error that names the index wins over the lookup.
	named := errors.New("UNIQUE constraint failed: users.phone_number")
	require.Equal(t, "phone_number", svc.conflictingField(ctx, named, "taken@example.com", nil, ""))
}
