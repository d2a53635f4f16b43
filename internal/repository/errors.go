package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	ErrDuplicateRegNo         = errors.New("student with this registration number or email already exists")
	ErrDuplicateEmail         = errors.New("admin with this email already exists")
	ErrDuplicateParticipation = errors.New("student is already registered for this event")
	ErrDuplicateRole          = errors.New("role with this name already exists")
	ErrEventFull              = errors.New("event has reached its capacity")
	ErrReferenced             = errors.New("record is referenced by other data")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// notFound translates pgx.ErrNoRows into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
