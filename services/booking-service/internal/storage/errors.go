package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by every store implementation.
var (
	ErrNotFound         = errors.New("record not found")
	ErrSlotTaken        = errors.New("time slot already booked")
	ErrReferenced       = errors.New("record is still referenced")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrDuplicate        = errors.New("duplicate record")
)

const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"
)

const activeSlotIndex = "citas_fecha_hora_activa_key"

// translate maps driver errors onto the sentinels above. onForeignKey picks
// the meaning of a foreign key violation, which depends on the statement.
func translate(err error, onForeignKey error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgExclusionViolation:
		return ErrSlotTaken
	case pgUniqueViolation:
		if pgErr.ConstraintName == activeSlotIndex {
			return ErrSlotTaken
		}
		return ErrDuplicate
	case pgForeignKeyViolation:
		if onForeignKey != nil {
			return onForeignKey
		}
		return ErrInvalidReference
	}
	return err
}
