package storage

import (
	"errors"

	"github.com/suavhq/suav/libs/db"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrOverlap   = errors.New("booking window overlaps an existing booking")
	ErrDuplicate = errors.New("duplicate key")
	// ErrInUse means other rows still reference the row being removed.
	ErrInUse = errors.New("row is still referenced")
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsNoRows(err), db.HasCode(err, db.CodeInvalidText):
		return ErrNotFound
	case db.HasCode(err, db.CodeExclusionViolation):
		return ErrOverlap
	case db.HasCode(err, db.CodeUniqueViolation):
		return ErrDuplicate
	case db.HasCode(err, db.CodeForeignKeyViolation):
		return ErrInUse
	}
	return err
}
