package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Typed errors surfaced by the store. Callers branch on these instead of
// string-matching driver messages.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrForeignKey = errors.New("referenced row does not exist")
	ErrLimit      = errors.New("limit reached")
)

// mapError remaps driver constraint errors onto the closed set above.
// Everything else passes through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", ErrForeignKey, err)
		}
	}
	return err
}

// limitError annotates ErrLimit with the entity kind and ceiling.
func limitError(kind string, max int) error {
	return fmt.Errorf("%w: at most %d %s per guild", ErrLimit, max, kind)
}
