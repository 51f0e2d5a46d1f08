// Package surveyerr defines the sentinel error kinds shared across the
// survey engine's packages (see spec §7, Error Handling Design).
package surveyerr

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for the conditions the engine surfaces to callers.
var (
	// ErrMalformedKey indicates a DisplayKey failed to parse.
	ErrMalformedKey = errors.New("malformed display key")

	// ErrUnknownRespondent indicates a referenced respondent does not exist.
	ErrUnknownRespondent = errors.New("unknown respondent")

	// ErrUnknownAnswer indicates a referenced answer does not exist.
	ErrUnknownAnswer = errors.New("unknown answer")

	// ErrInvalidTextValue indicates a textValue does not parse for its
	// question's type (e.g. "abc" for a NUMBER question).
	ErrInvalidTextValue = errors.New("invalid text value")

	// ErrStorageFailure indicates a transaction aborted; callers may retry.
	ErrStorageFailure = errors.New("storage failure")

	// ErrUnimplementedRepeatStep indicates a REPEAT relationship targeted a
	// step, which spec §4.G documents as a known, intentional gap.
	ErrUnimplementedRepeatStep = errors.New("REPEAT targeting a step is not implemented")

	// ErrNotFound indicates a row was absent where absence is not itself an
	// error condition worth a dedicated sentinel (e.g. a query returning zero
	// rows against a wildcard pattern).
	ErrNotFound = errors.New("not found")
)

// Wrap attaches operation context to err, converting sql.ErrNoRows to
// ErrNotFound for consistent handling up the stack. Mirrors the shape of a
// wrapDBError helper used throughout a SQL storage backend's error path.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation description.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(fmt.Sprintf(format, args...), err)
}
