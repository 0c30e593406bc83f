package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers check it
// with errors.Is instead of depending on pgx internals.
var ErrNotFound = errors.New("not found")
