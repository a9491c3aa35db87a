package database

import "errors"

// IsNotFound reports whether err means the requested row is absent.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err is a key conflict on insert.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsUnavailable reports whether err means the store cannot be reached, as
// opposed to a problem with a single row.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
