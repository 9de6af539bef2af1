package errors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalid          = errors.New("invalid")
	ErrConflict         = errors.New("conflict")
	ErrInternal         = errors.New("internal")
	ErrJobNotFound      = errors.New("job not found")
	ErrNoteNotFound     = errors.New("note not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidKind      = errors.New("invalid kind")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrNoteNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}
