package domain

import "errors"

var (
	// ErrNotFound signals a missing group or document.
	ErrNotFound = errors.New("not found")
	// ErrQuestionExists signals a duplicate question id within a group.
	ErrQuestionExists = errors.New("question id already exists")
	// ErrValidation signals malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable signals a store/index failure already logged at the
	// adapter boundary.
	ErrStoreUnavailable = errors.New("store unavailable")
)
